package auth

// SourceAuth identifies how the message source authenticates itself.
type SourceAuth string

// Source authentication types.
const (
	// SourceAuthNone performs no source authentication.
	SourceAuthNone SourceAuth = ""

	// SourceAuthSender authenticates the message sender (e.g., a bearer
	// credential accompanying the request).
	SourceAuthSender SourceAuth = "sender"

	// SourceAuthContent authenticates the message content (e.g., a
	// signature over the message body).
	SourceAuthContent SourceAuth = "content"
)

// Policy is a message-protection policy enforced by auth modules. A
// request policy describes what the modules must establish about the
// incoming message; a response policy describes what they must apply to
// the outgoing one. The zero value means "use the provider's default
// policy".
type Policy struct {
	// SourceAuth is the required source authentication type.
	SourceAuth SourceAuth `json:"source_auth,omitempty"`

	// RecipientAuth requires the message recipient to be authenticated
	// to the sender.
	RecipientAuth bool `json:"recipient_auth,omitempty"`
}

// IsZero reports whether the policy is the "use default" zero value.
func (p Policy) IsZero() bool {
	return p == Policy{}
}
