package auth

import "net/http"

// Message is the unit passed through a module chain: the request being
// validated or secured, the response headers modules may write to, and the
// identity established so far.
type Message struct {
	// Request is the message being processed. For the HTTP interception
	// point this is the inbound request.
	Request *http.Request

	// Header receives response protection applied by modules (e.g.
	// challenge or signature headers).
	Header http.Header

	// Identity is set by the first module that authenticates the caller.
	Identity *Identity

	// Attributes carries module-private state across the chain.
	Attributes map[string]any
}

// NewMessage creates a message for an HTTP request.
func NewMessage(r *http.Request) *Message {
	return &Message{
		Request:    r,
		Header:     make(http.Header),
		Attributes: make(map[string]any),
	}
}
