package auth

import "context"

// Callback is a request for information from the caller, passed by a
// module to the CallbackHandler it was initialized with. Implementations
// are pointer types; handlers fill in the result fields.
type Callback interface {
	callback()
}

// NameCallback asks the handler for a principal name.
type NameCallback struct {
	// Prompt describes what the name is for.
	Prompt string

	// Name is filled in by the handler.
	Name string
}

func (*NameCallback) callback() {}

// PasswordCallback asks the handler for a password or other secret.
type PasswordCallback struct {
	// Prompt describes what the secret is for.
	Prompt string

	// Password is filled in by the handler.
	Password []byte
}

func (*PasswordCallback) callback() {}

// CallbackHandler lets configured modules request information from the
// caller during initialization or message processing.
type CallbackHandler interface {
	// Handle services the callbacks, filling in their result fields.
	// Returning an error signals that the requested information is not
	// available.
	Handle(ctx context.Context, callbacks ...Callback) error
}

// CallbackHandlerFunc adapts a function to the CallbackHandler interface.
type CallbackHandlerFunc func(ctx context.Context, callbacks ...Callback) error

// Handle calls f.
func (f CallbackHandlerFunc) Handle(ctx context.Context, callbacks ...Callback) error {
	return f(ctx, callbacks...)
}
