// Package auth manages the configuration of pluggable auth modules: the
// process-wide Config registry, the module SPI, and the context objects
// that encapsulate module invocation.
package auth

import "context"

// Identity represents an authenticated caller established by a module
// chain.
type Identity struct {
	// Subject is the unique identifier of the caller.
	Subject string

	// Name is the human-readable name, when known.
	Name string

	// Email is the caller's email address, when known.
	Email string

	// Claims carries the full claim set the identity was derived from.
	Claims map[string]any

	// Token is the raw credential the identity was derived from, for
	// passthrough scenarios. May be empty.
	Token string

	// TokenType is the credential type, e.g. "Bearer".
	TokenType string
}

// IdentityContextKey is the key used to store an Identity in a context.
//
// Using an empty struct as the key prevents collisions with other context
// keys, as each empty struct type is distinct even if they have the same
// name in different packages.
type IdentityContextKey struct{}

// WithIdentity stores an Identity in the context. If identity is nil, the
// original context is returned unchanged.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, IdentityContextKey{}, identity)
}

// IdentityFromContext retrieves an Identity from the context.
// Returns the identity and true if present, nil and false otherwise.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(IdentityContextKey{}).(*Identity)
	return identity, ok
}
