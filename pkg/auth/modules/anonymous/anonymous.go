// Package anonymous provides a server-side auth module that stamps every
// request with an anonymous identity. This is useful for testing and local
// environments where downstream authorization needs an identity to work
// with, without requiring actual authentication. Heavily discouraged in
// production settings.
package anonymous

import (
	"context"
	"time"

	"github.com/authgate/authgate/pkg/auth"
)

// ModuleName is the registry name of this module.
const ModuleName = "anonymous"

func init() {
	auth.RegisterModule(ModuleName, func() auth.Module { return &module{} })
}

// module stamps messages with an anonymous identity. Options:
//   - subject: the subject to use instead of "anonymous".
type module struct {
	subject string
}

func (m *module) Init(_, _ auth.Policy, _ auth.CallbackHandler, options map[string]any) error {
	m.subject = "anonymous"
	if v, ok := options["subject"].(string); ok && v != "" {
		m.subject = v
	}
	return nil
}

func (*module) Dispose() {}

// ValidateRequest accepts every request and establishes an anonymous
// identity with basic claims so authorization policies can function even
// when authentication is disabled.
func (m *module) ValidateRequest(_ context.Context, msg *auth.Message) error {
	now := time.Now()
	msg.Identity = &auth.Identity{
		Subject: m.subject,
		Name:    "Anonymous User",
		Email:   m.subject + "@localhost",
		Claims: map[string]any{
			"sub":   m.subject,
			"iss":   "authgate-local",
			"aud":   "authgate",
			"exp":   now.Add(24 * time.Hour).Unix(),
			"iat":   now.Unix(),
			"nbf":   now.Unix(),
			"email": m.subject + "@localhost",
			"name":  "Anonymous User",
		},
	}
	return nil
}

func (*module) SecureResponse(_ context.Context, _ *auth.Message) error {
	return nil
}
