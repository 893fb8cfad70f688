// Package bearer provides a client-side auth module that attaches a
// static bearer token to outgoing requests.
package bearer

import (
	"context"

	"github.com/authgate/authgate/pkg/auth"
	"github.com/authgate/authgate/pkg/errors"
)

// ModuleName is the registry name of this module.
const ModuleName = "bearer"

func init() {
	auth.RegisterModule(ModuleName, func() auth.Module { return &module{} })
}

// module adds an Authorization header. Options:
//   - token: the bearer token to attach (required unless a callback
//     handler supplies it)
type module struct {
	token   string
	handler auth.CallbackHandler
}

func (m *module) Init(_, _ auth.Policy, handler auth.CallbackHandler, options map[string]any) error {
	if v, ok := options["token"].(string); ok {
		m.token = v
	}
	m.handler = handler
	if m.token == "" && m.handler == nil {
		return errors.NewInvalidArgumentError("bearer module requires a token option or a callback handler", nil)
	}
	return nil
}

func (*module) Dispose() {}

// SecureRequest attaches the token, asking the callback handler for it
// when none was configured.
func (m *module) SecureRequest(ctx context.Context, msg *auth.Message) error {
	token := m.token
	if token == "" {
		cb := &auth.PasswordCallback{Prompt: "bearer token"}
		if err := m.handler.Handle(ctx, cb); err != nil {
			return errors.NewAuthError("failed to obtain bearer token", err)
		}
		token = string(cb.Password)
	}
	if token == "" {
		return errors.NewAuthError("no bearer token available", nil)
	}
	msg.Request.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (*module) ValidateResponse(_ context.Context, _ *auth.Message) error {
	return nil
}
