// Package headerauth provides a server-side auth module that derives the
// caller's identity from trusted request headers, for deployments that sit
// behind an authenticating reverse proxy.
package headerauth

import (
	"context"

	"github.com/authgate/authgate/pkg/auth"
	"github.com/authgate/authgate/pkg/errors"
)

// ModuleName is the registry name of this module.
const ModuleName = "header"

// Default header names, following the common forwarded-identity convention.
const (
	DefaultSubjectHeader = "X-Forwarded-User"
	DefaultNameHeader    = "X-Forwarded-Preferred-Username"
	DefaultEmailHeader   = "X-Forwarded-Email"
)

func init() {
	auth.RegisterModule(ModuleName, func() auth.Module { return &module{} })
}

// module reads the identity from request headers. Options:
//   - subject_header: header carrying the subject (default X-Forwarded-User)
//   - name_header: header carrying the display name
//   - email_header: header carrying the email address
//
// The headers must only be settable by a trusted proxy; the module itself
// performs no verification beyond requiring the subject header.
type module struct {
	subjectHeader string
	nameHeader    string
	emailHeader   string
}

func (m *module) Init(_, _ auth.Policy, _ auth.CallbackHandler, options map[string]any) error {
	m.subjectHeader = headerOption(options, "subject_header", DefaultSubjectHeader)
	m.nameHeader = headerOption(options, "name_header", DefaultNameHeader)
	m.emailHeader = headerOption(options, "email_header", DefaultEmailHeader)
	return nil
}

func headerOption(options map[string]any, key, fallback string) string {
	if v, ok := options[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func (*module) Dispose() {}

// ValidateRequest establishes the identity from the configured headers.
// A missing subject header fails the module.
func (m *module) ValidateRequest(_ context.Context, msg *auth.Message) error {
	headers := msg.Request.Header
	subject := headers.Get(m.subjectHeader)
	if subject == "" {
		return errors.NewAuthError("missing "+m.subjectHeader+" header", nil)
	}

	msg.Identity = &auth.Identity{
		Subject: subject,
		Name:    headers.Get(m.nameHeader),
		Email:   headers.Get(m.emailHeader),
		Claims: map[string]any{
			"sub":   subject,
			"name":  headers.Get(m.nameHeader),
			"email": headers.Get(m.emailHeader),
		},
	}
	return nil
}

func (*module) SecureResponse(_ context.Context, _ *auth.Message) error {
	return nil
}
