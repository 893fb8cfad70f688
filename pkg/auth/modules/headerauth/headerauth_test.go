package headerauth

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/pkg/auth"
	"github.com/authgate/authgate/pkg/errors"
)

func newModule(t *testing.T, options map[string]any) auth.ServerModule {
	t.Helper()

	mod := auth.GetModuleFactory(ModuleName)()
	require.NoError(t, mod.Init(auth.Policy{}, auth.Policy{}, nil, options))
	t.Cleanup(mod.Dispose)

	server, ok := mod.(auth.ServerModule)
	require.True(t, ok)
	return server
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	mod := newModule(t, nil)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(DefaultSubjectHeader, "alice")
	req.Header.Set(DefaultNameHeader, "Alice Example")
	req.Header.Set(DefaultEmailHeader, "alice@example.com")

	msg := auth.NewMessage(req)
	require.NoError(t, mod.ValidateRequest(context.Background(), msg))

	require.NotNil(t, msg.Identity)
	assert.Equal(t, "alice", msg.Identity.Subject)
	assert.Equal(t, "Alice Example", msg.Identity.Name)
	assert.Equal(t, "alice@example.com", msg.Identity.Email)
}

func TestMissingSubjectHeader(t *testing.T) {
	t.Parallel()

	mod := newModule(t, nil)

	msg := auth.NewMessage(httptest.NewRequest("GET", "/", nil))
	err := mod.ValidateRequest(context.Background(), msg)
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))
	assert.Nil(t, msg.Identity)
}

func TestCustomHeaderNames(t *testing.T) {
	t.Parallel()

	mod := newModule(t, map[string]any{"subject_header": "X-Remote-User"})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Remote-User", "bob")

	msg := auth.NewMessage(req)
	require.NoError(t, mod.ValidateRequest(context.Background(), msg))
	assert.Equal(t, "bob", msg.Identity.Subject)
}
