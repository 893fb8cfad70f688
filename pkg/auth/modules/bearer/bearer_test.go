package bearer

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/pkg/auth"
)

func TestSecureRequestWithStaticToken(t *testing.T) {
	t.Parallel()

	mod := auth.GetModuleFactory(ModuleName)()
	require.NoError(t, mod.Init(auth.Policy{}, auth.Policy{}, nil, map[string]any{"token": "s3cr3t"}))
	defer mod.Dispose()

	client, ok := mod.(auth.ClientModule)
	require.True(t, ok)

	msg := auth.NewMessage(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, client.SecureRequest(context.Background(), msg))
	assert.Equal(t, "Bearer s3cr3t", msg.Request.Header.Get("Authorization"))
}

func TestSecureRequestWithCallbackHandler(t *testing.T) {
	t.Parallel()

	handler := auth.CallbackHandlerFunc(func(_ context.Context, callbacks ...auth.Callback) error {
		for _, cb := range callbacks {
			if pw, ok := cb.(*auth.PasswordCallback); ok {
				pw.Password = []byte("from-handler")
			}
		}
		return nil
	})

	mod := auth.GetModuleFactory(ModuleName)()
	require.NoError(t, mod.Init(auth.Policy{}, auth.Policy{}, handler, nil))
	defer mod.Dispose()

	msg := auth.NewMessage(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, mod.(auth.ClientModule).SecureRequest(context.Background(), msg))
	assert.Equal(t, "Bearer from-handler", msg.Request.Header.Get("Authorization"))
}

func TestInitRequiresTokenOrHandler(t *testing.T) {
	t.Parallel()

	mod := auth.GetModuleFactory(ModuleName)()
	err := mod.Init(auth.Policy{}, auth.Policy{}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token option or a callback handler")
}
