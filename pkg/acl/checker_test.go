package acl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionSetCheck(t *testing.T) {
	t.Parallel()

	set := NewPermissionSet()
	set.Grant("alice", NewWebResource("store", "/api/*", ""))
	set.Grant(SubjectWildcard, NewWebResource("store", "/public/*", "GET"))

	ctx := context.Background()

	allowed, err := set.Check(ctx, "alice", NewWebResource("store", "/api/orders", "POST"))
	require.NoError(t, err)
	assert.True(t, allowed)

	// Wildcard grants apply to any subject.
	allowed, err = set.Check(ctx, "bob", NewWebResource("store", "/public/catalog", "GET"))
	require.NoError(t, err)
	assert.True(t, allowed)

	// No grant implies this request.
	allowed, err = set.Check(ctx, "bob", NewWebResource("store", "/api/orders", "GET"))
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestPermissionSetConcurrentAccess(t *testing.T) {
	t.Parallel()

	set := NewPermissionSet()
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			set.Grant("subject", NewMethodResource("app", "res", MethodWildcard))
		}
	}()

	for i := 0; i < 100; i++ {
		_, err := set.Check(ctx, "subject", NewMethodResource("app", "res", "read"))
		require.NoError(t, err)
	}
	<-done

	allowed, err := set.Check(ctx, "subject", NewMethodResource("app", "res", "read"))
	require.NoError(t, err)
	assert.True(t, allowed)
}
