package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/pkg/errors"
)

// stubConfig is a minimal Config implementation for registry tests.
type stubConfig struct {
	name string
}

func (*stubConfig) ClientContext(_ context.Context, _, _ string, _, _ Policy, _ CallbackHandler) (ClientContext, bool, error) {
	return nil, false, nil
}

func (*stubConfig) ServerContext(_ context.Context, _, _ string, _, _ Policy, _ CallbackHandler) (ServerContext, bool, error) {
	return nil, false, nil
}

func (*stubConfig) Refresh() error { return nil }

// resetRegistryState clears the cached config and the provider property,
// restoring both when the test finishes.
func resetRegistryState(t *testing.T) {
	t.Helper()
	ResetConfig()
	prev := viper.GetString(ProviderProperty)
	t.Cleanup(func() {
		viper.Set(ProviderProperty, prev)
		ResetConfig()
	})
}

//nolint:paralleltest // mutates the process-wide registry and property
func TestGetConfigUsesPropertyProvider(t *testing.T) {
	resetRegistryState(t)

	want := &stubConfig{name: "from-property"}
	RegisterProvider("test-property-provider", func() (Config, error) { return want, nil })
	viper.Set(ProviderProperty, "test-property-provider")

	got, err := GetConfig()
	require.NoError(t, err)
	assert.Same(t, want, got)
}

//nolint:paralleltest // mutates the process-wide registry and property
func TestGetConfigCachesInstance(t *testing.T) {
	resetRegistryState(t)

	calls := 0
	RegisterProvider("test-caching-provider", func() (Config, error) {
		calls++
		return &stubConfig{name: fmt.Sprintf("instance-%d", calls)}, nil
	})
	viper.Set(ProviderProperty, "test-caching-provider")

	first, err := GetConfig()
	require.NoError(t, err)
	second, err := GetConfig()
	require.NoError(t, err)

	assert.Same(t, first, second, "GetConfig must return the identical cached instance")
	assert.Equal(t, 1, calls, "provider factory must be invoked once")
}

//nolint:paralleltest // mutates the process-wide registry and property
func TestSetConfigOverridesProperty(t *testing.T) {
	resetRegistryState(t)

	RegisterProvider("test-overridden-provider", func() (Config, error) {
		return &stubConfig{name: "from-property"}, nil
	})
	viper.Set(ProviderProperty, "test-overridden-provider")

	override := &stubConfig{name: "override"}
	SetConfig(override)

	got, err := GetConfig()
	require.NoError(t, err)
	assert.Same(t, override, got, "explicit override wins over the property")
}

//nolint:paralleltest // mutates the process-wide registry and property
func TestGetConfigUnknownProviderRetries(t *testing.T) {
	resetRegistryState(t)

	viper.Set(ProviderProperty, "test-no-such-provider")

	_, err := GetConfig()
	require.Error(t, err)
	assert.True(t, errors.IsSecurity(err))

	// A failed resolution leaves the cache unset; fixing the property
	// lets a later call succeed.
	want := &stubConfig{name: "late"}
	RegisterProvider("test-late-provider", func() (Config, error) { return want, nil })
	viper.Set(ProviderProperty, "test-late-provider")

	got, err := GetConfig()
	require.NoError(t, err)
	assert.Same(t, want, got)
}

//nolint:paralleltest // mutates the process-wide registry and property
func TestGetConfigFactoryFailureRetries(t *testing.T) {
	resetRegistryState(t)

	fail := true
	want := &stubConfig{name: "eventually"}
	RegisterProvider("test-flaky-provider", func() (Config, error) {
		if fail {
			return nil, fmt.Errorf("backing store unavailable")
		}
		return want, nil
	})
	viper.Set(ProviderProperty, "test-flaky-provider")

	_, err := GetConfig()
	require.Error(t, err)
	assert.True(t, errors.IsSecurity(err))
	assert.Contains(t, err.Error(), "backing store unavailable")

	fail = false
	got, err := GetConfig()
	require.NoError(t, err)
	assert.Same(t, want, got)
}

//nolint:paralleltest // mutates the process-wide registry and property
func TestGetConfigConcurrentResolution(t *testing.T) {
	resetRegistryState(t)

	var calls int
	RegisterProvider("test-concurrent-provider", func() (Config, error) {
		calls++
		return &stubConfig{name: "shared"}, nil
	})
	viper.Set(ProviderProperty, "test-concurrent-provider")

	const workers = 16
	results := make([]Config, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cfg, err := GetConfig()
			assert.NoError(t, err)
			results[i] = cfg
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, calls, "lazy instantiation must have exactly one race winner")
	for i := 1; i < workers; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestRegisterProviderDuplicatePanics(t *testing.T) {
	t.Parallel()

	RegisterProvider("test-duplicate-provider", func() (Config, error) { return nil, nil })
	assert.Panics(t, func() {
		RegisterProvider("test-duplicate-provider", func() (Config, error) { return nil, nil })
	})
}
