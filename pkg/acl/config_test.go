package acl

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockFactory is a test implementation of CheckerFactory
type mockFactory struct {
	validateErr error
	createErr   error
	checker     Checker
}

func (f *mockFactory) ValidateConfig(_ json.RawMessage) error {
	return f.validateErr
}

func (f *mockFactory) CreateChecker(_ json.RawMessage) (Checker, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.checker, nil
}

// mockChecker is a test implementation of Checker
type mockChecker struct{}

func (*mockChecker) Check(_ context.Context, _ string, _ Resource) (bool, error) {
	return true, nil
}

func TestGetFactory(t *testing.T) {
	t.Parallel()

	factory := GetFactory("nonexistent")
	assert.Nil(t, factory, "Expected nil for non-existent factory")
}

func TestIsRegistered(t *testing.T) {
	t.Parallel()

	assert.False(t, IsRegistered("nonexistent"), "Expected false for non-existent type")
}

//nolint:paralleltest // This test modifies global registry state and cannot be parallelized
func TestRegisterAndCreate(t *testing.T) {
	testType := "test-checker-type-unique"
	if IsRegistered(testType) {
		t.Skip("Type already registered from previous test run")
	}

	Register(testType, &mockFactory{checker: &mockChecker{}})

	assert.True(t, IsRegistered(testType))
	assert.Contains(t, RegisteredTypes(), testType)

	cfg := &Config{}
	require.NoError(t, json.Unmarshal([]byte(`{"version":"1.0","type":"test-checker-type-unique"}`), cfg))

	checker, err := cfg.CreateChecker()
	require.NoError(t, err)
	assert.NotNil(t, checker)
}

//nolint:paralleltest // This test modifies global registry state and cannot be parallelized
func TestRegisterDuplicatePanics(t *testing.T) {
	testType := "test-checker-type-duplicate"
	if !IsRegistered(testType) {
		Register(testType, &mockFactory{})
	}

	assert.Panics(t, func() {
		Register(testType, &mockFactory{})
	})
}

//nolint:paralleltest // Relies on registry state registered above
func TestLoadConfig(t *testing.T) {
	testType := "test-checker-type-load"
	if !IsRegistered(testType) {
		Register(testType, &mockFactory{checker: &mockChecker{}})
	}

	dir := t.TempDir()

	t.Run("valid hujson with comments", func(t *testing.T) {
		path := filepath.Join(dir, "checker.json")
		content := `{
			// comment is fine in HuJSON
			"version": "1.0",
			"type": "test-checker-type-load",
		}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "1.0", cfg.Version)
		assert.Equal(t, ConfigType("test-checker-type-load"), cfg.Type)
		assert.NotEmpty(t, cfg.RawConfig())
	})

	t.Run("missing version", func(t *testing.T) {
		path := filepath.Join(dir, "noversion.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"type":"test-checker-type-load"}`), 0o600))

		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "version is required")
	})

	t.Run("unknown type", func(t *testing.T) {
		path := filepath.Join(dir, "unknown.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"version":"1.0","type":"no-such-type"}`), 0o600))

		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported configuration type")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(dir, "does-not-exist.json"))
		require.Error(t, err)
	})
}
