// Package configfile provides the default auth Config provider: module
// chains declared in a HuJSON file, keyed by interception point and
// provider ID.
package configfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/viper"
	"github.com/tailscale/hujson"

	"github.com/authgate/authgate/pkg/auth"
	"github.com/authgate/authgate/pkg/errors"
	"github.com/authgate/authgate/pkg/loader"
	"github.com/authgate/authgate/pkg/logger"
)

// ProviderName is the name this provider registers under; it is also the
// registry's default.
const ProviderName = "configfile"

// FileProperty is the configuration property naming the providers file.
const FileProperty = "authconfig.file"

// lockTimeout is the maximum time to wait for the file lock.
const lockTimeout = 1 * time.Second

func init() {
	auth.RegisterProvider(ProviderName, func() (auth.Config, error) {
		return New()
	})
}

// fileSchema is the on-disk structure of the providers file.
type fileSchema struct {
	Version   string          `json:"version"`
	Providers []providerEntry `json:"providers"`
}

// providerEntry declares the module chains for one (intercept, id) pair.
// An empty ID marks the intercept's default entry.
type providerEntry struct {
	Intercept string `json:"intercept"`
	ID        string `json:"id,omitempty"`

	// Client and Server are the module chains, invoked in declaration
	// order.
	Client []moduleEntry `json:"client,omitempty"`
	Server []moduleEntry `json:"server,omitempty"`

	// RequestPolicy and ResponsePolicy are the entry's default policies,
	// used when the caller passes zero policies.
	RequestPolicy  auth.Policy `json:"request_policy"`
	ResponsePolicy auth.Policy `json:"response_policy"`
}

// moduleEntry declares one module in a chain.
type moduleEntry struct {
	Module      string           `json:"module"`
	Requirement auth.Requirement `json:"requirement,omitempty"`
	Options     map[string]any   `json:"options,omitempty"`
}

// ConfigFile is the default auth.Config implementation. It parses the
// providers file lazily, re-reads it when Refresh is called or the file's
// modification time changes, and builds contexts that instantiate modules
// through the module registry.
type ConfigFile struct {
	path string

	mu      sync.RWMutex
	entries map[string]*providerEntry
	mtime   time.Time
	loaded  bool
	stale   bool
}

// Option configures a ConfigFile.
type Option func(*ConfigFile)

// WithPath overrides the providers file location.
func WithPath(path string) Option {
	return func(c *ConfigFile) { c.path = path }
}

// New creates the provider. The providers file is read immediately so
// that a malformed file surfaces as a resolution failure; a missing file
// is treated as an empty configuration.
func New(opts ...Option) (*ConfigFile, error) {
	c := &ConfigFile{}
	for _, opt := range opts {
		opt(c)
	}

	if c.path == "" {
		path, err := defaultPath()
		if err != nil {
			return nil, err
		}
		c.path = path
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

// defaultPath resolves the providers file location: the authconfig.file
// property if set, else ~/.authgate/providers.json.
func defaultPath() (string, error) {
	if path := viper.GetString(FileProperty); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to determine home directory: %w", err)
	}
	return filepath.Join(home, ".authgate", "providers.json"), nil
}

// Refresh marks the parsed configuration stale; the next context
// acquisition re-reads the providers file.
func (c *ConfigFile) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale = true
	return nil
}

// entryKey builds the lookup key for an (intercept, id) pair.
func entryKey(intercept, id string) string {
	return intercept + "\x00" + id
}

// lookup returns the entry for (intercept, id), falling back to the
// intercept's default entry. It reloads the file first when stale or
// modified.
func (c *ConfigFile) lookup(intercept, id string) (*providerEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.needsReloadLocked() {
		if err := c.loadLocked(); err != nil {
			return nil, err
		}
	}

	if entry, ok := c.entries[entryKey(intercept, id)]; ok {
		return entry, nil
	}
	if id != "" {
		if entry, ok := c.entries[entryKey(intercept, "")]; ok {
			return entry, nil
		}
	}
	return nil, nil
}

func (c *ConfigFile) needsReloadLocked() bool {
	if !c.loaded || c.stale {
		return true
	}
	info, err := os.Stat(c.sourcePath())
	if err != nil {
		return false
	}
	return info.ModTime().After(c.mtime)
}

// loadLocked re-reads the providers file. Callers hold c.mu.
func (c *ConfigFile) loadLocked() error {
	data, mtime, err := c.readFile()
	if err != nil {
		return err
	}

	entries := make(map[string]*providerEntry)
	if data != nil {
		schema, err := parseSchema(data)
		if err != nil {
			return err
		}
		for i := range schema.Providers {
			entry := &schema.Providers[i]
			if err := validateEntry(entry); err != nil {
				return err
			}
			key := entryKey(entry.Intercept, entry.ID)
			if _, exists := entries[key]; exists {
				return errors.NewInvalidArgumentError(
					fmt.Sprintf("duplicate provider entry for intercept %q id %q", entry.Intercept, entry.ID), nil)
			}
			entries[key] = entry
		}
	}

	c.entries = entries
	c.mtime = mtime
	c.loaded = true
	c.stale = false
	return nil
}

// BundleScheme prefixes a providers-file path that lives inside a
// resource bundle: "bundle:<archive>!/<member>". The member's digest is
// verified against the bundle manifest before the fragment is parsed.
const BundleScheme = "bundle:"

// sourcePath returns the on-disk file backing the configuration, which
// for bundle sources is the archive itself.
func (c *ConfigFile) sourcePath() string {
	if archive, _, ok := splitBundlePath(c.path); ok {
		return archive
	}
	return c.path
}

func splitBundlePath(path string) (archive, member string, ok bool) {
	if !strings.HasPrefix(path, BundleScheme) {
		return "", "", false
	}
	rest := strings.TrimPrefix(path, BundleScheme)
	archive, member, found := strings.Cut(rest, "!/")
	if !found || archive == "" || member == "" {
		return "", "", false
	}
	return archive, member, true
}

// readFile reads the configured source. Bundle sources go through the
// bundle loader; plain files are read under a shared file lock. A missing
// file yields nil data.
func (c *ConfigFile) readFile() ([]byte, time.Time, error) {
	if archive, member, ok := splitBundlePath(c.path); ok {
		return readBundleMember(archive, member)
	}

	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debugf("providers file %s does not exist, using empty configuration", c.path)
			return nil, time.Time{}, nil
		}
		return nil, time.Time{}, fmt.Errorf("failed to stat providers file: %w", err)
	}

	fileLock := flock.New(c.path + ".lock")
	lockCtx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	// Try and acquire a shared file lock so a concurrent writer cannot
	// hand us a half-written file.
	locked, err := fileLock.TryRLockContext(lockCtx, 100*time.Millisecond)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, time.Time{}, fmt.Errorf("failed to acquire lock: timeout after %v", lockTimeout)
	}
	defer fileLock.Unlock()

	// #nosec G304: reading the file this provider is configured with is the point
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("unable to read providers file %s: %w", c.path, err)
	}
	return data, info.ModTime(), nil
}

// readBundleMember loads a configuration fragment from a resource
// bundle. The member digest is always checked against the manifest;
// unsigned bundles are accepted for configuration fragments.
func readBundleMember(archive, member string) ([]byte, time.Time, error) {
	b, err := loader.OpenBundle(archive, loader.WithAllowUnsigned())
	if err != nil {
		return nil, time.Time{}, err
	}
	defer b.Close()

	entry, err := b.Load(member)
	if err != nil {
		return nil, time.Time{}, err
	}

	// Reload tracking keys off the archive's modification time, not the
	// member's recorded time.
	mtime := entry.LastModified
	if info, err := os.Stat(archive); err == nil {
		mtime = info.ModTime()
	}
	return entry.Data, mtime, nil
}

func parseSchema(data []byte) (*fileSchema, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, errors.NewInvalidArgumentError("failed to parse providers file", err)
	}

	var schema fileSchema
	if err := json.Unmarshal(std, &schema); err != nil {
		return nil, errors.NewInvalidArgumentError("failed to parse providers file", err)
	}
	if schema.Version == "" {
		return nil, errors.NewInvalidArgumentError("providers file has no version", nil)
	}
	return &schema, nil
}

func validateEntry(entry *providerEntry) error {
	if entry.Intercept == "" {
		return errors.NewInvalidArgumentError("provider entry has no intercept", nil)
	}
	for _, chain := range [][]moduleEntry{entry.Client, entry.Server} {
		for i := range chain {
			mod := &chain[i]
			if mod.Module == "" {
				return errors.NewInvalidArgumentError(
					fmt.Sprintf("provider entry %q has a module with no type", entry.Intercept), nil)
			}
			if mod.Requirement == "" {
				mod.Requirement = auth.RequirementRequired
			}
			if !mod.Requirement.Valid() {
				return errors.NewInvalidArgumentError(
					fmt.Sprintf("module %q has unknown requirement %q", mod.Module, mod.Requirement), nil)
			}
		}
	}
	return nil
}

// ClientContext returns the client-side context for (intercept, id), or
// ok=false when no client modules are configured.
func (c *ConfigFile) ClientContext(_ context.Context, intercept, id string,
	requestPolicy, responsePolicy auth.Policy, handler auth.CallbackHandler) (auth.ClientContext, bool, error) {

	entry, err := c.lookup(intercept, id)
	if err != nil {
		return nil, false, errors.NewAuthError("failed to load provider configuration", err)
	}
	if entry == nil || len(entry.Client) == 0 {
		return nil, false, nil
	}

	bound, err := bindModules(entry, entry.Client, requestPolicy, responsePolicy, handler, bindClient)
	if err != nil {
		return nil, false, err
	}
	return &clientContext{modules: bound}, true, nil
}

// ServerContext returns the server-side context for (intercept, id), or
// ok=false when no server modules are configured.
func (c *ConfigFile) ServerContext(_ context.Context, intercept, id string,
	requestPolicy, responsePolicy auth.Policy, handler auth.CallbackHandler) (auth.ServerContext, bool, error) {

	entry, err := c.lookup(intercept, id)
	if err != nil {
		return nil, false, errors.NewAuthError("failed to load provider configuration", err)
	}
	if entry == nil || len(entry.Server) == 0 {
		return nil, false, nil
	}

	bound, err := bindModules(entry, entry.Server, requestPolicy, responsePolicy, handler, bindServer)
	if err != nil {
		return nil, false, err
	}
	return &serverContext{modules: bound}, true, nil
}
