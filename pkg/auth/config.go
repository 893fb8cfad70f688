package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/viper"

	"github.com/authgate/authgate/pkg/errors"
	"github.com/authgate/authgate/pkg/logger"
)

// Standard interception points.
const (
	// InterceptHTTP is the HTTP interception point.
	InterceptHTTP = "HTTP"

	// InterceptEJB is the EJB interception point.
	InterceptEJB = "EJB"

	// InterceptSOAP is the SOAP interception point.
	InterceptSOAP = "SOAP"
)

const (
	// ProviderProperty is the configuration property naming the Config
	// provider to use when no explicit override is installed. It is read
	// through viper and may be bound to the environment by the host.
	ProviderProperty = "authconfig.provider"

	// DefaultProvider is the provider used when the property is not set.
	DefaultProvider = "configfile"
)

// ClientContext encapsulates the client-side modules configured for an
// interception point and provider ID, plus their invocation semantics.
type ClientContext interface {
	// SecureRequest invokes the configured modules to apply the request
	// policy to an outgoing message.
	SecureRequest(ctx context.Context, msg *Message) error

	// ValidateResponse invokes the configured modules to enforce the
	// response policy on an incoming reply.
	ValidateResponse(ctx context.Context, msg *Message) error

	// Dispose releases the encapsulated modules.
	Dispose()
}

// ServerContext encapsulates the server-side modules configured for an
// interception point and provider ID, plus their invocation semantics.
type ServerContext interface {
	// ValidateRequest invokes the configured modules to enforce the
	// request policy on an incoming message.
	ValidateRequest(ctx context.Context, msg *Message) error

	// SecureResponse invokes the configured modules to apply the response
	// policy to the outgoing reply.
	SecureResponse(ctx context.Context, msg *Message) error

	// Dispose releases the encapsulated modules.
	Dispose()
}

// Config is a system-wide module configuration: it determines the modules
// to be invoked for a given interception point and provider ID, and
// encapsulates them in ClientContext or ServerContext instances.
//
// The returned context object is responsible for instantiating,
// initializing, and invoking the configured modules. The boolean result is
// false when no modules are configured for the given intercept and ID;
// that is not an error.
type Config interface {
	// ClientContext returns the client-side context for the given
	// interception point and provider ID. An empty id selects the
	// intercept's default entry. Zero policies select the entry's default
	// policies; a nil handler selects the entry's default handler.
	ClientContext(ctx context.Context, intercept, id string,
		requestPolicy, responsePolicy Policy, handler CallbackHandler) (ClientContext, bool, error)

	// ServerContext returns the server-side context for the given
	// interception point and provider ID, with the same defaulting rules
	// as ClientContext.
	ServerContext(ctx context.Context, intercept, id string,
		requestPolicy, responsePolicy Policy, handler CallbackHandler) (ServerContext, bool, error)

	// Refresh causes the configuration to re-derive its provider set from
	// persisted configuration on next use.
	Refresh() error
}

// ProviderFactory creates a Config instance. Factories are registered by
// provider packages and selected by name during resolution.
type ProviderFactory func() (Config, error)

// providerRegistry holds the registered provider factories, keyed by
// provider name.
var (
	providerRegistryMu sync.RWMutex
	providerRegistry   = make(map[string]ProviderFactory)
)

// RegisterProvider registers a Config factory under a provider name.
// This is typically called from an init() function in the provider
// package. It panics if a factory is already registered for the name.
func RegisterProvider(name string, factory ProviderFactory) {
	providerRegistryMu.Lock()
	defer providerRegistryMu.Unlock()

	if _, exists := providerRegistry[name]; exists {
		panic(fmt.Sprintf("auth config provider already registered: %s", name))
	}
	providerRegistry[name] = factory
}

// GetProviderFactory returns the factory registered under name, or nil.
func GetProviderFactory(name string) ProviderFactory {
	providerRegistryMu.RLock()
	defer providerRegistryMu.RUnlock()

	return providerRegistry[name]
}

// RegisteredProviders returns the names of all registered providers.
func RegisteredProviders() []string {
	providerRegistryMu.RLock()
	defer providerRegistryMu.RUnlock()

	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	return names
}

// The process-wide configuration instance. Written only under configMu.
var (
	configMu sync.Mutex
	config   Config
)

// GetConfig returns the system-wide module configuration.
//
// If a Config was installed via SetConfig, that instance is returned.
// Otherwise the provider named by the "authconfig.provider" property is
// instantiated; if the property is not set, the default provider is used.
// The resolved instance is cached for the lifetime of the process.
//
// A resolution failure is returned as a security error and leaves the
// cache unset, so a subsequent call re-attempts resolution.
func GetConfig() (Config, error) {
	configMu.Lock()
	defer configMu.Unlock()

	if config != nil {
		return config, nil
	}

	name := viper.GetString(ProviderProperty)
	if name == "" {
		name = DefaultProvider
	}

	factory := GetProviderFactory(name)
	if factory == nil {
		return nil, errors.NewSecurityError(
			fmt.Sprintf("auth config provider %q is not registered (registered: %v)", name, RegisteredProviders()), nil)
	}

	cfg, err := factory()
	if err != nil {
		return nil, errors.NewSecurityError(
			fmt.Sprintf("failed to instantiate auth config provider %q", name), err)
	}

	logger.Debugf("resolved auth config provider %q", name)
	config = cfg
	return config, nil
}

// SetConfig installs a system-wide module configuration, replacing any
// cached instance. Last writer wins; no ordering is guaranteed against
// concurrent GetConfig callers beyond the cache swap itself.
func SetConfig(cfg Config) {
	configMu.Lock()
	defer configMu.Unlock()
	config = cfg
}

// ResetConfig clears the cached configuration so the next GetConfig
// resolves again. Intended for tests.
func ResetConfig() {
	configMu.Lock()
	defer configMu.Unlock()
	config = nil
}
