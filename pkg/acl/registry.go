package acl

import (
	"encoding/json"
	"fmt"
	"sync"
)

// CheckerFactory is the interface that checker implementations satisfy to
// register themselves with the checker registry. Each checker type (for
// example Cedar) implements this interface to provide validation and
// instantiation of checkers from their specific configuration format.
type CheckerFactory interface {
	// ValidateConfig validates the checker-specific configuration.
	// The rawConfig is the JSON-encoded checker configuration.
	ValidateConfig(rawConfig json.RawMessage) error

	// CreateChecker creates a Checker instance from the configuration.
	// The rawConfig is the JSON-encoded checker configuration.
	CreateChecker(rawConfig json.RawMessage) (Checker, error)
}

// registry holds the registered checker factories, keyed by config type.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]CheckerFactory)
)

// Register registers a CheckerFactory for the given config type.
// This is typically called from an init() function in the checker package.
// It panics if a factory is already registered for the given type.
func Register(configType string, factory CheckerFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[configType]; exists {
		panic(fmt.Sprintf("checker factory already registered for type: %s", configType))
	}
	registry[configType] = factory
}

// GetFactory returns the CheckerFactory for the given config type.
// Returns nil if no factory is registered for the type.
func GetFactory(configType string) CheckerFactory {
	registryMu.RLock()
	defer registryMu.RUnlock()

	return registry[configType]
}

// IsRegistered returns true if a factory is registered for the given config type.
func IsRegistered(configType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()

	_, exists := registry[configType]
	return exists
}

// RegisteredTypes returns a list of all registered config types.
func RegisteredTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	return types
}
