package auth

import (
	"context"
	"fmt"
	"sync"
)

// Module is the pluggable component for performing security-related
// request and response processing. A module is configured for a particular
// interception point and provider ID; the Config implementation loads the
// module information and encapsulates instantiated modules in a
// ClientContext or ServerContext.
type Module interface {
	// Init prepares the module with the policies it must enforce, the
	// handler it may use to request information from the caller, and its
	// configured options. Called once, before any message processing.
	Init(requestPolicy, responsePolicy Policy, handler CallbackHandler, options map[string]any) error

	// Dispose releases any state the module holds.
	Dispose()
}

// ClientModule processes messages on the client side of an interaction.
type ClientModule interface {
	Module

	// SecureRequest applies the request policy to an outgoing message.
	SecureRequest(ctx context.Context, msg *Message) error

	// ValidateResponse enforces the response policy on an incoming reply.
	ValidateResponse(ctx context.Context, msg *Message) error
}

// ServerModule processes messages on the server side of an interaction.
type ServerModule interface {
	Module

	// ValidateRequest enforces the request policy on an incoming message,
	// establishing the caller's identity on success.
	ValidateRequest(ctx context.Context, msg *Message) error

	// SecureResponse applies the response policy to the outgoing reply.
	SecureResponse(ctx context.Context, msg *Message) error
}

// ModuleFactory creates a fresh, uninitialized module instance. Each
// acquired context gets its own instances.
type ModuleFactory func() Module

// Requirement controls how a module's outcome contributes to the overall
// chain result.
type Requirement string

// Module requirement flags.
const (
	// RequirementRequired modules must succeed; on failure the chain
	// continues but the overall result is failure.
	RequirementRequired Requirement = "required"

	// RequirementRequisite modules must succeed; on failure the chain
	// aborts immediately.
	RequirementRequisite Requirement = "requisite"

	// RequirementSufficient modules short-circuit the chain to success
	// when they succeed and no prior required module has failed.
	RequirementSufficient Requirement = "sufficient"

	// RequirementOptional modules contribute success only when no
	// required or requisite module is configured.
	RequirementOptional Requirement = "optional"
)

// Valid reports whether r is a known requirement flag.
func (r Requirement) Valid() bool {
	switch r {
	case RequirementRequired, RequirementRequisite, RequirementSufficient, RequirementOptional:
		return true
	}
	return false
}

// moduleRegistry holds the registered module factories, keyed by module
// type name.
var (
	moduleRegistryMu sync.RWMutex
	moduleRegistry   = make(map[string]ModuleFactory)
)

// RegisterModule registers a module factory under a module type name.
// This is typically called from an init() function in the module package.
// It panics if a factory is already registered for the given name.
func RegisterModule(name string, factory ModuleFactory) {
	moduleRegistryMu.Lock()
	defer moduleRegistryMu.Unlock()

	if _, exists := moduleRegistry[name]; exists {
		panic(fmt.Sprintf("auth module already registered for type: %s", name))
	}
	moduleRegistry[name] = factory
}

// GetModuleFactory returns the factory for the given module type name.
// Returns nil if no factory is registered for the name.
func GetModuleFactory(name string) ModuleFactory {
	moduleRegistryMu.RLock()
	defer moduleRegistryMu.RUnlock()

	return moduleRegistry[name]
}

// RegisteredModules returns the names of all registered module types.
func RegisteredModules() []string {
	moduleRegistryMu.RLock()
	defer moduleRegistryMu.RUnlock()

	names := make([]string, 0, len(moduleRegistry))
	for name := range moduleRegistry {
		names = append(names, name)
	}
	return names
}
