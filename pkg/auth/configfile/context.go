package configfile

import (
	"context"
	"fmt"

	"github.com/authgate/authgate/pkg/auth"
	"github.com/authgate/authgate/pkg/errors"
)

// boundModule is an instantiated, initialized module together with its
// requirement flag. At most one of client/server is set.
type boundModule struct {
	name        string
	requirement auth.Requirement
	client      auth.ClientModule
	server      auth.ServerModule
}

// side selects which module interface bindModules requires.
type side int

const (
	bindClient side = iota
	bindServer
)

// bindModules instantiates and initializes the chain's modules. The
// caller-supplied policies win over the entry defaults when non-zero.
func bindModules(entry *providerEntry, chain []moduleEntry,
	requestPolicy, responsePolicy auth.Policy, handler auth.CallbackHandler, s side) ([]boundModule, error) {

	if requestPolicy.IsZero() {
		requestPolicy = entry.RequestPolicy
	}
	if responsePolicy.IsZero() {
		responsePolicy = entry.ResponsePolicy
	}

	bound := make([]boundModule, 0, len(chain))
	dispose := func() {
		for _, b := range bound {
			b.disposeModule()
		}
	}

	for _, mod := range chain {
		factory := auth.GetModuleFactory(mod.Module)
		if factory == nil {
			dispose()
			return nil, errors.NewAuthError(fmt.Sprintf("auth module %q is not registered", mod.Module), nil)
		}

		instance := factory()
		b := boundModule{name: mod.Module, requirement: mod.Requirement}
		switch s {
		case bindClient:
			client, ok := instance.(auth.ClientModule)
			if !ok {
				dispose()
				return nil, errors.NewAuthError(
					fmt.Sprintf("auth module %q does not support client-side processing", mod.Module), nil)
			}
			b.client = client
		case bindServer:
			server, ok := instance.(auth.ServerModule)
			if !ok {
				dispose()
				return nil, errors.NewAuthError(
					fmt.Sprintf("auth module %q does not support server-side processing", mod.Module), nil)
			}
			b.server = server
		}

		if err := instance.Init(requestPolicy, responsePolicy, handler, mod.Options); err != nil {
			dispose()
			instance.Dispose()
			return nil, errors.NewAuthError(fmt.Sprintf("failed to initialize auth module %q", mod.Module), err)
		}

		bound = append(bound, b)
	}
	return bound, nil
}

func (b *boundModule) disposeModule() {
	if b.client != nil {
		b.client.Dispose()
	}
	if b.server != nil {
		b.server.Dispose()
	}
}

// runChain invokes one operation across the chain and combines the
// per-module outcomes:
//
//   - a requisite failure aborts the chain immediately;
//   - a required failure is recorded and the chain continues;
//   - a sufficient success ends the chain successfully, unless a required
//     module already failed;
//   - optional outcomes only matter when the chain has no required or
//     requisite modules, in which case at least one module must succeed.
func runChain(modules []boundModule, invoke func(*boundModule) error) error {
	var requiredErr error
	var lastErr error
	decisive := false
	anySuccess := false

	for i := range modules {
		m := &modules[i]
		err := invoke(m)
		if err != nil {
			lastErr = fmt.Errorf("module %q: %w", m.name, err)
		}

		switch m.requirement {
		case auth.RequirementRequired:
			decisive = true
			if err != nil {
				if requiredErr == nil {
					requiredErr = fmt.Errorf("module %q: %w", m.name, err)
				}
			} else {
				anySuccess = true
			}
		case auth.RequirementRequisite:
			decisive = true
			if err != nil {
				return fmt.Errorf("module %q: %w", m.name, err)
			}
			anySuccess = true
		case auth.RequirementSufficient:
			if err == nil && requiredErr == nil {
				return nil
			}
		case auth.RequirementOptional:
			if err == nil {
				anySuccess = true
			}
		}
	}

	switch {
	case requiredErr != nil:
		return requiredErr
	case decisive:
		// Every required module succeeded.
		return nil
	case anySuccess:
		return nil
	case lastErr != nil:
		return lastErr
	default:
		return nil
	}
}

// clientContext encapsulates the client-side chain.
type clientContext struct {
	modules []boundModule
}

// SecureRequest applies the request policy via the chain.
func (c *clientContext) SecureRequest(ctx context.Context, msg *auth.Message) error {
	err := runChain(c.modules, func(m *boundModule) error {
		return m.client.SecureRequest(ctx, msg)
	})
	if err != nil {
		return errors.NewAuthError("failed to secure request", err)
	}
	return nil
}

// ValidateResponse enforces the response policy via the chain.
func (c *clientContext) ValidateResponse(ctx context.Context, msg *auth.Message) error {
	err := runChain(c.modules, func(m *boundModule) error {
		return m.client.ValidateResponse(ctx, msg)
	})
	if err != nil {
		return errors.NewAuthError("response validation failed", err)
	}
	return nil
}

// Dispose releases the chain's modules.
func (c *clientContext) Dispose() {
	for i := range c.modules {
		c.modules[i].disposeModule()
	}
}

// serverContext encapsulates the server-side chain.
type serverContext struct {
	modules []boundModule
}

// ValidateRequest enforces the request policy via the chain.
func (c *serverContext) ValidateRequest(ctx context.Context, msg *auth.Message) error {
	err := runChain(c.modules, func(m *boundModule) error {
		return m.server.ValidateRequest(ctx, msg)
	})
	if err != nil {
		return errors.NewAuthError("request validation failed", err)
	}
	return nil
}

// SecureResponse applies the response policy via the chain.
func (c *serverContext) SecureResponse(ctx context.Context, msg *auth.Message) error {
	err := runChain(c.modules, func(m *boundModule) error {
		return m.server.SecureResponse(ctx, msg)
	})
	if err != nil {
		return errors.NewAuthError("failed to secure response", err)
	}
	return nil
}

// Dispose releases the chain's modules.
func (c *serverContext) Dispose() {
	for i := range c.modules {
		c.modules[i].disposeModule()
	}
}
