// Package cedar provides an access control checker backed by Cedar policies.
package cedar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	cedar "github.com/cedar-policy/cedar-go"

	"github.com/authgate/authgate/pkg/acl"
	"github.com/authgate/authgate/pkg/loader"
	"github.com/authgate/authgate/pkg/logger"
)

// ConfigType is the configuration type identifier for Cedar checkers.
const ConfigType = "cedarv1"

func init() {
	// Register the Cedar checker factory with the acl registry.
	acl.Register(ConfigType, &Factory{})
}

// Common errors for Cedar checking
var (
	ErrNoPolicies       = errors.New("no policies loaded")
	ErrMissingSubject   = errors.New("missing subject")
	ErrMissingResource  = errors.New("missing resource")
	ErrPolicyEvaluation = errors.New("policy evaluation failed")
)

// Entity types used when mapping a resource check onto a Cedar request.
const (
	principalType = "User"
	actionType    = "Action"
	resourceType  = "Resource"
)

// Config represents the complete checker configuration file structure for
// Cedar. This includes the common version/type fields plus the
// Cedar-specific "cedar" field.
type Config struct {
	Version string         `json:"version"`
	Type    string         `json:"type"`
	Options *ConfigOptions `json:"cedar"`
}

// ConfigOptions represents the Cedar-specific checker configuration options.
type ConfigOptions struct {
	// Policies is a list of Cedar policy strings
	Policies []string `json:"policies"`

	// PolicyBundle is a path to a resource bundle whose ".cedar" members
	// are loaded as additional policies. Member digests are verified
	// against the bundle manifest.
	PolicyBundle string `json:"policy_bundle"`

	// EntitiesJSON is the JSON string representing Cedar entities
	EntitiesJSON string `json:"entities_json"`
}

// PolicyExtension is the member suffix that marks a bundle member as a
// Cedar policy.
const PolicyExtension = ".cedar"

// Factory implements the acl.CheckerFactory interface for Cedar.
type Factory struct{}

// ValidateConfig validates the Cedar-specific configuration.
// It receives the full raw config and extracts the Cedar-specific portion.
func (*Factory) ValidateConfig(rawConfig json.RawMessage) error {
	var config Config
	if err := json.Unmarshal(rawConfig, &config); err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	if config.Options == nil {
		return fmt.Errorf("cedar configuration is required (missing 'cedar' field)")
	}

	if len(config.Options.Policies) == 0 && config.Options.PolicyBundle == "" {
		return fmt.Errorf("at least one policy or a policy bundle is required for Cedar checking")
	}

	return nil
}

// CreateChecker creates a Cedar Checker from the configuration.
// It receives the full raw config and extracts the Cedar-specific portion.
func (*Factory) CreateChecker(rawConfig json.RawMessage) (acl.Checker, error) {
	var config Config
	if err := json.Unmarshal(rawConfig, &config); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if config.Options == nil {
		return nil, fmt.Errorf("cedar configuration is required (missing 'cedar' field)")
	}

	return NewChecker(*config.Options)
}

// Checker decides resource access using Cedar policies.
type Checker struct {
	// Cedar policy set
	policySet *cedar.PolicySet
	// Cedar entities
	entities cedar.EntityMap
	// Mutex for thread safety
	mu sync.RWMutex
}

// NewChecker creates a new Cedar checker from the given options.
func NewChecker(options ConfigOptions) (*Checker, error) {
	checker := &Checker{
		policySet: cedar.NewPolicySet(),
		entities:  cedar.EntityMap{},
	}

	policies := options.Policies
	if options.PolicyBundle != "" {
		bundled, err := loadBundlePolicies(options.PolicyBundle)
		if err != nil {
			return nil, err
		}
		policies = append(policies, bundled...)
	}

	if len(policies) == 0 {
		return nil, ErrNoPolicies
	}

	for i, policyStr := range policies {
		var policy cedar.Policy
		if err := policy.UnmarshalCedar([]byte(policyStr)); err != nil {
			return nil, fmt.Errorf("failed to parse policy %d: %w", i, err)
		}

		policyID := cedar.PolicyID(fmt.Sprintf("policy%d", i))
		checker.policySet.Add(policyID, &policy)
	}

	if options.EntitiesJSON != "" {
		if err := json.Unmarshal([]byte(options.EntitiesJSON), &checker.entities); err != nil {
			return nil, fmt.Errorf("failed to parse entities JSON: %w", err)
		}
	}

	return checker, nil
}

// loadBundlePolicies reads every ".cedar" member of the bundle, in member
// name order so policy IDs stay stable across loads. Digests are verified
// by the loader; like the providers file itself, the bundle is trusted via
// filesystem permissions rather than a signature.
func loadBundlePolicies(path string) ([]string, error) {
	b, err := loader.OpenBundle(path, loader.WithAllowUnsigned())
	if err != nil {
		return nil, fmt.Errorf("failed to open policy bundle: %w", err)
	}
	defer b.Close()

	var names []string
	for name := range b.Manifest().Members {
		if strings.HasSuffix(name, PolicyExtension) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	policies := make([]string, 0, len(names))
	for _, name := range names {
		entry, err := b.Load(name)
		if err != nil {
			return nil, fmt.Errorf("failed to load policy member %s: %w", name, err)
		}
		policies = append(policies, string(entry.Data))
	}
	return policies, nil
}

// UpdatePolicies replaces the Cedar policies.
func (c *Checker) UpdatePolicies(policies []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(policies) == 0 {
		return ErrNoPolicies
	}

	newPolicySet := cedar.NewPolicySet()

	for i, policyStr := range policies {
		var policy cedar.Policy
		if err := policy.UnmarshalCedar([]byte(policyStr)); err != nil {
			return fmt.Errorf("failed to parse policy %d: %w", i, err)
		}

		policyID := cedar.PolicyID(fmt.Sprintf("policy%d", i))
		newPolicySet.Add(policyID, &policy)
	}

	c.policySet = newPolicySet
	return nil
}

// Check reports whether subject may access res.
//
// The check maps onto a Cedar request as User::<subject> performing
// Action::<method> on Resource::"<app>:<name>", with the resource's
// identifying attributes available in the request context as
// "application", "name", and "method".
func (c *Checker) Check(_ context.Context, subject string, res acl.Resource) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if subject == "" {
		return false, ErrMissingSubject
	}
	if res == nil {
		return false, ErrMissingResource
	}

	method := res.Method()
	if method == "" {
		method = "access"
	}

	req := cedar.Request{
		Principal: cedar.NewEntityUID(cedar.EntityType(principalType), cedar.String(subject)),
		Action:    cedar.NewEntityUID(cedar.EntityType(actionType), cedar.String(method)),
		Resource:  cedar.NewEntityUID(cedar.EntityType(resourceType), cedar.String(res.Application()+":"+res.Name())),
		Context: cedar.NewRecord(cedar.RecordMap{
			"application": cedar.String(res.Application()),
			"name":        cedar.String(res.Name()),
			"method":      cedar.String(res.Method()),
		}),
	}

	logger.Debugw("cedar check", "principal", req.Principal, "action", req.Action, "resource", req.Resource)

	decision, diagnostic := cedar.Authorize(c.policySet, c.entities, req)

	if len(diagnostic.Errors) > 0 {
		return false, fmt.Errorf("%w: %v", ErrPolicyEvaluation, diagnostic.Errors)
	}

	return decision == cedar.Allow, nil
}
