package acl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// ConfigType represents the type of checker configuration.
type ConfigType string

// Config represents the checker configuration. It carries the common
// fields (version/type) needed to identify which checker factory to use.
// The full raw configuration is preserved so that each checker
// implementation can parse it with domain-specific knowledge (e.g., Cedar
// configs have a "cedar" field at the top level).
type Config struct {
	// Version is the version of the configuration format.
	Version string `json:"version"`

	// Type is the type of checker configuration (e.g., "cedarv1").
	Type ConfigType `json:"type"`

	// rawConfig stores the original raw configuration bytes for re-parsing
	// by the checker factory with domain-specific knowledge.
	rawConfig json.RawMessage
}

// UnmarshalJSON implements custom JSON unmarshaling that preserves the raw
// config while extracting the version and type fields.
func (c *Config) UnmarshalJSON(data []byte) error {
	var header struct {
		Version string     `json:"version"`
		Type    ConfigType `json:"type"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return err
	}

	c.Version = header.Version
	c.Type = header.Type
	c.rawConfig = data

	return nil
}

// RawConfig returns the raw configuration bytes for the checker factory to
// parse with domain-specific knowledge.
func (c *Config) RawConfig() json.RawMessage {
	return c.rawConfig
}

// LoadConfig loads the checker configuration from a file. The file is
// HuJSON (JSON with comments and trailing commas); plain JSON is a valid
// subset.
func LoadConfig(path string) (*Config, error) {
	// Validate and clean the path to prevent directory traversal attacks
	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return nil, fmt.Errorf("path contains directory traversal elements: %s", path)
	}

	// #nosec G304: loading a file named by the user is the point here
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read checker configuration file: %w", err)
	}

	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse checker configuration file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(std, &config); err != nil {
		return nil, fmt.Errorf("failed to parse checker configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate validates the checker configuration.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}

	if c.Type == "" {
		return fmt.Errorf("type is required")
	}

	factory := GetFactory(string(c.Type))
	if factory == nil {
		return fmt.Errorf("unsupported configuration type: %s (registered types: %v)",
			c.Type, RegisteredTypes())
	}

	if len(c.rawConfig) == 0 {
		return fmt.Errorf("configuration data is required for type %s", c.Type)
	}

	// Delegate validation to the checker factory, passing the full raw config
	if err := factory.ValidateConfig(c.rawConfig); err != nil {
		return fmt.Errorf("invalid %s configuration: %w", c.Type, err)
	}

	return nil
}

// CreateChecker creates a Checker from the configuration using the factory
// registered for its type.
func (c *Config) CreateChecker() (Checker, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return GetFactory(string(c.Type)).CreateChecker(c.rawConfig)
}
