// Package app provides the entry point for the authgate command-line
// application.
package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/authgate/authgate/pkg/acl"
	"github.com/authgate/authgate/pkg/auth"
	"github.com/authgate/authgate/pkg/auth/configfile"
	"github.com/authgate/authgate/pkg/logger"

	// Register the built-in providers, modules and checker types.
	_ "github.com/authgate/authgate/pkg/acl/cedar"
	_ "github.com/authgate/authgate/pkg/auth/providers"
)

var rootCmd = &cobra.Command{
	Use:               "authgate",
	DisableAutoGenTag: true,
	Short:             "Authgate is a pluggable authentication gateway",
	Long: `Authgate is a pluggable authentication gateway. It runs configurable
chains of auth modules in front of HTTP services, establishes the caller's
identity, and checks access against resource permissions or Cedar policies.

Module chains are declared in a providers file and selected per
interception point and provider ID; custom modules and configuration
providers register themselves through the package registries.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.Initialize()
	},
}

// NewRootCmd creates a new root command for the authgate CLI.
func NewRootCmd() *cobra.Command {
	// Properties such as authconfig.provider can be set from the
	// environment as AUTHGATE_AUTHCONFIG_PROVIDER.
	viper.SetEnvPrefix("AUTHGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Add persistent flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	if err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	rootCmd.PersistentFlags().String("providers-file", "", "Path to the providers file")
	err = viper.BindPFlag(configfile.FileProperty, rootCmd.PersistentFlags().Lookup("providers-file"))
	if err != nil {
		logger.Errorf("Error binding providers-file flag: %v", err)
	}

	// Add subcommands
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newProvidersCmd())
	rootCmd.AddCommand(newVersionCmd())

	// Silence printing the usage on error
	rootCmd.SilenceUsage = true

	return rootCmd
}

// newValidateCmd creates the validate command for checking the providers
// file.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the providers file",
		Long: `Validate the providers file for syntax and semantic errors.

This command checks:
- JSON syntax validity (comments and trailing commas are allowed)
- Required fields presence
- Module chain requirement flags
- Duplicate (intercept, id) entries`,
		RunE: func(_ *cobra.Command, _ []string) error {
			path := viper.GetString(configfile.FileProperty)
			if path == "" {
				return fmt.Errorf("no providers file specified, use --providers-file")
			}

			if _, err := configfile.New(configfile.WithPath(path)); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			logger.Infof("Providers file %s is valid", path)
			return nil
		},
	}
}

// newProvidersCmd creates the providers command listing the registered
// extension points.
func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List registered providers, modules and checker types",
		Run: func(_ *cobra.Command, _ []string) {
			providers := auth.RegisteredProviders()
			sort.Strings(providers)
			fmt.Println("Configuration providers:")
			for _, name := range providers {
				fmt.Printf("  %s\n", name)
			}

			modules := auth.RegisteredModules()
			sort.Strings(modules)
			fmt.Println("Auth modules:")
			for _, name := range modules {
				fmt.Printf("  %s\n", name)
			}

			checkers := acl.RegisteredTypes()
			sort.Strings(checkers)
			fmt.Println("Access checker types:")
			for _, name := range checkers {
				fmt.Printf("  %s\n", name)
			}
		},
	}
}
