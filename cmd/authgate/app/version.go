package app

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is the authgate version, set at build time via ldflags.
var Version = "dev"

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version of authgate",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("authgate %s\n", Version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
