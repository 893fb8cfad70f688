// Package main is the entry point for the authgate CLI.
package main

import (
	"os"

	"github.com/authgate/authgate/cmd/authgate/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
