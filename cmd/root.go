package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/cribo-bundler/cribo/pkg/types"
	"github.com/cribo-bundler/cribo/pkg/version"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:     "cribo",
	Short:   "Cribo - bundle a Python project into a single dependency-free file",
	Long:    "Cribo statically analyzes a Python entry point and its first-party imports,\ntree-shakes unused definitions, and emits a single self-contained .py file\nwith third-party and standard-library imports hoisted to the top.",
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.SilenceErrors = true
}

// Execute runs the root command and exits with code 1 on error.
// ExitError is handled specially: its Code is used as the exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *types.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
