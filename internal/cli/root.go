// Package cli implements the command-line interface for cppc.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/colthorp/cppc-go/internal/core"
	"github.com/colthorp/cppc-go/internal/output"
	"github.com/spf13/cobra"
)

// Global flags
var (
	verbose    bool
	quiet      bool
	raw        bool
	configPath string
	colorMode  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cppc",
	Short: "cppc – compile and run single-file C/C++ programs",
	Long: `A command-line front-end for compiling and running single-file C/C++ programs.
Recompiles only when the source or the compile options changed since the last
successful build, sharing its cache with the editor extension.`,
	Version:       core.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return output.ConfigureColor(colorMode, int(os.Stdout.Fd()))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var ec *exitCodeError
		if !errors.As(err, &ec) {
			output.Failure(os.Stderr, "Error: %v", err)
		}
		stop()
		os.Exit(exitCode(err))
	}
}

func init() {
	// Persistent flags available to all commands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose debug output to stderr")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress progress messages")
	rootCmd.PersistentFlags().BoolVar(&raw, "raw", false, "Emit raw JSON instead of text")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", fmt.Sprintf("Config file (default: $%s or the user config dir)", core.ConfigEnvVar))
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "Color output: auto, always or never")
}
