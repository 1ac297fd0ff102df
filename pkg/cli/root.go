// Package cli provides the graphd CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "graphd",
	Short: "graphd is a GraphQL subscription server over WebSocket",
	Long: `graphd serves GraphQL queries, mutations, and subscriptions over a single
WebSocket endpoint speaking the graphql-transport-ws sub-protocol.

A schema can be loaded from an SDL file, or the built-in demo schema can be
used to try the server without any configuration.`,
	// No Run function here means 'graphd' with no args will print help text by default.
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Execute()
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
