// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"fmt"
	"os"

	"github.com/jeremyhahn/go-passkey/internal/config"
	"github.com/spf13/cobra"
)

var (
	configFile   string
	outputFormat string
	verbose      bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "passkey",
	Short: "go-passkey - WebAuthn passkey relying party",
	Long: `go-passkey runs a WebAuthn relying party for passkey registration
and authentication: challenge issuance, attestation and assertion
verification, credential storage and signature counter replay detection.

Credentials can be kept in memory for development or in PostgreSQL
for production deployments.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "/etc/passkey/config.yaml",
		"config file")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text",
		"output format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(credentialsCmd)
	rootCmd.AddCommand(statusCmd)
}

// loadConfig loads the configuration file, honoring the PASSKEY_CONFIG
// environment override.
func loadConfig() (*config.Config, error) {
	path := configFile
	if envConfig := os.Getenv("PASSKEY_CONFIG"); envConfig != "" {
		path = envConfig
	}
	return config.Load(path)
}

// handleError prints an error and exits with code 1
func handleError(err error) {
	printer := NewPrinter(outputFormat, os.Stderr)
	_ = printer.PrintError(err) // Error printing to stderr is best-effort
	os.Exit(1)
}

// printVerbose prints a message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[VERBOSE] "+format+"\n", args...)
	}
}
