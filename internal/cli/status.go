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
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jeremyhahn/go-passkey/pkg/client"
	"github.com/spf13/cobra"
)

var (
	statusServer      string
	statusTimeout     time.Duration
	statusTLSCAFile   string
	statusTLSInsecure bool
)

// statusCmd checks a running passkey server over its REST API
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the health of a running passkey server",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		c, err := client.New(&client.Config{
			Address:               statusServer,
			Timeout:               statusTimeout,
			TLSCAFile:             statusTLSCAFile,
			TLSInsecureSkipVerify: statusTLSInsecure,
		})
		if err != nil {
			handleError(err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
		defer cancel()

		printVerbose("Checking %s", statusServer)
		if err := c.Connect(ctx); err != nil {
			handleError(fmt.Errorf("server unreachable: %w", err))
			return
		}
		defer c.Close()

		printer := NewPrinter(outputFormat, os.Stdout)
		if err := printer.PrintMessage("server is healthy"); err != nil {
			handleError(err)
		}
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusServer, "server", "http://localhost:8080",
		"server address")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 10*time.Second,
		"request timeout")
	statusCmd.Flags().StringVar(&statusTLSCAFile, "tls-ca-file", "",
		"CA certificate for server verification")
	statusCmd.Flags().BoolVar(&statusTLSInsecure, "tls-insecure", false,
		"skip TLS certificate verification")
}
