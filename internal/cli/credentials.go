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
	"os"
	"time"

	"github.com/jeremyhahn/go-passkey/pkg/passkey"
	"github.com/spf13/cobra"
)

// credentialsCmd lists the credentials registered for a user
var credentialsCmd = &cobra.Command{
	Use:   "credentials <email>",
	Short: "List the credentials registered for a user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		email := args[0]

		cfg, err := loadConfig()
		if err != nil {
			handleError(err)
			return
		}

		users, creds, db, err := buildStores(cfg)
		if err != nil {
			handleError(err)
			return
		}
		if db != nil {
			defer db.Close()
		}

		service, err := passkey.NewService(passkey.ServiceParams{
			Config:          &cfg.Passkey,
			UserStore:       users,
			CredentialStore: creds,
		})
		if err != nil {
			handleError(err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		printVerbose("Listing credentials for %s", email)
		owned, err := service.Credentials(ctx, email)
		if err != nil {
			handleError(err)
			return
		}

		printer := NewPrinter(outputFormat, os.Stdout)
		if err := printer.PrintCredentialList(email, owned); err != nil {
			handleError(err)
		}
	},
}
