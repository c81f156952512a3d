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
	"github.com/jeremyhahn/go-passkey/internal/storage/postgres"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database schema migrations",
	Long: `Apply, roll back or inspect the PostgreSQL schema migrations for
the user and credential tables. Requires the postgres database driver.`,
}

// migrateUpCmd applies all pending migrations
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Run: func(cmd *cobra.Command, args []string) {
		dsn, err := migrationDSN()
		if err != nil {
			handleError(err)
			return
		}

		printVerbose("Applying migrations")
		if err := postgres.RunMigrations(dsn); err != nil {
			handleError(err)
			return
		}

		printer := NewPrinter(outputFormat, os.Stdout)
		_ = printer.PrintMessage("Migrations applied")
	},
}

// migrateDownCmd rolls back the most recent migration
var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Run: func(cmd *cobra.Command, args []string) {
		dsn, err := migrationDSN()
		if err != nil {
			handleError(err)
			return
		}

		printVerbose("Rolling back one migration")
		if err := postgres.RollbackMigrations(dsn); err != nil {
			handleError(err)
			return
		}

		printer := NewPrinter(outputFormat, os.Stdout)
		_ = printer.PrintMessage("Migration rolled back")
	},
}

// migrateStatusCmd reports the current schema version
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current schema version",
	Run: func(cmd *cobra.Command, args []string) {
		dsn, err := migrationDSN()
		if err != nil {
			handleError(err)
			return
		}

		version, dirty, err := postgres.MigrationVersion(dsn)
		if err != nil {
			handleError(err)
			return
		}

		printer := NewPrinter(outputFormat, os.Stdout)
		_ = printer.PrintMigrationStatus(version, dirty)
	},
}

// migrationDSN resolves the connection string from the configuration,
// requiring the postgres driver.
func migrationDSN() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if err := requirePostgres(cfg); err != nil {
		return "", err
	}
	return cfg.Database.DSN, nil
}

func requirePostgres(cfg *config.Config) error {
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("migrations require the postgres database driver, configured driver is %q",
			cfg.Database.Driver)
	}
	return nil
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}
