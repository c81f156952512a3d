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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jeremyhahn/go-passkey/pkg/passkey"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// PrintCredentialList prints the credentials registered for a user
func (p *Printer) PrintCredentialList(email string, creds []*passkey.Credential) error {
	switch p.format {
	case OutputFormatJSON:
		credList := make([]map[string]interface{}, len(creds))
		for i, cred := range creds {
			credList[i] = map[string]interface{}{
				"id":            cred.ID,
				"credential_id": base64.RawURLEncoding.EncodeToString(cred.CredentialID),
				"device_type":   string(cred.DeviceType),
				"backed_up":     cred.BackedUp,
				"counter":       cred.Counter,
				"transports":    cred.Transports,
				"created_at":    cred.CreatedAt,
				"last_used_at":  cred.LastUsedAt,
			}
		}
		return p.printJSON(map[string]interface{}{
			"email":       email,
			"credentials": credList,
		})
	case OutputFormatText:
		if len(creds) == 0 {
			fmt.Fprintf(p.writer, "No credentials registered for %s\n", email)
			return nil
		}
		fmt.Fprintf(p.writer, "Credentials for %s:\n", email)
		fmt.Fprintf(p.writer, "%-24s %-14s %-10s %-8s %s\n", "CREDENTIAL ID", "DEVICE TYPE", "BACKED UP", "COUNTER", "LAST USED")
		fmt.Fprintln(p.writer, strings.Repeat("-", 84))
		for _, cred := range creds {
			id := base64.RawURLEncoding.EncodeToString(cred.CredentialID)
			if len(id) > 22 {
				id = id[:22] + ".."
			}
			fmt.Fprintf(p.writer, "%-24s %-14s %-10t %-8d %s\n",
				id, cred.DeviceType, cred.BackedUp, cred.Counter,
				cred.LastUsedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintMigrationStatus prints the current schema version
func (p *Printer) PrintMigrationStatus(version uint, dirty bool) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"version": version,
			"dirty":   dirty,
		})
	case OutputFormatText:
		if version == 0 {
			fmt.Fprintln(p.writer, "No migrations applied")
			return nil
		}
		fmt.Fprintf(p.writer, "Schema version: %d\n", version)
		if dirty {
			fmt.Fprintln(p.writer, "WARNING: schema is dirty from a failed migration")
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintMessage prints a simple status message
func (p *Printer) PrintMessage(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"message": message,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"error": err.Error(),
		})
	default:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	}
}

// printJSON marshals and prints a value as indented JSON
func (p *Printer) printJSON(v interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
