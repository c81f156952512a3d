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

package config

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"github.com/jeremyhahn/go-passkey/internal/testutil"
)

// writeTestCert generates a CA-signed server certificate and writes the
// PEM files to a temp dir. Returns cert, key, and CA file paths.
func writeTestCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()

	ca, err := testutil.GenerateTestCA()
	if err != nil {
		t.Fatalf("GenerateTestCA() error = %v", err)
	}
	serverCert, err := testutil.GenerateTestServerCert(ca, "localhost")
	if err != nil {
		t.Fatalf("GenerateTestServerCert() error = %v", err)
	}

	dir := t.TempDir()
	certFile = filepath.Join(dir, "server.crt")
	keyFile = filepath.Join(dir, "server.key")
	caFile = filepath.Join(dir, "ca.crt")

	for path, data := range map[string][]byte{
		certFile: serverCert.CertPEM,
		keyFile:  serverCert.KeyPEM,
		caFile:   ca.CertPEM,
	} {
		if err := os.WriteFile(path, data, 0600); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", path, err)
		}
	}
	return certFile, keyFile, caFile
}

func TestLoadTLSConfigDisabled(t *testing.T) {
	cfg := &TLSConfig{Enabled: false}

	tlsConfig, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("LoadTLSConfig() error = %v", err)
	}
	if tlsConfig != nil {
		t.Error("LoadTLSConfig() = non-nil, want nil for disabled TLS")
	}
}

func TestLoadTLSConfigBasic(t *testing.T) {
	certFile, keyFile, _ := writeTestCert(t)

	cfg := &TLSConfig{
		Enabled:  true,
		CertFile: certFile,
		KeyFile:  keyFile,
	}

	tlsConfig, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("LoadTLSConfig() error = %v", err)
	}
	if len(tlsConfig.Certificates) != 1 {
		t.Errorf("Certificates count = %d, want 1", len(tlsConfig.Certificates))
	}
	if tlsConfig.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x, want TLS1.2", tlsConfig.MinVersion)
	}
	if tlsConfig.ClientAuth != tls.NoClientCert {
		t.Errorf("ClientAuth = %v, want NoClientCert", tlsConfig.ClientAuth)
	}
}

func TestLoadTLSConfigMissingCert(t *testing.T) {
	cfg := &TLSConfig{
		Enabled:  true,
		CertFile: "/nonexistent/server.crt",
		KeyFile:  "/nonexistent/server.key",
	}

	if _, err := cfg.LoadTLSConfig(); err == nil {
		t.Error("LoadTLSConfig() expected error for missing certificate")
	}
}

func TestLoadTLSConfigMinVersion(t *testing.T) {
	certFile, keyFile, _ := writeTestCert(t)

	tests := []struct {
		version string
		want    uint16
		wantErr bool
	}{
		{version: "", want: tls.VersionTLS12},
		{version: "TLS1.2", want: tls.VersionTLS12},
		{version: "TLS1.3", want: tls.VersionTLS13},
		{version: "TLS1.0", wantErr: true},
		{version: "bogus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("min_version "+tt.version, func(t *testing.T) {
			cfg := &TLSConfig{
				Enabled:    true,
				CertFile:   certFile,
				KeyFile:    keyFile,
				MinVersion: tt.version,
			}

			tlsConfig, err := cfg.LoadTLSConfig()
			if tt.wantErr {
				if err == nil {
					t.Error("LoadTLSConfig() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadTLSConfig() error = %v", err)
			}
			if tlsConfig.MinVersion != tt.want {
				t.Errorf("MinVersion = %x, want %x", tlsConfig.MinVersion, tt.want)
			}
		})
	}
}

func TestLoadTLSConfigClientAuth(t *testing.T) {
	certFile, keyFile, caFile := writeTestCert(t)

	tests := []struct {
		mode    string
		want    tls.ClientAuthType
		wantErr bool
	}{
		{mode: "request", want: tls.RequestClientCert},
		{mode: "require", want: tls.RequireAnyClientCert},
		{mode: "verify", want: tls.VerifyClientCertIfGiven},
		{mode: "require_and_verify", want: tls.RequireAndVerifyClientCert},
		{mode: "bogus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			cfg := &TLSConfig{
				Enabled:    true,
				CertFile:   certFile,
				KeyFile:    keyFile,
				CAFile:     caFile,
				ClientAuth: tt.mode,
			}

			tlsConfig, err := cfg.LoadTLSConfig()
			if tt.wantErr {
				if err == nil {
					t.Error("LoadTLSConfig() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadTLSConfig() error = %v", err)
			}
			if tlsConfig.ClientAuth != tt.want {
				t.Errorf("ClientAuth = %v, want %v", tlsConfig.ClientAuth, tt.want)
			}
			if tlsConfig.ClientCAs == nil {
				t.Error("ClientCAs = nil, want pool from ca_file")
			}
		})
	}
}

func TestLoadTLSConfigBadCAFile(t *testing.T) {
	certFile, keyFile, _ := writeTestCert(t)

	dir := t.TempDir()
	badCA := filepath.Join(dir, "ca.crt")
	if err := os.WriteFile(badCA, []byte("not a certificate"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := &TLSConfig{
		Enabled:    true,
		CertFile:   certFile,
		KeyFile:    keyFile,
		CAFile:     badCA,
		ClientAuth: "require_and_verify",
	}

	if _, err := cfg.LoadTLSConfig(); err == nil {
		t.Error("LoadTLSConfig() expected error for unparseable CA file")
	}
}
