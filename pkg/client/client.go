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

// Package client provides a Go client for the passkey server's REST API.
// It drives the registration and login ceremonies on behalf of a caller
// that holds the authenticator responses, such as a native app backend
// or an integration test.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	passkeyhttp "github.com/jeremyhahn/go-passkey/pkg/passkey/http"
)

var (
	// ErrConnectionFailed is returned when the connection to the server fails
	ErrConnectionFailed = errors.New("connection failed")
	// ErrNotConnected is returned when trying to use a client that is not connected
	ErrNotConnected = errors.New("client not connected")
)

// APIError is a structured error returned by the passkey server.
type APIError struct {
	// StatusCode is the HTTP status of the failed request.
	StatusCode int

	// Code is the machine-readable error code, such as "replay_detected".
	Code string

	// Message is the human-readable error message.
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Config configures the passkey client.
type Config struct {
	// Address is the server base URL, such as https://passkey.example.com.
	// A bare host:port is accepted and gets a scheme from TLSEnabled.
	Address string

	// BasePath is the API mount point (default: /api/v1/passkey).
	BasePath string

	// Timeout bounds each request (default: 30s).
	Timeout time.Duration

	// TLSEnabled enables TLS when Address has no scheme
	TLSEnabled bool

	// TLSInsecureSkipVerify skips TLS certificate verification (not recommended)
	TLSInsecureSkipVerify bool

	// TLSCAFile is the path to the CA certificate file
	TLSCAFile string

	// Headers are additional HTTP headers to include in requests
	Headers map[string]string
}

// Client communicates with a passkey server over REST.
type Client struct {
	config     *Config
	httpClient *http.Client
	baseURL    string
	basePath   string
	connected  bool
}

// New creates a new passkey client with the specified configuration.
func New(cfg *Config) (*Client, error) {
	if cfg == nil || cfg.Address == "" {
		return nil, fmt.Errorf("address is required")
	}

	baseURL := cfg.Address
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		if cfg.TLSEnabled {
			baseURL = "https://" + baseURL
		} else {
			baseURL = "http://" + baseURL
		}
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api/v1/passkey"
	}
	basePath = strings.TrimSuffix(basePath, "/")

	return &Client{
		config:   cfg,
		baseURL:  baseURL,
		basePath: basePath,
	}, nil
}

// Connect builds the HTTP transport and verifies the server is reachable
// via the liveness endpoint.
func (c *Client) Connect(ctx context.Context) error {
	var tlsConfig *tls.Config
	if strings.HasPrefix(c.baseURL, "https://") {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: c.config.TLSInsecureSkipVerify,
			MinVersion:         tls.VersionTLS12,
		}

		// Load CA certificate if specified
		if c.config.TLSCAFile != "" {
			caCert, err := os.ReadFile(c.config.TLSCAFile)
			if err != nil {
				return fmt.Errorf("failed to read CA certificate: %w", err)
			}
			caCertPool := x509.NewCertPool()
			if !caCertPool.AppendCertsFromPEM(caCert) {
				return fmt.Errorf("failed to parse CA certificate")
			}
			tlsConfig.RootCAs = caCertPool
		}
	}

	timeout := c.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	c.httpClient = &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
		},
		Timeout: timeout,
	}

	if err := c.Health(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	c.connected = true
	return nil
}

// Close closes the client.
func (c *Client) Close() error {
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}
	c.connected = false
	return nil
}

// Health checks the server's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	if c.httpClient == nil {
		return ErrNotConnected
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health/live", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy (status %d)", resp.StatusCode)
	}
	return nil
}

// BeginRegistration starts a registration ceremony and returns the
// credential creation options to pass to the authenticator.
func (c *Client) BeginRegistration(ctx context.Context, email string) (json.RawMessage, error) {
	body := passkeyhttp.BeginRequest{Email: email}
	return c.doRequest(ctx, c.basePath+"/register", body)
}

// FinishRegistration completes a registration ceremony with the
// authenticator's attestation response.
func (c *Client) FinishRegistration(ctx context.Context, email string, response json.RawMessage) error {
	body := passkeyhttp.FinishRequest{Email: email, Response: response}
	data, err := c.doRequest(ctx, c.basePath+"/register/verification", body)
	if err != nil {
		return err
	}

	var result passkeyhttp.VerificationResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !result.Verified {
		return fmt.Errorf("registration not verified")
	}
	return nil
}

// BeginLogin starts an authentication ceremony and returns the credential
// request options to pass to the authenticator.
func (c *Client) BeginLogin(ctx context.Context, email string) (json.RawMessage, error) {
	body := passkeyhttp.BeginRequest{Email: email}
	return c.doRequest(ctx, c.basePath+"/login", body)
}

// FinishLogin completes an authentication ceremony with the
// authenticator's assertion response. Returns the authenticated user ID.
func (c *Client) FinishLogin(ctx context.Context, email string, response json.RawMessage) (string, error) {
	body := passkeyhttp.FinishRequest{Email: email, Response: response}
	data, err := c.doRequest(ctx, c.basePath+"/login/verification", body)
	if err != nil {
		return "", err
	}

	var result passkeyhttp.VerificationResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if !result.Verified {
		return "", fmt.Errorf("login not verified")
	}
	return result.UserID, nil
}

// doRequest performs a JSON POST against the passkey API and decodes
// error responses into APIError.
func (c *Client) doRequest(ctx context.Context, path string, body interface{}) ([]byte, error) {
	if c.httpClient == nil {
		return nil, ErrNotConnected
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr passkeyhttp.ErrorResponse
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Code:       apiErr.Error,
				Message:    apiErr.Message,
			}
		}
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
