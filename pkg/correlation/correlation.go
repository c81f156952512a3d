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

// Package correlation propagates a per-request correlation ID through
// context so ceremony log lines can be tied back to the originating
// HTTP request.
package correlation

import (
	"context"

	"github.com/google/uuid"
)

// contextKey keeps the correlation value private to this package.
type contextKey struct{}

const (
	// CorrelationIDHeader is the HTTP header for correlation IDs
	CorrelationIDHeader = "X-Correlation-ID"

	// RequestIDHeader is the fallback header accepted from clients that
	// send X-Request-ID instead
	RequestIDHeader = "X-Request-ID"
)

// WithCorrelationID returns a context carrying the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, id)
}

// GetCorrelationID returns the correlation ID from the context, or ""
// when none was set.
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// NewID generates a fresh UUID v4 correlation ID.
func NewID() string {
	return uuid.New().String()
}

// GetOrGenerate returns the context's correlation ID, generating one
// when the context has none.
func GetOrGenerate(ctx context.Context) string {
	if id := GetCorrelationID(ctx); id != "" {
		return id
	}
	return NewID()
}
