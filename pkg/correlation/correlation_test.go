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

package correlation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithCorrelationID(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "abc-123")
	assert.Equal(t, "abc-123", GetCorrelationID(ctx))
}

func TestWithCorrelationIDNilContext(t *testing.T) {
	ctx := WithCorrelationID(nil, "abc-123") //nolint:staticcheck
	assert.Equal(t, "abc-123", GetCorrelationID(ctx))
}

func TestGetCorrelationIDMissing(t *testing.T) {
	assert.Empty(t, GetCorrelationID(context.Background()))
	assert.Empty(t, GetCorrelationID(nil)) //nolint:staticcheck
}

func TestGetCorrelationIDOverwrite(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "first")
	ctx = WithCorrelationID(ctx, "second")
	assert.Equal(t, "second", GetCorrelationID(ctx))
}

func TestNewID(t *testing.T) {
	id := NewID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	assert.NotEqual(t, id, NewID())
}

func TestGetOrGenerate(t *testing.T) {
	t.Run("existing id wins", func(t *testing.T) {
		ctx := WithCorrelationID(context.Background(), "keep-me")
		assert.Equal(t, "keep-me", GetOrGenerate(ctx))
	})

	t.Run("generates when absent", func(t *testing.T) {
		id := GetOrGenerate(context.Background())
		_, err := uuid.Parse(id)
		require.NoError(t, err)
	})
}
