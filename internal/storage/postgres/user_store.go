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

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
)

// UserStore implements passkey.UserStore on PostgreSQL. Challenge state
// lives on the user row, so single-use consumption is a single
// compare-and-clear UPDATE with no separate session table.
type UserStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewUserStore creates a UserStore over the given connection pool.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{
		db:  db,
		now: time.Now,
	}
}

// GetByEmail retrieves a user by email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*passkey.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, challenge, challenge_issued_at, created_at, updated_at
		 FROM users WHERE email = $1`,
		email,
	))
}

// GetByID retrieves a user by ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (*passkey.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, challenge, challenge_issued_at, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	))
}

// FindOrCreate returns the user with the given email, inserting it if
// absent. The upsert resolves concurrent creation races in the database:
// the no-op DO UPDATE makes RETURNING yield the surviving row either way.
func (s *UserStore) FindOrCreate(ctx context.Context, email string) (*passkey.User, error) {
	now := s.now().UTC()
	return s.scanUser(s.db.QueryRowContext(ctx,
		`INSERT INTO users (id, email, created_at, updated_at)
		 VALUES ($1, $2, $3, $3)
		 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		 RETURNING id, email, challenge, challenge_issued_at, created_at, updated_at`,
		uuid.NewString(), email, now,
	))
}

// SetChallenge stores the challenge on the user row, replacing any
// outstanding one.
func (s *UserStore) SetChallenge(ctx context.Context, userID string, challenge passkey.Challenge) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET challenge = $2, challenge_issued_at = $3, updated_at = $4
		 WHERE id = $1`,
		userID, challenge.Value, challenge.IssuedAt.UTC(), s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set challenge: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return passkey.ErrUserNotFound
	}

	return nil
}

// ConsumeChallenge returns the outstanding challenge and clears it in one
// statement. The CTE takes the row lock before reading the challenge, so
// of two concurrent consumers the loser re-reads the row after the winner
// committed, finds the challenge NULL, and gets ErrNoChallenge. A plain
// self-join would hand both consumers the same snapshot value.
func (s *UserStore) ConsumeChallenge(ctx context.Context, userID string) (passkey.Challenge, error) {
	var (
		value    []byte
		issuedAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`WITH prev AS (
		     SELECT challenge, challenge_issued_at
		     FROM users
		     WHERE id = $1 AND challenge IS NOT NULL
		     FOR UPDATE
		 )
		 UPDATE users
		 SET challenge = NULL, challenge_issued_at = NULL, updated_at = $2
		 FROM prev
		 WHERE users.id = $1
		 RETURNING prev.challenge, prev.challenge_issued_at`,
		userID, s.now().UTC(),
	).Scan(&value, &issuedAt)

	if err == sql.ErrNoRows {
		return passkey.Challenge{}, passkey.ErrNoChallenge
	}
	if err != nil {
		return passkey.Challenge{}, fmt.Errorf("failed to consume challenge: %w", err)
	}

	return passkey.Challenge{Value: value, IssuedAt: issuedAt}, nil
}

func (s *UserStore) scanUser(row *sql.Row) (*passkey.User, error) {
	var (
		user     passkey.User
		value    []byte
		issuedAt sql.NullTime
	)
	err := row.Scan(&user.ID, &user.Email, &value, &issuedAt, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, passkey.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if value != nil {
		user.Challenge = &passkey.Challenge{
			Value:    value,
			IssuedAt: issuedAt.Time,
		}
	}

	return &user, nil
}

// compile-time interface check
var _ passkey.UserStore = (*UserStore)(nil)
