package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed session store. Each profile owns one row, so
// several operators can share a host without sharing credentials.
type PgStore struct {
	pool    *pgxpool.Pool
	profile string
}

// NewPgStore creates a PgStore for profile.
func NewPgStore(pool *pgxpool.Pool, profile string) *PgStore {
	if profile == "" {
		profile = "default"
	}
	return &PgStore{pool: pool, profile: profile}
}

// EnsureTable creates the console_sessions table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS console_sessions (
			profile       TEXT PRIMARY KEY,
			access_token  TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL DEFAULT '',
			role          TEXT NOT NULL DEFAULT '',
			first_name    TEXT NOT NULL DEFAULT '',
			last_name     TEXT NOT NULL DEFAULT '',
			email         TEXT NOT NULL DEFAULT '',
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

// Load returns the profile's session.
func (s *PgStore) Load(ctx context.Context) (*Session, error) {
	var sess Session
	var role string
	err := s.pool.QueryRow(ctx, `
		SELECT access_token, refresh_token, role, first_name, last_name, email
		FROM console_sessions WHERE profile = $1`, s.profile).
		Scan(&sess.AccessToken, &sess.RefreshToken, &role, &sess.FirstName, &sess.LastName, &sess.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", s.profile, err)
	}
	sess.Role = Role(role)
	return &sess, nil
}

// Save upserts the profile's session.
func (s *PgStore) Save(ctx context.Context, sess *Session) error {
	now := time.Now().Truncate(time.Microsecond)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO console_sessions (profile, access_token, refresh_token, role, first_name, last_name, email, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (profile) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			role = EXCLUDED.role,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			updated_at = EXCLUDED.updated_at`,
		s.profile, sess.AccessToken, sess.RefreshToken, string(sess.Role), sess.FirstName, sess.LastName, sess.Email, now)
	if err != nil {
		return fmt.Errorf("save session %s: %w", s.profile, err)
	}
	return nil
}

// Clear deletes the profile's session.
func (s *PgStore) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM console_sessions WHERE profile = $1`, s.profile)
	if err != nil {
		return fmt.Errorf("clear session %s: %w", s.profile, err)
	}
	return nil
}
