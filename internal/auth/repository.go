package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TokenRepository defines the interface for token persistence.
type TokenRepository interface {
	// Get retrieves a token record by name.
	// Returns ErrNoToken if nothing is stored under the name.
	Get(ctx context.Context, name string) (Token, error)

	// Upsert inserts or replaces a token record.
	Upsert(ctx context.Context, token Token) error

	// Delete removes a token record.
	// Returns ErrNoToken if nothing is stored under the name.
	Delete(ctx context.Context, name string) error
}

// SQLiteTokenRepository implements TokenRepository using SQLite.
type SQLiteTokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new SQLite-backed token repository.
func NewTokenRepository(db *sql.DB) *SQLiteTokenRepository {
	return &SQLiteTokenRepository{db: db}
}

// Get retrieves a token record by name.
func (r *SQLiteTokenRepository) Get(ctx context.Context, name string) (Token, error) {
	var (
		token     Token
		expiresAt sql.NullString
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT name, access_token, refresh_token, expires_at, updated_at
		 FROM tokens WHERE name = ?`, name,
	).Scan(&token.Name, &token.AccessToken, &token.RefreshToken, &expiresAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Token{}, fmt.Errorf("%w: %s", ErrNoToken, name)
		}
		return Token{}, fmt.Errorf("querying token %s: %w", name, err)
	}

	if expiresAt.Valid && expiresAt.String != "" {
		if parsed, err := time.Parse(time.RFC3339, expiresAt.String); err == nil {
			token.ExpiresAt = parsed
		}
	}
	if parsed, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		token.UpdatedAt = parsed
	}
	return token, nil
}

// Upsert inserts or replaces a token record.
func (r *SQLiteTokenRepository) Upsert(ctx context.Context, token Token) error {
	if token.Name == "" {
		return ErrMissingName
	}

	var expiresAt any
	if !token.ExpiresAt.IsZero() {
		expiresAt = token.ExpiresAt.UTC().Format(time.RFC3339)
	}
	updatedAt := token.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tokens (name, access_token, refresh_token, expires_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		token.Name, token.AccessToken, token.RefreshToken, expiresAt,
		updatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting token %s: %w", token.Name, err)
	}
	return nil
}

// Delete removes a token record.
func (r *SQLiteTokenRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting token %s: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNoToken, name)
	}
	return nil
}
