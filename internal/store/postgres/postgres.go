// Package postgres stores claims in a relational claims table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Schema creates the claims table when it does not exist
const Schema = `
CREATE TABLE IF NOT EXISTS claims (
	id             TEXT PRIMARY KEY,
	resolved_claim TEXT NOT NULL,
	verified       BOOLEAN NOT NULL DEFAULT FALSE,
	verified_at    TIMESTAMPTZ
)`

type claimRow struct {
	ID            string `db:"id"`
	ResolvedClaim string `db:"resolved_claim"`
}

// Store reads and flags rows in the claims table
type Store struct {
	db *sqlx.DB
}

// Open connects with dsn and makes sure the schema exists
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN is required")
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	s := NewStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an open connection
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Migrate applies Schema
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create claims table: %w", err)
	}
	return nil
}

// FetchUnverified returns claims not yet verified, oldest id first
func (s *Store) FetchUnverified(ctx context.Context) ([]model.Claim, error) {
	var rows []claimRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, resolved_claim FROM claims WHERE verified IS NOT TRUE AND resolved_claim <> '' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select unverified claims: %w", err)
	}

	claims := make([]model.Claim, 0, len(rows))
	for _, r := range rows {
		claims = append(claims, model.Claim{ID: r.ID, Text: r.ResolvedClaim})
	}
	return claims, nil
}

// MarkVerified flags the claim with id as verified
func (s *Store) MarkVerified(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE claims SET verified = TRUE, verified_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark claim %s verified: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark claim %s verified: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("mark claim %s verified: %w", id, sql.ErrNoRows)
	}
	return nil
}

// Close closes the connection pool
func (s *Store) Close(ctx context.Context) error {
	return s.db.Close()
}
