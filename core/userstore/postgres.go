package userstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresStore keeps the known-user set in the known_users table, created
// by the bundled migrations.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an already-connected database handle.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Add inserts the user id, ignoring duplicates.
func (s *PostgresStore) Add(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO known_users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("userstore: add %d: %w", userID, err)
	}
	return nil
}

// List returns the known ids in ascending order.
func (s *PostgresStore) List(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM known_users ORDER BY user_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("userstore: list: %w", err)
	}
	return ids, nil
}
