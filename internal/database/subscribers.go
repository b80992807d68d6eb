package database

import (
	"context"
	"database/sql"

	"dextools-monitor-bot/internal/types"

	"github.com/pkg/errors"
)

// RegisterSubscriber creates the subscriber on first contact and refreshes
// its label afterwards. created_at is never overwritten.
func (s *Store) RegisterSubscriber(ctx context.Context, id int64, label string) error {
	query := `
	INSERT INTO subscribers (id, label, created_at)
	VALUES (?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET label = excluded.label;`

	if _, err := s.db.ExecContext(ctx, query, id, label, formatTime(s.now())); err != nil {
		return errors.Wrapf(err, "failed to register subscriber %d", id)
	}
	return nil
}

// GetSubscriber returns sql.ErrNoRows (wrapped) for unknown ids.
func (s *Store) GetSubscriber(ctx context.Context, id int64) (types.Subscriber, error) {
	var (
		sub       types.Subscriber
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, label, created_at FROM subscribers WHERE id = ?;`, id,
	).Scan(&sub.ID, &sub.Label, &createdAt)
	if err == sql.ErrNoRows {
		return sub, errors.Wrapf(err, "subscriber %d not found", id)
	}
	if err != nil {
		return sub, errors.Wrapf(err, "failed to get subscriber %d", id)
	}
	sub.CreatedAt = parseTime(createdAt)
	return sub, nil
}
