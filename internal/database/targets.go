package database

import (
	"context"
	"database/sql"

	"dextools-monitor-bot/internal/types"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrDuplicateTarget is returned when the subscriber already monitors the pair.
	ErrDuplicateTarget = errors.New("pair is already monitored")
	// ErrTargetNotFound is returned when no active target matches.
	ErrTargetNotFound = errors.New("target not found")
)

const targetColumns = `id, subscriber_id, name, pair_address, chain, threshold_pct, current_price, last_change_pct, active, added_at`

// AddTarget inserts an active target with the add-time price and zero change.
// An active target for the same (subscriber, pair address) is never merged:
// the call fails with ErrDuplicateTarget and nothing is written.
func (s *Store) AddTarget(ctx context.Context, nt types.NewTarget) (types.Target, error) {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Target{}, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM targets
	WHERE subscriber_id = ? AND pair_address = ? AND active = 1;`,
		nt.SubscriberID, nt.PairAddress,
	).Scan(&exists)
	if err != nil {
		return types.Target{}, errors.Wrap(err, "failed to check for duplicate target")
	}
	if exists > 0 {
		return types.Target{}, errors.Wrapf(ErrDuplicateTarget, "subscriber %d, pair %s", nt.SubscriberID, nt.PairAddress)
	}

	// subscribers are normally registered on first contact; keep the foreign key satisfied regardless
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO subscribers (id, label, created_at) VALUES (?, '', ?);`,
		nt.SubscriberID, formatTime(now),
	); err != nil {
		return types.Target{}, errors.Wrap(err, "failed to ensure subscriber")
	}

	res, err := tx.ExecContext(ctx, `
	INSERT INTO targets (subscriber_id, name, pair_address, chain, threshold_pct, current_price, last_change_pct, active, added_at)
	VALUES (?, ?, ?, ?, ?, ?, 0, 1, ?);`,
		nt.SubscriberID, nt.Name, nt.PairAddress, nt.Chain, nt.ThresholdPct, nt.InitialPrice, formatTime(now),
	)
	if err != nil {
		return types.Target{}, errors.Wrap(err, "failed to insert target")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.Target{}, errors.Wrap(err, "failed to read target id")
	}

	if err := tx.Commit(); err != nil {
		return types.Target{}, errors.Wrap(err, "failed to commit target")
	}

	log.WithFields(log.Fields{
		"subscriber_id": nt.SubscriberID,
		"target_id":     id,
		"pair":          nt.PairAddress,
		"threshold":     nt.ThresholdPct,
	}).Info("Target added")

	return types.Target{
		ID:            id,
		SubscriberID:  nt.SubscriberID,
		Name:          nt.Name,
		PairAddress:   nt.PairAddress,
		Chain:         nt.Chain,
		ThresholdPct:  nt.ThresholdPct,
		CurrentPrice:  nt.InitialPrice,
		LastChangePct: 0,
		Active:        true,
		AddedAt:       parseTime(formatTime(now)),
	}, nil
}

// ListActiveTargets returns every active target, oldest first. Used by the sweep.
func (s *Store) ListActiveTargets(ctx context.Context) ([]types.Target, error) {
	return s.queryTargets(ctx,
		`SELECT `+targetColumns+` FROM targets WHERE active = 1 ORDER BY id;`)
}

// ListSubscriberTargets returns the active targets of one subscriber.
func (s *Store) ListSubscriberTargets(ctx context.Context, subscriberID int64) ([]types.Target, error) {
	return s.queryTargets(ctx,
		`SELECT `+targetColumns+` FROM targets WHERE subscriber_id = ? AND active = 1 ORDER BY id;`,
		subscriberID)
}

// GetTarget returns a target regardless of its active flag.
func (s *Store) GetTarget(ctx context.Context, id int64) (types.Target, error) {
	targets, err := s.queryTargets(ctx, `SELECT `+targetColumns+` FROM targets WHERE id = ?;`, id)
	if err != nil {
		return types.Target{}, err
	}
	if len(targets) == 0 {
		return types.Target{}, errors.Wrapf(ErrTargetNotFound, "id %d", id)
	}
	return targets[0], nil
}

func (s *Store) queryTargets(ctx context.Context, query string, args ...interface{}) ([]types.Target, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query targets")
	}
	defer rows.Close()

	var targets []types.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate targets")
	}
	return targets, nil
}

func scanTarget(rows *sql.Rows) (types.Target, error) {
	var (
		t       types.Target
		active  int
		addedAt string
	)
	err := rows.Scan(&t.ID, &t.SubscriberID, &t.Name, &t.PairAddress, &t.Chain,
		&t.ThresholdPct, &t.CurrentPrice, &t.LastChangePct, &active, &addedAt)
	if err != nil {
		return t, errors.Wrap(err, "failed to scan target")
	}
	t.Active = active == 1
	t.AddedAt = parseTime(addedAt)
	return t, nil
}

// UpdateMetric stores the latest price and change of a target in one
// statement, so readers never observe half of the update.
func (s *Store) UpdateMetric(ctx context.Context, targetID int64, price, change float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE targets SET current_price = ?, last_change_pct = ? WHERE id = ?;`,
		price, change, targetID)
	if err != nil {
		return errors.Wrapf(err, "failed to update metric of target %d", targetID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrTargetNotFound, "id %d", targetID)
	}
	return nil
}

// DeactivateTarget soft-deletes a subscriber's target. The row stays for history.
func (s *Store) DeactivateTarget(ctx context.Context, subscriberID, targetID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE targets SET active = 0 WHERE id = ? AND subscriber_id = ? AND active = 1;`,
		targetID, subscriberID)
	if err != nil {
		return errors.Wrapf(err, "failed to deactivate target %d", targetID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrTargetNotFound, "id %d", targetID)
	}
	return nil
}
