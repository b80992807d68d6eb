package database

import (
	"context"
	"time"

	"dextools-monitor-bot/internal/types"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// RecordAlert appends an entry to the alert history. A zero AlertTime is
// replaced with the store clock.
func (s *Store) RecordAlert(ctx context.Context, a types.AlertRecord) (types.AlertRecord, error) {
	if a.AlertTime.IsZero() {
		a.AlertTime = s.now()
	}

	var targetID interface{}
	if a.TargetID != 0 {
		targetID = a.TargetID
	}

	res, err := s.db.ExecContext(ctx, `
	INSERT INTO alerts (subscriber_id, target_id, name, change_pct, price, alert_time)
	VALUES (?, ?, ?, ?, ?, ?);`,
		a.SubscriberID, targetID, a.Name, a.ChangePct, a.Price, formatTime(a.AlertTime))
	if err != nil {
		return a, errors.Wrap(err, "failed to insert alert")
	}
	a.ID, _ = res.LastInsertId()

	log.Debugf("Alert recorded: SubscriberID: %d, Name: %s, Change: %.2f%%, Price: %g", a.SubscriberID, a.Name, a.ChangePct, a.Price)
	return a, nil
}

// CountRecentAlerts counts alerts of (subscriber, name) strictly after since.
func (s *Store) CountRecentAlerts(ctx context.Context, subscriberID int64, name string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM alerts
	WHERE subscriber_id = ? AND name = ? AND alert_time > ?;`,
		subscriberID, name, formatTime(since),
	).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count recent alerts")
	}
	return n, nil
}

// CountRecentTargetAlerts counts alerts of one target strictly after since.
func (s *Store) CountRecentTargetAlerts(ctx context.Context, targetID int64, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM alerts
	WHERE target_id = ? AND alert_time > ?;`,
		targetID, formatTime(since),
	).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count recent target alerts")
	}
	return n, nil
}

// GetAlertsBySubscriber returns the alert history of a subscriber, newest first.
func (s *Store) GetAlertsBySubscriber(ctx context.Context, subscriberID int64, limit int) ([]types.AlertRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, subscriber_id, COALESCE(target_id, 0), name, change_pct, price, alert_time
	FROM alerts WHERE subscriber_id = ?
	ORDER BY alert_time DESC, id DESC LIMIT ?;`, subscriberID, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query alerts for subscriber %d", subscriberID)
	}
	defer rows.Close()

	var alerts []types.AlertRecord
	for rows.Next() {
		var (
			a         types.AlertRecord
			alertTime string
		)
		if err := rows.Scan(&a.ID, &a.SubscriberID, &a.TargetID, &a.Name, &a.ChangePct, &a.Price, &alertTime); err != nil {
			return nil, errors.Wrap(err, "failed to scan alert")
		}
		a.AlertTime = parseTime(alertTime)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// CountAlerts is the number of alerts ever sent to a subscriber.
func (s *Store) CountAlerts(ctx context.Context, subscriberID int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts WHERE subscriber_id = ?;`, subscriberID).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count alerts")
	}
	return n, nil
}

// Stats returns the active target count, the number of distinct subscribers
// with an active target, and the total alert count.
func (s *Store) Stats(ctx context.Context) (types.Stats, error) {
	var st types.Stats
	err := s.db.QueryRowContext(ctx, `
	SELECT
		(SELECT COUNT(*) FROM targets WHERE active = 1),
		(SELECT COUNT(DISTINCT subscriber_id) FROM targets WHERE active = 1),
		(SELECT COUNT(*) FROM alerts);`,
	).Scan(&st.ActiveTargets, &st.Subscribers, &st.Alerts)
	if err != nil {
		return st, errors.Wrap(err, "failed to read stats")
	}
	return st, nil
}
