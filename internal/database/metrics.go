package database

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// SaveMetric persists an unlabeled counter value so it survives restarts.
func (s *Store) SaveMetric(ctx context.Context, metricName string, value float64) error {
	return s.SaveMetricWithLabels(ctx, metricName, "", "", value)
}

func (s *Store) GetMetric(ctx context.Context, metricName string) (float64, error) {
	var value float64
	query := `
	SELECT metric_value
	FROM metrics
	WHERE metric_name = ? AND label_key = '' AND label_value = '';`
	err := s.db.QueryRowContext(ctx, query, metricName).Scan(&value)
	if err == sql.ErrNoRows {
		log.Debugf("Metric %s not found in the database, defaulting to 0", metricName)
		return 0, nil
	} else if err != nil {
		return 0, errors.Wrapf(err, "failed to get metric %s", metricName)
	}
	log.Debugf("Metric loaded: %s = %f", metricName, value)
	return value, nil
}

func (s *Store) SaveMetricWithLabels(ctx context.Context, metricName, labelKey, labelValue string, value float64) error {
	query := `
	INSERT OR REPLACE INTO metrics (metric_name, label_key, label_value, metric_value)
	VALUES (?, ?, ?, ?);`
	_, err := s.db.ExecContext(ctx, query, metricName, labelKey, labelValue, value)
	if err != nil {
		return errors.Wrap(err, "failed to save metric")
	}
	log.Debugf("Metric saved: %s[%s=%s] = %f", metricName, labelKey, labelValue, value)
	return nil
}

// GetMetricsWithLabels fetches all labeled values of a metric as labelKey -> labelValue -> value.
func (s *Store) GetMetricsWithLabels(ctx context.Context, metricName string) (map[string]map[string]float64, error) {
	query := `
	SELECT label_key, label_value, metric_value
	FROM metrics
	WHERE metric_name = ? AND label_key != '';`

	rows, err := s.db.QueryContext(ctx, query, metricName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query metrics with labels")
	}
	defer rows.Close()

	metrics := make(map[string]map[string]float64)
	for rows.Next() {
		var labelKey, labelValue string
		var value float64
		if err := rows.Scan(&labelKey, &labelValue, &value); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}

		if _, exists := metrics[labelKey]; !exists {
			metrics[labelKey] = make(map[string]float64)
		}
		metrics[labelKey][labelValue] = value
	}
	return metrics, rows.Err()
}
