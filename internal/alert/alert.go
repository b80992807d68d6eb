package alert

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"dextools-monitor-bot/internal/metrics"
	"dextools-monitor-bot/internal/types"
	"dextools-monitor-bot/lib/helpers"
	"dextools-monitor-bot/lib/translation"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// CooldownKey selects which alerts share a cooldown bucket.
type CooldownKey string

const (
	// CooldownByName buckets by (subscriber, target name): two targets of one
	// subscriber with the same display name suppress each other.
	CooldownByName CooldownKey = "name"
	// CooldownByTarget buckets by target id.
	CooldownByTarget CooldownKey = "target"

	DefaultCooldown = 2 * time.Hour
)

// Store is the part of the target store a sweep needs.
type Store interface {
	ListActiveTargets(ctx context.Context) ([]types.Target, error)
	UpdateMetric(ctx context.Context, targetID int64, price, change float64) error
	RecordAlert(ctx context.Context, a types.AlertRecord) (types.AlertRecord, error)
	CountRecentAlerts(ctx context.Context, subscriberID int64, name string, since time.Time) (int, error)
	CountRecentTargetAlerts(ctx context.Context, targetID int64, since time.Time) (int, error)
}

// Fetcher returns the current metric of a pair.
type Fetcher interface {
	GetCoinData(ctx context.Context, chain, pair string) (types.Metric, error)
}

type Config struct {
	Cooldown    time.Duration
	CooldownKey CooldownKey
	// StrictExtraction skips targets whose price or change did not parse
	// instead of storing and evaluating the zero defaults.
	StrictExtraction bool
	Now              func() time.Time
}

// Service runs sweep passes over all active targets.
type Service struct {
	store    Store
	fetcher  Fetcher
	notifier Notifier
	cfg      Config
	metrics  *metrics.Metrics
}

// PassSummary describes the outcome of one pass.
type PassSummary struct {
	PassID     string
	Targets    int
	Evaluated  int
	Failed     int
	Alerted    int
	Suppressed int
}

type outcome int

const (
	outcomeQuiet outcome = iota
	outcomeAlerted
	outcomeSuppressed
	outcomeFailed
)

func NewService(store Store, fetcher Fetcher, notifier Notifier, cfg Config, m *metrics.Metrics) *Service {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.CooldownKey == "" {
		cfg.CooldownKey = CooldownByName
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Service{store: store, fetcher: fetcher, notifier: notifier, cfg: cfg, metrics: m}
}

// CheckTargets runs one sweep pass. It returns an error only when the active
// targets cannot be listed; failures of individual targets are logged and
// do not stop the pass.
func (s *Service) CheckTargets(ctx context.Context) error {
	start := time.Now()
	summary, err := s.checkTargets(ctx)
	s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.SweepFailures.Inc()
		return err
	}
	s.metrics.SweepsTotal.Inc()

	log.WithFields(log.Fields{
		"pass_id":    summary.PassID,
		"targets":    summary.Targets,
		"evaluated":  summary.Evaluated,
		"failed":     summary.Failed,
		"alerted":    summary.Alerted,
		"suppressed": summary.Suppressed,
		"duration":   time.Since(start).Round(time.Millisecond),
	}).Info("✅ Sweep completed.")
	return nil
}

func (s *Service) checkTargets(ctx context.Context) (PassSummary, error) {
	summary := PassSummary{PassID: uuid.NewString()}
	logger := log.WithField("pass_id", summary.PassID)
	logger.Debug("🔄 Checking targets...")

	targets, err := s.store.ListActiveTargets(ctx)
	if err != nil {
		return summary, errors.Wrap(err, "store unavailable")
	}
	summary.Targets = len(targets)

	subscribers := make(map[int64]struct{})
	for _, t := range targets {
		subscribers[t.SubscriberID] = struct{}{}
	}
	s.metrics.ActiveTargets.Set(float64(len(targets)))
	s.metrics.Subscribers.Set(float64(len(subscribers)))

	for _, t := range targets {
		switch s.checkTargetSafely(ctx, logger, t) {
		case outcomeFailed:
			summary.Failed++
			continue
		case outcomeAlerted:
			summary.Alerted++
		case outcomeSuppressed:
			summary.Suppressed++
		}
		summary.Evaluated++
	}
	return summary, nil
}

func (s *Service) checkTargetSafely(ctx context.Context, logger *log.Entry, t types.Target) (res outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("target_id", t.ID).Errorf("🔥 Panic recovered while checking target: %v\n%s", r, debug.Stack())
			res = outcomeFailed
		}
	}()
	return s.checkTarget(ctx, logger, t)
}

func (s *Service) checkTarget(ctx context.Context, logger *log.Entry, t types.Target) outcome {
	tlog := logger.WithFields(log.Fields{
		"target_id":     t.ID,
		"subscriber_id": t.SubscriberID,
		"name":          t.Name,
		"chain":         t.Chain,
	})
	s.metrics.TargetsChecked.Inc()

	m, err := s.fetcher.GetCoinData(ctx, t.Chain, t.PairAddress)
	if err != nil {
		s.metrics.FetchFailures.Inc()
		tlog.Warnf("❌ Failed to fetch pair data: %v", err)
		return outcomeFailed
	}

	if m.Degraded() {
		s.metrics.ExtractionDegraded.Inc()
		tlog.WithFields(log.Fields{
			"name_parsed":   m.NameParsed,
			"price_parsed":  m.PriceParsed,
			"change_parsed": m.ChangeParsed,
		}).Warn("⚠️ Extraction fell back to defaults")
		if s.cfg.StrictExtraction && !(m.PriceParsed && m.ChangeParsed) {
			return outcomeFailed
		}
	}

	if err := s.store.UpdateMetric(ctx, t.ID, m.Price, m.Change24h); err != nil {
		tlog.Errorf("❌ Failed to store metric: %v", err)
		return outcomeFailed
	}

	tlog.Debugf("🔍 Threshold: %.2f%% | Change: %.2f%% | Price: %g", t.ThresholdPct, m.Change24h, m.Price)

	if !Crossed(t.ThresholdPct, m.Change24h) {
		return outcomeQuiet
	}

	now := s.cfg.Now()
	recent, err := s.recentAlerts(ctx, t, now.Add(-s.cfg.Cooldown))
	if err != nil {
		tlog.Errorf("❌ Failed to read alert history: %v", err)
		return outcomeFailed
	}
	if !ShouldAlert(t.ThresholdPct, m.Change24h, recent) {
		s.metrics.AlertsSuppressed.Inc()
		tlog.Debug("Crossing suppressed by cooldown")
		return outcomeSuppressed
	}

	// history first, so a failed delivery still leaves a truthful record
	if _, err := s.store.RecordAlert(ctx, types.AlertRecord{
		SubscriberID: t.SubscriberID,
		TargetID:     t.ID,
		Name:         t.Name,
		ChangePct:    m.Change24h,
		Price:        m.Price,
		AlertTime:    now,
	}); err != nil {
		tlog.Errorf("❌ Failed to record alert, not notifying: %v", err)
		return outcomeFailed
	}
	s.metrics.AlertsSent.WithLabelValues(t.Chain).Inc()

	if err := s.notifier.Deliver(ctx, t.SubscriberID, FormatAlertMessage(t, m)); err != nil {
		s.metrics.DeliveryFailures.Inc()
		tlog.Errorf("❌ Failed to deliver alert: %v", err)
	} else {
		tlog.Info("✅ Alert delivered")
	}
	return outcomeAlerted
}

func (s *Service) recentAlerts(ctx context.Context, t types.Target, since time.Time) (int, error) {
	if s.cfg.CooldownKey == CooldownByTarget {
		return s.store.CountRecentTargetAlerts(ctx, t.ID, since)
	}
	return s.store.CountRecentAlerts(ctx, t.SubscriberID, t.Name, since)
}

// FormatAlertMessage renders the MarkdownV2 notification for a crossing.
func FormatAlertMessage(t types.Target, m types.Metric) string {
	headline := translation.Translate("🚀 *Price Alert: rise*")
	if t.ThresholdPct < 0 {
		headline = translation.Translate("📉 *Price Alert: fall*")
	}

	return fmt.Sprintf(
		translation.Translate("%s\n\n*%s* \\(%s\\)\n24h change: *%s*\nTarget: *%s*\nPrice: *$%s*"),
		headline,
		helpers.EscapeMarkdownV2(t.Name),
		helpers.EscapeMarkdownV2(t.Chain),
		helpers.FormatPercentage(m.Change24h, true),
		helpers.FormatPercentage(t.ThresholdPct, true),
		helpers.FormatPriceUS(m.Price, true),
	)
}
