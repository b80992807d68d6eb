package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dextools-monitor-bot/internal/types"

	"github.com/pkg/errors"
)

var t0 = time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func openTestStore(t *testing.T, path string, clock *fakeClock) *Store {
	t.Helper()
	s, err := Open(path, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: t0}
	return openTestStore(t, filepath.Join(t.TempDir(), "bot.db"), clock), clock
}

func TestRegisterSubscriberIsIdempotent(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	if err := s.RegisterSubscriber(ctx, 42, "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	clock.now = t0.Add(time.Hour)
	if err := s.RegisterSubscriber(ctx, 42, "alice_new"); err != nil {
		t.Fatalf("register again: %v", err)
	}

	sub, err := s.GetSubscriber(ctx, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sub.Label != "alice_new" {
		t.Fatalf("label = %q, want alice_new", sub.Label)
	}
	if !sub.CreatedAt.Equal(t0) {
		t.Fatalf("created_at changed to %v", sub.CreatedAt)
	}
}

func TestAddTargetRejectsActiveDuplicate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first, err := s.AddTarget(ctx, types.NewTarget{
		SubscriberID: 1, Name: "PEPE", PairAddress: "0xabc", Chain: "bnb", ThresholdPct: 15, InitialPrice: 0.5,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !first.Active || first.LastChangePct != 0 || first.CurrentPrice != 0.5 {
		t.Fatalf("unexpected target %+v", first)
	}

	_, err = s.AddTarget(ctx, types.NewTarget{
		SubscriberID: 1, Name: "PEPE", PairAddress: "0xabc", Chain: "bnb", ThresholdPct: -40, InitialPrice: 9,
	})
	if !errors.Is(err, ErrDuplicateTarget) {
		t.Fatalf("expected ErrDuplicateTarget, got %v", err)
	}

	got, err := s.GetTarget(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ThresholdPct != 15 || got.CurrentPrice != 0.5 {
		t.Fatalf("existing row was mutated: %+v", got)
	}
	all, _ := s.ListActiveTargets(ctx)
	if len(all) != 1 {
		t.Fatalf("expected 1 active target, got %d", len(all))
	}

	// another subscriber may track the same pair
	if _, err := s.AddTarget(ctx, types.NewTarget{SubscriberID: 2, Name: "PEPE", PairAddress: "0xabc", Chain: "bnb", ThresholdPct: 5}); err != nil {
		t.Fatalf("add for other subscriber: %v", err)
	}
}

func TestDeactivateTargetAllowsReAdd(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	tg, err := s.AddTarget(ctx, types.NewTarget{SubscriberID: 1, Name: "PEPE", PairAddress: "0xabc", Chain: "bnb", ThresholdPct: 15})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.DeactivateTarget(ctx, 2, tg.ID); !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("another subscriber must not deactivate the target, got %v", err)
	}
	if err := s.DeactivateTarget(ctx, 1, tg.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	got, err := s.GetTarget(ctx, tg.ID)
	if err != nil {
		t.Fatalf("soft-deleted target must still exist: %v", err)
	}
	if got.Active {
		t.Fatalf("expected inactive target")
	}
	if list, _ := s.ListSubscriberTargets(ctx, 1); len(list) != 0 {
		t.Fatalf("inactive target listed: %+v", list)
	}

	if _, err := s.AddTarget(ctx, types.NewTarget{SubscriberID: 1, Name: "PEPE", PairAddress: "0xabc", Chain: "bnb", ThresholdPct: -10}); err != nil {
		t.Fatalf("re-add after soft delete: %v", err)
	}
}

func TestUpdateMetric(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	tg, _ := s.AddTarget(ctx, types.NewTarget{SubscriberID: 1, Name: "PEPE", PairAddress: "0xabc", Chain: "bnb", ThresholdPct: 15, InitialPrice: 1})
	if err := s.UpdateMetric(ctx, tg.ID, 1.25, 17.3); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.GetTarget(ctx, tg.ID)
	if got.CurrentPrice != 1.25 || got.LastChangePct != 17.3 {
		t.Fatalf("unexpected row %+v", got)
	}
	if got.ThresholdPct != 15 || got.Name != "PEPE" {
		t.Fatalf("update touched other columns: %+v", got)
	}
	if err := s.UpdateMetric(ctx, 999, 1, 1); !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
}

func TestCountRecentAlertsWindow(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.RecordAlert(ctx, types.AlertRecord{SubscriberID: 1, TargetID: 7, Name: "PEPE", ChangePct: 17.3, Price: 1, AlertTime: t0}); err != nil {
		t.Fatalf("record: %v", err)
	}

	tests := []struct {
		name    string
		subID   int64
		coin    string
		elapsed time.Duration
		want    int
	}{
		{"inside window", 1, "PEPE", 119 * time.Minute, 1},
		{"window edge", 1, "PEPE", 2 * time.Hour, 0},
		{"after window", 1, "PEPE", 121 * time.Minute, 0},
		{"other name", 1, "DOGE", time.Minute, 0},
		{"other subscriber", 2, "PEPE", time.Minute, 0},
	}
	for _, tt := range tests {
		since := t0.Add(tt.elapsed).Add(-2 * time.Hour)
		got, err := s.CountRecentAlerts(ctx, tt.subID, tt.coin, since)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.name, got, tt.want)
		}
	}

	n, err := s.CountRecentTargetAlerts(ctx, 7, t0.Add(-time.Minute))
	if err != nil || n != 1 {
		t.Fatalf("CountRecentTargetAlerts = %d, %v", n, err)
	}
	n, _ = s.CountRecentTargetAlerts(ctx, 8, t0.Add(-time.Minute))
	if n != 0 {
		t.Fatalf("expected no alerts for target 8, got %d", n)
	}
}

func TestStatsAndHistory(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.AddTarget(ctx, types.NewTarget{SubscriberID: 1, Name: "A", PairAddress: "0x1", Chain: "bnb", ThresholdPct: 5})
	s.AddTarget(ctx, types.NewTarget{SubscriberID: 1, Name: "B", PairAddress: "0x2", Chain: "bnb", ThresholdPct: 5})
	tg, _ := s.AddTarget(ctx, types.NewTarget{SubscriberID: 2, Name: "C", PairAddress: "0x3", Chain: "ether", ThresholdPct: -5})
	s.RecordAlert(ctx, types.AlertRecord{SubscriberID: 1, Name: "A", ChangePct: 6, Price: 1, AlertTime: t0})
	s.RecordAlert(ctx, types.AlertRecord{SubscriberID: 1, Name: "B", ChangePct: 7, Price: 2, AlertTime: t0.Add(time.Minute)})
	s.DeactivateTarget(ctx, 2, tg.ID)

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.ActiveTargets != 2 || st.Subscribers != 1 || st.Alerts != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}

	n, _ := s.CountAlerts(ctx, 1)
	if n != 2 {
		t.Fatalf("CountAlerts = %d, want 2", n)
	}
	history, err := s.GetAlertsBySubscriber(ctx, 1, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].Name != "B" || !history[0].AlertTime.Equal(t0.Add(time.Minute)) {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.db")
	clock := &fakeClock{now: t0}
	ctx := context.Background()

	s, err := Open(path, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	tg, _ := s.AddTarget(ctx, types.NewTarget{SubscriberID: 1, Name: "PEPE", PairAddress: "0xabc", Chain: "bnb", ThresholdPct: 15})
	s.RecordAlert(ctx, types.AlertRecord{SubscriberID: 1, TargetID: tg.ID, Name: "PEPE", ChangePct: 17.3, Price: 1, AlertTime: t0})
	s.SaveMetric(ctx, "sweeps_total", 12)
	s.SaveMetricWithLabels(ctx, "alerts_per_chain", "chain", "bnb", 3)
	s.Close()

	s = openTestStore(t, path, clock)
	n, _ := s.CountRecentAlerts(ctx, 1, "PEPE", t0.Add(-time.Hour))
	if n != 1 {
		t.Fatalf("alert history lost across restart")
	}
	if _, err := s.AddTarget(ctx, types.NewTarget{SubscriberID: 1, Name: "PEPE", PairAddress: "0xabc", Chain: "bnb", ThresholdPct: 3}); !errors.Is(err, ErrDuplicateTarget) {
		t.Fatalf("expected duplicate after restart, got %v", err)
	}
	v, _ := s.GetMetric(ctx, "sweeps_total")
	if v != 12 {
		t.Fatalf("metric = %v, want 12", v)
	}
	labeled, _ := s.GetMetricsWithLabels(ctx, "alerts_per_chain")
	if labeled["chain"]["bnb"] != 3 {
		t.Fatalf("labeled metric lost: %+v", labeled)
	}
	if v, _ := s.GetMetric(ctx, "missing"); v != 0 {
		t.Fatalf("missing metric should default to 0")
	}
}
