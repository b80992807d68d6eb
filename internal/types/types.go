package types

import "time"

// Subscriber is a chat that has talked to the bot at least once.
type Subscriber struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

// Target is a pair monitored on behalf of one subscriber.
type Target struct {
	ID            int64     `json:"id"`
	SubscriberID  int64     `json:"subscriber_id"`
	Name          string    `json:"name"`
	PairAddress   string    `json:"pair_address"`
	Chain         string    `json:"chain"`
	ThresholdPct  float64   `json:"threshold_pct"` // > 0 alerts on rise, < 0 on fall
	CurrentPrice  float64   `json:"current_price"`
	LastChangePct float64   `json:"last_change_pct"`
	Active        bool      `json:"active"`
	AddedAt       time.Time `json:"added_at"`
}

// NewTarget carries what the add-target flow collects.
type NewTarget struct {
	SubscriberID int64
	Name         string
	PairAddress  string
	Chain        string
	ThresholdPct float64
	InitialPrice float64
}

// AlertRecord is one entry of the append-only alert history.
type AlertRecord struct {
	ID           int64     `json:"id"`
	SubscriberID int64     `json:"subscriber_id"`
	TargetID     int64     `json:"target_id"`
	Name         string    `json:"name"`
	ChangePct    float64   `json:"change_pct"`
	Price        float64   `json:"price"`
	AlertTime    time.Time `json:"alert_time"`
}

// Metric is what was extracted from a pair page.
// OK reports that the page was fetched; the *Parsed flags report which
// fields came from the page rather than from the sentinel defaults.
type Metric struct {
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Change24h    float64 `json:"change_24h"`
	OK           bool    `json:"ok"`
	NameParsed   bool    `json:"-"`
	PriceParsed  bool    `json:"-"`
	ChangeParsed bool    `json:"-"`
}

// Degraded reports a fetched page where at least one field fell back to its default.
func (m Metric) Degraded() bool {
	return m.OK && !(m.NameParsed && m.PriceParsed && m.ChangeParsed)
}

// Stats aggregates the counters shown by /status.
type Stats struct {
	ActiveTargets int64
	Subscribers   int64
	Alerts        int64
}
