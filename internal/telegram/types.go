package telegram

import (
	"context"
	"time"

	"dextools-monitor-bot/internal/types"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotConfig configuration of the bot
type BotConfig struct {
	Token          string
	Debug          bool
	UpdatesTimeout int
}

// Bot telegram interaction client
type Bot struct {
	Bot     *tgbotapi.BotAPI
	Config  BotConfig
	handler *Handler
}

// Message a telegram message struct
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
}

// Store is what the command surface reads and writes.
type Store interface {
	RegisterSubscriber(ctx context.Context, id int64, label string) error
	AddTarget(ctx context.Context, nt types.NewTarget) (types.Target, error)
	ListSubscriberTargets(ctx context.Context, subscriberID int64) ([]types.Target, error)
	DeactivateTarget(ctx context.Context, subscriberID, targetID int64) error
	Stats(ctx context.Context) (types.Stats, error)
	CountAlerts(ctx context.Context, subscriberID int64) (int64, error)
}

// Fetcher looks up a pair when a target is added.
type Fetcher interface {
	GetCoinData(ctx context.Context, chain, pair string) (types.Metric, error)
}

type addStep int

const (
	awaitLink addStep = iota + 1
	awaitThreshold
)

// pendingAdd is a half-finished /addcoin conversation.
type pendingAdd struct {
	step   addStep
	chain  string
	pair   string
	metric types.Metric
	at     time.Time
}
