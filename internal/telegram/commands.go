package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"dextools-monitor-bot/internal/alert"
	"dextools-monitor-bot/internal/database"
	"dextools-monitor-bot/internal/scraper"
	"dextools-monitor-bot/internal/types"
	"dextools-monitor-bot/lib/helpers"
	"dextools-monitor-bot/lib/translation"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// pendingTTL drops /addcoin conversations the user walked away from.
const pendingTTL = 15 * time.Minute

// Handler turns commands and replies into MarkdownV2 answers. It holds the
// per-chat /addcoin conversation state.
type Handler struct {
	store    Store
	fetcher  Fetcher
	interval time.Duration
	cooldown time.Duration
	now      func() time.Time

	mu      sync.Mutex
	pending map[int64]*pendingAdd
}

// NewHandler builds the command surface. interval and cooldown are only
// shown to users.
func NewHandler(store Store, fetcher Fetcher, interval, cooldown time.Duration) *Handler {
	return &Handler{
		store:    store,
		fetcher:  fetcher,
		interval: interval,
		cooldown: cooldown,
		now:      time.Now,
		pending:  make(map[int64]*pendingAdd),
	}
}

// Handle answers one message. command is empty for plain text. An empty
// reply means the message is ignored.
func (h *Handler) Handle(ctx context.Context, chatID int64, label, command, args, text string) string {
	log.Debugf("received command %q from chat %d", command, chatID)

	switch command {
	case "start":
		h.register(ctx, chatID, label)
		return translation.Translate(msgWelcome)
	case "help":
		return fmt.Sprintf(translation.Translate(msgHelp),
			helpers.FormatDuration(h.interval),
			helpers.FormatDuration(h.cooldown),
		)
	case "addcoin":
		h.register(ctx, chatID, label)
		h.setPending(chatID, &pendingAdd{step: awaitLink})
		if strings.TrimSpace(args) != "" {
			return h.handleLink(ctx, chatID, args)
		}
		return translation.Translate(msgSendLink)
	case "cancel":
		h.clearPending(chatID)
		return translation.Translate(msgCancelled)
	case "listcoins":
		return h.handleList(ctx, chatID)
	case "removecoin":
		return h.handleRemove(ctx, chatID, args)
	case "status":
		return h.handleStatus(ctx, chatID)
	case "":
		return h.handleText(ctx, chatID, text)
	default:
		return translation.Translate(msgUnknownCommand)
	}
}

func (h *Handler) register(ctx context.Context, chatID int64, label string) {
	if label == "" {
		label = scraper.UnknownName
	}
	if err := h.store.RegisterSubscriber(ctx, chatID, label); err != nil {
		log.Errorf("Failed to register subscriber %d: %v", chatID, err)
	}
}

func (h *Handler) handleText(ctx context.Context, chatID int64, text string) string {
	p := h.getPending(chatID)
	if p == nil {
		return ""
	}
	switch p.step {
	case awaitLink:
		return h.handleLink(ctx, chatID, text)
	case awaitThreshold:
		return h.handleThreshold(ctx, chatID, p, text)
	}
	return ""
}

func (h *Handler) handleLink(ctx context.Context, chatID int64, link string) string {
	chain, pair, err := scraper.ParsePairURL(link)
	if err != nil {
		return translation.Translate(msgInvalidLink)
	}

	m, err := h.fetcher.GetCoinData(ctx, chain, pair)
	if err != nil {
		log.WithFields(log.Fields{"chat_id": chatID, "chain": chain, "pair": pair}).Warnf("Failed to fetch pair on add: %v", err)
		h.clearPending(chatID)
		return translation.Translate(msgFetchFailed)
	}

	h.setPending(chatID, &pendingAdd{step: awaitThreshold, chain: chain, pair: pair, metric: m})
	return fmt.Sprintf(translation.Translate(msgPairFound),
		helpers.EscapeMarkdownV2(m.Name),
		helpers.EscapeMarkdownV2(chain),
		helpers.FormatPriceUS(m.Price, true),
		helpers.FormatPercentage(m.Change24h, true),
	)
}

func (h *Handler) handleThreshold(ctx context.Context, chatID int64, p *pendingAdd, text string) string {
	threshold, err := alert.ParseThreshold(text)
	if err != nil {
		return translation.Translate(msgInvalidThreshold)
	}

	t, err := h.store.AddTarget(ctx, types.NewTarget{
		SubscriberID: chatID,
		Name:         p.metric.Name,
		PairAddress:  p.pair,
		Chain:        p.chain,
		ThresholdPct: threshold,
		InitialPrice: p.metric.Price,
	})
	h.clearPending(chatID)
	if errors.Is(err, database.ErrDuplicateTarget) {
		return fmt.Sprintf(translation.Translate(msgAlreadyMonitored), helpers.EscapeMarkdownV2(p.metric.Name))
	}
	if err != nil {
		log.Errorf("Failed to add target for chat %d: %v", chatID, err)
		return translation.Translate(msgInsertFailed)
	}

	direction := translation.Translate(msgRises)
	if threshold < 0 {
		direction = translation.Translate(msgFalls)
	}
	return fmt.Sprintf(translation.Translate(msgTargetAdded),
		helpers.EscapeMarkdownV2(t.Name),
		t.ID,
		direction,
		helpers.FormatPercentage(threshold, true),
		helpers.FormatDuration(h.interval),
	)
}

func (h *Handler) handleList(ctx context.Context, chatID int64) string {
	targets, err := h.store.ListSubscriberTargets(ctx, chatID)
	if err != nil {
		log.Errorf("Failed to list targets for chat %d: %v", chatID, err)
		return translation.Translate(msgListFailed)
	}
	if len(targets) == 0 {
		return translation.Translate(msgNoTargets)
	}

	now := h.now()
	var b strings.Builder
	b.WriteString(translation.Translate(msgTargetsHeader))
	for _, t := range targets {
		b.WriteString(fmt.Sprintf(translation.Translate(msgTargetItem),
			t.ID,
			helpers.EscapeMarkdownV2(t.Name),
			helpers.EscapeMarkdownV2(t.Chain),
			helpers.FormatPercentage(t.ThresholdPct, true),
			helpers.FormatPriceUS(t.CurrentPrice, true),
			helpers.FormatPercentage(t.LastChangePct, true),
			helpers.FormatSince(t.AddedAt, now),
		))
	}
	return b.String()
}

func (h *Handler) handleRemove(ctx context.Context, chatID int64, args string) string {
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return translation.Translate(msgRemoveUsage)
	}
	err = h.store.DeactivateTarget(ctx, chatID, id)
	if errors.Is(err, database.ErrTargetNotFound) {
		return translation.Translate(msgTargetNotFound)
	}
	if err != nil {
		log.Errorf("Failed to remove target %d for chat %d: %v", id, chatID, err)
		return translation.Translate(msgUpdateFailed)
	}
	return fmt.Sprintf(translation.Translate(msgTargetRemoved), id)
}

func (h *Handler) handleStatus(ctx context.Context, chatID int64) string {
	st, err := h.store.Stats(ctx)
	if err != nil {
		log.Errorf("Failed to read stats: %v", err)
		return translation.Translate(msgStatusFailed)
	}
	mine, err := h.store.CountAlerts(ctx, chatID)
	if err != nil {
		log.Errorf("Failed to count alerts for chat %d: %v", chatID, err)
	}
	return fmt.Sprintf(translation.Translate(msgStatus),
		helpers.FormatCount(st.ActiveTargets),
		helpers.FormatCount(st.Subscribers),
		helpers.FormatCount(mine),
		helpers.FormatDuration(h.interval),
	)
}

func (h *Handler) getPending(chatID int64) *pendingAdd {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.pending[chatID]
	if !ok {
		return nil
	}
	if h.now().Sub(p.at) > pendingTTL {
		delete(h.pending, chatID)
		return nil
	}
	return p
}

func (h *Handler) setPending(chatID int64, p *pendingAdd) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p.at = h.now()
	h.pending[chatID] = p
}

func (h *Handler) clearPending(chatID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, chatID)
}
