package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"dextools-monitor-bot/config"
	"dextools-monitor-bot/internal/alert"
	"dextools-monitor-bot/internal/database"
	"dextools-monitor-bot/internal/metrics"
	"dextools-monitor-bot/internal/scheduler"
	"dextools-monitor-bot/internal/scraper"
	"dextools-monitor-bot/internal/telegram"
	"dextools-monitor-bot/lib/translation"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const metricsSaveInterval = 5 * time.Minute

func init() {
	config.InitConfig()
	setupLogging()
}

func main() {
	translation.Configure("locales", config.GetString("lang"))

	store, err := database.Open(config.GetString("db_path"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	m.LoadFromDB(context.Background(), store)

	interval := config.GetDuration("sweep_interval")
	fetchTimeout := config.GetDuration("fetch_timeout")
	cacheTTL := scraper.CacheTTLFor(config.GetDuration("fetch_cache_ttl"), interval)
	cooldown := config.GetDuration("alert_cooldown")
	log.WithFields(log.Fields{
		"sweep_interval":  interval,
		"fetch_timeout":   fetchTimeout,
		"fetch_cache_ttl": cacheTTL,
		"alert_cooldown":  cooldown,
	}).Info("Configuration loaded")

	fetcher := scraper.NewClient(
		scraper.WithBaseURL(config.GetString("dextools_base_url")),
		scraper.WithTimeout(fetchTimeout),
		scraper.WithRateLimit(config.GetFloat64("fetch_rate_per_second")),
		scraper.WithCacheTTL(cacheTTL),
	)

	handler := telegram.NewHandler(store, fetcher, interval, cooldown)

	var (
		bot      *telegram.Bot
		notifier alert.Notifier = alert.NewLogNotifier()
	)
	if token := config.GetString("telegram_bot_token"); token != "" {
		bot, err = telegram.NewBot(telegram.BotConfig{
			Token:          token,
			Debug:          config.GetBool("debug"),
			UpdatesTimeout: 60,
		}, handler)
		if err != nil {
			log.Fatalf("Failed to create bot: %v", err)
		}
		notifier = bot
	} else {
		log.Warn("No telegram bot token configured, alerts are written to the log")
	}

	service := alert.NewService(store, fetcher, notifier, alert.Config{
		Cooldown:         cooldown,
		CooldownKey:      alert.CooldownKey(config.GetString("cooldown_key")),
		StrictExtraction: config.GetBool("strict_extraction"),
	}, m)

	sched := scheduler.New(interval, service.CheckTargets,
		scheduler.WithDroppedHook(m.SweepsDropped.Inc),
		scheduler.WithRunOnStart(),
	)
	sched.Start()
	log.Infof("🚀 Monitoring started, sweeping every %s", interval)

	if bot != nil {
		updates, err := bot.GetUpdatesChannel()
		if err != nil {
			log.Fatalf("Failed to get updates channel: %v", err)
		}
		go handleUpdates(bot, updates, m)
	}

	go func() {
		for {
			time.Sleep(metricsSaveInterval)
			m.SaveToDB(context.Background(), store)
		}
	}()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info("Shutting down, waiting for the running sweep...")
		if bot != nil {
			bot.StopReceivingUpdates()
		}
		sched.Stop()
		m.SaveToDB(context.Background(), store)
		if err := store.Close(); err != nil {
			log.Errorf("Failed to close database: %v", err)
		}
		log.Info("Metrics saved, shutting down...")
		os.Exit(0)
	}()

	if err := launchMetricsAndHealthServer(config.GetInt("metrics_port"), store); err != nil {
		log.Fatalf("Failed to start metrics and health server: %v", err)
	}
}

func setupLogging() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting dextools monitor bot...")
}

func handleUpdates(bot *telegram.Bot, updates tgbotapi.UpdatesChannel, m *metrics.Metrics) {
	for update := range updates {
		if update.Message == nil {
			log.Debug("Received non-message update")
			continue
		}

		m.MessagesHandled.Inc()
		handleCommand(bot, update, m)
	}
}

func handleCommand(bot *telegram.Bot, update tgbotapi.Update, m *metrics.Metrics) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	reply := bot.HandleUpdate(ctx, update)
	if reply == "" {
		return
	}

	err := bot.SendMessage(telegram.Message{
		ChatID:    update.Message.Chat.ID,
		Text:      reply,
		MessageID: update.Message.MessageID,
	})

	if err != nil {
		log.Errorf("Failed to send message: %v", err)
	} else if update.Message.IsCommand() {
		m.CommandsProcessed.Inc()
	}
}

func launchMetricsAndHealthServer(port int, store *database.Store) error {
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("database unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	log.Infof("Launching metrics and health endpoint on :%d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), http.DefaultServeMux)
}
