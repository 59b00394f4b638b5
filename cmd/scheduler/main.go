package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/bootstrap"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/conversations"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/events"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/leads"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/scheduler"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/config"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/logger"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/phone"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		panic("failed to open store: " + err.Error())
	}
	defer func() { _ = st.Close() }()

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	resolver := leads.NewResolver(st, phone.NewNormalizer(cfg.GetPhoneDefaultRegion()), eventBus, log, cfg.GetVoiceVendorName())
	conversationService := conversations.New(st, resolver, eventBus, log, cfg.GetStoreTimeout())

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	interval := getDurationEnv("MESSAGE_BACKFILL_INTERVAL", time.Minute)
	batch := getPositiveIntEnv("MESSAGE_BACKFILL_BATCH", 50)
	dispatcher := scheduler.NewMessageBackfillDispatcher(st, client, log, interval, batch)

	worker, err := scheduler.NewWorker(cfg, conversationService, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	_ = g.Wait()

	log.Info("scheduler stopped")
}

func getPositiveIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
