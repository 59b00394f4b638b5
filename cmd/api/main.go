package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/adapters/storage"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/bootstrap"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/conversations"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/events"
	apphttp "github.com/alexcopeland13/relay-isa-automation-sub001/internal/http"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/http/router"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/leads"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/scheduler"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/webhook"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/config"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/logger"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/phone"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/validator"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "vendor", cfg.VoiceVendorName)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	st, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		panic("failed to open store: " + err.Error())
	}
	defer func() { _ = st.Close() }()

	// Event bus for side effects that stay out of the webhook response
	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	reprocessQueue, closeQueue := initReprocessQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	initTranscriptArchive(ctx, cfg, log, eventBus)

	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	normalizer := phone.NewNormalizer(cfg.GetPhoneDefaultRegion())
	resolver := leads.NewResolver(st, normalizer, eventBus, log, cfg.GetVoiceVendorName())
	conversationService := conversations.New(st, resolver, eventBus, log, cfg.GetStoreTimeout())

	conversationsModule := conversations.NewModule(conversationService, reprocessQueue, val)
	webhookModule := webhook.NewModule(st, conversationsModule.Service(), cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   st,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			webhookModule,
			conversationsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// initReprocessQueue returns nil when Redis is not configured; reprocess
// requests then run inside the admin request.
func initReprocessQueue(cfg config.SchedulerConfig, log *logger.Logger) (conversations.ReprocessQueue, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; reprocess requests run inline")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initTranscriptArchive(ctx context.Context, cfg config.MinIOConfig, log *logger.Logger, bus events.Bus) {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; transcripts are not archived")
		return
	}

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}

	bucket := cfg.GetMinioBucketTranscripts()
	if err := bootstrap.WithRetry(ctx, log, "ensure transcripts bucket", func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}

	storage.NewTranscriptArchiver(storageSvc, bucket, log).Subscribe(bus)
	log.Info("transcript archive initialized", "bucket", bucket)
}
