package main

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/bootstrap"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/conversations"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/config"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/logger"
)

// maxRounds bounds the run when a conversation keeps failing to segment.
const maxRounds = 1000

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting conversation message backfill")

	ctx := context.Background()
	st, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		panic("failed to open store: " + err.Error())
	}
	defer func() { _ = st.Close() }()

	// Lead resolution is not needed to segment stored transcripts.
	svc := conversations.New(st, nil, nil, log, cfg.GetStoreTimeout())
	batch := getPositiveIntEnv("BACKFILL_BATCH", 100)

	total := 0
	for round := 0; round < maxRounds; round++ {
		repaired, err := svc.BackfillMessages(ctx, batch)
		total += repaired
		if err != nil {
			log.Error("conversation backfill failed", "error", err, "repaired", total)
			os.Exit(1)
		}
		if repaired < batch {
			break
		}
	}

	log.Info("conversation message backfill complete", "repaired", total)
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
