package scheduler

import (
	"context"
	"time"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/conversations"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/logger"
)

const (
	defaultBackfillInterval = time.Minute
	defaultBackfillBatch    = 50
)

// PendingConversations lists completed calls whose transcript was never segmented.
type PendingConversations interface {
	ListCompletedWithoutMessages(ctx context.Context, limit int) ([]store.Conversation, error)
}

// MessageBackfillDispatcher periodically queues message rebuilds for
// completed conversations left without messages by an interrupted call_ended.
type MessageBackfillDispatcher struct {
	pending  PendingConversations
	enqueuer ReprocessEnqueuer
	log      *logger.Logger
	interval time.Duration
	batch    int
}

func NewMessageBackfillDispatcher(pending PendingConversations, enqueuer ReprocessEnqueuer, log *logger.Logger, interval time.Duration, batch int) *MessageBackfillDispatcher {
	if interval <= 0 {
		interval = defaultBackfillInterval
	}
	if batch <= 0 {
		batch = defaultBackfillBatch
	}
	return &MessageBackfillDispatcher{
		pending:  pending,
		enqueuer: enqueuer,
		log:      log,
		interval: interval,
		batch:    batch,
	}
}

func (d *MessageBackfillDispatcher) Run(ctx context.Context) {
	if d == nil || d.pending == nil || d.enqueuer == nil {
		return
	}

	d.dispatch(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.dispatch(ctx)
		}
	}
}

// dispatch enqueues one batch and returns how many jobs were queued.
func (d *MessageBackfillDispatcher) dispatch(ctx context.Context) int {
	convs, err := d.pending.ListCompletedWithoutMessages(ctx, d.batch)
	if err != nil {
		d.log.Warn("message backfill scan failed", "error", err)
		return 0
	}

	queued := 0
	for _, conv := range convs {
		if err := d.enqueuer.EnqueueReprocess(ctx, conv.CallSID, []string{conversations.StepMessages}); err != nil {
			d.log.Warn("message backfill enqueue failed", "callSid", conv.CallSID, "error", err)
			continue
		}
		queued++
	}

	if queued > 0 {
		d.log.Info("message backfill queued conversations", "queued", queued)
	}
	return queued
}
