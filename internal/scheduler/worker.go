package scheduler

import (
	"context"
	"fmt"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/conversations"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/apperr"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/config"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/logger"

	"github.com/hibiken/asynq"
)

// Reprocessor rebuilds one conversation's derived rows. Satisfied by conversations.Service.
type Reprocessor interface {
	Reprocess(ctx context.Context, callSID string, steps []string) (conversations.Outcome, error)
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	reprocess Reprocessor
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, reprocess Reprocessor, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		reprocess: reprocess,
		log:       log,
	}

	mux.HandleFunc(TaskConversationReprocess, w.handleConversationReprocess)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleConversationReprocess(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseConversationReprocessPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	out, err := w.reprocess.Reprocess(ctx, payload.CallSID, payload.Steps)
	switch {
	case apperr.Is(err, apperr.KindNotFound), apperr.Is(err, apperr.KindValidation):
		w.log.Warn("reprocess task dropped", "callSid", payload.CallSID, "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	case err != nil:
		return err
	}

	w.log.Info("conversation reprocessed", "callSid", payload.CallSID, "status", out.Status, "message", out.Message)
	return nil
}
