package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/events"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/logger"
)

const transcriptContentType = "text/plain; charset=utf-8"

// TranscriptArchiver copies completed call transcripts into object storage.
// Keys are derived from the call id so replays overwrite the same object.
type TranscriptArchiver struct {
	store  ObjectStore
	bucket string
	log    *logger.Logger
}

// NewTranscriptArchiver creates an archiver writing to bucket.
func NewTranscriptArchiver(store ObjectStore, bucket string, log *logger.Logger) *TranscriptArchiver {
	return &TranscriptArchiver{store: store, bucket: bucket, log: log}
}

// Subscribe registers the archiver for conversation completions.
func (a *TranscriptArchiver) Subscribe(bus events.Bus) {
	bus.Subscribe(events.ConversationCompleted{}.EventName(), a)
}

// Handle implements events.Handler.
func (a *TranscriptArchiver) Handle(ctx context.Context, event events.Event) error {
	completed, ok := event.(events.ConversationCompleted)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	if strings.TrimSpace(completed.Transcript) == "" {
		return nil
	}
	return a.Archive(ctx, completed.CallSID, completed.Transcript)
}

// Archive uploads transcript and returns nil once it is stored.
func (a *TranscriptArchiver) Archive(ctx context.Context, callSID, transcript string) error {
	key := TranscriptKey(callSID)
	body := []byte(transcript)

	if err := ValidateSize(int64(len(body))); err != nil {
		return fmt.Errorf("archive %s: %w", callSID, err)
	}

	if err := a.store.PutObject(ctx, a.bucket, key, transcriptContentType, bytes.NewReader(body), int64(len(body))); err != nil {
		return err
	}

	a.log.WithContext(ctx).Info("transcript archived",
		slog.String("callSid", callSID),
		slog.String("bucket", a.bucket),
		slog.String("key", key),
	)
	return nil
}

// TranscriptKey is the object key for a call's transcript.
func TranscriptKey(callSID string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(callSID)
	return path.Join("transcripts", safe+".txt")
}
