package postgres

import (
	"context"
	"time"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"

	"github.com/google/uuid"
)

// AppendWebhookEvent writes one audit row.
func (s *Store) AppendWebhookEvent(ctx context.Context, event store.WebhookEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO webhook_events (id, provider, event_id, event_type, payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.ID, event.Provider, event.EventID, event.EventType, []byte(event.Payload), event.ReceivedAt)
	return err
}
