package sqlite

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
		event.ReceivedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO webhook_events (id, provider, event_id, event_type, payload, received_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, event.ID.String(), event.Provider, event.EventID, event.EventType, string(event.Payload), formatTime(event.ReceivedAt))
	return err
}

// CountWebhookEvents returns how many audit rows exist for eventType.
func (s *Store) CountWebhookEvents(ctx context.Context, eventType string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM webhook_events WHERE event_type = ?`, eventType).Scan(&n)
	return n, err
}
