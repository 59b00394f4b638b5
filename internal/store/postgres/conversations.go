package postgres

import (
	"context"
	"errors"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const conversationColumns = `id, call_sid, lead_id, direction, call_status, extraction_status, started_at, ended_at,
	duration, recording_url, transcript, sentiment_score, agent_id, from_number, to_number,
	disconnection_reason, created_at, updated_at`

func scanConversation(row pgx.Row) (store.Conversation, error) {
	var c store.Conversation
	err := row.Scan(
		&c.ID, &c.CallSID, &c.LeadID, &c.Direction, &c.CallStatus, &c.ExtractionStatus, &c.StartedAt, &c.EndedAt,
		&c.Duration, &c.RecordingURL, &c.Transcript, &c.SentimentScore, &c.AgentID, &c.FromNumber, &c.ToNumber,
		&c.DisconnectionReason, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Conversation{}, store.ErrNotFound
	}
	return c, err
}

// InsertConversation inserts conv unless its call_sid already exists.
func (s *Store) InsertConversation(ctx context.Context, conv store.Conversation) (store.Conversation, bool, error) {
	inserted, err := scanConversation(s.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, call_sid, lead_id, direction, call_status, extraction_status, started_at,
			agent_id, from_number, to_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		ON CONFLICT (call_sid) DO NOTHING
		RETURNING `+conversationColumns,
		conv.ID, conv.CallSID, conv.LeadID, conv.Direction, conv.CallStatus, conv.ExtractionStatus, conv.StartedAt,
		conv.AgentID, conv.FromNumber, conv.ToNumber,
	))
	if errors.Is(err, store.ErrNotFound) {
		existing, getErr := s.GetConversationByCallSID(ctx, conv.CallSID)
		return existing, false, getErr
	}
	if err != nil {
		return store.Conversation{}, false, err
	}
	return inserted, true, nil
}

// GetConversationByCallSID loads a conversation by vendor call id.
func (s *Store) GetConversationByCallSID(ctx context.Context, callSID string) (store.Conversation, error) {
	return scanConversation(s.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE call_sid = $1`, callSID))
}

// CompleteConversation marks the call completed. extraction_status drops back
// to pending unless the analysis already completed.
func (s *Store) CompleteConversation(ctx context.Context, callSID string, c store.Completion) (store.Conversation, error) {
	return scanConversation(s.pool.QueryRow(ctx, `
		UPDATE conversations
		SET call_status = 'completed',
			ended_at = COALESCE($2, ended_at),
			duration = COALESCE($3, duration),
			recording_url = COALESCE($4, recording_url),
			transcript = COALESCE($5, transcript),
			disconnection_reason = COALESCE($6, disconnection_reason),
			extraction_status = CASE WHEN extraction_status = 'complete' THEN 'complete' ELSE 'pending' END,
			updated_at = now()
		WHERE call_sid = $1
		RETURNING `+conversationColumns,
		callSID, c.EndedAt, c.Duration, c.RecordingURL, c.Transcript, c.DisconnectionReason,
	))
}

// UpdateConversationAnalysis sets sentiment and transcript when provided.
func (s *Store) UpdateConversationAnalysis(ctx context.Context, callSID string, sentiment *float64, transcript *string) (store.Conversation, error) {
	return scanConversation(s.pool.QueryRow(ctx, `
		UPDATE conversations
		SET sentiment_score = COALESCE($2, sentiment_score),
			transcript = COALESCE($3, transcript),
			updated_at = now()
		WHERE call_sid = $1
		RETURNING `+conversationColumns,
		callSID, sentiment, transcript,
	))
}

// UpdateConversationTranscript replaces only the transcript text.
func (s *Store) UpdateConversationTranscript(ctx context.Context, callSID string, transcript string) (store.Conversation, error) {
	return scanConversation(s.pool.QueryRow(ctx, `
		UPDATE conversations
		SET transcript = $2, updated_at = now()
		WHERE call_sid = $1
		RETURNING `+conversationColumns,
		callSID, transcript,
	))
}

// MarkExtractionComplete flags the conversation's analysis as persisted.
func (s *Store) MarkExtractionComplete(ctx context.Context, conversationID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE conversations SET extraction_status = 'complete', updated_at = now() WHERE id = $1
	`, conversationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListCompletedWithoutMessages finds completed calls whose transcript was never segmented.
func (s *Store) ListCompletedWithoutMessages(ctx context.Context, limit int) ([]store.Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations c
		WHERE c.call_status = 'completed'
			AND btrim(COALESCE(c.transcript, ''), E' \t\n\r\f\x0B') <> ''
			AND NOT EXISTS (SELECT 1 FROM conversation_messages m WHERE m.conversation_id = c.id)
		ORDER BY c.created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReplaceMessages swaps the conversation's messages in one transaction.
func (s *Store) ReplaceMessages(ctx context.Context, conversationID uuid.UUID, messages []store.Message) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM conversation_messages WHERE conversation_id = $1`, conversationID); err != nil {
		return err
	}

	if len(messages) > 0 {
		batch := &pgx.Batch{}
		for _, m := range messages {
			id := m.ID
			if id == uuid.Nil {
				id = uuid.New()
			}
			batch.Queue(`
				INSERT INTO conversation_messages (id, conversation_id, role, content, seq, created_at)
				VALUES ($1, $2, $3, $4, $5, now())
			`, id, conversationID, m.Role, m.Content, m.Seq)
		}
		if err = tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ListMessages returns messages ordered by seq.
func (s *Store) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]store.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, role, content, seq, created_at
		FROM conversation_messages
		WHERE conversation_id = $1
		ORDER BY seq
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Message
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Seq, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
