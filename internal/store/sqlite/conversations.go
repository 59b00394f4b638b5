package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"

	"github.com/google/uuid"
)

const conversationColumns = `id, call_sid, lead_id, direction, call_status, extraction_status, started_at, ended_at,
	duration, recording_url, transcript, sentiment_score, agent_id, from_number, to_number,
	disconnection_reason, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (store.Conversation, error) {
	var c store.Conversation
	err := row.Scan(
		&c.ID, &c.CallSID, nullUUIDCol{&c.LeadID}, &c.Direction, &c.CallStatus, &c.ExtractionStatus,
		nullTimeCol{&c.StartedAt}, nullTimeCol{&c.EndedAt},
		&c.Duration, &c.RecordingURL, &c.Transcript, &c.SentimentScore, &c.AgentID, &c.FromNumber, &c.ToNumber,
		&c.DisconnectionReason, timeCol{&c.CreatedAt}, timeCol{&c.UpdatedAt},
	)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Conversation{}, store.ErrNotFound
	}
	return c, err
}

// InsertConversation inserts conv unless its call_sid already exists.
func (s *Store) InsertConversation(ctx context.Context, conv store.Conversation) (store.Conversation, bool, error) {
	ts := now()
	inserted, err := scanConversation(s.db.QueryRowContext(ctx, `
		INSERT INTO conversations (id, call_sid, lead_id, direction, call_status, extraction_status, started_at,
			agent_id, from_number, to_number, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (call_sid) DO NOTHING
		RETURNING `+conversationColumns,
		args([]any{
			conv.ID, conv.CallSID, conv.LeadID, conv.Direction, conv.CallStatus, conv.ExtractionStatus, conv.StartedAt,
			conv.AgentID, conv.FromNumber, conv.ToNumber, ts, ts,
		})...,
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
	return scanConversation(s.db.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE call_sid = ?`, callSID))
}

// CompleteConversation marks the call completed. extraction_status drops back
// to pending unless the analysis already completed.
func (s *Store) CompleteConversation(ctx context.Context, callSID string, c store.Completion) (store.Conversation, error) {
	return scanConversation(s.db.QueryRowContext(ctx, `
		UPDATE conversations
		SET call_status = 'completed',
			ended_at = COALESCE(?, ended_at),
			duration = COALESCE(?, duration),
			recording_url = COALESCE(?, recording_url),
			transcript = COALESCE(?, transcript),
			disconnection_reason = COALESCE(?, disconnection_reason),
			extraction_status = CASE WHEN extraction_status = 'complete' THEN 'complete' ELSE 'pending' END,
			updated_at = ?
		WHERE call_sid = ?
		RETURNING `+conversationColumns,
		args([]any{c.EndedAt, c.Duration, c.RecordingURL, c.Transcript, c.DisconnectionReason, now(), callSID})...,
	))
}

// UpdateConversationAnalysis sets sentiment and transcript when provided.
func (s *Store) UpdateConversationAnalysis(ctx context.Context, callSID string, sentiment *float64, transcript *string) (store.Conversation, error) {
	return scanConversation(s.db.QueryRowContext(ctx, `
		UPDATE conversations
		SET sentiment_score = COALESCE(?, sentiment_score),
			transcript = COALESCE(?, transcript),
			updated_at = ?
		WHERE call_sid = ?
		RETURNING `+conversationColumns,
		args([]any{sentiment, transcript, now(), callSID})...,
	))
}

// UpdateConversationTranscript replaces only the transcript text.
func (s *Store) UpdateConversationTranscript(ctx context.Context, callSID string, transcript string) (store.Conversation, error) {
	return scanConversation(s.db.QueryRowContext(ctx, `
		UPDATE conversations
		SET transcript = ?, updated_at = ?
		WHERE call_sid = ?
		RETURNING `+conversationColumns,
		transcript, now(), callSID,
	))
}

// MarkExtractionComplete flags the conversation's analysis as persisted.
func (s *Store) MarkExtractionComplete(ctx context.Context, conversationID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET extraction_status = 'complete', updated_at = ? WHERE id = ?
	`, now(), conversationID.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListCompletedWithoutMessages finds completed calls whose transcript was never segmented.
func (s *Store) ListCompletedWithoutMessages(ctx context.Context, limit int) ([]store.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations c
		WHERE c.call_status = 'completed'
			AND TRIM(COALESCE(c.transcript, ''), ' ' || char(9) || char(10) || char(11) || char(12) || char(13)) <> ''
			AND NOT EXISTS (SELECT 1 FROM conversation_messages m WHERE m.conversation_id = c.id)
		ORDER BY c.created_at
		LIMIT ?
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
func (s *Store) ReplaceMessages(ctx context.Context, conversationID uuid.UUID, messages []store.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM conversation_messages WHERE conversation_id = ?`, conversationID.String()); err != nil {
		_ = tx.Rollback()
		return err
	}

	ts := now()
	for _, m := range messages {
		id := m.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_messages (id, conversation_id, role, content, seq, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id.String(), conversationID.String(), m.Role, m.Content, m.Seq, ts); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// ListMessages returns messages ordered by seq.
func (s *Store) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]store.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, seq, created_at
		FROM conversation_messages
		WHERE conversation_id = ?
		ORDER BY seq
	`, conversationID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Message
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Seq, timeCol{&m.CreatedAt}); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
