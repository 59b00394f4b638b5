package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"

	"github.com/google/uuid"
)

// FindMappingByPhone returns the mapping for an E.164 number.
func (s *Store) FindMappingByPhone(ctx context.Context, phoneE164 string) (store.PhoneLeadMapping, error) {
	var m store.PhoneLeadMapping
	err := s.db.QueryRowContext(ctx, `
		SELECT phone_e164, lead_id, lead_name, created_at
		FROM phone_lead_mapping
		WHERE phone_e164 = ?
	`, phoneE164).Scan(&m.PhoneE164, &m.LeadID, &m.LeadName, timeCol{&m.CreatedAt})
	if errors.Is(err, sql.ErrNoRows) {
		return store.PhoneLeadMapping{}, store.ErrNotFound
	}
	if err != nil {
		return store.PhoneLeadMapping{}, err
	}
	return m, nil
}

// CreateLeadWithMapping inserts the lead and its mapping in one transaction.
func (s *Store) CreateLeadWithMapping(ctx context.Context, lead store.Lead, mapping store.PhoneLeadMapping) (store.PhoneLeadMapping, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.PhoneLeadMapping{}, false, err
	}

	ts := now()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO leads (id, first_name, last_name, phone_raw, phone_e164, source, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, lead.ID.String(), lead.FirstName, lead.LastName, lead.PhoneRaw, lead.PhoneE164, lead.Source, lead.Status, ts, ts); err != nil {
		_ = tx.Rollback()
		return store.PhoneLeadMapping{}, false, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO phone_lead_mapping (phone_e164, lead_id, lead_name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (phone_e164) DO NOTHING
	`, mapping.PhoneE164, mapping.LeadID.String(), mapping.LeadName, ts)
	if err != nil {
		_ = tx.Rollback()
		return store.PhoneLeadMapping{}, false, err
	}

	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		existing, err := s.FindMappingByPhone(ctx, mapping.PhoneE164)
		return existing, false, err
	}

	if err := tx.Commit(); err != nil {
		return store.PhoneLeadMapping{}, false, err
	}

	created, err := parseTime(ts)
	if err != nil {
		return store.PhoneLeadMapping{}, false, err
	}
	mapping.CreatedAt = created
	return mapping, true, nil
}

// GetLead loads a lead by id.
func (s *Store) GetLead(ctx context.Context, id uuid.UUID) (store.Lead, error) {
	var l store.Lead
	err := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, phone_raw, phone_e164, source, status, last_contacted, created_at, updated_at
		FROM leads
		WHERE id = ?
	`, id.String()).Scan(
		&l.ID, &l.FirstName, &l.LastName, &l.PhoneRaw, &l.PhoneE164, &l.Source, &l.Status,
		nullTimeCol{&l.LastContacted}, timeCol{&l.CreatedAt}, timeCol{&l.UpdatedAt},
	)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Lead{}, store.ErrNotFound
	}
	if err != nil {
		return store.Lead{}, err
	}
	return l, nil
}

// TouchLastContacted moves last_contacted forward; it never goes backwards.
func (s *Store) TouchLastContacted(ctx context.Context, id uuid.UUID, at time.Time) error {
	ts := formatTime(at)
	_, err := s.db.ExecContext(ctx, `
		UPDATE leads
		SET last_contacted = CASE WHEN last_contacted IS NULL OR last_contacted < ? THEN ? ELSE last_contacted END,
			updated_at = ?
		WHERE id = ?
	`, ts, ts, now(), id.String())
	return err
}
