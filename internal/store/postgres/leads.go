package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// FindMappingByPhone returns the mapping for an E.164 number.
func (s *Store) FindMappingByPhone(ctx context.Context, phoneE164 string) (store.PhoneLeadMapping, error) {
	var m store.PhoneLeadMapping
	err := s.pool.QueryRow(ctx, `
		SELECT phone_e164, lead_id, lead_name, created_at
		FROM phone_lead_mapping
		WHERE phone_e164 = $1
	`, phoneE164).Scan(&m.PhoneE164, &m.LeadID, &m.LeadName, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.PhoneLeadMapping{}, store.ErrNotFound
	}
	if err != nil {
		return store.PhoneLeadMapping{}, err
	}
	return m, nil
}

// CreateLeadWithMapping inserts the lead and its mapping in one transaction.
func (s *Store) CreateLeadWithMapping(ctx context.Context, lead store.Lead, mapping store.PhoneLeadMapping) (result store.PhoneLeadMapping, created bool, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return store.PhoneLeadMapping{}, false, err
	}
	defer func() {
		if err != nil || !created {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `
		INSERT INTO leads (id, first_name, last_name, phone_raw, phone_e164, source, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
	`, lead.ID, lead.FirstName, lead.LastName, lead.PhoneRaw, lead.PhoneE164, lead.Source, lead.Status); err != nil {
		return store.PhoneLeadMapping{}, false, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO phone_lead_mapping (phone_e164, lead_id, lead_name, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (phone_e164) DO NOTHING
		RETURNING phone_e164, lead_id, lead_name, created_at
	`, mapping.PhoneE164, mapping.LeadID, mapping.LeadName).Scan(&result.PhoneE164, &result.LeadID, &result.LeadName, &result.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race: drop our lead and hand back the winner's mapping.
		_ = tx.Rollback(ctx)
		existing, findErr := s.FindMappingByPhone(ctx, mapping.PhoneE164)
		if findErr != nil {
			err = findErr
			return store.PhoneLeadMapping{}, false, err
		}
		err = nil
		return existing, false, nil
	}
	if err != nil {
		return store.PhoneLeadMapping{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return store.PhoneLeadMapping{}, false, err
	}
	created = true
	return result, true, nil
}

// GetLead loads a lead by id.
func (s *Store) GetLead(ctx context.Context, id uuid.UUID) (store.Lead, error) {
	var l store.Lead
	err := s.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, phone_raw, phone_e164, source, status, last_contacted, created_at, updated_at
		FROM leads
		WHERE id = $1
	`, id).Scan(&l.ID, &l.FirstName, &l.LastName, &l.PhoneRaw, &l.PhoneE164, &l.Source, &l.Status, &l.LastContacted, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Lead{}, store.ErrNotFound
	}
	if err != nil {
		return store.Lead{}, err
	}
	return l, nil
}

// TouchLastContacted moves last_contacted forward; it never goes backwards.
func (s *Store) TouchLastContacted(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE leads
		SET last_contacted = GREATEST(COALESCE(last_contacted, $2), $2), updated_at = now()
		WHERE id = $1
	`, id, at)
	return err
}
