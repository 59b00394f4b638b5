package leads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/events"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/logger"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/phone"

	"github.com/google/uuid"
)

const (
	placeholderFirstName = "Unknown"
	placeholderLastName  = "Caller"
)

// Resolver maps candidate phone numbers to a lead, creating a placeholder
// lead for callers nobody has seen before.
type Resolver struct {
	store      store.LeadStore
	normalizer phone.Normalizer
	bus        events.Bus
	log        *logger.Logger
	source     string
}

var _ LeadResolver = (*Resolver)(nil)

// NewResolver builds a resolver. vendor names the lead source, e.g.
// "Retell" becomes "Retell Voice Agent".
func NewResolver(st store.LeadStore, normalizer phone.Normalizer, bus events.Bus, log *logger.Logger, vendor string) *Resolver {
	return &Resolver{
		store:      st,
		normalizer: normalizer,
		bus:        bus,
		log:        log,
		source:     vendor + " Voice Agent",
	}
}

// Resolve checks each candidate's mapping in order and returns the first hit.
// With no hit it creates a placeholder lead for the first candidate. A failed
// lookup or create is returned as an error; callers treat it as non-fatal.
func (r *Resolver) Resolve(ctx context.Context, candidates []string) (*Resolution, error) {
	normalized := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		n := r.normalizer.Normalize(c)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		normalized = append(normalized, n)
	}

	if len(normalized) == 0 {
		return nil, nil
	}

	for _, p := range normalized {
		m, err := r.store.FindMappingByPhone(ctx, p)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find mapping for %s: %w", p, err)
		}
		return &Resolution{LeadID: m.LeadID, LeadName: m.LeadName, PhoneE164: m.PhoneE164}, nil
	}

	return r.createPlaceholder(ctx, normalized[0])
}

func (r *Resolver) createPlaceholder(ctx context.Context, phoneE164 string) (*Resolution, error) {
	lead := store.Lead{
		ID:        uuid.New(),
		FirstName: placeholderFirstName,
		LastName:  placeholderLastName,
		PhoneRaw:  phoneE164,
		PhoneE164: phoneE164,
		Source:    r.source,
		Status:    store.LeadStatusNew,
	}
	mapping := store.PhoneLeadMapping{
		PhoneE164: phoneE164,
		LeadID:    lead.ID,
		LeadName:  lead.DisplayName(),
	}

	m, created, err := r.store.CreateLeadWithMapping(ctx, lead, mapping)
	if err != nil {
		return nil, fmt.Errorf("create lead for %s: %w", phoneE164, err)
	}

	if created {
		r.log.WithContext(ctx).Info("created lead from unknown caller",
			slog.String("leadId", m.LeadID.String()),
			slog.String("phone", phoneE164),
		)
		if r.bus != nil {
			r.bus.Publish(ctx, events.LeadCreatedFromCall{
				BaseEvent: events.NewBaseEvent(),
				LeadID:    m.LeadID,
				PhoneE164: phoneE164,
				Source:    r.source,
			})
		}
	}

	return &Resolution{LeadID: m.LeadID, LeadName: m.LeadName, PhoneE164: m.PhoneE164, Created: created}, nil
}
