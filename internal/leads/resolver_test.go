package leads

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/events"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/testhelpers"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/logger"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/phone"

	"github.com/google/uuid"
)

func seedLead(t *testing.T, st store.LeadStore, phoneE164, first string) uuid.UUID {
	t.Helper()
	lead := store.Lead{ID: uuid.New(), FirstName: first, LastName: "Known", PhoneE164: phoneE164, Status: store.LeadStatusNew}
	if _, _, err := st.CreateLeadWithMapping(context.Background(), lead, store.PhoneLeadMapping{PhoneE164: phoneE164, LeadID: lead.ID, LeadName: lead.DisplayName()}); err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	return lead.ID
}

func newResolver(st store.LeadStore, bus events.Bus) *Resolver {
	return NewResolver(st, phone.NewNormalizer(phone.DefaultRegion), bus, logger.Discard(), "Retell")
}

func TestResolvePrefersFirstMatchingCandidate(t *testing.T) {
	st := testhelpers.NewTestStore(t)
	bID := seedLead(t, st, "+16502530001", "Bea")
	seedLead(t, st, "+16502530002", "Cal")

	res, err := newResolver(st, nil).Resolve(context.Background(), []string{"(650) 253-0000", "650.253.0001", "+1 650 253 0002"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res == nil || res.LeadID != bID {
		t.Fatalf("expected lead mapped to second candidate %s, got %+v", bID, res)
	}
	if res.Created {
		t.Fatal("expected existing lead, not a new one")
	}
}

func TestResolveCreatesPlaceholderForUnknownCaller(t *testing.T) {
	st := testhelpers.NewTestStore(t)
	bus := events.NewInMemoryBus(nil)
	var published int
	var mu sync.Mutex
	bus.Subscribe(events.LeadCreatedFromCall{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		mu.Lock()
		published++
		mu.Unlock()
		return nil
	}))

	res, err := newResolver(st, bus).Resolve(context.Background(), []string{"", "(650) 253-0003"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	bus.Wait()

	if res == nil || !res.Created || res.PhoneE164 != "+16502530003" {
		t.Fatalf("expected created placeholder for +16502530003, got %+v", res)
	}
	lead, err := st.GetLead(context.Background(), res.LeadID)
	if err != nil {
		t.Fatalf("get lead: %v", err)
	}
	if lead.FirstName != "Unknown" || lead.LastName != "Caller" || lead.Source != "Retell Voice Agent" || lead.Status != "new" {
		t.Fatalf("unexpected placeholder lead %+v", lead)
	}
	if published != 1 {
		t.Fatalf("expected 1 LeadCreatedFromCall event, got %d", published)
	}
}

func TestResolveConcurrentUnknownCallerCreatesOneLead(t *testing.T) {
	st := testhelpers.NewTestStore(t)
	r := newResolver(st, nil)

	const callers = 10
	ids := make(chan uuid.UUID, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.Resolve(context.Background(), []string{"650-253-0004"})
			if err != nil || res == nil {
				t.Errorf("resolve: res=%v err=%v", res, err)
				return
			}
			ids <- res.LeadID
		}()
	}
	wg.Wait()
	close(ids)

	distinct := map[uuid.UUID]bool{}
	for id := range ids {
		distinct[id] = true
	}
	if len(distinct) != 1 {
		t.Fatalf("expected one lead across concurrent callers, got %d", len(distinct))
	}

	var leads int
	if err := st.DB().QueryRow(`SELECT COUNT(*) FROM leads`).Scan(&leads); err != nil {
		t.Fatalf("count: %v", err)
	}
	if leads != 1 {
		t.Fatalf("expected 1 lead row, got %d", leads)
	}
}

func TestResolveWithoutCandidates(t *testing.T) {
	res, err := newResolver(testhelpers.NewTestStore(t), nil).Resolve(context.Background(), nil)
	if err != nil || res != nil {
		t.Fatalf("expected nil resolution, got %+v err=%v", res, err)
	}
}

type failingLeadStore struct {
	store.LeadStore
}

func (failingLeadStore) FindMappingByPhone(context.Context, string) (store.PhoneLeadMapping, error) {
	return store.PhoneLeadMapping{}, store.ErrNotFound
}

func (failingLeadStore) CreateLeadWithMapping(context.Context, store.Lead, store.PhoneLeadMapping) (store.PhoneLeadMapping, bool, error) {
	return store.PhoneLeadMapping{}, false, errors.New("disk full")
}

func TestResolveSurfacesCreateFailure(t *testing.T) {
	res, err := newResolver(failingLeadStore{}, nil).Resolve(context.Background(), []string{"+16502530005"})
	if err == nil || res != nil {
		t.Fatalf("expected error and nil resolution, got %+v err=%v", res, err)
	}
}
