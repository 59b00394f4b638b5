package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"

	"github.com/google/uuid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func ptr[T any](v T) *T { return &v }

func TestMigrateIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	if err := Migrate(context.Background(), st.DB()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	var version int64
	if err := st.DB().QueryRow(`SELECT MAX(version_id) FROM goose_db_version`).Scan(&version); err != nil {
		t.Fatalf("read goose version: %v", err)
	}
	if version != 4 {
		t.Fatalf("expected schema version 4, got %d", version)
	}
}

func TestCreateLeadWithMappingConflictReturnsExisting(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	first := store.Lead{ID: uuid.New(), FirstName: "Unknown", LastName: "Caller", PhoneE164: "+16502530000", Status: store.LeadStatusNew}
	m1, created, err := st.CreateLeadWithMapping(ctx, first, store.PhoneLeadMapping{PhoneE164: "+16502530000", LeadID: first.ID, LeadName: "Unknown Caller"})
	if err != nil || !created {
		t.Fatalf("expected first create to succeed, got created=%v err=%v", created, err)
	}

	second := store.Lead{ID: uuid.New(), FirstName: "Unknown", LastName: "Caller", PhoneE164: "+16502530000", Status: store.LeadStatusNew}
	m2, created, err := st.CreateLeadWithMapping(ctx, second, store.PhoneLeadMapping{PhoneE164: "+16502530000", LeadID: second.ID})
	if err != nil {
		t.Fatalf("conflicting create: %v", err)
	}
	if created {
		t.Fatal("expected conflicting create to report created=false")
	}
	if m2.LeadID != m1.LeadID {
		t.Fatalf("expected existing lead %s, got %s", m1.LeadID, m2.LeadID)
	}
	if _, err := st.GetLead(ctx, second.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected rolled back lead to be absent, got %v", err)
	}
}

func TestConcurrentCreateLeadWithMappingLeavesOneLead(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	const workers = 8
	results := make([]store.PhoneLeadMapping, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lead := store.Lead{ID: uuid.New(), FirstName: "Unknown", LastName: "Caller", Status: store.LeadStatusNew}
			m, _, err := st.CreateLeadWithMapping(ctx, lead, store.PhoneLeadMapping{PhoneE164: "+16502530000", LeadID: lead.ID})
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			results[i] = m
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i].LeadID != results[0].LeadID {
			t.Fatalf("expected all workers to see lead %s, worker %d saw %s", results[0].LeadID, i, results[i].LeadID)
		}
	}

	var leads int
	if err := st.DB().QueryRow(`SELECT COUNT(*) FROM leads`).Scan(&leads); err != nil {
		t.Fatalf("count leads: %v", err)
	}
	if leads != 1 {
		t.Fatalf("expected 1 lead, got %d", leads)
	}
}

func TestConversationLifecycleRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	started := time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)
	conv := store.Conversation{
		ID:               uuid.New(),
		CallSID:          "call_abc",
		Direction:        "inbound",
		CallStatus:       store.CallStatusActive,
		ExtractionStatus: store.ExtractionPending,
		StartedAt:        &started,
		FromNumber:       ptr("+16502530000"),
	}

	inserted, created, err := st.InsertConversation(ctx, conv)
	if err != nil || !created {
		t.Fatalf("insert: created=%v err=%v", created, err)
	}
	if inserted.StartedAt == nil || !inserted.StartedAt.Equal(started) {
		t.Fatalf("expected started_at %s, got %v", started, inserted.StartedAt)
	}

	dup := conv
	dup.ID = uuid.New()
	dup.Direction = "outbound"
	existing, created, err := st.InsertConversation(ctx, dup)
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if created || existing.ID != conv.ID || existing.Direction != "inbound" {
		t.Fatalf("expected untouched original row, got created=%v %+v", created, existing)
	}

	ended := started.Add(2 * time.Minute)
	completed, err := st.CompleteConversation(ctx, "call_abc", store.Completion{
		EndedAt:    &ended,
		Duration:   ptr(120),
		Transcript: ptr("Agent: Hi\nLead: Hello"),
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.CallStatus != store.CallStatusCompleted || completed.Duration == nil || *completed.Duration != 120 {
		t.Fatalf("unexpected completion %+v", completed)
	}

	if err := st.MarkExtractionComplete(ctx, conv.ID); err != nil {
		t.Fatalf("mark complete: %v", err)
	}
	again, err := st.CompleteConversation(ctx, "call_abc", store.Completion{})
	if err != nil {
		t.Fatalf("complete again: %v", err)
	}
	if again.ExtractionStatus != store.ExtractionComplete {
		t.Fatalf("expected extraction_status to stay complete, got %s", again.ExtractionStatus)
	}
	if again.Transcript == nil || *again.Transcript != "Agent: Hi\nLead: Hello" {
		t.Fatalf("expected transcript preserved, got %v", again.Transcript)
	}

	if _, err := st.CompleteConversation(ctx, "missing", store.Completion{}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown call, got %v", err)
	}
}

func TestReplaceMessagesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	conv := store.Conversation{ID: uuid.New(), CallSID: "call_msgs", Direction: "inbound", CallStatus: store.CallStatusCompleted, ExtractionStatus: store.ExtractionPending}
	if _, _, err := st.InsertConversation(ctx, conv); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := st.UpdateConversationTranscript(ctx, "call_msgs", "Agent: Hi"); err != nil {
		t.Fatalf("transcript: %v", err)
	}

	pending, err := st.ListCompletedWithoutMessages(ctx, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected 1 unsegmented conversation, got %d (%v)", len(pending), err)
	}

	msgs := []store.Message{{Role: store.RoleAgent, Content: "Hi", Seq: 0}, {Role: store.RoleLead, Content: "Hello", Seq: 1}}
	for i := 0; i < 2; i++ {
		if err := st.ReplaceMessages(ctx, conv.ID, msgs); err != nil {
			t.Fatalf("replace %d: %v", i, err)
		}
	}

	got, err := st.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Content != "Hi" || got[1].Role != store.RoleLead {
		t.Fatalf("unexpected messages %+v", got)
	}

	pending, err = st.ListCompletedWithoutMessages(ctx, 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected no unsegmented conversations, got %d (%v)", len(pending), err)
	}
}

func TestExtractionUpsertOverwritesAndKeepsLead(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	lead := store.Lead{ID: uuid.New(), FirstName: "Ana", LastName: "Diaz", Status: store.LeadStatusNew}
	if _, _, err := st.CreateLeadWithMapping(ctx, lead, store.PhoneLeadMapping{PhoneE164: "+16502530001", LeadID: lead.ID}); err != nil {
		t.Fatalf("lead: %v", err)
	}
	conv := store.Conversation{ID: uuid.New(), CallSID: "call_ex", LeadID: &lead.ID, Direction: "inbound", CallStatus: store.CallStatusActive, ExtractionStatus: store.ExtractionPending}
	if _, _, err := st.InsertConversation(ctx, conv); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := st.EnsureExtraction(ctx, conv.ID, &lead.ID); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := st.EnsureExtraction(ctx, conv.ID, nil); err != nil {
		t.Fatalf("ensure twice: %v", err)
	}

	err := st.UpsertExtraction(ctx, store.Extraction{
		ConversationID:    conv.ID,
		AnnualIncome:      ptr(int64(85000)),
		FirstTimeBuyer:    true,
		HasCreditConcerns: ptr(false),
		Objections:        json.RawMessage(`["rates"]`),
		RawPayload:        json.RawMessage(`{"annual_income":"85000"}`),
		SentimentScore:    ptr(1.0),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := st.GetExtraction(ctx, conv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LeadID == nil || *got.LeadID != lead.ID {
		t.Fatalf("expected lead_id kept, got %v", got.LeadID)
	}
	if got.AnnualIncome == nil || *got.AnnualIncome != 85000 || !got.FirstTimeBuyer {
		t.Fatalf("unexpected extraction %+v", got)
	}
	if got.HasCreditConcerns == nil || *got.HasCreditConcerns {
		t.Fatalf("expected has_credit_concerns=false, got %v", got.HasCreditConcerns)
	}
	if got.HasRateConcerns != nil {
		t.Fatalf("expected has_rate_concerns NULL, got %v", *got.HasRateConcerns)
	}
	if string(got.Objections) != `["rates"]` {
		t.Fatalf("expected objections round trip, got %s", got.Objections)
	}

	q := store.Qualification{LeadID: lead.ID, ConversationID: conv.ID, AnnualIncome: ptr(int64(85000))}
	if err := st.UpsertQualification(ctx, q); err != nil {
		t.Fatalf("qualification: %v", err)
	}
	q.AnnualIncome = ptr(int64(90000))
	if err := st.UpsertQualification(ctx, q); err != nil {
		t.Fatalf("qualification again: %v", err)
	}
	gotQ, err := st.GetQualification(ctx, lead.ID, conv.ID)
	if err != nil {
		t.Fatalf("get qualification: %v", err)
	}
	if gotQ.AnnualIncome == nil || *gotQ.AnnualIncome != 90000 {
		t.Fatalf("expected last write to win, got %v", gotQ.AnnualIncome)
	}
}

func TestTouchLastContactedNeverMovesBackwards(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	lead := store.Lead{ID: uuid.New(), FirstName: "Unknown", LastName: "Caller", Status: store.LeadStatusNew}
	if _, _, err := st.CreateLeadWithMapping(ctx, lead, store.PhoneLeadMapping{PhoneE164: "+16502530002", LeadID: lead.ID}); err != nil {
		t.Fatalf("lead: %v", err)
	}

	later := time.Date(2025, 3, 2, 10, 0, 0, 500, time.UTC)
	earlier := later.Add(-time.Hour)
	_ = st.TouchLastContacted(ctx, lead.ID, later)
	_ = st.TouchLastContacted(ctx, lead.ID, earlier)

	got, err := st.GetLead(ctx, lead.ID)
	if err != nil {
		t.Fatalf("get lead: %v", err)
	}
	if got.LastContacted == nil || !got.LastContacted.Equal(later) {
		t.Fatalf("expected last_contacted %s, got %v", later, got.LastContacted)
	}
}

func TestAppendWebhookEvent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	if err := st.AppendWebhookEvent(ctx, store.WebhookEvent{Provider: "Retell", EventID: "evt_1", EventType: "call_started", Payload: json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("append: %v", err)
	}
	n, err := st.CountWebhookEvents(ctx, "call_started")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 audit row, got %d (%v)", n, err)
	}
}
