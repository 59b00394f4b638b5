package postgres

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"
	"github.com/alexcopeland13/relay-isa-automation-sub001/migrations"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/config"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/db"

	"github.com/google/uuid"
)

// newTestStore connects to TEST_DATABASE_URL, applies migrations and empties
// every table. Tests are skipped when the variable is unset.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	cfg := &config.Config{DatabaseURL: url, MigrationsEnabled: true}
	if err := db.RunMigrations(ctx, cfg, migrations.FS); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE webhook_events, qualification_data, conversation_extractions,
		conversation_messages, conversations, phone_lead_mapping, leads CASCADE`); err != nil {
		pool.Close()
		t.Fatalf("truncate: %v", err)
	}

	st := New(pool)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestArgsNullsEmptyJSON(t *testing.T) {
	out := args([]any{json.RawMessage(nil), json.RawMessage(`{"a":1}`), "x", nil})

	if out[0] != nil {
		t.Fatalf("expected nil for empty document, got %v", out[0])
	}
	if b, ok := out[1].([]byte); !ok || string(b) != `{"a":1}` {
		t.Fatalf("expected raw bytes, got %#v", out[1])
	}
	if out[2] != "x" || out[3] != nil {
		t.Fatalf("expected scalars passed through, got %v", out[2:])
	}
}

func TestRawOrNil(t *testing.T) {
	if rawOrNil(nil) != nil {
		t.Fatal("expected nil for empty column")
	}
	if got := rawOrNil([]byte(`[1]`)); string(got) != `[1]` {
		t.Fatalf("expected [1], got %s", got)
	}
	if placeholder(3) != "$3" {
		t.Fatalf("expected $3, got %s", placeholder(3))
	}
}

func TestCreateLeadWithMappingConcurrentCallersShareOneLead(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	const callers = 8
	results := make([]store.PhoneLeadMapping, callers)
	created := make([]bool, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lead := store.Lead{ID: uuid.New(), FirstName: "Unknown", LastName: "Caller", PhoneE164: "+16502530000", Status: store.LeadStatusNew}
			results[i], created[i], errs[i] = st.CreateLeadWithMapping(ctx, lead,
				store.PhoneLeadMapping{PhoneE164: "+16502530000", LeadID: lead.ID, LeadName: "Unknown Caller"})
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if created[i] {
			winners++
		}
		if results[i].LeadID != results[0].LeadID {
			t.Fatalf("expected every caller to see lead %s, got %s", results[0].LeadID, results[i].LeadID)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly 1 created lead, got %d", winners)
	}

	var leads int
	if err := st.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`).Scan(&leads); err != nil {
		t.Fatalf("count leads: %v", err)
	}
	if leads != 1 {
		t.Fatalf("expected 1 lead row, got %d", leads)
	}
}

func TestListCompletedWithoutMessagesSkipsBlankTranscripts(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ended := time.Date(2025, 3, 1, 15, 5, 0, 0, time.UTC)

	for callSID, transcript := range map[string]string{
		"call_text":  "Agent: Hi\nLead: Hello",
		"call_blank": " \n\t\r\n",
	} {
		conv := store.Conversation{
			ID:               uuid.New(),
			CallSID:          callSID,
			Direction:        "inbound",
			CallStatus:       store.CallStatusActive,
			ExtractionStatus: store.ExtractionPending,
		}
		if _, _, err := st.InsertConversation(ctx, conv); err != nil {
			t.Fatalf("insert %s: %v", callSID, err)
		}
		transcript := transcript
		if _, err := st.CompleteConversation(ctx, callSID, store.Completion{EndedAt: &ended, Transcript: &transcript}); err != nil {
			t.Fatalf("complete %s: %v", callSID, err)
		}
	}

	pending, err := st.ListCompletedWithoutMessages(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].CallSID != "call_text" {
		t.Fatalf("expected only call_text pending, got %d conversations", len(pending))
	}
}
