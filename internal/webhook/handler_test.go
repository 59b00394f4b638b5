package webhook

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/conversations"
	apphttp "github.com/alexcopeland13/relay-isa-automation-sub001/internal/http"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/http/router"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/leads"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store/sqlite"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/testhelpers"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/config"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/logger"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/phone"

	"github.com/gin-gonic/gin"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:             "test",
		VoiceVendorName: "Retell",
		CORSAllowAll:    true,
		JWTAccessSecret: "test-secret",
	}
}

func newEngine(t *testing.T, st *sqlite.Store, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Discard()

	resolver := leads.NewResolver(st, phone.NewNormalizer(phone.DefaultRegion), nil, log, cfg.VoiceVendorName)
	svc := conversations.New(st, resolver, nil, log, 0)

	return router.New(&apphttp.App{
		Config:  cfg,
		Logger:  log,
		Health:  st,
		Modules: []apphttp.Module{NewModule(st, svc, cfg, log)},
	})
}

func post(engine *gin.Engine, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func auditCount(t *testing.T, st *sqlite.Store) int {
	t.Helper()
	var n int
	if err := st.DB().QueryRow(`SELECT COUNT(*) FROM webhook_events`).Scan(&n); err != nil {
		t.Fatalf("count webhook events: %v", err)
	}
	return n
}

func TestEmptyBodyIsHealthCheck(t *testing.T) {
	st := testhelpers.NewTestStore(t)
	rec := post(newEngine(t, st, testConfig()), "/webhook", "  ")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if msg := decode(t, rec)["message"]; msg != "health check" {
		t.Fatalf("expected health check ack, got %v", msg)
	}
	n, err := st.CountWebhookEvents(context.Background(), eventTypeHealthCheck)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 health_check audit row, got %d", n)
	}

	var payload string
	if err := st.DB().QueryRow(`SELECT payload FROM webhook_events WHERE event_type = ?`, eventTypeHealthCheck).Scan(&payload); err != nil {
		t.Fatalf("load payload: %v", err)
	}
	if payload != "{}" {
		t.Fatalf("expected empty object payload, got %s", payload)
	}
}

func TestMalformedJSONIsRejectedAndAudited(t *testing.T) {
	st := testhelpers.NewTestStore(t)
	rec := post(newEngine(t, st, testConfig()), "/webhook", `{"event": "call_started",`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	n, err := st.CountWebhookEvents(context.Background(), eventTypeMalformed)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 malformed audit row, got %d", n)
	}
}

func TestUnknownEventIsAcknowledged(t *testing.T) {
	st := testhelpers.NewTestStore(t)
	rec := post(newEngine(t, st, testConfig()), "/webhook", `{"event":"ping"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if status := decode(t, rec)["status"]; status != statusIgnored {
		t.Fatalf("expected ignored, got %v", status)
	}
	n, err := st.CountWebhookEvents(context.Background(), "ping")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 audit row, got %d", n)
	}
	var convs int
	if err := st.DB().QueryRow(`SELECT COUNT(*) FROM conversations`).Scan(&convs); err != nil {
		t.Fatalf("count conversations: %v", err)
	}
	if convs != 0 {
		t.Fatalf("expected no conversations, got %d", convs)
	}
}

func TestCallLifecycleOverHTTP(t *testing.T) {
	st := testhelpers.NewTestStore(t)
	engine := newEngine(t, st, testConfig())

	bodies := []string{
		`{"event":"call_started","call":{"call_id":"c-42","from_number":"+16502530042","to_number":"+16502530099"}}`,
		`{"event_type":"call_ended","data":{"call_id":"c-42","duration_ms":61000,"transcript":"Agent: Hi\nLead: Hello"}}`,
		`{"type":"call_analyzed","call_id":"c-42","call_analysis":{"custom_analysis_data":{"pre_approved":"TRUE"}}}`,
	}
	for _, body := range bodies {
		if rec := post(engine, "/webhook", body); rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d: %s", body, rec.Code, rec.Body.String())
		}
	}

	conv, err := st.GetConversationByCallSID(context.Background(), "c-42")
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if conv.CallStatus != store.CallStatusCompleted || conv.ExtractionStatus != store.ExtractionComplete {
		t.Fatalf("expected completed/complete, got %s/%s", conv.CallStatus, conv.ExtractionStatus)
	}
	extraction, err := st.GetExtraction(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("get extraction: %v", err)
	}
	if !extraction.PreApproved {
		t.Fatal("expected pre_approved to be coerced from \"TRUE\"")
	}
	if n := auditCount(t, st); n != 3 {
		t.Fatalf("expected 3 audit rows, got %d", n)
	}
}

func TestEndedForUnknownCallIsAcknowledged(t *testing.T) {
	st := testhelpers.NewTestStore(t)
	rec := post(newEngine(t, st, testConfig()), "/webhook", `{"event":"call_ended","call":{"call_id":"never-started"}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if status := decode(t, rec)["status"]; status != conversations.StatusSkipped {
		t.Fatalf("expected skipped, got %v", status)
	}
}

type failingAudit struct{}

func (failingAudit) AppendWebhookEvent(context.Context, store.WebhookEvent) error {
	return errors.New("database is locked")
}

func TestStoreFailureReturns500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	engine := router.New(&apphttp.App{
		Config:  cfg,
		Logger:  logger.Discard(),
		Modules: []apphttp.Module{NewModule(failingAudit{}, nil, cfg, logger.Discard())},
	})

	rec := post(engine, "/webhook", `{"event":"call_started","call":{"call_id":"x"}}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestStatusAndPreflight(t *testing.T) {
	engine := newEngine(t, testhelpers.NewTestStore(t), testConfig())

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from GET, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "ok" || body["service"] != "Retell webhook" {
		t.Fatalf("unexpected status body %v", body)
	}

	for _, origin := range []string{"", "https://dashboard.example.com"} {
		req := httptest.NewRequest(http.MethodOptions, "/webhook", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		}
		rec = httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 from OPTIONS (origin %q), got %d", origin, rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") == "" {
			t.Fatalf("expected CORS header (origin %q)", origin)
		}
	}
}

func TestVersionedRouteIsMounted(t *testing.T) {
	st := testhelpers.NewTestStore(t)
	rec := post(newEngine(t, st, testConfig()), "/api/v1/webhook/voice", `{"event":"ping"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSignatureIsEnforcedWhenConfigured(t *testing.T) {
	st := testhelpers.NewTestStore(t)
	cfg := testConfig()
	cfg.WebhookSigningSecret = "whsec"
	engine := newEngine(t, st, cfg)
	body := `{"event":"ping"}`

	if rec := post(engine, "/webhook", body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without signature, got %d", rec.Code)
	}
	if rec := post(engine, "/webhook", body, HeaderSignature, "deadbeef"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong signature, got %d", rec.Code)
	}
	if n := auditCount(t, st); n != 0 {
		t.Fatalf("expected unauthenticated bodies not to be audited, got %d", n)
	}

	sig := hex.EncodeToString(Sign("whsec", []byte(body)))
	if rec := post(engine, "/webhook", body, HeaderSignatureFallback, sig); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid signature, got %d", rec.Code)
	}
	if n := auditCount(t, st); n != 1 {
		t.Fatalf("expected 1 audit row, got %d", n)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.WebhookRateLimitRPS = 1
	cfg.WebhookRateLimitBurst = 1
	engine := newEngine(t, testhelpers.NewTestStore(t), cfg)

	if rec := post(engine, "/webhook", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	if rec := post(engine, "/webhook", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestEventIDFallsBackToBodyDigest(t *testing.T) {
	body := []byte(`{"event":"ping"}`)
	if got := eventID(map[string]any{"event_id": " evt_1 "}, body); got != "evt_1" {
		t.Fatalf("expected evt_1, got %q", got)
	}
	first := eventID(map[string]any{}, body)
	if len(first) != 64 || first != eventID(map[string]any{}, body) {
		t.Fatalf("expected stable sha256 hex, got %q", first)
	}
}
