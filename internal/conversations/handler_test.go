package conversations

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apphttp "github.com/alexcopeland13/relay-isa-automation-sub001/internal/http"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/http/router"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store/sqlite"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/testhelpers"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/config"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/logger"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const adminSecret = "admin-secret"

type recordingQueue struct {
	callSIDs []string
	steps    [][]string
	err      error
}

func (q *recordingQueue) EnqueueReprocess(_ context.Context, callSID string, steps []string) error {
	if q.err != nil {
		return q.err
	}
	q.callSIDs = append(q.callSIDs, callSID)
	q.steps = append(q.steps, steps)
	return nil
}

func newAdminEngine(svc *Service, queue ReprocessQueue) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: "test", CORSAllowAll: true, JWTAccessSecret: adminSecret}

	return router.New(&apphttp.App{
		Config:  cfg,
		Logger:  logger.Discard(),
		Modules: []apphttp.Module{NewModule(svc, queue, validator.New())},
	})
}

func adminToken(t *testing.T, roles ...string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "ops@example.com",
		"type":  "access",
		"roles": roles,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(adminSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func serve(engine *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func seedCall(t *testing.T, st *sqlite.Store) *Service {
	t.Helper()
	svc := newService(st)
	handle(t, svc, startedBody)
	handle(t, svc, endedBody)
	handle(t, svc, analyzedBody)
	return svc
}

func TestGetConversationReturnsDetail(t *testing.T) {
	st := testhelpers.NewTestStore(t)
	engine := newAdminEngine(seedCall(t, st), nil)

	rec := serve(engine, http.MethodGet, "/api/v1/admin/conversations/call_1", adminToken(t, "admin"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp DetailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if resp.Conversation.CallSID != "call_1" || len(resp.Messages) != 3 {
		t.Fatalf("unexpected detail %+v", resp)
	}
	if resp.Extraction == nil || resp.Qualification == nil {
		t.Fatal("expected extraction and qualification in detail")
	}
	if resp.Qualification.QualificationScore == nil || *resp.Qualification.QualificationScore != 82 {
		t.Fatalf("expected qualification score 82, got %v", resp.Qualification.QualificationScore)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	st := testhelpers.NewTestStore(t)
	engine := newAdminEngine(newService(st), nil)

	if rec := serve(engine, http.MethodGet, "/api/v1/admin/conversations/call_1", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := serve(engine, http.MethodGet, "/api/v1/admin/conversations/call_1", adminToken(t, "viewer"), ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer, got %d", rec.Code)
	}
	if rec := serve(engine, http.MethodGet, "/api/v1/admin/conversations/missing", adminToken(t, "admin"), ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown call, got %d", rec.Code)
	}
}

func TestReprocessInline(t *testing.T) {
	st := testhelpers.NewTestStore(t)
	engine := newAdminEngine(seedCall(t, st), nil)
	token := adminToken(t, "admin")

	rec := serve(engine, http.MethodPost, "/api/v1/admin/conversations/call_1/reprocess", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if out.Status != StatusProcessed {
		t.Fatalf("expected processed, got %+v", out)
	}

	rec = serve(engine, http.MethodPost, "/api/v1/admin/conversations/call_1/reprocess", token, `{"steps":["bogus"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown step, got %d", rec.Code)
	}

	rec = serve(engine, http.MethodPost, "/api/v1/admin/conversations/call_1/reprocess", token, `{"steps":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for truncated body, got %d", rec.Code)
	}
}

func TestReprocessQueued(t *testing.T) {
	st := testhelpers.NewTestStore(t)
	queue := &recordingQueue{}
	engine := newAdminEngine(seedCall(t, st), queue)
	token := adminToken(t, "admin")

	rec := serve(engine, http.MethodPost, "/api/v1/admin/conversations/call_1/reprocess", token, `{"steps":["messages"]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(queue.callSIDs) != 1 || queue.callSIDs[0] != "call_1" || len(queue.steps[0]) != 1 || queue.steps[0][0] != StepMessages {
		t.Fatalf("unexpected queued jobs %v %v", queue.callSIDs, queue.steps)
	}

	rec = serve(engine, http.MethodPost, "/api/v1/admin/conversations/missing/reprocess", token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown call, got %d", rec.Code)
	}

	queue.err = errors.New("redis down")
	rec = serve(engine, http.MethodPost, "/api/v1/admin/conversations/call_1/reprocess", token, "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when queue fails, got %d", rec.Code)
	}
}
