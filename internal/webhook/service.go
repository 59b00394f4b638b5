package webhook

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/analysis"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/callevents"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/conversations"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/apperr"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/logger"

	"github.com/google/uuid"
)

const (
	eventTypeMalformed   = "malformed"
	eventTypeHealthCheck = "health_check"

	statusOK      = "ok"
	statusIgnored = conversations.StatusIgnored
)

// Dispatcher applies a classified call event. Satisfied by conversations.Service.
type Dispatcher interface {
	Handle(ctx context.Context, ev callevents.Classified) (conversations.Outcome, error)
}

// Response is the JSON body acknowledged to the vendor.
type Response struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	EventType string `json:"eventType,omitempty"`
	CallSID   string `json:"callSid,omitempty"`
}

// Service audits inbound webhook bodies and hands them to the dispatcher.
type Service struct {
	audit      store.WebhookEventStore
	dispatcher Dispatcher
	provider   string
	log        *logger.Logger
}

// NewService creates the receiver. provider is recorded on every audit row.
func NewService(audit store.WebhookEventStore, dispatcher Dispatcher, provider string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		audit:      audit,
		dispatcher: dispatcher,
		provider:   strings.ToLower(provider),
		log:        log,
	}
}

// Receive processes one raw request body.
//   - empty body: audited as health_check with an empty object, acknowledged
//   - malformed JSON: audited as {"raw": body}, BadRequest
//   - unknown event type: audited and acknowledged
//   - store failure: Internal
func (s *Service) Receive(ctx context.Context, body []byte) (Response, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		s.recordBestEffort(ctx, eventTypeHealthCheck, body, json.RawMessage(`{}`))
		return Response{Status: statusOK, Message: "health check"}, nil
	}

	payload, err := decodePayload(body)
	if err != nil {
		s.recordMalformed(ctx, body)
		return Response{}, apperr.BadRequest("malformed JSON").WithDetails(err.Error())
	}

	ev := callevents.Classify(payload)
	log := s.log.WithContext(ctx).WithCallSID(ev.Call.CallID)

	if err := s.audit.AppendWebhookEvent(ctx, store.WebhookEvent{
		ID:         uuid.New(),
		Provider:   s.provider,
		EventID:    eventID(payload, body),
		EventType:  ev.EventType,
		Payload:    json.RawMessage(body),
		ReceivedAt: time.Now().UTC(),
	}); err != nil {
		log.DatabaseError("append webhook event", err)
		return Response{}, apperr.Wrap(apperr.KindInternal, "store unavailable", err).WithOp("append webhook event")
	}

	if !ev.Known() {
		log.WebhookOutcome(ev.EventType, ev.Call.CallID, statusIgnored, "unhandled event type")
		return Response{Status: statusIgnored, Message: "unhandled event type", EventType: ev.EventType}, nil
	}

	out, err := s.dispatcher.Handle(ctx, ev)
	if err != nil {
		log.Error("webhook processing failed",
			slog.String("eventType", ev.EventType),
			slog.String("error", err.Error()),
		)
		return Response{}, err
	}

	log.WebhookOutcome(out.EventType, out.CallSID, out.Status, out.Message)
	return Response{
		Status:    out.Status,
		Message:   out.Message,
		EventType: out.EventType,
		CallSID:   out.CallSID,
	}, nil
}

func (s *Service) recordMalformed(ctx context.Context, body []byte) {
	wrapped, err := json.Marshal(map[string]string{"raw": string(body)})
	if err != nil {
		return
	}
	s.recordBestEffort(ctx, eventTypeMalformed, body, wrapped)
}

// recordBestEffort appends an audit row whose failure is logged but never
// changes the response.
func (s *Service) recordBestEffort(ctx context.Context, eventType string, body []byte, payload json.RawMessage) {
	if err := s.audit.AppendWebhookEvent(ctx, store.WebhookEvent{
		ID:         uuid.New(),
		Provider:   s.provider,
		EventID:    bodyDigest(body),
		EventType:  eventType,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}); err != nil {
		s.log.WithContext(ctx).DatabaseError("append "+eventType+" webhook event", err)
	}
}

func decodePayload(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, errors.New("body is not a JSON object")
	}
	if dec.More() {
		return nil, errors.New("unexpected data after JSON object")
	}
	return payload, nil
}

// eventID prefers the vendor's event id and falls back to a digest of the body,
// so a redelivered body always audits under the same id.
func eventID(payload map[string]any, body []byte) string {
	if id := analysis.OptionalString(payload["event_id"]); id != nil && strings.TrimSpace(*id) != "" {
		return strings.TrimSpace(*id)
	}
	return bodyDigest(body)
}

func bodyDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
