// Package conversations owns the lifecycle of one vendor call: started,
// ended, analyzed and transcript updates, applied idempotently by call id.
package conversations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/analysis"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/callevents"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/events"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/leads"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/transcript"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/apperr"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/logger"

	"github.com/google/uuid"
)

// Outcome statuses. Every status except an error is acknowledged with 200.
const (
	StatusProcessed = "processed"
	StatusDuplicate = "duplicate"
	StatusSkipped   = "skipped"
	StatusIgnored   = "ignored"
)

// Reprocess steps.
const (
	StepMessages = "messages"
	StepAnalysis = "analysis"
)

// Outcome reports what Handle did with one event.
type Outcome struct {
	EventType      string     `json:"eventType"`
	CallSID        string     `json:"callSid,omitempty"`
	Status         string     `json:"status"`
	Message        string     `json:"message,omitempty"`
	ConversationID *uuid.UUID `json:"conversationId,omitempty"`
	LeadID         *uuid.UUID `json:"leadId,omitempty"`
}

// Repository is the slice of the store the state machine writes to.
type Repository interface {
	store.ConversationStore
	store.AnalysisStore
	TouchLastContacted(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Service applies classified call events to the store.
type Service struct {
	repo    Repository
	leads   leads.LeadResolver
	bus     events.Bus
	log     *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

// New creates the conversation service. timeout bounds the store work of a
// single Handle or Reprocess call; zero disables the deadline.
func New(repo Repository, resolver leads.LeadResolver, bus events.Bus, log *logger.Logger, timeout time.Duration) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		repo:    repo,
		leads:   resolver,
		bus:     bus,
		log:     log,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Handle applies one classified event. Unknown types and events for calls the
// store has never seen return a non-error Outcome; only store failures return
// an error.
func (s *Service) Handle(ctx context.Context, ev callevents.Classified) (Outcome, error) {
	out := Outcome{EventType: ev.EventType, CallSID: ev.Call.CallID}

	if !ev.Known() {
		out.Status = StatusIgnored
		out.Message = "unhandled event type"
		return out, nil
	}
	if ev.Call.CallID == "" {
		out.Status = StatusSkipped
		out.Message = "missing call id"
		return out, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	switch ev.EventType {
	case callevents.CallStarted:
		return s.handleStarted(ctx, ev.Call, out)
	case callevents.CallEnded:
		return s.handleEnded(ctx, ev.Call, out)
	case callevents.CallAnalyzed:
		return s.handleAnalyzed(ctx, ev.Call, out)
	default:
		return s.handleTranscriptUpdate(ctx, ev.Call, out)
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) handleStarted(ctx context.Context, call callevents.CallData, out Outcome) (Outcome, error) {
	var leadID *uuid.UUID
	if s.leads != nil {
		res, err := s.leads.Resolve(ctx, call.PhoneCandidates())
		if err != nil {
			s.log.WithContext(ctx).Warn("lead resolution failed, continuing without lead",
				slog.String("callSid", call.CallID),
				slog.String("error", err.Error()),
			)
		}
		if res != nil {
			id := res.LeadID
			leadID = &id
		}
	}

	startedAt := call.StartedAt()
	if startedAt == nil {
		ts := s.now()
		startedAt = &ts
	}

	conv, created, err := s.repo.InsertConversation(ctx, store.Conversation{
		ID:               uuid.New(),
		CallSID:          call.CallID,
		LeadID:           leadID,
		Direction:        call.Direction,
		CallStatus:       store.CallStatusActive,
		ExtractionStatus: store.ExtractionPending,
		StartedAt:        startedAt,
		AgentID:          optional(call.AgentID),
		FromNumber:       optional(call.FromNumber),
		ToNumber:         optional(call.ToNumber),
	})
	if err != nil {
		return out, storeError("insert conversation", err)
	}

	// Also runs for duplicates so a delivery that died after the insert heals.
	if err := s.repo.EnsureExtraction(ctx, conv.ID, conv.LeadID); err != nil {
		return out, storeError("ensure extraction", err)
	}

	out.ConversationID = &conv.ID
	out.LeadID = conv.LeadID

	if !created {
		out.Status = StatusDuplicate
		out.Message = "conversation already exists"
		return out, nil
	}

	s.publish(ctx, events.ConversationStarted{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: conv.ID,
		CallSID:        conv.CallSID,
		LeadID:         conv.LeadID,
		Direction:      conv.Direction,
	})

	out.Status = StatusProcessed
	out.Message = "conversation created"
	return out, nil
}

func (s *Service) handleEnded(ctx context.Context, call callevents.CallData, out Outcome) (Outcome, error) {
	conv, err := s.repo.CompleteConversation(ctx, call.CallID, store.Completion{
		EndedAt:             call.EndedAt(),
		Duration:            call.DurationSeconds(),
		RecordingURL:        optional(call.RecordingURL),
		Transcript:          call.Transcript,
		DisconnectionReason: optional(call.DisconnectionReason),
	})
	if errors.Is(err, store.ErrNotFound) {
		return s.uncorrelated(ctx, out), nil
	}
	if err != nil {
		return out, storeError("complete conversation", err)
	}

	out.ConversationID = &conv.ID
	out.LeadID = conv.LeadID

	count, err := s.segmentMessages(ctx, conv)
	if err != nil {
		return out, err
	}

	if conv.LeadID != nil {
		contactedAt := s.now()
		if conv.EndedAt != nil {
			contactedAt = *conv.EndedAt
		}
		if err := s.repo.TouchLastContacted(ctx, *conv.LeadID, contactedAt); err != nil {
			return out, storeError("touch lead", err)
		}
	}

	if call.Analysis != nil {
		if sentiment := analysis.SentimentScore(call.Analysis); sentiment != nil {
			if conv, err = s.repo.UpdateConversationAnalysis(ctx, call.CallID, sentiment, nil); err != nil {
				return out, storeError("update sentiment", err)
			}
		}
		if err := s.applyAnalysis(ctx, conv, call.Analysis); err != nil {
			return out, err
		}
	}

	s.publish(ctx, events.ConversationCompleted{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: conv.ID,
		CallSID:        conv.CallSID,
		LeadID:         conv.LeadID,
		Transcript:     deref(conv.Transcript),
		RecordingURL:   deref(conv.RecordingURL),
		MessageCount:   count,
	})

	out.Status = StatusProcessed
	out.Message = "conversation completed"
	return out, nil
}

func (s *Service) handleAnalyzed(ctx context.Context, call callevents.CallData, out Outcome) (Outcome, error) {
	var sentiment *float64
	if call.Analysis != nil {
		sentiment = analysis.SentimentScore(call.Analysis)
	}

	conv, err := s.repo.UpdateConversationAnalysis(ctx, call.CallID, sentiment, call.Transcript)
	if errors.Is(err, store.ErrNotFound) {
		return s.uncorrelated(ctx, out), nil
	}
	if err != nil {
		return out, storeError("update conversation analysis", err)
	}

	out.ConversationID = &conv.ID
	out.LeadID = conv.LeadID

	if call.Analysis == nil {
		out.Status = StatusProcessed
		out.Message = "no analysis in payload"
		return out, nil
	}

	if err := s.applyAnalysis(ctx, conv, call.Analysis); err != nil {
		return out, err
	}

	out.Status = StatusProcessed
	out.Message = "analysis stored"
	return out, nil
}

func (s *Service) handleTranscriptUpdate(ctx context.Context, call callevents.CallData, out Outcome) (Outcome, error) {
	if call.Transcript == nil {
		out.Status = StatusSkipped
		out.Message = "no transcript in payload"
		return out, nil
	}

	conv, err := s.repo.UpdateConversationTranscript(ctx, call.CallID, *call.Transcript)
	if errors.Is(err, store.ErrNotFound) {
		return s.uncorrelated(ctx, out), nil
	}
	if err != nil {
		return out, storeError("update transcript", err)
	}

	out.ConversationID = &conv.ID
	out.LeadID = conv.LeadID
	out.Status = StatusProcessed
	out.Message = "transcript updated"
	return out, nil
}

func (s *Service) uncorrelated(ctx context.Context, out Outcome) Outcome {
	s.log.WithContext(ctx).Warn("no conversation for call",
		slog.String("eventType", out.EventType),
		slog.String("callSid", out.CallSID),
	)
	out.Status = StatusSkipped
	out.Message = "conversation not found"
	return out
}

// segmentMessages replaces the conversation's messages with the segmented
// stored transcript. A conversation without a transcript keeps its messages.
func (s *Service) segmentMessages(ctx context.Context, conv store.Conversation) (int, error) {
	if conv.Transcript == nil {
		return 0, nil
	}

	utterances := transcript.Segment(*conv.Transcript)
	messages := make([]store.Message, len(utterances))
	for i, u := range utterances {
		messages[i] = store.Message{ConversationID: conv.ID, Role: u.Role, Content: u.Content, Seq: u.Seq}
	}

	if err := s.repo.ReplaceMessages(ctx, conv.ID, messages); err != nil {
		return 0, storeError("replace messages", err)
	}
	return len(messages), nil
}

// applyAnalysis upserts the extraction and, when the call has a lead, its
// qualification projection, then marks the extraction complete.
func (s *Service) applyAnalysis(ctx context.Context, conv store.Conversation, payload map[string]any) error {
	extraction := analysis.MapExtraction(payload, conv.ID, conv.LeadID)
	analyzedAt := s.now()
	extraction.AnalyzedAt = &analyzedAt

	if err := s.repo.UpsertExtraction(ctx, extraction); err != nil {
		return storeError("upsert extraction", err)
	}

	qualification, ok := analysis.ProjectQualification(extraction)
	if ok {
		if err := s.repo.UpsertQualification(ctx, qualification); err != nil {
			return storeError("upsert qualification", err)
		}
	}

	if err := s.repo.MarkExtractionComplete(ctx, conv.ID); err != nil {
		return storeError("mark extraction complete", err)
	}

	s.publish(ctx, events.ConversationAnalyzed{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: conv.ID,
		CallSID:        conv.CallSID,
		LeadID:         conv.LeadID,
		Qualified:      ok,
	})
	return nil
}

// Reprocess rebuilds derived rows for one conversation from what is stored:
// messages from the transcript, extraction and qualification from the raw
// analysis payload. An empty steps list runs every step.
func (s *Service) Reprocess(ctx context.Context, callSID string, steps []string) (Outcome, error) {
	out := Outcome{EventType: "reprocess", CallSID: callSID}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	conv, err := s.repo.GetConversationByCallSID(ctx, callSID)
	if errors.Is(err, store.ErrNotFound) {
		return out, apperr.NotFound("conversation not found")
	}
	if err != nil {
		return out, storeError("load conversation", err)
	}
	out.ConversationID = &conv.ID
	out.LeadID = conv.LeadID

	if len(steps) == 0 {
		steps = []string{StepMessages, StepAnalysis}
	}

	var done []string
	for _, step := range steps {
		switch step {
		case StepMessages:
			count, err := s.segmentMessages(ctx, conv)
			if err != nil {
				return out, err
			}
			if count > 0 {
				done = append(done, StepMessages)
				s.log.WithContext(ctx).Info("messages rebuilt", slog.String("callSid", callSID), slog.Int("count", count))
			}
		case StepAnalysis:
			ran, err := s.reprojectAnalysis(ctx, conv)
			if err != nil {
				return out, err
			}
			if ran {
				done = append(done, StepAnalysis)
			}
		default:
			return out, apperr.Validation("unknown reprocess step: " + step)
		}
	}

	out.Status = StatusProcessed
	if len(done) == 0 {
		out.Status = StatusSkipped
		out.Message = "nothing to reprocess"
		return out, nil
	}
	out.Message = "reprocessed " + strings.Join(done, ", ")
	return out, nil
}

func (s *Service) reprojectAnalysis(ctx context.Context, conv store.Conversation) (bool, error) {
	extraction, err := s.repo.GetExtraction(ctx, conv.ID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeError("load extraction", err)
	}
	if len(extraction.RawPayload) == 0 {
		return false, nil
	}

	payload, err := decodeObject(extraction.RawPayload)
	if err != nil {
		s.log.WithContext(ctx).Warn("stored analysis payload is not an object",
			slog.String("callSid", conv.CallSID),
			slog.String("error", err.Error()),
		)
		return false, nil
	}

	return true, s.applyAnalysis(ctx, conv, payload)
}

// BackfillMessages segments completed conversations that have a transcript
// but no messages, up to limit. It returns how many were repaired.
func (s *Service) BackfillMessages(ctx context.Context, limit int) (int, error) {
	pending, err := s.repo.ListCompletedWithoutMessages(ctx, limit)
	if err != nil {
		return 0, storeError("list conversations without messages", err)
	}

	repaired := 0
	for _, conv := range pending {
		n, err := s.segmentMessages(ctx, conv)
		if err != nil {
			return repaired, err
		}
		if n > 0 {
			repaired++
		}
	}
	return repaired, nil
}

// Detail is a conversation with everything derived from it.
type Detail struct {
	Conversation  store.Conversation
	Messages      []store.Message
	Extraction    *store.Extraction
	Qualification *store.Qualification
}

// Get loads a conversation and its derived rows by call id.
func (s *Service) Get(ctx context.Context, callSID string) (Detail, error) {
	conv, err := s.repo.GetConversationByCallSID(ctx, callSID)
	if errors.Is(err, store.ErrNotFound) {
		return Detail{}, apperr.NotFound("conversation not found")
	}
	if err != nil {
		return Detail{}, storeError("load conversation", err)
	}

	d := Detail{Conversation: conv}
	if d.Messages, err = s.repo.ListMessages(ctx, conv.ID); err != nil {
		return Detail{}, storeError("list messages", err)
	}

	extraction, err := s.repo.GetExtraction(ctx, conv.ID)
	switch {
	case err == nil:
		d.Extraction = &extraction
	case !errors.Is(err, store.ErrNotFound):
		return Detail{}, storeError("load extraction", err)
	}

	if conv.LeadID != nil {
		q, err := s.repo.GetQualification(ctx, *conv.LeadID, conv.ID)
		switch {
		case err == nil:
			d.Qualification = &q
		case !errors.Is(err, store.ErrNotFound):
			return Detail{}, storeError("load qualification", err)
		}
	}

	return d, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

func storeError(op string, err error) error {
	return apperr.Wrap(apperr.KindInternal, "store unavailable", err).WithOp(op)
}

func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("payload is null")
	}
	return out, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
