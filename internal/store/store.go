// Package store defines the records the ingestion pipeline persists and the
// segregated ports that every storage backend implements.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup by natural or primary key matches no row.
var ErrNotFound = errors.New("not found")

const (
	CallStatusActive    = "active"
	CallStatusCompleted = "completed"

	ExtractionPending  = "pending"
	ExtractionComplete = "complete"

	RoleAgent = "agent"
	RoleLead  = "lead"

	LeadStatusNew = "new"
)

// Lead is the CRM contact a call is attributed to.
type Lead struct {
	ID            uuid.UUID
	FirstName     string
	LastName      string
	PhoneRaw      string
	PhoneE164     string
	Source        string
	Status        string
	LastContacted *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DisplayName is the lead's first and last name joined by a space.
func (l Lead) DisplayName() string {
	switch {
	case l.FirstName == "":
		return l.LastName
	case l.LastName == "":
		return l.FirstName
	default:
		return l.FirstName + " " + l.LastName
	}
}

// PhoneLeadMapping binds a normalized phone number to exactly one lead.
type PhoneLeadMapping struct {
	PhoneE164 string
	LeadID    uuid.UUID
	LeadName  string
	CreatedAt time.Time
}

// Conversation is one vendor call, keyed by its call SID.
type Conversation struct {
	ID                  uuid.UUID
	CallSID             string
	LeadID              *uuid.UUID
	Direction           string
	CallStatus          string
	ExtractionStatus    string
	StartedAt           *time.Time
	EndedAt             *time.Time
	Duration            *int
	RecordingURL        *string
	Transcript          *string
	SentimentScore      *float64
	AgentID             *string
	FromNumber          *string
	ToNumber            *string
	DisconnectionReason *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Completion carries the fields a call_ended event sets. Nil fields keep the
// stored value.
type Completion struct {
	EndedAt             *time.Time
	Duration            *int
	RecordingURL        *string
	Transcript          *string
	DisconnectionReason *string
}

// Message is one segmented utterance of a conversation transcript.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           string
	Content        string
	Seq            int
	CreatedAt      time.Time
}

// Extraction holds the normalized vendor analysis of one conversation.
type Extraction struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	LeadID         *uuid.UUID

	AnnualIncome       *int64
	DownPaymentAmount  *int64
	LoanAmount         *int64
	MonthlyDebt        *int64
	PriceRangeMin      *int64
	PriceRangeMax      *int64
	Bedrooms           *int64
	QualificationScore *int64
	InterestLevel      *int64
	UrgencyScore       *int64

	FirstTimeBuyer       bool
	HasRealtor           bool
	PreApproved          bool
	AppointmentRequested bool
	FollowUpRequired     bool
	CallSuccessful       bool

	HasCreditConcerns      *bool
	HasDownPaymentConcerns *bool
	HasRateConcerns        *bool

	PurchaseTimeline       *string
	PreferredContactMethod *string
	BestTimeToContact      *string
	CreditScoreRange       *string
	EmploymentStatus       *string
	LoanType               *string
	PropertyType           *string
	CurrentHousingStatus   *string
	Email                  *string
	CallSummary            *string
	CallOutcome            *string
	UserSentiment          *string

	Objections           json.RawMessage
	NextSteps            json.RawMessage
	Concerns             json.RawMessage
	InterestedProperties json.RawMessage
	PreferredLocations   json.RawMessage

	SentimentScore *float64
	RawPayload     json.RawMessage
	AnalyzedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Qualification is the lead-facing projection of an extraction.
type Qualification struct {
	ID             uuid.UUID
	LeadID         uuid.UUID
	ConversationID uuid.UUID

	AnnualIncome      *int64
	DownPaymentAmount *int64
	LoanAmount        *int64
	MonthlyDebt       *int64
	CreditScoreRange  *string
	EmploymentStatus  *string

	FirstTimeBuyer       bool
	PreApproved          bool
	LoanType             *string
	PropertyType         *string
	PurchaseTimeline     *string
	PriceRangeMin        *int64
	PriceRangeMax        *int64
	Bedrooms             *int64
	PreferredLocations   json.RawMessage
	HasRealtor           bool
	CurrentHousingStatus *string

	HasCreditConcerns      *bool
	HasDownPaymentConcerns *bool
	HasRateConcerns        *bool

	PreferredContactMethod *string
	BestTimeToContact      *string
	Email                  *string
	QualificationScore     *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// WebhookEvent is the append-only audit record of one inbound request.
type WebhookEvent struct {
	ID         uuid.UUID
	Provider   string
	EventID    string
	EventType  string
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// =====================================
// Segregated Interfaces
// =====================================

// LeadStore resolves and creates leads by phone.
type LeadStore interface {
	FindMappingByPhone(ctx context.Context, phoneE164 string) (PhoneLeadMapping, error)
	// CreateLeadWithMapping inserts lead and its phone mapping atomically. When
	// another writer already owns the phone the transaction is rolled back and
	// the existing mapping is returned with created=false.
	CreateLeadWithMapping(ctx context.Context, lead Lead, mapping PhoneLeadMapping) (PhoneLeadMapping, bool, error)
	GetLead(ctx context.Context, id uuid.UUID) (Lead, error)
	TouchLastContacted(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ConversationStore owns the conversation lifecycle and its messages.
type ConversationStore interface {
	// InsertConversation is insert-only on call_sid. created=false means the
	// row already existed and was left untouched.
	InsertConversation(ctx context.Context, conv Conversation) (Conversation, bool, error)
	GetConversationByCallSID(ctx context.Context, callSID string) (Conversation, error)
	CompleteConversation(ctx context.Context, callSID string, c Completion) (Conversation, error)
	UpdateConversationAnalysis(ctx context.Context, callSID string, sentiment *float64, transcript *string) (Conversation, error)
	UpdateConversationTranscript(ctx context.Context, callSID string, transcript string) (Conversation, error)
	MarkExtractionComplete(ctx context.Context, conversationID uuid.UUID) error
	ListCompletedWithoutMessages(ctx context.Context, limit int) ([]Conversation, error)
	ReplaceMessages(ctx context.Context, conversationID uuid.UUID, messages []Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]Message, error)
}

// AnalysisStore persists extractions and qualification projections.
type AnalysisStore interface {
	EnsureExtraction(ctx context.Context, conversationID uuid.UUID, leadID *uuid.UUID) error
	UpsertExtraction(ctx context.Context, e Extraction) error
	GetExtraction(ctx context.Context, conversationID uuid.UUID) (Extraction, error)
	UpsertQualification(ctx context.Context, q Qualification) error
	GetQualification(ctx context.Context, leadID, conversationID uuid.UUID) (Qualification, error)
}

// WebhookEventStore appends audit rows.
type WebhookEventStore interface {
	AppendWebhookEvent(ctx context.Context, event WebhookEvent) error
}

// Store is the full contract implemented by the postgres and sqlite backends.
type Store interface {
	LeadStore
	ConversationStore
	AnalysisStore
	WebhookEventStore
	Ping(ctx context.Context) error
	Close() error
}
