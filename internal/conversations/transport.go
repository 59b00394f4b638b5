package conversations

import (
	"encoding/json"
	"time"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"

	"github.com/google/uuid"
)

// ReprocessRequest is the body of POST /admin/conversations/:callSid/reprocess.
type ReprocessRequest struct {
	Steps []string `json:"steps" validate:"omitempty,max=2,dive,oneof=messages analysis"`
}

type MessageResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Seq     int    `json:"seq"`
}

type ConversationResponse struct {
	ID                  uuid.UUID  `json:"id"`
	CallSID             string     `json:"callSid"`
	LeadID              *uuid.UUID `json:"leadId,omitempty"`
	Direction           string     `json:"direction"`
	CallStatus          string     `json:"callStatus"`
	ExtractionStatus    string     `json:"extractionStatus"`
	StartedAt           *time.Time `json:"startedAt,omitempty"`
	EndedAt             *time.Time `json:"endedAt,omitempty"`
	Duration            *int       `json:"duration,omitempty"`
	RecordingURL        *string    `json:"recordingUrl,omitempty"`
	Transcript          *string    `json:"transcript,omitempty"`
	SentimentScore      *float64   `json:"sentimentScore,omitempty"`
	AgentID             *string    `json:"agentId,omitempty"`
	DisconnectionReason *string    `json:"disconnectionReason,omitempty"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

type ExtractionResponse struct {
	QualificationScore   *int64          `json:"qualificationScore,omitempty"`
	InterestLevel        *int64          `json:"interestLevel,omitempty"`
	UrgencyScore         *int64          `json:"urgencyScore,omitempty"`
	AnnualIncome         *int64          `json:"annualIncome,omitempty"`
	LoanAmount           *int64          `json:"loanAmount,omitempty"`
	FirstTimeBuyer       bool            `json:"firstTimeBuyer"`
	PreApproved          bool            `json:"preApproved"`
	AppointmentRequested bool            `json:"appointmentRequested"`
	FollowUpRequired     bool            `json:"followUpRequired"`
	PurchaseTimeline     *string         `json:"purchaseTimeline,omitempty"`
	CallSummary          *string         `json:"callSummary,omitempty"`
	CallOutcome          *string         `json:"callOutcome,omitempty"`
	SentimentScore       *float64        `json:"sentimentScore,omitempty"`
	Objections           json.RawMessage `json:"objections,omitempty"`
	NextSteps            json.RawMessage `json:"nextSteps,omitempty"`
	AnalyzedAt           *time.Time      `json:"analyzedAt,omitempty"`
}

type QualificationResponse struct {
	LeadID                 uuid.UUID `json:"leadId"`
	AnnualIncome           *int64    `json:"annualIncome,omitempty"`
	DownPaymentAmount      *int64    `json:"downPaymentAmount,omitempty"`
	LoanAmount             *int64    `json:"loanAmount,omitempty"`
	CreditScoreRange       *string   `json:"creditScoreRange,omitempty"`
	FirstTimeBuyer         bool      `json:"firstTimeBuyer"`
	PreApproved            bool      `json:"preApproved"`
	HasRealtor             bool      `json:"hasRealtor"`
	HasCreditConcerns      *bool     `json:"hasCreditConcerns,omitempty"`
	PreferredContactMethod *string   `json:"preferredContactMethod,omitempty"`
	QualificationScore     *int64    `json:"qualificationScore,omitempty"`
}

type DetailResponse struct {
	Conversation  ConversationResponse   `json:"conversation"`
	Messages      []MessageResponse      `json:"messages"`
	Extraction    *ExtractionResponse    `json:"extraction,omitempty"`
	Qualification *QualificationResponse `json:"qualification,omitempty"`
}

func toDetailResponse(d Detail) DetailResponse {
	c := d.Conversation
	resp := DetailResponse{
		Conversation: ConversationResponse{
			ID:                  c.ID,
			CallSID:             c.CallSID,
			LeadID:              c.LeadID,
			Direction:           c.Direction,
			CallStatus:          c.CallStatus,
			ExtractionStatus:    c.ExtractionStatus,
			StartedAt:           c.StartedAt,
			EndedAt:             c.EndedAt,
			Duration:            c.Duration,
			RecordingURL:        c.RecordingURL,
			Transcript:          c.Transcript,
			SentimentScore:      c.SentimentScore,
			AgentID:             c.AgentID,
			DisconnectionReason: c.DisconnectionReason,
			UpdatedAt:           c.UpdatedAt,
		},
		Messages: make([]MessageResponse, len(d.Messages)),
	}

	for i, m := range d.Messages {
		resp.Messages[i] = MessageResponse{Role: m.Role, Content: m.Content, Seq: m.Seq}
	}

	if e := d.Extraction; e != nil {
		resp.Extraction = toExtractionResponse(*e)
	}
	if q := d.Qualification; q != nil {
		resp.Qualification = toQualificationResponse(*q)
	}
	return resp
}

func toExtractionResponse(e store.Extraction) *ExtractionResponse {
	return &ExtractionResponse{
		QualificationScore:   e.QualificationScore,
		InterestLevel:        e.InterestLevel,
		UrgencyScore:         e.UrgencyScore,
		AnnualIncome:         e.AnnualIncome,
		LoanAmount:           e.LoanAmount,
		FirstTimeBuyer:       e.FirstTimeBuyer,
		PreApproved:          e.PreApproved,
		AppointmentRequested: e.AppointmentRequested,
		FollowUpRequired:     e.FollowUpRequired,
		PurchaseTimeline:     e.PurchaseTimeline,
		CallSummary:          e.CallSummary,
		CallOutcome:          e.CallOutcome,
		SentimentScore:       e.SentimentScore,
		Objections:           e.Objections,
		NextSteps:            e.NextSteps,
		AnalyzedAt:           e.AnalyzedAt,
	}
}

func toQualificationResponse(q store.Qualification) *QualificationResponse {
	return &QualificationResponse{
		LeadID:                 q.LeadID,
		AnnualIncome:           q.AnnualIncome,
		DownPaymentAmount:      q.DownPaymentAmount,
		LoanAmount:             q.LoanAmount,
		CreditScoreRange:       q.CreditScoreRange,
		FirstTimeBuyer:         q.FirstTimeBuyer,
		PreApproved:            q.PreApproved,
		HasRealtor:             q.HasRealtor,
		HasCreditConcerns:      q.HasCreditConcerns,
		PreferredContactMethod: q.PreferredContactMethod,
		QualificationScore:     q.QualificationScore,
	}
}
