package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"

	"github.com/google/uuid"
)

var (
	upsertExtractionSQL    = store.UpsertSQL("conversation_extractions", store.ExtractionColumns, "conversation_id", []string{"id", "conversation_id"}, placeholder)
	upsertQualificationSQL = store.UpsertSQL("qualification_data", store.QualificationColumns, "lead_id, conversation_id", []string{"id", "lead_id", "conversation_id"}, placeholder)
)

// EnsureExtraction creates an empty extraction row for the conversation if none exists.
func (s *Store) EnsureExtraction(ctx context.Context, conversationID uuid.UUID, leadID *uuid.UUID) error {
	ts := now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_extractions (id, conversation_id, lead_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (conversation_id) DO NOTHING
	`, args([]any{uuid.New(), conversationID, leadID, ts, ts})...)
	return err
}

// UpsertExtraction writes the whole extraction row keyed on conversation_id.
func (s *Store) UpsertExtraction(ctx context.Context, e store.Extraction) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, upsertExtractionSQL, args(store.ExtractionValues(e))...)
	return err
}

// GetExtraction loads the extraction for a conversation.
func (s *Store) GetExtraction(ctx context.Context, conversationID uuid.UUID) (store.Extraction, error) {
	var e store.Extraction
	err := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, lead_id,
			annual_income, down_payment_amount, loan_amount, monthly_debt,
			price_range_min, price_range_max, bedrooms,
			qualification_score, interest_level, urgency_score,
			first_time_buyer, has_realtor, pre_approved,
			appointment_requested, follow_up_required, call_successful,
			has_credit_concerns, has_down_payment_concerns, has_rate_concerns,
			purchase_timeline, preferred_contact_method, best_time_to_contact,
			credit_score_range, employment_status, loan_type, property_type,
			current_housing_status, email, call_summary, call_outcome, user_sentiment,
			objections, next_steps, concerns, interested_properties, preferred_locations,
			sentiment_score, raw_payload, analyzed_at, created_at, updated_at
		FROM conversation_extractions
		WHERE conversation_id = ?
	`, conversationID.String()).Scan(
		&e.ID, &e.ConversationID, nullUUIDCol{&e.LeadID},
		&e.AnnualIncome, &e.DownPaymentAmount, &e.LoanAmount, &e.MonthlyDebt,
		&e.PriceRangeMin, &e.PriceRangeMax, &e.Bedrooms,
		&e.QualificationScore, &e.InterestLevel, &e.UrgencyScore,
		&e.FirstTimeBuyer, &e.HasRealtor, &e.PreApproved,
		&e.AppointmentRequested, &e.FollowUpRequired, &e.CallSuccessful,
		&e.HasCreditConcerns, &e.HasDownPaymentConcerns, &e.HasRateConcerns,
		&e.PurchaseTimeline, &e.PreferredContactMethod, &e.BestTimeToContact,
		&e.CreditScoreRange, &e.EmploymentStatus, &e.LoanType, &e.PropertyType,
		&e.CurrentHousingStatus, &e.Email, &e.CallSummary, &e.CallOutcome, &e.UserSentiment,
		jsonCol{&e.Objections}, jsonCol{&e.NextSteps}, jsonCol{&e.Concerns}, jsonCol{&e.InterestedProperties}, jsonCol{&e.PreferredLocations},
		&e.SentimentScore, jsonCol{&e.RawPayload}, nullTimeCol{&e.AnalyzedAt}, timeCol{&e.CreatedAt}, timeCol{&e.UpdatedAt},
	)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Extraction{}, store.ErrNotFound
	}
	if err != nil {
		return store.Extraction{}, err
	}
	return e, nil
}

// UpsertQualification writes the projection keyed on (lead_id, conversation_id).
func (s *Store) UpsertQualification(ctx context.Context, q store.Qualification) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, upsertQualificationSQL, args(store.QualificationValues(q))...)
	return err
}

// GetQualification loads the projection for a lead and conversation.
func (s *Store) GetQualification(ctx context.Context, leadID, conversationID uuid.UUID) (store.Qualification, error) {
	var q store.Qualification
	err := s.db.QueryRowContext(ctx, `
		SELECT id, lead_id, conversation_id,
			annual_income, down_payment_amount, loan_amount, monthly_debt,
			credit_score_range, employment_status,
			first_time_buyer, pre_approved, loan_type, property_type, purchase_timeline,
			price_range_min, price_range_max, bedrooms, preferred_locations,
			has_realtor, current_housing_status,
			has_credit_concerns, has_down_payment_concerns, has_rate_concerns,
			preferred_contact_method, best_time_to_contact, email, qualification_score,
			created_at, updated_at
		FROM qualification_data
		WHERE lead_id = ? AND conversation_id = ?
	`, leadID.String(), conversationID.String()).Scan(
		&q.ID, &q.LeadID, &q.ConversationID,
		&q.AnnualIncome, &q.DownPaymentAmount, &q.LoanAmount, &q.MonthlyDebt,
		&q.CreditScoreRange, &q.EmploymentStatus,
		&q.FirstTimeBuyer, &q.PreApproved, &q.LoanType, &q.PropertyType, &q.PurchaseTimeline,
		&q.PriceRangeMin, &q.PriceRangeMax, &q.Bedrooms, jsonCol{&q.PreferredLocations},
		&q.HasRealtor, &q.CurrentHousingStatus,
		&q.HasCreditConcerns, &q.HasDownPaymentConcerns, &q.HasRateConcerns,
		&q.PreferredContactMethod, &q.BestTimeToContact, &q.Email, &q.QualificationScore,
		timeCol{&q.CreatedAt}, timeCol{&q.UpdatedAt},
	)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Qualification{}, store.ErrNotFound
	}
	if err != nil {
		return store.Qualification{}, err
	}
	return q, nil
}
