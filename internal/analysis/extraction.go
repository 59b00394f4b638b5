package analysis

import (
	"encoding/json"
	"strings"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"

	"github.com/google/uuid"
)

// Extraction is the typed record produced by MapExtraction.
type Extraction = store.Extraction

const customDataKey = "custom_analysis_data"

// fields resolves analysis keys, preferring the vendor's custom analysis block.
type fields map[string]any

func (f fields) get(key string) any {
	if custom, ok := f[customDataKey].(map[string]any); ok {
		if v, ok := custom[key]; ok && v != nil {
			return v
		}
	}
	return f[key]
}

func (f fields) integer(key string) *int64      { return ParseOptionalInt(f.get(key)) }
func (f fields) flag(key string) bool           { return ParseLooseBool(f.get(key)) }
func (f fields) optBool(key string) *bool       { return ParseOptionalBool(f.get(key)) }
func (f fields) str(key string) *string         { return OptionalString(f.get(key)) }
func (f fields) doc(key string) json.RawMessage { return StructuredValue(f.get(key)) }

// MapExtraction normalizes a vendor analysis payload. It never fails; fields
// that cannot be coerced are left empty. The untouched payload is kept in
// RawPayload.
func MapExtraction(payload map[string]any, conversationID uuid.UUID, leadID *uuid.UUID) Extraction {
	f := fields(payload)

	e := Extraction{
		ConversationID: conversationID,
		LeadID:         leadID,

		AnnualIncome:       f.integer("annual_income"),
		DownPaymentAmount:  f.integer("down_payment_amount"),
		LoanAmount:         f.integer("loan_amount"),
		MonthlyDebt:        f.integer("monthly_debt"),
		PriceRangeMin:      f.integer("price_range_min"),
		PriceRangeMax:      f.integer("price_range_max"),
		Bedrooms:           f.integer("bedrooms"),
		QualificationScore: f.integer("qualification_score"),
		InterestLevel:      f.integer("interest_level"),
		UrgencyScore:       f.integer("urgency_score"),

		FirstTimeBuyer:       f.flag("first_time_buyer"),
		HasRealtor:           f.flag("has_realtor"),
		PreApproved:          f.flag("pre_approved"),
		AppointmentRequested: f.flag("appointment_requested"),
		FollowUpRequired:     f.flag("follow_up_required"),
		CallSuccessful:       f.flag("call_successful"),

		HasCreditConcerns:      f.optBool("has_credit_concerns"),
		HasDownPaymentConcerns: f.optBool("has_down_payment_concerns"),
		HasRateConcerns:        f.optBool("has_rate_concerns"),

		PurchaseTimeline:       f.str("purchase_timeline"),
		PreferredContactMethod: f.str("preferred_contact_method"),
		BestTimeToContact:      f.str("best_time_to_contact"),
		CreditScoreRange:       f.str("credit_score_range"),
		EmploymentStatus:       f.str("employment_status"),
		LoanType:               f.str("loan_type"),
		PropertyType:           f.str("property_type"),
		CurrentHousingStatus:   f.str("current_housing_status"),
		Email:                  f.str("email"),
		CallSummary:            f.str("call_summary"),
		CallOutcome:            f.str("call_outcome"),
		UserSentiment:          f.str("user_sentiment"),

		Objections:           f.doc("objections"),
		NextSteps:            f.doc("next_steps"),
		Concerns:             f.doc("concerns"),
		InterestedProperties: f.doc("interested_properties"),
		PreferredLocations:   f.doc("preferred_locations"),
	}

	e.SentimentScore = SentimentScore(payload)

	if raw, err := json.Marshal(payload); err == nil {
		e.RawPayload = raw
	}

	return e
}

// SentimentScore reads a numeric sentiment_score, falling back to the
// vendor's user_sentiment label: Positive 1, Neutral 0, Negative -1.
func SentimentScore(payload map[string]any) *float64 {
	f := fields(payload)
	if score := ParseOptionalFloat(f.get("sentiment_score")); score != nil {
		return score
	}

	label := OptionalString(f.get("user_sentiment"))
	if label == nil {
		return nil
	}

	var score float64
	switch strings.ToLower(strings.TrimSpace(*label)) {
	case "positive":
		score = 1
	case "neutral":
		score = 0
	case "negative":
		score = -1
	default:
		return nil
	}
	return &score
}
