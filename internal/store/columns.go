package store

import "strings"

// Column lists shared by the SQL backends. The order matches the Values
// helpers below and the scan order used by each backend.

// ExtractionColumns lists conversation_extractions columns written on upsert.
var ExtractionColumns = []string{
	"id", "conversation_id", "lead_id",
	"annual_income", "down_payment_amount", "loan_amount", "monthly_debt",
	"price_range_min", "price_range_max", "bedrooms",
	"qualification_score", "interest_level", "urgency_score",
	"first_time_buyer", "has_realtor", "pre_approved",
	"appointment_requested", "follow_up_required", "call_successful",
	"has_credit_concerns", "has_down_payment_concerns", "has_rate_concerns",
	"purchase_timeline", "preferred_contact_method", "best_time_to_contact",
	"credit_score_range", "employment_status", "loan_type", "property_type",
	"current_housing_status", "email", "call_summary", "call_outcome", "user_sentiment",
	"objections", "next_steps", "concerns", "interested_properties", "preferred_locations",
	"sentiment_score", "raw_payload", "analyzed_at",
}

// ExtractionValues returns e's fields in ExtractionColumns order.
func ExtractionValues(e Extraction) []any {
	return []any{
		e.ID, e.ConversationID, e.LeadID,
		e.AnnualIncome, e.DownPaymentAmount, e.LoanAmount, e.MonthlyDebt,
		e.PriceRangeMin, e.PriceRangeMax, e.Bedrooms,
		e.QualificationScore, e.InterestLevel, e.UrgencyScore,
		e.FirstTimeBuyer, e.HasRealtor, e.PreApproved,
		e.AppointmentRequested, e.FollowUpRequired, e.CallSuccessful,
		e.HasCreditConcerns, e.HasDownPaymentConcerns, e.HasRateConcerns,
		e.PurchaseTimeline, e.PreferredContactMethod, e.BestTimeToContact,
		e.CreditScoreRange, e.EmploymentStatus, e.LoanType, e.PropertyType,
		e.CurrentHousingStatus, e.Email, e.CallSummary, e.CallOutcome, e.UserSentiment,
		e.Objections, e.NextSteps, e.Concerns, e.InterestedProperties, e.PreferredLocations,
		e.SentimentScore, e.RawPayload, e.AnalyzedAt,
	}
}

// QualificationColumns lists qualification_data columns written on upsert.
var QualificationColumns = []string{
	"id", "lead_id", "conversation_id",
	"annual_income", "down_payment_amount", "loan_amount", "monthly_debt",
	"credit_score_range", "employment_status",
	"first_time_buyer", "pre_approved", "loan_type", "property_type", "purchase_timeline",
	"price_range_min", "price_range_max", "bedrooms", "preferred_locations",
	"has_realtor", "current_housing_status",
	"has_credit_concerns", "has_down_payment_concerns", "has_rate_concerns",
	"preferred_contact_method", "best_time_to_contact", "email", "qualification_score",
}

// QualificationValues returns q's fields in QualificationColumns order.
func QualificationValues(q Qualification) []any {
	return []any{
		q.ID, q.LeadID, q.ConversationID,
		q.AnnualIncome, q.DownPaymentAmount, q.LoanAmount, q.MonthlyDebt,
		q.CreditScoreRange, q.EmploymentStatus,
		q.FirstTimeBuyer, q.PreApproved, q.LoanType, q.PropertyType, q.PurchaseTimeline,
		q.PriceRangeMin, q.PriceRangeMax, q.Bedrooms, q.PreferredLocations,
		q.HasRealtor, q.CurrentHousingStatus,
		q.HasCreditConcerns, q.HasDownPaymentConcerns, q.HasRateConcerns,
		q.PreferredContactMethod, q.BestTimeToContact, q.Email, q.QualificationScore,
	}
}

// UpsertSQL builds "INSERT ... ON CONFLICT (conflict) DO UPDATE" for table.
// placeholder renders the n-th (1-based) bind parameter. Columns in keep are
// never overwritten on conflict; lead_id keeps its stored value when the
// incoming one is NULL.
func UpsertSQL(table string, columns []string, conflict string, keep []string, placeholder func(n int) string) string {
	params := make([]string, len(columns))
	for i := range columns {
		params[i] = placeholder(i + 1)
	}

	skip := make(map[string]bool, len(keep))
	for _, k := range keep {
		skip[k] = true
	}

	sets := make([]string, 0, len(columns)+1)
	for _, col := range columns {
		if skip[col] {
			continue
		}
		if col == "lead_id" {
			sets = append(sets, "lead_id = COALESCE(excluded.lead_id, "+table+".lead_id)")
			continue
		}
		sets = append(sets, col+" = excluded."+col)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(") VALUES (")
	b.WriteString(strings.Join(params, ", "))
	b.WriteString(") ON CONFLICT (")
	b.WriteString(conflict)
	b.WriteString(") DO UPDATE SET ")
	b.WriteString(strings.Join(sets, ", "))
	return b.String()
}
