package analysis

import "github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"

// ProjectQualification derives the lead-scoped qualification view of e.
// It returns false when the extraction has no owning lead.
func ProjectQualification(e Extraction) (store.Qualification, bool) {
	if e.LeadID == nil {
		return store.Qualification{}, false
	}

	return store.Qualification{
		LeadID:         *e.LeadID,
		ConversationID: e.ConversationID,

		AnnualIncome:      e.AnnualIncome,
		DownPaymentAmount: e.DownPaymentAmount,
		LoanAmount:        e.LoanAmount,
		MonthlyDebt:       e.MonthlyDebt,
		CreditScoreRange:  e.CreditScoreRange,
		EmploymentStatus:  e.EmploymentStatus,

		FirstTimeBuyer:       e.FirstTimeBuyer,
		PreApproved:          e.PreApproved,
		LoanType:             e.LoanType,
		PropertyType:         e.PropertyType,
		PurchaseTimeline:     e.PurchaseTimeline,
		PriceRangeMin:        e.PriceRangeMin,
		PriceRangeMax:        e.PriceRangeMax,
		Bedrooms:             e.Bedrooms,
		PreferredLocations:   e.PreferredLocations,
		HasRealtor:           e.HasRealtor,
		CurrentHousingStatus: e.CurrentHousingStatus,

		HasCreditConcerns:      e.HasCreditConcerns,
		HasDownPaymentConcerns: e.HasDownPaymentConcerns,
		HasRateConcerns:        e.HasRateConcerns,

		PreferredContactMethod: e.PreferredContactMethod,
		BestTimeToContact:      e.BestTimeToContact,
		Email:                  e.Email,
		QualificationScore:     e.QualificationScore,
	}, true
}
