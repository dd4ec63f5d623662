package analysis

import (
	"math"
	"strings"

	"loanlens/internal/pipeline"
)

// Tolerance for annualIncome == monthlyIncome * 12; the prompt tells the
// model to round to whole units.
const derivationTolerance = 1.0

var riskLevels = map[string]bool{"Low": true, "Medium": true, "High": true}

// Validate is the single gate between a model verdict and the database.
// Pure, no I/O. Checks run in a fixed order and short-circuit on the first
// violation; each failure names the offending field and the constraint it
// broke. profileCreditScore is the score the applicant declared at intake.
func Validate(r *Result, profileCreditScore int) error {
	// 1. Presence: every section, every field, non-null.
	if err := checkPresence(r); err != nil {
		return err
	}

	inc := r.IncomeAnalysis
	el := r.LoanEligibility

	// 2. Numeric sanity on the income figures.
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"incomeAnalysis.monthlyIncome", *inc.MonthlyIncome},
		{"incomeAnalysis.averageMonthlyIncome", *inc.AverageMonthlyIncome},
		{"incomeAnalysis.annualIncome", *inc.AnnualIncome},
	} {
		if !isFinite(f.value) || f.value <= 0 {
			return &pipeline.ValidationError{Field: f.name, Constraint: "must be finite and greater than zero"}
		}
	}

	// 3. Annual income must be derivable from monthly income.
	if math.Abs(*inc.AnnualIncome-*inc.MonthlyIncome*12) > derivationTolerance {
		return &pipeline.ValidationError{
			Field:      "incomeAnalysis.annualIncome",
			Constraint: "must equal monthlyIncome * 12 within rounding tolerance",
		}
	}

	// 4. Average must be in the same ballpark as the latest figure.
	if *inc.AverageMonthlyIncome < 0.5**inc.MonthlyIncome || *inc.AverageMonthlyIncome > 1.5**inc.MonthlyIncome {
		return &pipeline.ValidationError{
			Field:      "incomeAnalysis.averageMonthlyIncome",
			Constraint: "must be within [0.5x, 1.5x] of monthlyIncome",
		}
	}

	// 5. Eligibility coherence.
	if !*el.IsEligible {
		if *el.MaxLoanAmount != 0 {
			return &pipeline.ValidationError{
				Field:      "loanEligibility.maxLoanAmount",
				Constraint: "must be 0 when not eligible",
			}
		}
	} else {
		if *el.MaxLoanAmount > *inc.MonthlyIncome*50 {
			return &pipeline.ValidationError{
				Field:      "loanEligibility.maxLoanAmount",
				Constraint: "must not exceed monthlyIncome * 50",
			}
		}
		if *el.RecommendedLoanAmount > *el.MaxLoanAmount {
			return &pipeline.ValidationError{
				Field:      "loanEligibility.recommendedLoanAmount",
				Constraint: "must not exceed maxLoanAmount",
			}
		}
		if math.Mod(*el.MaxLoanAmount, 100) != 0 {
			return &pipeline.ValidationError{
				Field:      "loanEligibility.maxLoanAmount",
				Constraint: "must be divisible by 100",
			}
		}
		if math.Mod(*el.RecommendedLoanAmount, 100) != 0 {
			return &pipeline.ValidationError{
				Field:      "loanEligibility.recommendedLoanAmount",
				Constraint: "must be divisible by 100",
			}
		}
	}

	// 6. Credit score must echo the declared profile and sit in the CIBIL
	// range.
	score := *r.CreditAnalysis.CreditScore
	if !isFinite(score) || score < 300 || score > 900 {
		return &pipeline.ValidationError{
			Field:      "creditAnalysis.creditScore",
			Constraint: "must be finite and within [300, 900]",
		}
	}
	if score != float64(profileCreditScore) {
		return &pipeline.ValidationError{
			Field:      "creditAnalysis.creditScore",
			Constraint: "must match the applicant's declared credit score",
		}
	}

	// 7. Verification flags strictly boolean — nil pointers were already
	// rejected by the presence check, which is all that tri-state could
	// smuggle through a typed decode.

	// 8. Risk level from the closed set.
	if !riskLevels[*el.RiskLevel] {
		return &pipeline.ValidationError{
			Field:      "loanEligibility.riskLevel",
			Constraint: "must be one of Low, Medium, High",
		}
	}

	// 9. A decision without a reason is not a decision.
	if strings.TrimSpace(*el.ReasonForDecision) == "" {
		return &pipeline.ValidationError{
			Field:      "loanEligibility.reasonForDecision",
			Constraint: "must be non-empty",
		}
	}

	return nil
}

func checkPresence(r *Result) error {
	missing := func(field string) error {
		return &pipeline.ValidationError{Field: field, Constraint: "must be present and non-null"}
	}

	if r == nil {
		return missing("result")
	}
	switch {
	case r.PersonalInfo == nil:
		return missing("personalInfo")
	case r.IncomeAnalysis == nil:
		return missing("incomeAnalysis")
	case r.CreditAnalysis == nil:
		return missing("creditAnalysis")
	case r.LoanEligibility == nil:
		return missing("loanEligibility")
	case r.DocumentVerification == nil:
		return missing("documentVerification")
	}

	p := r.PersonalInfo
	switch {
	case p.Name == nil:
		return missing("personalInfo.name")
	case p.Age == nil:
		return missing("personalInfo.age")
	case p.CreditScore == nil:
		return missing("personalInfo.creditScore")
	case p.PhotoURL == nil:
		return missing("personalInfo.photoUrl")
	}

	inc := r.IncomeAnalysis
	switch {
	case inc.MonthlyIncome == nil:
		return missing("incomeAnalysis.monthlyIncome")
	case inc.AnnualIncome == nil:
		return missing("incomeAnalysis.annualIncome")
	case inc.IncomeStability == nil:
		return missing("incomeAnalysis.incomeStability")
	case inc.AverageMonthlyIncome == nil:
		return missing("incomeAnalysis.averageMonthlyIncome")
	}

	c := r.CreditAnalysis
	switch {
	case c.CreditScore == nil:
		return missing("creditAnalysis.creditScore")
	case c.CreditHistory == nil:
		return missing("creditAnalysis.creditHistory")
	case c.CreditRisk == nil:
		return missing("creditAnalysis.creditRisk")
	}

	el := r.LoanEligibility
	switch {
	case el.IsEligible == nil:
		return missing("loanEligibility.isEligible")
	case el.MaxLoanAmount == nil:
		return missing("loanEligibility.maxLoanAmount")
	case el.RecommendedLoanAmount == nil:
		return missing("loanEligibility.recommendedLoanAmount")
	case el.RiskLevel == nil:
		return missing("loanEligibility.riskLevel")
	case el.ReasonForDecision == nil:
		return missing("loanEligibility.reasonForDecision")
	case el.SuggestedInterestRate == nil:
		return missing("loanEligibility.suggestedInterestRate")
	}

	v := r.DocumentVerification
	switch {
	case v.PayslipsVerified == nil:
		return missing("documentVerification.payslipsVerified")
	case v.BankStatementsVerified == nil:
		return missing("documentVerification.bankStatementsVerified")
	case v.IdentityDocumentsVerified == nil:
		return missing("documentVerification.identityDocumentsVerified")
	}

	return nil
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
