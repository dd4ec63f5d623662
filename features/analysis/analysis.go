package analysis

import "context"

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// The result sections use pointers throughout so that a field the model
// omitted is distinguishable from a zero value. The validator rejects any
// nil before the numbers are ever read.

type PersonalInfo struct {
	Name        *string  `json:"name"`
	Age         *float64 `json:"age"`
	CreditScore *float64 `json:"creditScore"`
	PhotoURL    *string  `json:"photoUrl"`
}

type IncomeAnalysis struct {
	MonthlyIncome        *float64 `json:"monthlyIncome"`
	AnnualIncome         *float64 `json:"annualIncome"`
	IncomeStability      *string  `json:"incomeStability"`
	AverageMonthlyIncome *float64 `json:"averageMonthlyIncome"`
}

type CreditAnalysis struct {
	CreditScore   *float64 `json:"creditScore"`
	CreditHistory *string  `json:"creditHistory"`
	CreditRisk    *string  `json:"creditRisk"`
}

type LoanEligibility struct {
	IsEligible            *bool    `json:"isEligible"`
	MaxLoanAmount         *float64 `json:"maxLoanAmount"`
	RecommendedLoanAmount *float64 `json:"recommendedLoanAmount"`
	RiskLevel             *string  `json:"riskLevel"`
	ReasonForDecision     *string  `json:"reasonForDecision"`
	SuggestedInterestRate *float64 `json:"suggestedInterestRate"`
}

type DocumentVerification struct {
	PayslipsVerified          *bool `json:"payslipsVerified"`
	BankStatementsVerified    *bool `json:"bankStatementsVerified"`
	IdentityDocumentsVerified *bool `json:"identityDocumentsVerified"`
}

// Result is the structured verdict produced by the model. It is untrusted
// until Validate has passed.
type Result struct {
	PersonalInfo         *PersonalInfo         `json:"personalInfo"`
	IncomeAnalysis       *IncomeAnalysis       `json:"incomeAnalysis"`
	CreditAnalysis       *CreditAnalysis       `json:"creditAnalysis"`
	LoanEligibility      *LoanEligibility      `json:"loanEligibility"`
	DocumentVerification *DocumentVerification `json:"documentVerification"`
}

// Analysis is the persisted verdict, one per application.
type Analysis struct {
	ID            string `json:"id"`
	ApplicationID string `json:"application_id"`
	Result        Result `json:"result"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at,omitempty"`
}

type Repository interface {
	Upsert(ctx context.Context, a *Analysis) error
	FindByApplicationID(ctx context.Context, applicationID string) (*Analysis, error)
	DeleteByApplicationID(ctx context.Context, applicationID string) error
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}
