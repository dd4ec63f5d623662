package analysis

import "github.com/sashabaranov/go-openai/jsonschema"

const SchemaName = "loan_analysis_schema"

// ResponseSchema is the output contract sent with every completion. Strict
// mode requires every property to be listed as required, which is exactly
// what we want: the model has no license to omit fields.
func ResponseSchema() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"personalInfo": {
				Type:        jsonschema.Object,
				Description: "Basic information about the loan applicant",
				Properties: map[string]jsonschema.Definition{
					"name":        {Type: jsonschema.String, Description: "Full name of the applicant"},
					"age":         {Type: jsonschema.Number, Description: "Age of the applicant"},
					"creditScore": {Type: jsonschema.Number, Description: "Credit score of the applicant"},
					"photoUrl":    {Type: jsonschema.String, Description: "URL to applicant's photo"},
				},
				Required:             []string{"name", "age", "creditScore", "photoUrl"},
				AdditionalProperties: false,
			},
			"incomeAnalysis": {
				Type:        jsonschema.Object,
				Description: "Analysis of applicant's income and stability",
				Properties: map[string]jsonschema.Definition{
					"monthlyIncome":        {Type: jsonschema.Number, Description: "The exact monthly income of the candidate in INR"},
					"annualIncome":         {Type: jsonschema.Number, Description: "Total annual income in INR"},
					"incomeStability":      {Type: jsonschema.String, Description: "Assessment of income stability"},
					"averageMonthlyIncome": {Type: jsonschema.Number, Description: "Average income over last 3 months"},
				},
				Required:             []string{"monthlyIncome", "annualIncome", "incomeStability", "averageMonthlyIncome"},
				AdditionalProperties: false,
			},
			"creditAnalysis": {
				Type:        jsonschema.Object,
				Description: "Analysis of applicant's credit history",
				Properties: map[string]jsonschema.Definition{
					"creditScore":   {Type: jsonschema.Number, Description: "Current credit score"},
					"creditHistory": {Type: jsonschema.String, Description: "Summary of credit history"},
					"creditRisk":    {Type: jsonschema.String, Description: "Assessment of credit risk level"},
				},
				Required:             []string{"creditScore", "creditHistory", "creditRisk"},
				AdditionalProperties: false,
			},
			"loanEligibility": {
				Type:        jsonschema.Object,
				Description: "Loan eligibility assessment and recommendations",
				Properties: map[string]jsonschema.Definition{
					"isEligible":            {Type: jsonschema.Boolean, Description: "Whether applicant is eligible for loan"},
					"maxLoanAmount":         {Type: jsonschema.Number, Description: "Maximum loan amount eligible for"},
					"recommendedLoanAmount": {Type: jsonschema.Number, Description: "Recommended loan amount"},
					"riskLevel":             {Type: jsonschema.String, Description: "Overall risk assessment"},
					"reasonForDecision":     {Type: jsonschema.String, Description: "Explanation for eligibility decision"},
					"suggestedInterestRate": {Type: jsonschema.Number, Description: "Suggested interest rate percentage"},
				},
				Required: []string{
					"isEligible", "maxLoanAmount", "recommendedLoanAmount",
					"riskLevel", "reasonForDecision", "suggestedInterestRate",
				},
				AdditionalProperties: false,
			},
			"documentVerification": {
				Type:        jsonschema.Object,
				Description: "Status of document verification",
				Properties: map[string]jsonschema.Definition{
					"payslipsVerified":          {Type: jsonschema.Boolean, Description: "Whether payslips are verified"},
					"bankStatementsVerified":    {Type: jsonschema.Boolean, Description: "Whether bank statements are verified"},
					"identityDocumentsVerified": {Type: jsonschema.Boolean, Description: "Whether identity documents are verified"},
				},
				Required:             []string{"payslipsVerified", "bankStatementsVerified", "identityDocumentsVerified"},
				AdditionalProperties: false,
			},
		},
		Required: []string{
			"personalInfo", "incomeAnalysis", "creditAnalysis",
			"loanEligibility", "documentVerification",
		},
		AdditionalProperties: false,
	}
}
