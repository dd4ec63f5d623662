package analysis

import (
	"fmt"

	"loanlens/features/application"
)

// Topic probes used to pull relevant chunks for each analysis section. The
// income probe is deliberately verbose; short probes pull bank-statement
// noise instead of the payslip figure.
const (
	QueryIncome   = "what is the exact monthly income of the candidate as per the salary slip or payslip. Give me the exact amount"
	QueryCredit   = "credit history payments loans debt"
	QueryIdentity = "identification verification identity proof"
)

const userPrompt = "Analyze this application and provide the JSON response."

// buildPrompt assembles the analyst instruction: applicant profile, the
// numeric derivation rules the validator will later enforce, and the three
// retrieved context blocks in a fixed order.
func buildPrompt(app *application.Application, incomeContent, creditContent, identityContent string) string {
	return fmt.Sprintf(`You are a financial analyst AI specialized in loan assessment. EXTRACT EXACT NUMBERS from the documents.

Applicant Profile:
- Name: %s
- Age: %d
- Credit Score: %d

STEP BY STEP ANALYSIS REQUIRED:

1. Income Analysis:
- First, identify ALL salary/income amounts in the payslips
- Calculate average of last 3 months' salary EXACTLY
- Monthly income must be the latest salary figure
- SET averageMonthlyIncome as the 3-month average
- Ensure monthlyIncome matches the latest payslip amount
- Annual income MUST BE exactly 12 times the monthly income

2. Document Analysis:
- For each payslip, extract the exact amount
- For bank statements, verify regular salary credits
- Cross verify amounts between payslips and bank statements
- Document is verified ONLY if amount is clearly visible and matches

3. Loan Amount Calculation:
- maxLoanAmount = monthlyIncome * 50 (if eligible)
- recommendedLoanAmount = maxLoanAmount * 0.8
- Amounts must be rounded to nearest 100

4. Verification Rules:
- Mark document as verified(true) ONLY if exact amounts are found
- If amounts are unclear or missing, mark as not verified(false)
- NO PENDING STATUS ALLOWED

MANDATORY VALIDATION RULES:
1. All amounts must be exact numbers from documents
2. No approximations or assumptions allowed
3. Verification must be true/false only
4. Monthly income must match latest payslip exactly
5. Cross-verify all amounts across documents

Income Documents Analysis:
%s

Credit Profile Analysis:
%s

Identity Verification Records:
%s

Provide ALL numbers in the exact format found in documents with no modifications.`,
		app.Name, app.Age, app.CreditScore,
		incomeContent, creditContent, identityContent)
}
