package application

import "context"

const (
	StatusPending  = "pending"
	StatusAnalyzed = "analyzed"
	StatusRejected = "rejected"
)

// DocumentRef ties one uploaded file to the chunk ids produced from it.
type DocumentRef struct {
	FileName string   `json:"file_name"`
	ChunkIDs []string `json:"chunk_ids"`
}

// Documents groups an applicant's uploads by role. Payslips and bank
// statements can be several files; the identity cards are single files.
type Documents struct {
	Payslips       []DocumentRef `json:"payslips"`
	BankStatements []DocumentRef `json:"bank_statements"`
	PANCard        *DocumentRef  `json:"pan_card,omitempty"`
	AadhaarCard    *DocumentRef  `json:"aadhaar_card,omitempty"`
}

// AllChunkIDs flattens every chunk id across all document groups, used by
// cleanup.
func (d Documents) AllChunkIDs() []string {
	var ids []string
	for _, ref := range d.Payslips {
		ids = append(ids, ref.ChunkIDs...)
	}
	for _, ref := range d.BankStatements {
		ids = append(ids, ref.ChunkIDs...)
	}
	if d.PANCard != nil {
		ids = append(ids, d.PANCard.ChunkIDs...)
	}
	if d.AadhaarCard != nil {
		ids = append(ids, d.AadhaarCard.ChunkIDs...)
	}
	return ids
}

// Application is the applicant profile plus references to the chunks
// produced from their documents. Status moves pending → analyzed once a
// validated analysis is persisted; it never moves back.
type Application struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Age         int       `json:"age"`
	CreditScore int       `json:"credit_score"`
	Email       string    `json:"email"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Status      string    `json:"status"`
	Documents   Documents `json:"documents"`
	CreatedAt   string    `json:"created_at,omitempty"`
}

type Repository interface {
	Save(ctx context.Context, app *Application) error
	FindByID(ctx context.Context, id string) (*Application, error)
	List(ctx context.Context) ([]Application, error)
	UpdateStatus(ctx context.Context, id, status string) error
	DeleteByID(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}
