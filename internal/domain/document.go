package domain

import "time"

// Document statuses
const (
	DocumentStatusReady   = "ready"
	DocumentStatusPending = "pending"
	DocumentStatusFailed  = "failed"
)

// Document is an indexed knowledge-base document. Roles is a comma-separated
// list of role tags; empty means role-agnostic content.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Roles       string    `json:"roles,omitempty"`
	ProjectID   string    `json:"project_id,omitempty"`
	PortfolioID string    `json:"portfolio_id,omitempty"`
	Status      string    `json:"status"`
	ChunkCount  int       `json:"chunk_count"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IngestRequest is the request to index a text document.
type IngestRequest struct {
	Title       string `json:"title" binding:"required"`
	Content     string `json:"content" binding:"required"`
	Category    string `json:"category,omitempty"`
	Roles       string `json:"roles,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
	PortfolioID string `json:"portfolio_id,omitempty"`
}

// Chunk is an embeddable slice of a document.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Index      int       `json:"index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
}
