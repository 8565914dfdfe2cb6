package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/askfolio/askfolio/internal/domain"
	"github.com/google/uuid"
)

// DocumentRepository handles document metadata persistence
type DocumentRepository struct {
	db *DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create creates a new document record
func (r *DocumentRepository) Create(doc *domain.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Status == "" {
		doc.Status = domain.DocumentStatusPending
	}
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	_, err := r.db.Exec(`
		INSERT INTO documents (id, title, category, roles, project_id, portfolio_id, status, chunk_count, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Title, doc.Category, doc.Roles, doc.ProjectID, doc.PortfolioID,
		doc.Status, doc.ChunkCount, doc.Error, doc.CreatedAt, doc.UpdatedAt)

	return err
}

// Get retrieves a document by ID
func (r *DocumentRepository) Get(id string) (*domain.Document, error) {
	doc := &domain.Document{}
	var category, roles, projectID, portfolioID, errMsg sql.NullString

	err := r.db.QueryRow(`
		SELECT id, title, category, roles, project_id, portfolio_id, status, chunk_count, error, created_at, updated_at
		FROM documents WHERE id = ?
	`, id).Scan(&doc.ID, &doc.Title, &category, &roles, &projectID, &portfolioID,
		&doc.Status, &doc.ChunkCount, &errMsg, &doc.CreatedAt, &doc.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	doc.Category = category.String
	doc.Roles = roles.String
	doc.ProjectID = projectID.String
	doc.PortfolioID = portfolioID.String
	doc.Error = errMsg.String

	return doc, nil
}

// List retrieves all documents
func (r *DocumentRepository) List() ([]*domain.Document, error) {
	rows, err := r.db.Query(`
		SELECT id, title, category, roles, project_id, portfolio_id, status, chunk_count, error, created_at, updated_at
		FROM documents ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc := &domain.Document{}
		var category, roles, projectID, portfolioID, errMsg sql.NullString

		if err := rows.Scan(&doc.ID, &doc.Title, &category, &roles, &projectID, &portfolioID,
			&doc.Status, &doc.ChunkCount, &errMsg, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}

		doc.Category = category.String
		doc.Roles = roles.String
		doc.ProjectID = projectID.String
		doc.PortfolioID = portfolioID.String
		doc.Error = errMsg.String
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// UpdateStatus updates a document's ingest status and chunk count
func (r *DocumentRepository) UpdateStatus(id, status string, chunkCount int, errMsg string) error {
	result, err := r.db.Exec(`
		UPDATE documents SET status = ?, chunk_count = ?, error = ?, updated_at = ?
		WHERE id = ?
	`, status, chunkCount, errMsg, time.Now(), id)

	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("document not found: %s", id)
	}

	return nil
}

// Delete deletes a document and, via cascade, its chunks
func (r *DocumentRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("document not found: %s", id)
	}

	return nil
}

// Count returns the total number of documents
func (r *DocumentRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}
