// Package retriever provides the vector search backends consumed by the
// assistant pipeline: an in-process store over the SQLite chunk tables and a
// Qdrant REST client.
package retriever

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/askfolio/askfolio/internal/domain"
	"github.com/askfolio/askfolio/internal/rag"
	"github.com/askfolio/askfolio/internal/repository"
	"go.uber.org/zap"
)

// SQLiteRetriever searches chunk embeddings loaded from SQLite with cosine
// similarity computed in memory. Refresh reloads the corpus after ingest.
type SQLiteRetriever struct {
	chunkRepo *repository.ChunkRepository
	docRepo   *repository.DocumentRepository
	logger    *zap.Logger

	mu     sync.RWMutex
	chunks []domain.Chunk
	docs   map[string]*domain.Document
}

// NewSQLiteRetriever creates a retriever and loads the current corpus.
func NewSQLiteRetriever(chunkRepo *repository.ChunkRepository, docRepo *repository.DocumentRepository, logger *zap.Logger) (*SQLiteRetriever, error) {
	r := &SQLiteRetriever{
		chunkRepo: chunkRepo,
		docRepo:   docRepo,
		logger:    logger,
	}
	if err := r.Refresh(); err != nil {
		return nil, err
	}
	return r, nil
}

// Refresh reloads chunks and document metadata from the database.
func (r *SQLiteRetriever) Refresh() error {
	chunks, err := r.chunkRepo.ListAll()
	if err != nil {
		return fmt.Errorf("failed to load chunks: %w", err)
	}
	docs, err := r.docRepo.List()
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}

	byID := make(map[string]*domain.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}

	r.mu.Lock()
	r.chunks = chunks
	r.docs = byID
	r.mu.Unlock()

	r.logger.Info("retriever corpus loaded",
		zap.Int("chunks", len(chunks)),
		zap.Int("documents", len(docs)))
	return nil
}

// Search returns at most topK hits with similarity >= threshold, best first.
// An empty result is valid, not an error.
func (r *SQLiteRetriever) Search(ctx context.Context, vector []float32, topK int, threshold float64, filter domain.SearchFilter) ([]domain.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var hits []domain.SearchHit
	for _, chunk := range r.chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		doc := r.docs[chunk.DocumentID]
		if !matches(doc, filter) {
			continue
		}
		similarity, err := cosineSimilarity(vector, chunk.Embedding)
		if err != nil {
			r.logger.Warn("skipping chunk with mismatched embedding",
				zap.String("chunk_id", chunk.ID), zap.Error(err))
			continue
		}
		if similarity < threshold {
			continue
		}
		hits = append(hits, domain.SearchHit{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			ChunkIndex: chunk.Index,
			Content:    chunk.Content,
			Similarity: similarity,
			Metadata:   hitMetadata(doc),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func matches(doc *domain.Document, filter domain.SearchFilter) bool {
	if doc == nil {
		return filter == (domain.SearchFilter{})
	}
	if filter.ContentType != "" && doc.Category != filter.ContentType {
		return false
	}
	if filter.ProjectID != "" && doc.ProjectID != filter.ProjectID {
		return false
	}
	if filter.PortfolioID != "" && doc.PortfolioID != filter.PortfolioID {
		return false
	}
	return true
}

func hitMetadata(doc *domain.Document) map[string]string {
	if doc == nil {
		return nil
	}
	md := map[string]string{
		rag.MetadataKeyTitle:     doc.Title,
		rag.MetadataKeyCategory:  doc.Category,
		rag.MetadataKeyRoles:     doc.Roles,
		rag.MetadataKeyUpdatedAt: doc.UpdatedAt.Format(time.RFC3339),
	}
	if doc.ProjectID != "" {
		md["project_id"] = doc.ProjectID
	}
	if doc.PortfolioID != "" {
		md["portfolio_id"] = doc.PortfolioID
	}
	return md
}

// cosineSimilarity returns the cosine of the angle between a and b, clamped
// to [0,1] so downstream scores stay bounded.
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector length mismatch: %d vs %d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("zero-magnitude vector")
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos < 0 {
		return 0, nil
	}
	if cos > 1 {
		return 1, nil
	}
	return cos, nil
}
