package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/askfolio/askfolio/internal/config"
	"github.com/askfolio/askfolio/internal/domain"
	"github.com/askfolio/askfolio/internal/repository"
	"go.uber.org/zap"
)

// CorpusRefresher is implemented by retrieval backends that cache the corpus
// in memory and need a reload after ingest.
type CorpusRefresher interface {
	Refresh() error
}

// IngestService indexes text documents: split into chunks, embed each chunk,
// persist content and embeddings.
type IngestService struct {
	cfg       *config.Config
	docRepo   *repository.DocumentRepository
	chunkRepo *repository.ChunkRepository
	embedder  domain.Embedder
	refresher CorpusRefresher
	logger    *zap.Logger
}

// NewIngestService creates a new ingest service. refresher may be nil for
// backends that index externally.
func NewIngestService(
	cfg *config.Config,
	docRepo *repository.DocumentRepository,
	chunkRepo *repository.ChunkRepository,
	embedder domain.Embedder,
	refresher CorpusRefresher,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		cfg:       cfg,
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		embedder:  embedder,
		refresher: refresher,
		logger:    logger,
	}
}

// IngestText indexes one text document and returns its record.
func (s *IngestService) IngestText(ctx context.Context, req *domain.IngestRequest) (*domain.Document, error) {
	doc := &domain.Document{
		Title:       req.Title,
		Category:    strings.ToLower(strings.TrimSpace(req.Category)),
		Roles:       req.Roles,
		ProjectID:   req.ProjectID,
		PortfolioID: req.PortfolioID,
		Status:      domain.DocumentStatusPending,
	}
	if err := s.docRepo.Create(doc); err != nil {
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	pieces := SplitChunks(req.Content, s.cfg.RAG.ChunkSize)
	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		embedding, err := s.embedder.Embed(ctx, piece)
		if err != nil {
			s.failDocument(doc.ID, err)
			return nil, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: doc.ID,
			Index:      i,
			Content:    piece,
			Embedding:  embedding,
		})
	}

	if err := s.chunkRepo.CreateBatch(chunks); err != nil {
		s.failDocument(doc.ID, err)
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}

	if err := s.docRepo.UpdateStatus(doc.ID, domain.DocumentStatusReady, len(chunks), ""); err != nil {
		return nil, err
	}
	doc.Status = domain.DocumentStatusReady
	doc.ChunkCount = len(chunks)

	s.refresh()

	s.logger.Info("document ingested",
		zap.String("document_id", doc.ID),
		zap.String("title", doc.Title),
		zap.Int("chunks", len(chunks)))
	return doc, nil
}

// ListDocuments lists all indexed documents.
func (s *IngestService) ListDocuments(ctx context.Context) ([]*domain.Document, error) {
	return s.docRepo.List()
}

// DeleteDocument removes a document and its chunks from the index.
func (s *IngestService) DeleteDocument(ctx context.Context, id string) error {
	if err := s.docRepo.Delete(id); err != nil {
		return err
	}
	s.refresh()
	return nil
}

func (s *IngestService) refresh() {
	if s.refresher == nil {
		return
	}
	if err := s.refresher.Refresh(); err != nil {
		s.logger.Error("failed to refresh retriever corpus", zap.Error(err))
	}
}

func (s *IngestService) failDocument(id string, cause error) {
	if err := s.docRepo.UpdateStatus(id, domain.DocumentStatusFailed, 0, cause.Error()); err != nil {
		s.logger.Warn("failed to mark document as failed", zap.Error(err))
	}
}

// SplitChunks splits text on blank lines and packs paragraphs into chunks of
// at most maxSize runes. A single oversized paragraph is split hard.
func SplitChunks(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = 1000
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		for len([]rune(para)) > maxSize {
			flush()
			runes := []rune(para)
			chunks = append(chunks, string(runes[:maxSize]))
			para = strings.TrimSpace(string(runes[maxSize:]))
		}
		if para == "" {
			continue
		}
		if current.Len() > 0 && len([]rune(current.String()))+len([]rune(para))+2 > maxSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return chunks
}
