package service

import (
	"context"

	"github.com/askfolio/askfolio/internal/domain"
	"github.com/askfolio/askfolio/internal/repository"
)

// AdminService handles admin operations
type AdminService struct {
	docRepo     *repository.DocumentRepository
	chunkRepo   *repository.ChunkRepository
	sessionRepo *repository.SessionRepository
}

// NewAdminService creates a new admin service
func NewAdminService(
	docRepo *repository.DocumentRepository,
	chunkRepo *repository.ChunkRepository,
	sessionRepo *repository.SessionRepository,
) *AdminService {
	return &AdminService{
		docRepo:     docRepo,
		chunkRepo:   chunkRepo,
		sessionRepo: sessionRepo,
	}
}

// Stats returns aggregate system statistics
func (s *AdminService) Stats(ctx context.Context) (*domain.Stats, error) {
	documents, err := s.docRepo.Count()
	if err != nil {
		return nil, err
	}
	chunks, err := s.chunkRepo.Count()
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessionRepo.CountSessions()
	if err != nil {
		return nil, err
	}
	chats, err := s.sessionRepo.CountChats()
	if err != nil {
		return nil, err
	}

	return &domain.Stats{
		TotalDocuments: documents,
		TotalChunks:    chunks,
		TotalSessions:  sessions,
		TotalChats:     chats,
	}, nil
}
