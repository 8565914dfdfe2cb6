package service

import (
	"context"

	"github.com/askfolio/askfolio/internal/domain"
	"github.com/askfolio/askfolio/internal/repository"
	"go.uber.org/zap"
)

// ChatService persists the conversation around the assistant pipeline.
// History persistence is auxiliary: failures are logged and the answer is
// still returned.
type ChatService struct {
	sessionRepo *repository.SessionRepository
	assistant   *AssistantService
	logger      *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(sessionRepo *repository.SessionRepository, assistant *AssistantService, logger *zap.Logger) *ChatService {
	return &ChatService{
		sessionRepo: sessionRepo,
		assistant:   assistant,
		logger:      logger,
	}
}

// Ask answers a chat message and records both sides of the exchange.
func (s *ChatService) Ask(ctx context.Context, req *domain.ChatRequest) *domain.ChatResponse {
	sessionID := s.ensureSession(req)

	if sessionID != "" {
		userMsg := &domain.Message{
			SessionID: sessionID,
			Role:      "user",
			Content:   req.Message,
		}
		if err := s.sessionRepo.CreateMessage(userMsg); err != nil {
			s.logger.Warn("failed to persist user message", zap.Error(err))
		}
	}

	result := s.assistant.ProcessQuery(ctx, req.Message, req.Context, req.Language)

	if sessionID != "" {
		assistantMsg := &domain.Message{
			SessionID: sessionID,
			Role:      "assistant",
			Content:   result.Response,
			Sources:   result.Sources,
		}
		if err := s.sessionRepo.CreateMessage(assistantMsg); err != nil {
			s.logger.Warn("failed to persist assistant message", zap.Error(err))
		}
		if err := s.sessionRepo.Update(sessionID); err != nil {
			s.logger.Warn("failed to touch session", zap.Error(err))
		}
	}

	return &domain.ChatResponse{
		SessionID:   sessionID,
		QueryResult: *result,
	}
}

// History returns the messages of a session.
func (s *ChatService) History(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	session, err := s.sessionRepo.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrNotFound
	}
	return s.sessionRepo.GetMessages(sessionID)
}

// ensureSession resolves or creates the session for this request. An empty
// return means persistence is unavailable; the request proceeds without it.
func (s *ChatService) ensureSession(req *domain.ChatRequest) string {
	if req.SessionID != "" {
		session, err := s.sessionRepo.Get(req.SessionID)
		if err != nil {
			s.logger.Warn("failed to load session", zap.Error(err))
			return ""
		}
		if session != nil {
			return session.ID
		}
	}

	session := &domain.Session{UserID: req.Context.UserID}
	if err := s.sessionRepo.Create(session); err != nil {
		s.logger.Warn("failed to create session", zap.Error(err))
		return ""
	}
	return session.ID
}
