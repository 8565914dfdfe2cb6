package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/askfolio/askfolio/internal/cache"
	"github.com/askfolio/askfolio/internal/config"
	"github.com/askfolio/askfolio/internal/domain"
	"github.com/askfolio/askfolio/internal/monitor"
	"github.com/askfolio/askfolio/internal/rag"
	"go.uber.org/zap"
)

// Operation names recorded with the performance monitor
const (
	OpProcessQuery = "process_query"
	OpCacheHit     = "cache_hit"
	OpFallback     = "fallback"
	OpRetrieval    = "retrieval"
	OpGeneration   = "generation"
)

const fallbackConfidence = 0.1

// fallbackResponses are pre-authored answers served when the pipeline is
// degraded or an external provider failed.
var fallbackResponses = map[string]string{
	"en": "I'm having trouble answering right now. Please try again in a moment, or browse the help section for common questions.",
	"es": "En este momento no puedo responder. Inténtalo de nuevo en un momento o consulta la sección de ayuda.",
	"de": "Ich kann die Frage im Moment nicht beantworten. Bitte versuchen Sie es gleich noch einmal oder nutzen Sie den Hilfebereich.",
}

// emptyQueryResponses are returned for whitespace-only queries.
var emptyQueryResponses = map[string]string{
	"en": "Please enter a question so I can help you.",
	"es": "Escribe una pregunta para que pueda ayudarte.",
	"de": "Bitte geben Sie eine Frage ein, damit ich helfen kann.",
}

// AssistantService is the pipeline orchestrator: cache lookup, retrieval,
// contextual scoring, cited generation, cache store and metric recording.
// It owns the fallback decision and always returns a well-formed result.
type AssistantService struct {
	cfg       *config.Config
	logger    *zap.Logger
	embedder  domain.Embedder
	retriever domain.VectorRetriever
	scorer    *rag.Scorer
	generator *rag.ResponseGenerator
	cache     *cache.Cache
	monitor   *monitor.Monitor
}

// NewAssistantService creates the assistant pipeline orchestrator.
func NewAssistantService(
	cfg *config.Config,
	logger *zap.Logger,
	embedder domain.Embedder,
	retriever domain.VectorRetriever,
	scorer *rag.Scorer,
	generator *rag.ResponseGenerator,
	responseCache *cache.Cache,
	perfMonitor *monitor.Monitor,
) *AssistantService {
	return &AssistantService{
		cfg:       cfg,
		logger:    logger,
		embedder:  embedder,
		retriever: retriever,
		scorer:    scorer,
		generator: generator,
		cache:     responseCache,
		monitor:   perfMonitor,
	}
}

// ProcessQuery answers one user question. Failures never escape as errors:
// empty queries get a "no actionable query" result and pipeline failures get
// a pre-authored fallback answer marked as such.
func (s *AssistantService) ProcessQuery(ctx context.Context, query string, uc domain.UserContext, language string) *domain.QueryResult {
	start := time.Now()
	if language == "" {
		language = "en"
	}

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return &domain.QueryResult{
			Response:  localized(emptyQueryResponses, language),
			Citations: []domain.Citation{},
			Sources:   []domain.Source{},
		}
	}

	key := cache.Key(trimmed, uc, language)
	if answer, ok := s.cache.Get(key); ok {
		s.monitor.RecordOperation(OpCacheHit, start, true, "")
		return resultFromAnswer(answer, true)
	}

	if s.monitor.ShouldUseFallback() {
		s.logger.Warn("health below floor, serving fallback answer",
			zap.String("user_id", uc.UserID))
		s.monitor.RecordOperation(OpFallback, start, true, "")
		return s.fallbackResult(language)
	}

	answer, err := s.runPipeline(ctx, trimmed, uc, language)
	if err != nil {
		s.logger.Error("query pipeline failed", zap.Error(err),
			zap.String("user_id", uc.UserID))
		s.monitor.RecordOperation(OpProcessQuery, start, false, errorKind(err))
		return s.fallbackResult(language)
	}

	// Cache store and metric recording still run when the caller has gone
	// away: the work is done and the next identical query should hit.
	s.cache.Set(key, *answer, s.cfg.Cache.TTL)
	s.monitor.RecordOperation(OpProcessQuery, start, true, "")

	return resultFromAnswer(*answer, false)
}

// runPipeline executes retrieval, scoring and generation in order.
func (s *AssistantService) runPipeline(ctx context.Context, query string, uc domain.UserContext, language string) (*domain.Answer, error) {
	retrievalStart := time.Now()
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.monitor.RecordOperation(OpRetrieval, retrievalStart, false, "embedding")
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrieval, err)
	}

	hits, err := s.retriever.Search(ctx, vector, s.cfg.RAG.TopK, s.cfg.RAG.SimilarityThreshold, scopeFilter(uc))
	if err != nil {
		s.monitor.RecordOperation(OpRetrieval, retrievalStart, false, "search")
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrieval, err)
	}
	s.monitor.RecordOperation(OpRetrieval, retrievalStart, true, "")

	results := s.scorer.Score(query, hits, uc)

	generationStart := time.Now()
	answer, err := s.generator.Generate(ctx, query, results, uc, language)
	if err != nil {
		s.monitor.RecordOperation(OpGeneration, generationStart, false, "provider")
		return nil, err
	}
	s.monitor.RecordOperation(OpGeneration, generationStart, true, "")

	return answer, nil
}

// CacheStats returns the response cache counters.
func (s *AssistantService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// PerformanceReport returns the monitor's health report.
func (s *AssistantService) PerformanceReport() monitor.Report {
	return s.monitor.Report()
}

// scopeFilter narrows retrieval to the user's current project or portfolio
// when they have opted in via the scope preference. The same scope feeds
// cache.Key, keeping scoped answers partitioned per project and portfolio.
func scopeFilter(uc domain.UserContext) domain.SearchFilter {
	var filter domain.SearchFilter
	switch kind, id := uc.Scope(); kind {
	case "project":
		filter.ProjectID = id
	case "portfolio":
		filter.PortfolioID = id
	}
	return filter
}

func (s *AssistantService) fallbackResult(language string) *domain.QueryResult {
	return &domain.QueryResult{
		Response:   localized(fallbackResponses, language),
		Citations:  []domain.Citation{},
		Sources:    []domain.Source{},
		Confidence: fallbackConfidence,
		IsFallback: true,
	}
}

func resultFromAnswer(answer domain.Answer, cached bool) *domain.QueryResult {
	result := &domain.QueryResult{
		Response:   answer.Text,
		Citations:  answer.Citations,
		Sources:    answer.Sources,
		Confidence: answer.Confidence,
		IsCached:   cached,
	}
	if result.Citations == nil {
		result.Citations = []domain.Citation{}
	}
	if result.Sources == nil {
		result.Sources = []domain.Source{}
	}
	return result
}

func localized(responses map[string]string, language string) string {
	if text, ok := responses[strings.ToLower(language)]; ok {
		return text
	}
	return responses["en"]
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrRetrieval):
		return "retrieval"
	case errors.Is(err, domain.ErrGeneration):
		return "generation"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}
