package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/askfolio/askfolio/internal/cache"
	"github.com/askfolio/askfolio/internal/config"
	"github.com/askfolio/askfolio/internal/domain"
	"github.com/askfolio/askfolio/internal/monitor"
	"github.com/askfolio/askfolio/internal/rag"
	"go.uber.org/zap"
)

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeRetriever struct {
	calls   int
	hits    []domain.SearchHit
	filters []domain.SearchFilter
	err     error
}

func (f *fakeRetriever) Search(ctx context.Context, vector []float32, topK int, threshold float64, filter domain.SearchFilter) ([]domain.SearchHit, error) {
	f.calls++
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

type fakeLLM struct {
	calls    int
	response string
	err      error
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type assistantFixture struct {
	service   *AssistantService
	embedder  *fakeEmbedder
	retriever *fakeRetriever
	llm       *fakeLLM
	cache     *cache.Cache
	monitor   *monitor.Monitor
}

func newAssistantFixture(t *testing.T) *assistantFixture {
	t.Helper()

	cfg := &config.Config{
		RAG: config.RAGConfig{
			TopK:                10,
			SimilarityThreshold: 0.3,
			MaxContextChunks:    6,
			RoleWeight:          0.35,
			PageWeight:          0.35,
			RecencyWeight:       0.30,
			RoleFloor:           0.4,
			PageFloor:           0.5,
			RecencyFloor:        0.3,
			RecencyHalfLife:     90 * 24 * time.Hour,
		},
		Cache: config.CacheConfig{MaxEntries: 100, TTL: time.Hour},
		Monitor: config.MonitorConfig{
			Window:         5 * time.Minute,
			MaxSamples:     200,
			LatencyTarget:  2 * time.Second,
			LatencyCeiling: 10 * time.Second,
			ErrorRateLimit: 0.5,
			HealthFloor:    0.4,
		},
		LLM: config.LLMConfig{MaxTokens: 1024},
	}

	logger := zap.NewNop()
	embedder := &fakeEmbedder{}
	retriever := &fakeRetriever{hits: []domain.SearchHit{
		{
			ChunkID:    "c1",
			DocumentID: "doc-1",
			Content:    "Projects are created from the dashboard via the New Project button.",
			Similarity: 0.9,
			Metadata:   map[string]string{"title": "Project Guide", "category": "projects"},
		},
	}}
	llm := &fakeLLM{response: "Use the New Project button on the dashboard [1]."}

	responseCache := cache.New(cfg.Cache, logger)
	t.Cleanup(responseCache.Close)
	perfMonitor := monitor.New(cfg.Monitor, logger)
	t.Cleanup(perfMonitor.Close)

	svc := NewAssistantService(cfg, logger, embedder, retriever,
		rag.NewScorer(cfg.RAG),
		rag.NewResponseGenerator(llm, cfg.RAG, cfg.LLM, logger),
		responseCache, perfMonitor)

	return &assistantFixture{
		service:   svc,
		embedder:  embedder,
		retriever: retriever,
		llm:       llm,
		cache:     responseCache,
		monitor:   perfMonitor,
	}
}

func testUserContext() domain.UserContext {
	return domain.UserContext{
		UserID:      "u1",
		Role:        "manager",
		CurrentPage: "projects",
	}
}

func TestProcessQuery_AnswersWithCitations(t *testing.T) {
	fx := newAssistantFixture(t)

	result := fx.service.ProcessQuery(context.Background(), "How do I create a project?", testUserContext(), "en")

	if result.IsFallback {
		t.Fatal("successful pipeline must not mark the result as fallback")
	}
	if result.IsCached {
		t.Error("first answer should not be marked as cached")
	}
	if !strings.Contains(result.Response, "[1]") {
		t.Errorf("response lost its citation: %q", result.Response)
	}
	if len(result.Citations) != 1 || result.Citations[0].Number != 1 {
		t.Errorf("citations = %+v, want single [1]", result.Citations)
	}
	if len(result.Sources) != 1 || result.Sources[0].DocumentID != "doc-1" {
		t.Errorf("sources = %+v, want doc-1", result.Sources)
	}
	if result.Confidence <= 0.3 {
		t.Errorf("confidence = %v, want above the no-context floor", result.Confidence)
	}
}

func TestProcessQuery_SecondIdenticalQueryServedFromCache(t *testing.T) {
	fx := newAssistantFixture(t)
	uc := testUserContext()

	first := fx.service.ProcessQuery(context.Background(), "How do I create a project?", uc, "en")
	second := fx.service.ProcessQuery(context.Background(), "How do I create a project?", uc, "en")

	if fx.llm.calls != 1 {
		t.Errorf("llm called %d times, want 1; cached answer must not regenerate", fx.llm.calls)
	}
	if fx.embedder.calls != 1 {
		t.Errorf("embedder called %d times, want 1", fx.embedder.calls)
	}
	if !second.IsCached {
		t.Error("second result should be marked as cached")
	}
	if second.Response != first.Response {
		t.Errorf("cached response %q differs from original %q", second.Response, first.Response)
	}
	if second.Confidence != first.Confidence {
		t.Errorf("cached confidence %v differs from original %v", second.Confidence, first.Confidence)
	}
}

func TestProcessQuery_WhitespaceQueryShortCircuits(t *testing.T) {
	fx := newAssistantFixture(t)

	result := fx.service.ProcessQuery(context.Background(), "   \n\t  ", testUserContext(), "en")

	if fx.embedder.calls != 0 || fx.retriever.calls != 0 || fx.llm.calls != 0 {
		t.Errorf("empty query must not touch the pipeline (embed %d, search %d, llm %d)",
			fx.embedder.calls, fx.retriever.calls, fx.llm.calls)
	}
	if result.Response == "" {
		t.Error("empty query still needs a user-facing response")
	}
	if result.Citations == nil || result.Sources == nil {
		t.Error("citations and sources must be empty slices, not nil")
	}
	if result.IsFallback {
		t.Error("an empty query is not a pipeline failure")
	}
}

func TestProcessQuery_DegradedHealthServesFallback(t *testing.T) {
	fx := newAssistantFixture(t)

	// Drive health below the floor before the query arrives.
	for i := 0; i < 10; i++ {
		fx.monitor.RecordOperation("process_query", time.Now().Add(-15*time.Second), i >= 8, "provider")
	}

	result := fx.service.ProcessQuery(context.Background(), "How do I create a project?", testUserContext(), "en")

	if !result.IsFallback {
		t.Fatal("degraded health must serve the fallback answer")
	}
	if result.Confidence != 0.1 {
		t.Errorf("fallback confidence = %v, want 0.1", result.Confidence)
	}
	if fx.llm.calls != 0 || fx.retriever.calls != 0 {
		t.Errorf("fallback path must skip the pipeline (search %d, llm %d)", fx.retriever.calls, fx.llm.calls)
	}

	// The serve is recorded under its own operation as a success.
	for _, op := range fx.monitor.Stats() {
		if op.Name == OpFallback {
			if op.Count != 1 || op.Errors != 0 {
				t.Errorf("fallback op stats = %+v, want one errorless sample", op)
			}
			return
		}
	}
	t.Error("fallback serve was not recorded with the monitor")
}

func TestProcessQuery_GenerationFailureFallsBack(t *testing.T) {
	fx := newAssistantFixture(t)
	fx.llm.err = errors.New("model overloaded")

	result := fx.service.ProcessQuery(context.Background(), "How do I create a project?", testUserContext(), "en")

	if !result.IsFallback {
		t.Fatal("generation failure must serve the fallback answer")
	}
	if result.Confidence != 0.1 {
		t.Errorf("fallback confidence = %v, want 0.1", result.Confidence)
	}
	if result.Response == "" {
		t.Error("fallback must carry a user-facing response")
	}
	if _, ok := fx.cache.Get(cache.Key("How do I create a project?", testUserContext(), "en")); ok {
		t.Error("fallback answers must not be cached")
	}
}

func TestProcessQuery_RetrievalFailureFallsBack(t *testing.T) {
	fx := newAssistantFixture(t)
	fx.retriever.err = errors.New("connection refused")

	result := fx.service.ProcessQuery(context.Background(), "How do I create a project?", testUserContext(), "en")

	if !result.IsFallback {
		t.Fatal("retrieval failure must serve the fallback answer")
	}
	if fx.llm.calls != 0 {
		t.Error("generation must not run after retrieval failed")
	}
}

func TestProcessQuery_FallbackLocalization(t *testing.T) {
	fx := newAssistantFixture(t)
	fx.llm.err = errors.New("model overloaded")

	es := fx.service.ProcessQuery(context.Background(), "¿Cómo creo un proyecto?", testUserContext(), "es")
	fr := fx.service.ProcessQuery(context.Background(), "Comment créer un projet ?", testUserContext(), "fr")

	if es.Response != fallbackResponses["es"] {
		t.Errorf("spanish fallback = %q", es.Response)
	}
	if fr.Response != fallbackResponses["en"] {
		t.Errorf("unsupported language should fall back to english, got %q", fr.Response)
	}
}

func TestProcessQuery_LanguageSeparatesCacheEntries(t *testing.T) {
	fx := newAssistantFixture(t)
	uc := testUserContext()

	fx.service.ProcessQuery(context.Background(), "How do I create a project?", uc, "en")
	second := fx.service.ProcessQuery(context.Background(), "How do I create a project?", uc, "de")

	if second.IsCached {
		t.Error("a different language must not hit the cache")
	}
	if fx.llm.calls != 2 {
		t.Errorf("llm called %d times, want 2", fx.llm.calls)
	}
}

func TestProcessQuery_ScopePreferenceNarrowsRetrieval(t *testing.T) {
	fx := newAssistantFixture(t)
	uc := testUserContext()
	uc.CurrentProject = "proj-42"
	uc.Preferences = map[string]string{"scope": "project"}

	fx.service.ProcessQuery(context.Background(), "What is the budget status?", uc, "en")

	if len(fx.retriever.filters) != 1 {
		t.Fatalf("retriever called %d times, want 1", len(fx.retriever.filters))
	}
	if got := fx.retriever.filters[0].ProjectID; got != "proj-42" {
		t.Errorf("filter project = %q, want proj-42", got)
	}
}

func TestProcessQuery_ScopedAnswersNotSharedAcrossProjects(t *testing.T) {
	fx := newAssistantFixture(t)

	p1 := testUserContext()
	p1.CurrentProject = "p1"
	p1.Preferences = map[string]string{"scope": "project"}
	p2 := p1
	p2.CurrentProject = "p2"

	first := fx.service.ProcessQuery(context.Background(), "What is the project budget?", p1, "en")
	second := fx.service.ProcessQuery(context.Background(), "What is the project budget?", p2, "en")

	if first.IsCached {
		t.Error("first scoped query should not be a cache hit")
	}
	if second.IsCached {
		t.Fatal("a different project scope must not be served another project's cached answer")
	}
	if fx.llm.calls != 2 {
		t.Errorf("llm called %d times, want 2; each scope needs its own generation", fx.llm.calls)
	}
	if len(fx.retriever.filters) != 2 || fx.retriever.filters[1].ProjectID != "p2" {
		t.Errorf("filters = %+v, want a dedicated p2 retrieval", fx.retriever.filters)
	}

	// The same scope, asked again, still hits.
	third := fx.service.ProcessQuery(context.Background(), "What is the project budget?", p1, "en")
	if !third.IsCached {
		t.Error("repeating the p1-scoped query should hit the cache")
	}
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{domain.ErrRetrieval, "retrieval"},
		{domain.ErrGeneration, "generation"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("boom"), "internal"},
	}
	for _, tc := range cases {
		if got := errorKind(tc.err); got != tc.want {
			t.Errorf("errorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
