package retriever

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/askfolio/askfolio/internal/domain"
	"github.com/askfolio/askfolio/internal/repository"
	"go.uber.org/zap"
)

type corpusDoc struct {
	doc    domain.Document
	chunks []domain.Chunk
}

func newTestRetriever(t *testing.T, corpus []corpusDoc) *SQLiteRetriever {
	t.Helper()

	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	docRepo := repository.NewDocumentRepository(db)
	chunkRepo := repository.NewChunkRepository(db)

	for i := range corpus {
		if err := docRepo.Create(&corpus[i].doc); err != nil {
			t.Fatalf("create document failed: %v", err)
		}
		for j := range corpus[i].chunks {
			corpus[i].chunks[j].DocumentID = corpus[i].doc.ID
		}
		if err := chunkRepo.CreateBatch(corpus[i].chunks); err != nil {
			t.Fatalf("create chunks failed: %v", err)
		}
	}

	r, err := NewSQLiteRetriever(chunkRepo, docRepo, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to build retriever: %v", err)
	}
	return r
}

func TestSQLiteRetriever_RanksBySimilarity(t *testing.T) {
	r := newTestRetriever(t, []corpusDoc{{
		doc: domain.Document{Title: "Guide", Category: "projects"},
		chunks: []domain.Chunk{
			{Index: 0, Content: "exact", Embedding: []float32{1, 0, 0}},
			{Index: 1, Content: "close", Embedding: []float32{0.9, 0.1, 0}},
			{Index: 2, Content: "orthogonal", Embedding: []float32{0, 0, 1}},
		},
	}})

	hits, err := r.Search(context.Background(), []float32{1, 0, 0}, 10, 0.5, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2 above the threshold", len(hits))
	}
	if hits[0].Content != "exact" || hits[1].Content != "close" {
		t.Errorf("order = %q, %q; want exact then close", hits[0].Content, hits[1].Content)
	}
	if hits[0].Similarity < 0.999 {
		t.Errorf("identical vectors similarity = %v, want ~1", hits[0].Similarity)
	}
	if hits[0].Metadata["title"] != "Guide" || hits[0].Metadata["category"] != "projects" {
		t.Errorf("hit metadata = %v, want document title and category", hits[0].Metadata)
	}
}

func TestSQLiteRetriever_TopKBound(t *testing.T) {
	chunks := make([]domain.Chunk, 8)
	for i := range chunks {
		chunks[i] = domain.Chunk{Index: i, Content: "c", Embedding: []float32{1, float32(i) * 0.01}}
	}
	r := newTestRetriever(t, []corpusDoc{{doc: domain.Document{Title: "Guide"}, chunks: chunks}})

	hits, err := r.Search(context.Background(), []float32{1, 0}, 3, 0, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 3 {
		t.Errorf("got %d hits, want topK = 3", len(hits))
	}
}

func TestSQLiteRetriever_EmptyResultIsNotAnError(t *testing.T) {
	r := newTestRetriever(t, []corpusDoc{{
		doc:    domain.Document{Title: "Guide"},
		chunks: []domain.Chunk{{Index: 0, Content: "c", Embedding: []float32{0, 1}}},
	}})

	hits, err := r.Search(context.Background(), []float32{1, 0}, 10, 0.5, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("got %d hits, want none above the threshold", len(hits))
	}
}

func TestSQLiteRetriever_ScopeFilter(t *testing.T) {
	r := newTestRetriever(t, []corpusDoc{
		{
			doc:    domain.Document{Title: "A", ProjectID: "proj-1"},
			chunks: []domain.Chunk{{Index: 0, Content: "in scope", Embedding: []float32{1, 0}}},
		},
		{
			doc:    domain.Document{Title: "B", ProjectID: "proj-2"},
			chunks: []domain.Chunk{{Index: 0, Content: "out of scope", Embedding: []float32{1, 0}}},
		},
	})

	hits, err := r.Search(context.Background(), []float32{1, 0}, 10, 0,
		domain.SearchFilter{ProjectID: "proj-1"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].Content != "in scope" {
		t.Errorf("hits = %+v, want only the proj-1 chunk", hits)
	}
}

func TestSQLiteRetriever_CancelledContext(t *testing.T) {
	r := newTestRetriever(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Search(ctx, []float32{1, 0}, 10, 0, domain.SearchFilter{}); err == nil {
		t.Error("search with a cancelled context should fail")
	}
}

func TestSQLiteRetriever_RefreshPicksUpNewChunks(t *testing.T) {
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	docRepo := repository.NewDocumentRepository(db)
	chunkRepo := repository.NewChunkRepository(db)

	r, err := NewSQLiteRetriever(chunkRepo, docRepo, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to build retriever: %v", err)
	}

	doc := &domain.Document{Title: "Guide"}
	if err := docRepo.Create(doc); err != nil {
		t.Fatalf("create document failed: %v", err)
	}
	if err := chunkRepo.CreateBatch([]domain.Chunk{
		{DocumentID: doc.ID, Index: 0, Content: "new", Embedding: []float32{1, 0}},
	}); err != nil {
		t.Fatalf("create chunks failed: %v", err)
	}

	hits, _ := r.Search(context.Background(), []float32{1, 0}, 10, 0, domain.SearchFilter{})
	if len(hits) != 0 {
		t.Fatal("chunks ingested after load should be invisible before refresh")
	}

	if err := r.Refresh(); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	hits, _ = r.Search(context.Background(), []float32{1, 0}, 10, 0, domain.SearchFilter{})
	if len(hits) != 1 {
		t.Errorf("got %d hits after refresh, want 1", len(hits))
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []float32
		want    float64
		wantErr bool
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite clamps to zero", a: []float32{1, 0}, b: []float32{-1, 0}, want: 0},
		{name: "scaling invariant", a: []float32{1, 1}, b: []float32{5, 5}, want: 1},
		{name: "length mismatch", a: []float32{1, 0}, b: []float32{1, 0, 0}, wantErr: true},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cosineSimilarity(tt.a, tt.b)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("similarity = %v, want %v", got, tt.want)
			}
		})
	}
}
