package retriever

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/askfolio/askfolio/internal/domain"
	"go.uber.org/zap"
)

// QdrantRetriever is a minimal REST client to a Qdrant collection. It
// assumes cosine distance and expects chunk payloads written by an external
// indexer: document_id, chunk_index, content plus the scoring metadata keys.
type QdrantRetriever struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
	logger     *zap.Logger
}

// QdrantConfig configures the Qdrant REST client.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// NewQdrantRetriever creates a Qdrant-backed retriever.
func NewQdrantRetriever(cfg QdrantConfig, logger *zap.Logger) *QdrantRetriever {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &QdrantRetriever{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type qdrantPoint struct {
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

type qdrantSearchResponse struct {
	Result []qdrantPoint `json:"result"`
	Status any           `json:"status"`
}

// Search queries the collection for the topK nearest points above threshold.
func (q *QdrantRetriever) Search(ctx context.Context, vector []float32, topK int, threshold float64, filter domain.SearchFilter) ([]domain.SearchHit, error) {
	body := map[string]any{
		"vector":          vector,
		"limit":           topK,
		"score_threshold": threshold,
		"with_payload":    true,
	}
	if must := filterConditions(filter); len(must) > 0 {
		body["filter"] = map[string]any{"must": must}
	}

	var resp qdrantSearchResponse
	url := fmt.Sprintf("%s/collections/%s/points/search", q.url, q.collection)
	if err := q.postJSON(ctx, url, body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrieval, err)
	}

	hits := make([]domain.SearchHit, 0, len(resp.Result))
	for _, point := range resp.Result {
		hit := domain.SearchHit{
			Similarity: clamp01(point.Score),
			Metadata:   map[string]string{},
		}
		for key, value := range point.Payload {
			s, ok := value.(string)
			switch key {
			case "chunk_id":
				if ok {
					hit.ChunkID = s
				}
			case "document_id":
				if ok {
					hit.DocumentID = s
				}
			case "content":
				if ok {
					hit.Content = s
				}
			case "chunk_index":
				if n, ok := value.(float64); ok {
					hit.ChunkIndex = int(n)
				}
			default:
				if ok {
					hit.Metadata[key] = s
				}
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func filterConditions(filter domain.SearchFilter) []map[string]any {
	var must []map[string]any
	add := func(key, value string) {
		if value != "" {
			must = append(must, map[string]any{
				"key":   key,
				"match": map[string]any{"value": value},
			})
		}
	}
	add("category", filter.ContentType)
	add("project_id", filter.ProjectID)
	add("portfolio_id", filter.PortfolioID)
	return must
}

func (q *QdrantRetriever) postJSON(ctx context.Context, url string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("qdrant returned %d: %s", resp.StatusCode, data)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
