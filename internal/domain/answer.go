package domain

import "time"

// Citation is an in-text marker referencing a numbered source.
type Citation struct {
	Number int `json:"number"`
}

// Source is the public-safe projection of a contextual result. It carries a
// short content preview, never the raw internal chunk metadata.
type Source struct {
	Number     int     `json:"number"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Preview    string  `json:"preview"`
	Score      float64 `json:"score"`
}

// Answer is the structured output of the response generator. Once returned
// it is treated as an immutable value.
type Answer struct {
	Text           string     `json:"text"`
	Citations      []Citation `json:"citations"`
	Sources        []Source   `json:"sources"`
	Confidence     float64    `json:"confidence"`
	CitationsValid bool       `json:"citations_valid"`
	Language       string     `json:"language"`
	GeneratedAt    time.Time  `json:"generated_at"`
}

// QueryResult is the answer-shaped response the assistant returns to
// callers on every path, including fallback and empty-query paths.
type QueryResult struct {
	Response   string     `json:"response"`
	Citations  []Citation `json:"citations"`
	Sources    []Source   `json:"sources"`
	Confidence float64    `json:"confidence"`
	IsCached   bool       `json:"is_cached"`
	IsFallback bool       `json:"is_fallback"`
}
