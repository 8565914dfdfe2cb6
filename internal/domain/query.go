package domain

// UserContext captures the situational context of the asking user.
// It is immutable for the duration of a request and feeds both contextual
// scoring and cache-key derivation.
type UserContext struct {
	UserID           string            `json:"user_id"`
	Role             string            `json:"role"`
	CurrentPage      string            `json:"current_page"`
	CurrentProject   string            `json:"current_project,omitempty"`
	CurrentPortfolio string            `json:"current_portfolio,omitempty"`
	Preferences      map[string]string `json:"preferences,omitempty"`
}

// Scope returns the retrieval scope the user opted into via the scope
// preference: ("project", CurrentProject), ("portfolio", CurrentPortfolio),
// or empty strings when unscoped. Cache keying and retrieval filtering must
// agree on this, so both derive it here.
func (uc UserContext) Scope() (kind, id string) {
	switch uc.Preferences["scope"] {
	case "project":
		return "project", uc.CurrentProject
	case "portfolio":
		return "portfolio", uc.CurrentPortfolio
	}
	return "", ""
}

// SearchHit is a raw similarity-search result from the vector retriever.
// Similarity is in [0,1]; hits are read-only input to the pipeline.
type SearchHit struct {
	ChunkID    string            `json:"chunk_id"`
	DocumentID string            `json:"document_id"`
	ChunkIndex int               `json:"chunk_index"`
	Content    string            `json:"content"`
	Similarity float64           `json:"similarity"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ContextualResult is a SearchHit re-scored against the user's situation.
// ContextualScore is the sole ranking key passed to generation; the three
// relevance components are each bounded in (0,1].
type ContextualResult struct {
	SearchHit
	ContextualScore float64 `json:"contextual_score"`
	RoleRelevance   float64 `json:"role_relevance"`
	PageRelevance   float64 `json:"page_relevance"`
	RecencyScore    float64 `json:"recency_score"`
}

// SearchFilter narrows retrieval to a content type or business scope.
// Zero-value fields mean "no filter".
type SearchFilter struct {
	ContentType string
	ProjectID   string
	PortfolioID string
}
