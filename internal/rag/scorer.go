package rag

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/askfolio/askfolio/internal/config"
	"github.com/askfolio/askfolio/internal/domain"
)

// Chunk metadata keys written at ingest time and read during scoring
const (
	MetadataKeyTitle     = "title"
	MetadataKeyCategory  = "category"
	MetadataKeyRoles     = "roles"
	MetadataKeyUpdatedAt = "updated_at"
)

// pageCategories maps an application page to the document categories that
// belong to its domain area.
var pageCategories = map[string][]string{
	"dashboard":  {"general", "reporting"},
	"projects":   {"projects"},
	"portfolios": {"portfolios", "projects"},
	"financials": {"financials"},
	"reports":    {"reporting", "financials"},
	"settings":   {"admin", "general"},
}

// Scorer combines raw vector similarity with situational relevance signals
// into a single contextual score per hit. Similarity stays the dominant
// multiplicative term: a contextually perfect but semantically unrelated hit
// cannot outrank a strong semantic match.
type Scorer struct {
	cfg config.RAGConfig
	now func() time.Time
}

// NewScorer creates a contextual scorer from RAG configuration.
func NewScorer(cfg config.RAGConfig) *Scorer {
	return &Scorer{cfg: cfg, now: time.Now}
}

// Score re-ranks hits against the user's situation and returns them sorted
// by contextual score descending. Retrieval order breaks ties. An empty hit
// list yields an empty result list, not an error.
func (s *Scorer) Score(query string, hits []domain.SearchHit, uc domain.UserContext) []domain.ContextualResult {
	results := make([]domain.ContextualResult, 0, len(hits))
	for _, hit := range hits {
		role := s.roleRelevance(hit, uc)
		page := s.pageRelevance(hit, uc)
		recency := s.recencyScore(hit)

		combined := s.cfg.RoleWeight*role + s.cfg.PageWeight*page + s.cfg.RecencyWeight*recency

		results = append(results, domain.ContextualResult{
			SearchHit:       hit,
			ContextualScore: hit.Similarity * combined,
			RoleRelevance:   role,
			PageRelevance:   page,
			RecencyScore:    recency,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ContextualScore > results[j].ContextualScore
	})

	return results
}

// roleRelevance is 1.0 when the chunk is role-agnostic or tagged with the
// user's role, and the configured floor otherwise. Never zero: content for
// another role is still partially useful.
func (s *Scorer) roleRelevance(hit domain.SearchHit, uc domain.UserContext) float64 {
	tags := strings.TrimSpace(hit.Metadata[MetadataKeyRoles])
	if tags == "" || strings.EqualFold(tags, "all") {
		return 1.0
	}
	for _, tag := range strings.Split(tags, ",") {
		if strings.EqualFold(strings.TrimSpace(tag), uc.Role) {
			return 1.0
		}
	}
	return s.cfg.RoleFloor
}

// pageRelevance is 1.0 when the chunk's category belongs to the current
// page's domain area, a midpoint for uncategorized content, and the floor
// otherwise so unrelated-but-similar content is not discarded outright.
func (s *Scorer) pageRelevance(hit domain.SearchHit, uc domain.UserContext) float64 {
	category := strings.ToLower(strings.TrimSpace(hit.Metadata[MetadataKeyCategory]))
	if category == "" || category == "general" {
		return s.cfg.PageFloor + (1.0-s.cfg.PageFloor)/2
	}
	for _, c := range pageCategories[strings.ToLower(strings.TrimSpace(uc.CurrentPage))] {
		if c == category {
			return 1.0
		}
	}
	return s.cfg.PageFloor
}

// recencyScore decays exponentially with document age towards the configured
// floor. Content never fully expires from consideration. Chunks without a
// parseable timestamp are scored neutrally.
func (s *Scorer) recencyScore(hit domain.SearchHit) float64 {
	raw := hit.Metadata[MetadataKeyUpdatedAt]
	if raw == "" {
		return 0.7
	}
	updated, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0.7
	}
	age := s.now().Sub(updated)
	if age <= 0 {
		return 1.0
	}
	decay := math.Pow(0.5, float64(age)/float64(s.cfg.RecencyHalfLife))
	return s.cfg.RecencyFloor + (1.0-s.cfg.RecencyFloor)*decay
}
