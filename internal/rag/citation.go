package rag

import (
	"regexp"
	"strconv"

	"github.com/askfolio/askfolio/internal/domain"
)

// citationPattern matches bracketed integer markers like [1] or [ 12 ].
var citationPattern = regexp.MustCompile(`\[\s*(\d+)\s*\]`)

// ExtractCitations returns every distinct citation marker found in text, in
// order of first occurrence. Generation output is untrusted, so zero and
// malformed markers are dropped silently rather than reported as errors.
func ExtractCitations(text string) []domain.Citation {
	seen := make(map[int]bool)
	var citations []domain.Citation
	for _, match := range citationPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || n <= 0 {
			continue
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		citations = append(citations, domain.Citation{Number: n})
	}
	return citations
}

// ValidateCitations reports whether every citation marker in text refers to
// an index within the supplied contextual-result set. A text with no
// citations is trivially valid. Pure function, safe to run as a
// post-generation check against the exact result list placed in the prompt.
func ValidateCitations(text string, results []domain.ContextualResult) bool {
	for _, c := range ExtractCitations(text) {
		if c.Number > len(results) {
			return false
		}
	}
	return true
}
