package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/askfolio/askfolio/internal/config"
	"github.com/askfolio/askfolio/internal/domain"
	"go.uber.org/zap"
)

const answerInstruction = "You are the AskFolio assistant. Answer the user's question using only the numbered context passages below. " +
	"Cite passages with bracketed numbers like [1] immediately after the statement they support. " +
	"If the context does not contain the answer, say so clearly. Do not make up information."

const previewLength = 160

// ResponseGenerator builds the generation prompt from ranked context,
// invokes the text-generation provider exactly once, and packages the
// structured answer. Retry policy lives at the orchestration layer.
type ResponseGenerator struct {
	llm    domain.Generator
	cfg    config.RAGConfig
	llmCfg config.LLMConfig
	logger *zap.Logger
}

// NewResponseGenerator creates a response generator.
func NewResponseGenerator(llm domain.Generator, cfg config.RAGConfig, llmCfg config.LLMConfig, logger *zap.Logger) *ResponseGenerator {
	return &ResponseGenerator{llm: llm, cfg: cfg, llmCfg: llmCfg, logger: logger}
}

// Generate answers the query from the ranked contextual results. On provider
// failure it returns an error, never a fabricated low-confidence answer;
// choosing a fallback is the orchestrator's call.
func (g *ResponseGenerator) Generate(ctx context.Context, query string, results []domain.ContextualResult, uc domain.UserContext, language string) (*domain.Answer, error) {
	// Only the chunks that actually enter the prompt count for citation
	// validation and the sources projection.
	used := results
	if len(used) > g.cfg.MaxContextChunks {
		used = used[:g.cfg.MaxContextChunks]
	}

	prompt := g.buildPrompt(query, used, uc, language)

	text, err := g.llm.Complete(ctx, prompt, g.llmCfg.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}

	citations := ExtractCitations(text)
	valid := ValidateCitations(text, used)
	if !valid {
		g.logger.Warn("generated text cites out-of-range sources",
			zap.Int("sources", len(used)),
			zap.Int("citations", len(citations)))
	}

	return &domain.Answer{
		Text:           text,
		Citations:      citations,
		Sources:        projectSources(used),
		Confidence:     confidence(used, valid),
		CitationsValid: valid,
		Language:       language,
		GeneratedAt:    time.Now(),
	}, nil
}

func (g *ResponseGenerator) buildPrompt(query string, used []domain.ContextualResult, uc domain.UserContext, language string) string {
	var b strings.Builder
	b.WriteString(answerInstruction)
	b.WriteString("\n\n")

	if uc.Role != "" {
		b.WriteString(fmt.Sprintf("The user's role is %s.\n", uc.Role))
	}
	if uc.CurrentPage != "" {
		b.WriteString(fmt.Sprintf("The user is currently on the %s page.\n", uc.CurrentPage))
	}
	if language != "" && !strings.EqualFold(language, "en") {
		b.WriteString(fmt.Sprintf("Answer in language code %q.\n", language))
	}

	if len(used) > 0 {
		b.WriteString("\n--- CONTEXT START ---\n")
		for i, r := range used {
			b.WriteString(fmt.Sprintf("[%d] %s\n\n", i+1, strings.TrimSpace(r.Content)))
		}
		b.WriteString("--- CONTEXT END ---\n")
	} else {
		b.WriteString("\nNo relevant context passages were found for this question.\n")
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	return b.String()
}

// projectSources turns internal contextual results into the public-safe
// source shape, positionally aligned with the prompt numbering.
func projectSources(used []domain.ContextualResult) []domain.Source {
	sources := make([]domain.Source, len(used))
	for i, r := range used {
		title := r.Metadata[MetadataKeyTitle]
		if title == "" {
			title = r.DocumentID
		}
		sources[i] = domain.Source{
			Number:     i + 1,
			DocumentID: r.DocumentID,
			Title:      title,
			Preview:    preview(r.Content),
			Score:      r.ContextualScore,
		}
	}
	return sources
}

// confidence is derived from the strength of the context actually used.
// Invalid citation bookkeeping lowers it without zeroing it, since the text
// may still be useful.
func confidence(used []domain.ContextualResult, citationsValid bool) float64 {
	conf := 0.3
	if len(used) > 0 {
		var sum float64
		for _, r := range used {
			sum += r.ContextualScore
		}
		conf = 0.35 + 0.6*(sum/float64(len(used)))
		if conf > 0.95 {
			conf = 0.95
		}
	}
	if !citationsValid {
		conf *= 0.6
	}
	return conf
}

func preview(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= previewLength {
		return string(runes)
	}
	return string(runes[:previewLength]) + "..."
}
