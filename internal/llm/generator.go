package llm

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/observability"
)

// Generation defaults.
const (
	DefaultMaxInputTokens = 512
	DefaultNumBeams       = 5
)

// GeneratorConfig configures a Generator.
type GeneratorConfig struct {
	// MaxInputTokens bounds the rendered prompt. Non-positive uses DefaultMaxInputTokens.
	MaxInputTokens int
	// NumBeams is the beam width. Non-positive uses DefaultNumBeams.
	NumBeams int
}

// Generator renders templates and completes them with a Provider.
type Generator struct {
	provider       Provider
	maxInputTokens int
	numBeams       int
	metrics        *observability.Metrics
	logger         zerolog.Logger
}

// NewGenerator creates a Generator. metrics may be nil.
func NewGenerator(provider Provider, cfg GeneratorConfig, metrics *observability.Metrics, logger zerolog.Logger) *Generator {
	if cfg.MaxInputTokens <= 0 {
		cfg.MaxInputTokens = DefaultMaxInputTokens
	}
	if cfg.NumBeams <= 0 {
		cfg.NumBeams = DefaultNumBeams
	}
	return &Generator{
		provider:       provider,
		maxInputTokens: cfg.MaxInputTokens,
		numBeams:       cfg.NumBeams,
		metrics:        metrics,
		logger:         observability.WithComponent(logger, "generator"),
	}
}

// Generate renders tmpl, truncates the prompt and returns the decoded text.
// Provider failures are returned as *domain.GenerationError.
func (g *Generator) Generate(ctx context.Context, tmpl Template, context, query string) (string, error) {
	prompt, err := BuildPrompt(tmpl, context, query)
	if err != nil {
		return "", err
	}
	prompt = truncatePrompt(prompt, g.maxInputTokens)

	start := time.Now()
	text, err := g.provider.Complete(ctx, CompletionRequest{
		Prompt:       prompt,
		MaxNewTokens: tmpl.MaxNewTokens(),
		NumBeams:     g.numBeams,
		EarlyStop:    true,
	})
	elapsed := time.Since(start)
	g.metrics.RecordGeneration(string(tmpl), elapsed, err)

	if err != nil {
		g.logger.Warn().Err(err).
			Str("template", string(tmpl)).
			Str("provider", g.provider.Name()).
			Dur("duration", elapsed).
			Msg("generation failed")
		if errors.Is(err, domain.ErrGeneration) {
			return "", err
		}
		return "", domain.NewGenerationError(g.provider.Name(), string(tmpl), "completion failed", err)
	}

	g.logger.Debug().
		Str("template", string(tmpl)).
		Dur("duration", elapsed).
		Int("output_chars", len(text)).
		Msg("generation completed")

	return strings.TrimSpace(text), nil
}

// ProviderName returns the name of the underlying provider.
func (g *Generator) ProviderName() string {
	return g.provider.Name()
}

// truncatePrompt cuts prompt after its maxTokens-th whitespace-delimited token.
// The kept prefix is returned byte for byte, so template line breaks survive.
func truncatePrompt(prompt string, maxTokens int) string {
	if maxTokens <= 0 {
		return prompt
	}
	count := 0
	inToken := false
	for i, r := range prompt {
		if !unicode.IsSpace(r) {
			inToken = true
			continue
		}
		if inToken {
			count++
			if count == maxTokens {
				return prompt[:i]
			}
			inToken = false
		}
	}
	return prompt
}
