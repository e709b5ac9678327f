package llm

import (
	"fmt"
	"strings"

	"github.com/helixir/research-assistant/internal/domain"
)

// Template names a fixed generation instruction.
type Template string

// Generation templates.
const (
	TemplateAnswer      Template = "ANSWER"
	TemplateIdeas       Template = "IDEAS"
	TemplateReview      Template = "REVIEW"
	TemplateImprovement Template = "IMPROVEMENT"
	TemplateDirections  Template = "DIRECTIONS"
)

type templateSpec struct {
	instruction  string
	maxNewTokens int
	withQuery    bool
}

var templates = map[Template]templateSpec{
	TemplateIdeas: {
		instruction:  "Generate future research ideas for a review paper based on the given Context",
		maxNewTokens: 300,
	},
	TemplateReview: {
		instruction: "Create a structured review paper summarizing the research opportunities in the field of " +
			"Large Language Models (LLMs). Based on the following context, identify key trends, challenges, " +
			"gaps, and future opportunities for research.",
		maxNewTokens: 500,
	},
	TemplateImprovement: {
		instruction: "Develop an improvement plan for advancing research in Large Language Models (LLMs). " +
			"Based on the following context, identify areas for improvement, propose novel contributions, " +
			"and suggest possible research directions.",
		maxNewTokens: 500,
	},
	TemplateDirections: {
		instruction: "Based on the following context from multiple papers, combine insights to propose new and " +
			"actionable research directions in the field of Large Language Models (LLMs). Consider identifying " +
			"gaps, emerging trends, and innovative approaches that could drive the field forward.",
		maxNewTokens: 500,
	},
	TemplateAnswer: {
		instruction: "Answer the following query in a detailed manner, utilizing the context from research " +
			"papers provided below. Please provide a comprehensive explanation and include examples where applicable.",
		maxNewTokens: 700,
		withQuery:    true,
	},
}

// Templates lists every template in report order.
func Templates() []Template {
	return []Template{TemplateAnswer, TemplateIdeas, TemplateReview, TemplateImprovement, TemplateDirections}
}

// MaxNewTokens returns the output budget of t, or zero for an unknown template.
func (t Template) MaxNewTokens() int {
	return templates[t].maxNewTokens
}

// Valid reports whether t is a known template.
func (t Template) Valid() bool {
	_, ok := templates[t]
	return ok
}

// BuildPrompt renders t with context and, for ANSWER, query.
func BuildPrompt(t Template, context, query string) (string, error) {
	spec, ok := templates[t]
	if !ok {
		return "", domain.NewValidationError("template", fmt.Sprintf("unknown template %q", string(t)))
	}

	var b strings.Builder
	b.WriteString(spec.instruction)
	if spec.withQuery {
		if strings.TrimSpace(query) == "" {
			return "", domain.NewValidationError("query", "must not be empty")
		}
		b.WriteString("\nQuery: ")
		b.WriteString(query)
	}
	b.WriteString("\nContext: ")
	b.WriteString(context)
	return b.String(), nil
}
