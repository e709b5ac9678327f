package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/research"
)

// Response types for JSON serialization.

type fetchPapersResponse struct {
	Papers []domain.Paper `json:"papers"`
}

type queryPapersResponse struct {
	RelevantPapers []domain.ScoredPaper `json:"relevant_papers"`
	ResearchIdeas  string               `json:"research_ideas"`
}

type reportResponse struct {
	RelevantPapers     []domain.ScoredPaper `json:"relevant_papers"`
	Answer             string               `json:"answer"`
	ResearchIdeas      string               `json:"research_ideas"`
	ReviewSummary      string               `json:"review_summary"`
	ImprovementPlan    string               `json:"improvement_plan"`
	ResearchDirections string               `json:"research_directions"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func reportToResponse(r *research.Report) reportResponse {
	return reportResponse{
		RelevantPapers:     nonNilScored(r.RelevantPapers),
		Answer:             r.Answer,
		ResearchIdeas:      r.ResearchIdeas,
		ReviewSummary:      r.ReviewSummary,
		ImprovementPlan:    r.ImprovementPlan,
		ResearchDirections: r.ResearchDirections,
	}
}

// Empty results serialize as [] rather than null.

func nonNilPapers(p []domain.Paper) []domain.Paper {
	if p == nil {
		return []domain.Paper{}
	}
	return p
}

func nonNilScored(p []domain.ScoredPaper) []domain.ScoredPaper {
	if p == nil {
		return []domain.ScoredPaper{}
	}
	return p
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// Headers are already sent; an encode failure cannot be reported to the client.
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a {"detail": message} error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Detail: message})
}
