// Package domain provides the paper model and the error kinds shared by every component
// of the research assistant.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// MinPaperYear is the earliest publication year accepted for a stored paper.
const MinPaperYear = 1900

// Paper is a catalog entry as persisted by the paper store.
// Text holds the abstract; it may be empty when the upstream entry had none.
type Paper struct {
	Title string `json:"title"`
	Text  string `json:"summary"`
	Link  string `json:"link"`
	Year  int    `json:"year"`
}

// Validate checks the invariants required before a paper is written or returned.
func (p Paper) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return NewValidationError("title", "must not be empty")
	}
	if p.Year < MinPaperYear {
		return NewValidationError("year", "must be >= "+strconv.Itoa(MinPaperYear))
	}
	return nil
}

// Fingerprint returns a hex SHA-256 digest over all four fields. Each field is
// length-prefixed, so two papers share a fingerprint only when every field is
// byte-identical.
func (p Paper) Fingerprint() string {
	h := sha256.New()
	for _, field := range []string{p.Title, p.Text, p.Link, strconv.Itoa(p.Year)} {
		h.Write([]byte(strconv.Itoa(len(field))))
		h.Write([]byte{':'})
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ScoredPaper is a paper annotated with its similarity to a query. It is computed
// per query and never persisted.
type ScoredPaper struct {
	Title      string  `json:"title"`
	Text       string  `json:"summary"`
	Link       string  `json:"link"`
	Year       int     `json:"year"`
	Similarity float64 `json:"similarity"`
}

// NewScoredPaper pairs a paper with its similarity score.
func NewScoredPaper(p Paper, similarity float64) ScoredPaper {
	return ScoredPaper{
		Title:      p.Title,
		Text:       p.Text,
		Link:       p.Link,
		Year:       p.Year,
		Similarity: similarity,
	}
}
