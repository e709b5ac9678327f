// Package arxiv implements the catalog fetcher for the arXiv Atom API.
package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/papersources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "http://export.arxiv.org/api"

	// DefaultRateLimit is one request every three seconds, per the arXiv API terms.
	DefaultRateLimit = 1.0 / 3.0

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxResults is the page size requested from the catalog and its upper bound.
	MaxResults = 50

	// maxFeedBytes caps the size of a decoded feed.
	maxFeedBytes = 10 << 20

	// sourceName is the identifier used in errors and logs.
	sourceName = "arxiv"
)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv API base URL; "/query" is appended.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the number of retries on 429/5xx. Zero disables retries.
	MaxRetries int

	// MaxResults is the page size, clamped to 1..50.
	MaxResults int

	// UserAgent is sent with every request.
	UserAgent string
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize <= 0 {
		c.BurstSize = 1
	}
	if c.MaxResults <= 0 || c.MaxResults > MaxResults {
		c.MaxResults = MaxResults
	}
}

// Client fetches papers from arXiv.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.Fetcher = (*Client)(nil)

// New creates a new arXiv client with its own rate-limited HTTP client.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		BurstSize:  cfg.BurstSize,
		MaxRetries: cfg.MaxRetries,
		UserAgent:  cfg.UserAgent,
	})

	return NewWithHTTPClient(cfg, httpClient)
}

// NewWithHTTPClient creates a new arXiv client with a caller-supplied HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Name returns the catalog identifier.
func (c *Client) Name() string {
	return sourceName
}

// Fetch queries arXiv for topic and returns the entries published in or after minYear,
// in feed order. Every failure past input validation is a *domain.FetchError.
func (c *Client) Fetch(ctx context.Context, topic string, minYear int) ([]domain.Paper, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, domain.NewValidationError("topic", "must not be empty")
	}
	if minYear < domain.MinPaperYear {
		return nil, domain.NewValidationError("year", fmt.Sprintf("must be >= %d", domain.MinPaperYear))
	}

	searchURL, err := c.buildSearchURL(topic)
	if err != nil {
		return nil, domain.NewFetchError(sourceName, 0, "building search URL", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, domain.NewFetchError(sourceName, 0, "creating request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewFetchError(sourceName, 0, "executing request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.NewFetchError(sourceName, resp.StatusCode, strings.TrimSpace(string(body)), nil)
	}

	var feed Feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxFeedBytes)).Decode(&feed); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.NewFetchError(sourceName, 0, "reading response", err)
		}
		return nil, domain.NewFetchError(sourceName, 0, "decoding feed", err)
	}

	return filterEntries(feed.Entries, minYear)
}

// buildSearchURL constructs the arXiv query URL: one capped page starting at 0.
func (c *Client) buildSearchURL(topic string) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", err
	}
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"

	query := url.Values{}
	query.Set("search_query", "all:"+topic)
	query.Set("start", "0")
	query.Set("max_results", strconv.Itoa(c.config.MaxResults))
	baseURL.RawQuery = query.Encode()

	return baseURL.String(), nil
}

// filterEntries converts feed entries to papers, dropping those before minYear.
// A single malformed entry fails the whole feed.
func filterEntries(entries []Entry, minYear int) ([]domain.Paper, error) {
	papers := make([]domain.Paper, 0, len(entries))
	for i := range entries {
		paper, err := entryToPaper(&entries[i])
		if err != nil {
			return nil, domain.NewFetchError(sourceName, 0, fmt.Sprintf("entry %d", i), err)
		}
		if paper.Year < minYear {
			continue
		}
		papers = append(papers, paper)
	}
	return papers, nil
}

// entryToPaper converts an Atom entry to a Paper. Title, id and published must be
// present and non-empty; summary must be present but may be empty.
func entryToPaper(entry *Entry) (domain.Paper, error) {
	id, err := requireText("id", entry.ID, false)
	if err != nil {
		return domain.Paper{}, err
	}
	title, err := requireText("title", entry.Title, false)
	if err != nil {
		return domain.Paper{}, err
	}
	summary, err := requireText("summary", entry.Summary, true)
	if err != nil {
		return domain.Paper{}, err
	}
	published, err := requireText("published", entry.Published, false)
	if err != nil {
		return domain.Paper{}, err
	}

	// The API reports query errors as a single entry under /api/errors.
	if strings.Contains(id, "/api/errors") {
		return domain.Paper{}, fmt.Errorf("catalog error: %s", summary)
	}

	year, err := publishedYear(published)
	if err != nil {
		return domain.Paper{}, err
	}

	return domain.Paper{
		Title: title,
		Text:  summary,
		Link:  id,
		Year:  year,
	}, nil
}

func requireText(element string, value *string, allowEmpty bool) (string, error) {
	if value == nil {
		return "", fmt.Errorf("missing required element <%s>", element)
	}
	text := normalizeWhitespace(*value)
	if text == "" && !allowEmpty {
		return "", fmt.Errorf("empty required element <%s>", element)
	}
	return text, nil
}

// publishedYear takes the integer prefix of an ISO-8601 timestamp before the first '-'.
func publishedYear(published string) (int, error) {
	prefix, _, _ := strings.Cut(published, "-")
	year, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("invalid published date %q", published)
	}
	return year, nil
}

// normalizeWhitespace trims and collapses runs of whitespace, including newlines.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
