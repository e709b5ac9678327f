package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/observability"
	"github.com/helixir/research-assistant/internal/store"
)

// Validation constants.
const (
	maxQueryLength     = 4096
	maxTopK            = 50
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
)

// credentialsRequest is the optional per-request store override. Every field is optional.
type credentialsRequest struct {
	URI      string `json:"uri"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *credentialsRequest) toStore() *store.Credentials {
	if c == nil {
		return nil
	}
	return &store.Credentials{
		URI:      strings.TrimSpace(c.URI),
		Username: strings.TrimSpace(c.Username),
		Password: c.Password,
	}
}

// fetchPapersRequest is the JSON request body for POST /fetch_papers/.
type fetchPapersRequest struct {
	Topic            string              `json:"topic" validate:"required"`
	Year             int                 `json:"year" validate:"required,min=1900,notfuture"`
	StoreCredentials *credentialsRequest `json:"store_credentials,omitempty"`
}

// queryPapersRequest is the JSON request body for POST /query_papers/ and
// POST /research_report/.
type queryPapersRequest struct {
	UserQuery        string              `json:"user_query" validate:"required,max=4096"`
	TopK             int                 `json:"top_k" validate:"min=0,max=50"`
	StoreCredentials *credentialsRequest `json:"store_credentials,omitempty"`
}

// fetchPapers handles POST /fetch_papers/.
func (s *Server) fetchPapers(w http.ResponseWriter, r *http.Request) {
	var req fetchPapersRequest
	if !s.decodeAndValidate(w, r, &req, func() { req.Topic = strings.TrimSpace(req.Topic) }) {
		return
	}

	papers, err := s.service.FetchPapers(r.Context(), req.Topic, req.Year, req.StoreCredentials.toStore())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, fetchPapersResponse{Papers: nonNilPapers(papers)})
}

// queryPapers handles POST /query_papers/.
func (s *Server) queryPapers(w http.ResponseWriter, r *http.Request) {
	var req queryPapersRequest
	if !s.decodeAndValidate(w, r, &req, func() { req.UserQuery = strings.TrimSpace(req.UserQuery) }) {
		return
	}

	result, err := s.service.QueryPapers(r.Context(), req.UserQuery, req.TopK, req.StoreCredentials.toStore())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, queryPapersResponse{
		RelevantPapers: nonNilScored(result.RelevantPapers),
		ResearchIdeas:  result.ResearchIdeas,
	})
}

// researchReport handles POST /research_report/.
func (s *Server) researchReport(w http.ResponseWriter, r *http.Request) {
	var req queryPapersRequest
	if !s.decodeAndValidate(w, r, &req, func() { req.UserQuery = strings.TrimSpace(req.UserQuery) }) {
		return
	}

	report, err := s.service.Report(r.Context(), req.UserQuery, req.TopK, req.StoreCredentials.toStore())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reportToResponse(report))
}

// decodeAndValidate reads a size-limited JSON body into dst, applies normalize and
// validates the result, writing a 400 response on failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any, normalize func()) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}

	if normalize != nil {
		normalize()
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, validationMessage(verrs[0]))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

// newValidator returns a validator that reports JSON field names and knows the
// notfuture tag.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// RegisterValidation only fails on an empty tag or a nil func.
	_ = v.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() <= int64(time.Now().Year())
	})
	return v
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "notfuture":
		return fmt.Sprintf("%s must not be in the future", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// writeDomainError maps a domain error to an HTTP error response.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	logger := observability.LoggerFromContext(r.Context(), s.logger)
	status, detail := classifyError(err)

	var event *zerolog.Event
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	} else {
		event = logger.Debug()
	}
	event.Err(err).Int("status", status).Str("path", r.URL.Path).Msg("request failed")

	writeError(w, status, detail)
}

// classifyError returns the status code and client-facing detail for err.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return http.StatusBadRequest, ve.Error()
		}
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrConfig):
		return http.StatusInternalServerError, "server configuration error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	case errors.Is(err, domain.ErrFetch):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, domain.ErrStore):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, domain.ErrEmbedding), errors.Is(err, domain.ErrGeneration):
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
