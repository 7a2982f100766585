package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/venue-dedup/internal/domain"
	"github.com/couchcryptid/venue-dedup/internal/search"
)

const maxBodyBytes = 1 << 20

type dedupRequest struct {
	Candidates []domain.CandidateVenue `json:"candidates"`
}

type errorResponse struct {
	Error     string            `json:"error"`
	Match     *domain.Match     `json:"match,omitempty"`
	Providers map[string]string `json:"providers,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, err := parseSearchQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	res, err := s.svc.Search(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, err, res)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "geojson") {
		writeJSONType(w, http.StatusOK, "application/geo+json", res.FeatureCollection())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDedup(w http.ResponseWriter, r *http.Request) {
	var req dedupRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	res, err := s.svc.Partition(r.Context(), req.Candidates)
	if err != nil {
		s.writeServiceError(w, err, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var c domain.CandidateVenue
	if err := decodeBody(w, r, &c); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ref, err := s.svc.Import(r.Context(), c)
	if err != nil {
		s.writeServiceError(w, err, search.Result{})
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error, res search.Result) {
	var dup *search.DuplicateError
	switch {
	case errors.As(err, &dup):
		writeError(w, http.StatusConflict, errorResponse{Error: err.Error(), Match: &dup.Match})
	case errors.Is(err, search.ErrDuplicateVenue):
		writeError(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, search.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, search.ErrAllProvidersFailed):
		writeError(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Providers: res.Errors})
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func parseSearchQuery(r *http.Request) (domain.SearchQuery, error) {
	v := r.URL.Query()

	q := domain.SearchQuery{Text: strings.TrimSpace(v.Get("q"))}
	if q.Text == "" {
		return q, errors.New("q is required")
	}

	var err error
	if q.Lat, err = parseFloatParam(v.Get("lat"), "lat"); err != nil {
		return q, err
	}
	if q.Lng, err = parseFloatParam(v.Get("lng"), "lng"); err != nil {
		return q, err
	}
	if raw := v.Get("limit"); raw != "" {
		q.Limit, err = strconv.Atoi(raw)
		if err != nil || q.Limit < 0 {
			return q, fmt.Errorf("limit must be a non-negative integer, got %q", raw)
		}
	}
	return q, nil
}

func parseFloatParam(raw, name string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, raw)
	}
	return f, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, body errorResponse) {
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	writeJSONType(w, status, "application/json", v)
}

func writeJSONType(w http.ResponseWriter, status int, contentType string, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // response already committed
}
