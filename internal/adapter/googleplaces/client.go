// Package googleplaces searches for venues with the Google Places Text Search API.
package googleplaces

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/venue-dedup/internal/domain"
	"github.com/couchcryptid/venue-dedup/internal/observability"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// ProviderID identifies Google Places candidates. Place ids are globally
// unique, so this provider is normally configured to keep them verbatim.
const ProviderID = "google"

// searchRadiusMeters biases results toward the query location.
const searchRadiusMeters = "1000"

// Client implements domain.PlaceSearcher using the Google Places API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Google Places client allowing ratePerSec requests per second.
func NewClient(apiKey string, timeout time.Duration, ratePerSec float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://maps.googleapis.com/maps/api/place/textsearch/json",
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
		metrics: metrics,
		logger:  logger,
	}
}

// Provider returns "google".
func (c *Client) Provider() string { return ProviderID }

// Search runs a text search for q.Text around q.Lat/q.Lng.
func (c *Client) Search(ctx context.Context, q domain.SearchQuery) ([]domain.CandidateVenue, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("google places rate limit wait: %w", err)
		}
	}

	params := url.Values{
		"query":    {q.Text},
		"location": {fmt.Sprintf("%.6f,%.6f", q.Lat, q.Lng)},
		"radius":   {searchRadiusMeters},
		"key":      {c.apiKey},
	}

	start := time.Now()
	body, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.ProviderAPIDuration.WithLabelValues(ProviderID).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues(ProviderID, "error").Inc()
		return nil, err
	}

	out, err := parseResults(body, q.Limit)
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues(ProviderID, "error").Inc()
		return nil, err
	}
	if len(out) == 0 {
		c.metrics.ProviderRequests.WithLabelValues(ProviderID, "empty").Inc()
	} else {
		c.metrics.ProviderRequests.WithLabelValues(ProviderID, "success").Inc()
	}
	c.logger.Debug("google places search complete", "query", q.Text, "results", len(out))
	return out, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google places request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google places API error: status %d: %s", resp.StatusCode, body)
	}
	return body, nil
}

// parseResults extracts candidates from a Text Search response body. The API
// reports failures in a "status" field on an HTTP 200 response.
func parseResults(body []byte, limit int) ([]domain.CandidateVenue, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("decode response: invalid JSON")
	}

	status := gjson.GetBytes(body, "status").String()
	switch status {
	case "OK", "ZERO_RESULTS":
	default:
		msg := gjson.GetBytes(body, "error_message").String()
		return nil, fmt.Errorf("google places API status %s: %s", status, msg)
	}

	results := gjson.GetBytes(body, "results").Array()
	out := make([]domain.CandidateVenue, 0, len(results))
	for _, r := range results {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, domain.CandidateVenue{
			ID:         r.Get("place_id").String(),
			Name:       r.Get("name").String(),
			Lat:        r.Get("geometry.location.lat").Float(),
			Lng:        r.Get("geometry.location.lng").Float(),
			ProviderID: ProviderID,
			Address:    r.Get("formatted_address").String(),
		})
	}
	return out, nil
}
