// Package mapbox searches for points of interest with the Mapbox Geocoding API.
package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/venue-dedup/internal/domain"
	"github.com/couchcryptid/venue-dedup/internal/observability"
	"github.com/paulmach/orb"
	"golang.org/x/time/rate"
)

// ProviderID identifies Mapbox candidates.
const ProviderID = "mapbox"

// maxResults is the largest limit the geocoding endpoint accepts.
const maxResults = 10

// Client implements domain.PlaceSearcher using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox place-search client allowing ratePerSec requests
// per second.
func NewClient(token string, timeout time.Duration, ratePerSec float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com/geocoding/v5/mapbox.places",
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
		metrics: metrics,
		logger:  logger,
	}
}

// Provider returns "mapbox".
func (c *Client) Provider() string { return ProviderID }

// Search returns POIs matching q.Text, biased toward q.Lat/q.Lng.
func (c *Client) Search(ctx context.Context, q domain.SearchQuery) ([]domain.CandidateVenue, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("mapbox rate limit wait: %w", err)
		}
	}

	limit := q.Limit
	if limit <= 0 || limit > maxResults {
		limit = maxResults
	}

	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(q.Text))
	params := url.Values{
		"access_token": {c.token},
		"types":        {"poi"},
		"limit":        {strconv.Itoa(limit)},
		// Mapbox uses lon,lat order.
		"proximity": {fmt.Sprintf("%.6f,%.6f", q.Lng, q.Lat)},
	}

	start := time.Now()
	features, err := c.doRequest(ctx, u+"?"+params.Encode())
	c.metrics.ProviderAPIDuration.WithLabelValues(ProviderID).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues(ProviderID, "error").Inc()
		return nil, err
	}
	if len(features) == 0 {
		c.metrics.ProviderRequests.WithLabelValues(ProviderID, "empty").Inc()
		return []domain.CandidateVenue{}, nil
	}
	c.metrics.ProviderRequests.WithLabelValues(ProviderID, "success").Inc()

	out := make([]domain.CandidateVenue, 0, len(features))
	for _, f := range features {
		out = append(out, domain.CandidateVenue{
			ID:         f.ID,
			Name:       f.Text,
			Lat:        f.Center.Lat(),
			Lng:        f.Center.Lon(),
			ProviderID: ProviderID,
			Address:    f.PlaceName,
		})
	}
	c.logger.Debug("mapbox search complete", "query", q.Text, "results", len(out))
	return out, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]feature, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mapbox search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return mapboxResp.Features, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID        string    `json:"id"`
	Center    orb.Point `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
