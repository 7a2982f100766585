package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/venue-dedup/internal/domain"
	"github.com/couchcryptid/venue-dedup/internal/observability"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

var sydney = domain.SearchQuery{Text: "circular quay", Lat: -33.8615, Lng: 151.2108, Limit: 5}

func TestClient_Search_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "circular quay")
		assert.Equal(t, "poi", r.URL.Query().Get("types"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "151.210800,-33.861500", r.URL.Query().Get("proximity"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))

		resp := response{
			Features: []feature{
				{
					ID:        "poi.558345",
					Center:    orb.Point{151.2108, -33.8615},
					PlaceName: "Circular Quay, Sydney NSW 2000, Australia",
					Text:      "Circular Quay",
					Relevance: 1,
				},
				{
					ID:        "poi.1202",
					Center:    orb.Point{151.2140, -33.8572},
					PlaceName: "Opera Bar, Macquarie St, Sydney NSW 2000, Australia",
					Text:      "Opera Bar",
					Relevance: 0.9,
				},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	results, err := c.Search(context.Background(), sydney)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, domain.CandidateVenue{
		ID:         "poi.558345",
		Name:       "Circular Quay",
		Lat:        -33.8615,
		Lng:        151.2108,
		ProviderID: "mapbox",
		Address:    "Circular Quay, Sydney NSW 2000, Australia",
	}, results[0])
	assert.Equal(t, "Opera Bar", results[1].Name)
}

func TestClient_Search_DecodesRawCenter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[{"id":"poi.1","text":"Bills","center":[151.216,-33.883]}]}`))
	}))
	defer srv.Close()

	results, err := testClient(srv.URL).Search(context.Background(), sydney)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, -33.883, results[0].Lat)
	assert.Equal(t, 151.216, results[0].Lng)
}

func TestClient_Search_DefaultLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{}}))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Search(context.Background(), domain.SearchQuery{Text: "bills", Limit: 50})
	require.NoError(t, err)
}

func TestClient_Search_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{}}))
	}))
	defer srv.Close()

	results, err := testClient(srv.URL).Search(context.Background(), sydney)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestClient_Search_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized - Invalid Token"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.token = "bad-token"

	_, err := c.Search(context.Background(), sydney)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_Search_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	_, err := c.Search(context.Background(), sydney)
	require.Error(t, err)
}

func TestClient_Search_RateLimitHonoursContext(t *testing.T) {
	c := testClient("http://127.0.0.1:0")
	c.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	require.True(t, c.limiter.Allow(), "drain the single burst token")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Search(ctx, sydney)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestClient_Provider(t *testing.T) {
	assert.Equal(t, "mapbox", testClient("").Provider())
}
