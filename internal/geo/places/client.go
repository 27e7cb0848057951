// Package places provides a Google Maps Platform client for geocoding
// and nearby transit-station search.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/flyerdeck/flyerdeck/internal/geo"
	"github.com/flyerdeck/flyerdeck/internal/provider/resilience"
)

const (
	// ProviderName identifies this places provider.
	ProviderName = "googleplaces"

	// DefaultBaseURL is the Maps Platform web-service base URL.
	DefaultBaseURL = "https://maps.googleapis.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the places client.
type ClientConfig struct {
	// APIKey is the Maps Platform API key (required).
	APIKey string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Maps Platform geocoding and nearby-search client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new places client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		if cfg.Registry != nil {
			clientCfg.Registry = cfg.Registry
		}
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Geocode resolves a free-form address to coordinates.
func (c *Client) Geocode(ctx context.Context, address string) (geo.Coordinate, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("language", "ja")
	params.Set("key", c.apiKey)

	var resp geocodeResponse
	if err := c.get(ctx, "/maps/api/geocode/json", params, &resp); err != nil {
		return geo.Coordinate{}, err
	}

	if resp.Status == "ZERO_RESULTS" || len(resp.Results) == 0 {
		return geo.Coordinate{}, &geo.Error{
			Provider: ProviderName,
			Code:     resp.Status,
			Message:  fmt.Sprintf("no geocode result for %q", address),
			Err:      geo.ErrAddressNotFound,
		}
	}
	if resp.Status != "OK" {
		return geo.Coordinate{}, &geo.Error{
			Provider: ProviderName,
			Code:     resp.Status,
			Message:  "geocoding failed: " + resp.ErrorMessage,
		}
	}

	loc := resp.Results[0].Geometry.Location
	return geo.Coordinate{Lat: loc.Lat, Lon: loc.Lng}, nil
}

// NearbyStations returns train stations near the origin, closest first.
// The rank-by-distance search has no radius parameter, so results past
// the radius are filtered out here.
func (c *Client) NearbyStations(ctx context.Context, origin geo.Coordinate, radiusMeters int) ([]geo.Place, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", origin.Lat, origin.Lon))
	params.Set("rankby", "distance")
	params.Set("type", "train_station")
	params.Set("language", "ja")
	params.Set("key", c.apiKey)

	var resp nearbyResponse
	if err := c.get(ctx, "/maps/api/place/nearbysearch/json", params, &resp); err != nil {
		return nil, err
	}

	if resp.Status != "OK" && resp.Status != "ZERO_RESULTS" {
		return nil, &geo.Error{
			Provider: ProviderName,
			Code:     resp.Status,
			Message:  "nearby search failed: " + resp.ErrorMessage,
		}
	}

	stations := make([]geo.Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		loc := geo.Coordinate{Lat: r.Geometry.Location.Lat, Lon: r.Geometry.Location.Lng}
		if geo.HaversineMeters(origin, loc) > float64(radiusMeters) {
			continue
		}
		stations = append(stations, geo.Place{Name: r.Name, Location: loc})
	}

	c.logger.Debug().
		Int("results", len(resp.Results)).
		Int("within_radius", len(stations)).
		Msg("nearby station search completed")

	return stations, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling places API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("places API returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
