// Package transitroute provides a Google Routes API client for transit
// and walking travel-time queries.
package transitroute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/flyerdeck/flyerdeck/internal/geo"
	"github.com/flyerdeck/flyerdeck/internal/provider/resilience"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "googleroutes"

	// DefaultBaseURL is the Routes API base URL.
	DefaultBaseURL = "https://routes.googleapis.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second

	// fieldMask limits the response to the fields we consume.
	fieldMask = "routes.duration,routes.distanceMeters,routes.legs.steps.transitDetails"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the routes client.
type ClientConfig struct {
	// APIKey is the Maps Platform API key (required).
	APIKey string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 15s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Routes API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new routes client.
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

// TransitRoute computes a public-transport route between two points.
func (c *Client) TransitRoute(ctx context.Context, origin, dest geo.Coordinate) (*geo.Route, error) {
	return c.computeRoute(ctx, origin, dest, "TRANSIT")
}

// WalkingRoute computes a pedestrian route between two points.
func (c *Client) WalkingRoute(ctx context.Context, origin, dest geo.Coordinate) (*geo.Route, error) {
	return c.computeRoute(ctx, origin, dest, "WALK")
}

func (c *Client) computeRoute(ctx context.Context, origin, dest geo.Coordinate, mode string) (*geo.Route, error) {
	reqBody := computeRoutesRequest{
		Origin:       waypoint{Location: location{LatLng: latLng{Latitude: origin.Lat, Longitude: origin.Lon}}},
		Destination:  waypoint{Location: location{LatLng: latLng{Latitude: dest.Lat, Longitude: dest.Lon}}},
		TravelMode:   mode,
		LanguageCode: "ja",
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := c.baseURL + "/directions/v2:computeRoutes"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)
	httpReq.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling routes API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode, respBody)
	}

	var crResp computeRoutesResponse
	if err := json.Unmarshal(respBody, &crResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(crResp.Routes) == 0 {
		return nil, &geo.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  fmt.Sprintf("no %s route between points", mode),
			Err:      geo.ErrNoRouteFound,
		}
	}

	route := crResp.Routes[0]
	durationMinutes, err := durationToMinutes(route.Duration)
	if err != nil {
		return nil, fmt.Errorf("parsing route duration %q: %w", route.Duration, err)
	}

	lines, transfers := transitSummary(route)

	return &geo.Route{
		DurationMinutes: durationMinutes,
		DistanceMeters:  route.DistanceMeters,
		Transfers:       transfers,
		Lines:           lines,
	}, nil
}

func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return &geo.Error{
			Provider: ProviderName,
			Code:     errResp.Error.Status,
			Message:  errResp.Error.Message,
		}
	}
	return fmt.Errorf("routes API returned status %d", statusCode)
}

// durationToMinutes parses the API's "1234s" duration format, rounding
// up to whole minutes.
func durationToMinutes(d string) (int, error) {
	seconds, err := strconv.Atoi(strings.TrimSuffix(d, "s"))
	if err != nil {
		return 0, err
	}
	return int(math.Ceil(float64(seconds) / 60)), nil
}

// transitSummary collects the line names along the route and the number
// of transfers (transit legs beyond the first).
func transitSummary(r route) ([]string, int) {
	var lines []string
	seen := make(map[string]bool)
	transitSteps := 0

	for _, leg := range r.Legs {
		for _, step := range leg.Steps {
			if step.TransitDetails == nil {
				continue
			}
			transitSteps++
			name := step.TransitDetails.TransitLine.NameShort
			if name == "" {
				name = step.TransitDetails.TransitLine.Name
			}
			if name != "" && !seen[name] {
				seen[name] = true
				lines = append(lines, name)
			}
		}
	}

	transfers := 0
	if transitSteps > 1 {
		transfers = transitSteps - 1
	}
	return lines, transfers
}
