// Package segment provides the segmentation-model detector variant: the
// image and a short semantic prompt go to a dedicated segmentation
// service, which answers with candidate masks, confidence scores and
// bounding boxes.
package segment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/flyerdeck/flyerdeck/internal/detect"
	"github.com/flyerdeck/flyerdeck/internal/geometry"
	"github.com/flyerdeck/flyerdeck/internal/media"
	"github.com/flyerdeck/flyerdeck/internal/provider/resilience"
)

const (
	// ProviderName identifies this detector variant.
	ProviderName = "segmentation"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second
)

// segmentPrompts are the short semantic prompts per asset class.
var segmentPrompts = map[detect.AssetKind]string{
	detect.AssetPropertyPhoto: "building photograph",
	detect.AssetFloorPlan:     "floor plan drawing",
}

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the segmentation client.
type ClientConfig struct {
	// BaseURL is the segmentation service base URL (required).
	BaseURL string

	// APIKey authenticates against the service (optional).
	APIKey string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 30s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a segmentation-model detector.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new segmentation detector client.
func NewClient(cfg ClientConfig) *Client {
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
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the detector identifier.
func (c *Client) Name() string {
	return ProviderName
}

// Detect segments the image and returns the candidate boxes in service
// order, invalid candidates dropped. The largest-area selection happens
// in the caller; candidates keep their returned order so ties resolve to
// the first candidate.
func (c *Client) Detect(ctx context.Context, img media.Image, kind detect.AssetKind) ([]geometry.BoundingBox, error) {
	prompt, ok := segmentPrompts[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", detect.ErrUnknownAssetKind, kind)
	}

	reqBody := segmentRequest{
		Prompt: prompt,
		Image: imagePayload{
			MIMEType: img.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/segment", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug().
		Str("asset_kind", string(kind)).
		Str("prompt", prompt).
		Msg("requesting segmentation")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling segmentation service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("segmentation service returned status %d", resp.StatusCode)
	}

	var segResp segmentResponse
	if err := json.Unmarshal(respBody, &segResp); err != nil {
		c.logger.Warn().Err(err).Msg("undecodable segmentation response, treating as no detection")
		return nil, nil
	}

	boxes := make([]geometry.BoundingBox, 0, len(segResp.Candidates))
	for _, cand := range segResp.Candidates {
		box := geometry.BoundingBox{Coords: cand.Box, Label: cand.Label}
		if box.Valid() {
			boxes = append(boxes, box)
		}
	}

	c.logger.Debug().
		Str("asset_kind", string(kind)).
		Int("candidates", len(segResp.Candidates)).
		Int("boxes", len(boxes)).
		Msg("segmentation completed")

	return boxes, nil
}
