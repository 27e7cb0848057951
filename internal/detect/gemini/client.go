// Package gemini provides the prompted-vision detector variant: the whole
// flyer image plus a natural-language instruction is sent to a general
// vision model, which answers with a JSON array of labeled boxes.
package gemini

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
	ProviderName = "gemini-vision"

	// DefaultBaseURL is the Generative Language API base URL.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultModel is the vision model used for region detection.
	DefaultModel = "gemini-2.0-flash"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 60 * time.Second
)

// detectionPrompts describe each asset class and its exclusions. The model
// is asked for per-mille [y0, x0, y1, x1] boxes, which ParseBoxes validates.
var detectionPrompts = map[detect.AssetKind]string{
	detect.AssetPropertyPhoto: `Detect the main photographs of the building in this real-estate flyer: ` +
		`exterior views or interior room photos. Exclude floor plans, maps, location ` +
		`diagrams, company logos, agent portraits and decorative stock imagery. ` +
		`Answer with a JSON array of objects {"box_2d": [y0, x0, y1, x1], "label": string} ` +
		`where coordinates are integers in [0, 1000] relative to the image. ` +
		`Answer with [] if no property photograph is present.`,
	detect.AssetFloorPlan: `Detect the floor-plan drawing (間取り図) in this real-estate flyer. ` +
		`Exclude photographs, site maps and train-line diagrams. ` +
		`Answer with a JSON array of objects {"box_2d": [y0, x0, y1, x1], "label": string} ` +
		`where coordinates are integers in [0, 1000] relative to the image. ` +
		`Answer with [] if no floor plan is present.`,
}

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the vision detector client.
type ClientConfig struct {
	// APIKey is the Generative Language API key (required).
	APIKey string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// Model is the vision model name (optional).
	Model string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 60s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a prompted-vision detector backed by the Gemini API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new prompted-vision detector client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
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
		model:      model,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the detector identifier.
func (c *Client) Name() string {
	return ProviderName
}

// Detect sends the image with the asset-class instruction and parses the
// JSON box array from the answer. Malformed or empty model output maps to
// an empty result, never an error.
func (c *Client) Detect(ctx context.Context, img media.Image, kind detect.AssetKind) ([]geometry.BoundingBox, error) {
	prompt, ok := detectionPrompts[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", detect.ErrUnknownAssetKind, kind)
	}

	reqBody := generateContentRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{
					MIMEType: img.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(img.Data),
				}},
			},
		}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)

	c.logger.Debug().
		Str("model", c.model).
		Str("asset_kind", string(kind)).
		Int("image_bytes", len(img.Data)).
		Msg("requesting region detection")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling vision model: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode, respBody)
	}

	var gcResp generateContentResponse
	if err := json.Unmarshal(respBody, &gcResp); err != nil {
		c.logger.Warn().Err(err).Msg("undecodable detection response, treating as no detection")
		return nil, nil
	}

	text := firstText(&gcResp)
	if text == "" {
		return nil, nil
	}

	boxes := detect.ParseBoxes(text)

	c.logger.Debug().
		Str("asset_kind", string(kind)).
		Int("boxes", len(boxes)).
		Msg("region detection completed")

	return boxes, nil
}

func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return fmt.Errorf("vision model returned status %d", statusCode)
	}
	return fmt.Errorf("vision model error (%s): %s", errResp.Error.Status, errResp.Error.Message)
}

// firstText returns the first text part of the first candidate.
func firstText(resp *generateContentResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			return p.Text
		}
	}
	return ""
}
