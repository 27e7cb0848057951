// Package imagegen provides the generative image model client used by the
// extraction pipeline to regenerate cropped flyer regions.
package imagegen

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

	"github.com/flyerdeck/flyerdeck/internal/extract"
	"github.com/flyerdeck/flyerdeck/internal/media"
	"github.com/flyerdeck/flyerdeck/internal/provider/resilience"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "imagegen"

	// DefaultBaseURL is the Generative Language API base URL.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultModel is the image-generation model.
	DefaultModel = "gemini-2.0-flash-preview-image-generation"

	// DefaultTimeout is the default request timeout. Image generation is
	// by far the slowest provider call in the pipeline.
	DefaultTimeout = 120 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the image-generation client.
type ClientConfig struct {
	// APIKey is the Generative Language API key (required).
	APIKey string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// Model is the image-generation model name (optional).
	Model string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 120s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an image-generation provider.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new image-generation client.
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
		// A generation attempt is expensive; one retry is plenty.
		clientCfg.MaxRetries = 1
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

// Name returns the provider identifier.
func (c *Client) Name() string {
	return ProviderName
}

// Generate regenerates the cropped image per the prompt and returns the
// first inline image part of the first candidate.
func (c *Client) Generate(ctx context.Context, req extract.GenerateRequest) (*media.Image, error) {
	reqBody := generateContentRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: req.Prompt},
				{InlineData: &inlineData{
					MIMEType: req.Image.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(req.Image.Data),
				}},
			},
		}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE"},
		},
	}
	if req.AspectRatio != "" {
		reqBody.GenerationConfig.ImageConfig = &imageConfig{AspectRatio: req.AspectRatio}
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
		Str("aspect_ratio", req.AspectRatio).
		Int("image_bytes", len(req.Image.Data)).
		Msg("requesting image regeneration")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling image model: %w", err)
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
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(gcResp.Candidates) == 0 {
		return nil, extract.ErrNoCandidates
	}

	cand := gcResp.Candidates[0]
	if cand.FinishReason != "" && cand.FinishReason != "STOP" {
		// SAFETY, RECITATION, PROHIBITED_CONTENT and friends arrive as
		// finish reasons with an otherwise empty candidate.
		return nil, fmt.Errorf("generation stopped: %s", cand.FinishReason)
	}

	for _, p := range cand.Content.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decoding inline image: %w", err)
			}
			c.logger.Debug().Int("image_bytes", len(data)).Msg("image regeneration completed")
			return &media.Image{
				Data:        data,
				MIMEType:    p.InlineData.MIMEType,
				Prompt:      req.Prompt,
				AspectRatio: req.AspectRatio,
			}, nil
		}
	}

	return nil, extract.ErrNoImageData
}

func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Errorf("image model error (%s): %s", errResp.Error.Status, errResp.Error.Message)
	}
	if statusCode == http.StatusTooManyRequests {
		return fmt.Errorf("image model rate limit exceeded")
	}
	return fmt.Errorf("image model returned status %d", statusCode)
}
