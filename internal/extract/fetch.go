package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/flyerdeck/flyerdeck/internal/media"
	"github.com/flyerdeck/flyerdeck/internal/provider/resilience"
)

const (
	// fetchProviderName identifies the source-image fetcher for health
	// tracking.
	fetchProviderName = "flyer-fetch"

	// maxFetchBytes caps remote flyer downloads.
	maxFetchBytes = 20 << 20 // 20 MiB

	// DefaultFetchTimeout is the default download timeout.
	DefaultFetchTimeout = 30 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetcherConfig holds configuration for the source-image fetcher.
type FetcherConfig struct {
	// HTTPClient is the HTTP client to use (optional).
	HTTPClient HTTPDoer

	// Timeout is the download timeout (optional, defaults to 30s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for fetch operations.
	Logger zerolog.Logger
}

// HTTPFetcher resolves image references, verifying the payload is a type
// the downstream models can ingest.
type HTTPFetcher struct {
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewHTTPFetcher creates a source-image fetcher.
func NewHTTPFetcher(cfg FetcherConfig) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultFetchTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(fetchProviderName)
		clientCfg.Timeout = timeout
		if cfg.Registry != nil {
			clientCfg.Registry = cfg.Registry
		}
		httpClient = resilience.NewClient(clientCfg)
	}

	return &HTTPFetcher{
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Fetch returns the image bytes for the reference. Inline data wins over
// the URL. MIME types the models cannot ingest (vector, animated) are
// rejected here, before any provider call.
func (f *HTTPFetcher) Fetch(ctx context.Context, ref ImageRef) (media.Image, error) {
	if len(ref.Data) > 0 {
		return verify(ref.Data, ref.MIMEType)
	}
	if ref.URL == "" {
		return media.Image{}, fmt.Errorf("image reference has neither data nor URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return media.Image{}, fmt.Errorf("creating request: %w", err)
	}

	f.logger.Debug().Str("url", ref.URL).Msg("fetching source image")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return media.Image{}, fmt.Errorf("fetching %s: %w", ref.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return media.Image{}, fmt.Errorf("fetching %s: status %d", ref.URL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return media.Image{}, fmt.Errorf("reading image body: %w", err)
	}
	if len(data) > maxFetchBytes {
		return media.Image{}, fmt.Errorf("image exceeds %d byte limit", maxFetchBytes)
	}

	return verify(data, resp.Header.Get("Content-Type"))
}

func verify(data []byte, declared string) (media.Image, error) {
	mimeType := media.DetectMIMEType(data, declared)
	if !media.Ingestable(mimeType) {
		return media.Image{}, fmt.Errorf("unsupported image type %q", mimeType)
	}
	return media.Image{Data: data, MIMEType: mimeType}, nil
}
