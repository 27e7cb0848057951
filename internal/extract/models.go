// Package extract implements the per-asset visual pipeline: detect a
// region on the flyer, crop it, and regenerate it with a generative image
// model. Each asset extraction is independent; a failure surfaces as a
// value on the result, never as an error that aborts sibling assets.
package extract

import (
	"context"

	"github.com/flyerdeck/flyerdeck/internal/media"
)

// ImageRef points at a source image: either inline bytes from a multipart
// upload or a remote URL.
type ImageRef struct {
	// URL is the remote location of the image. Ignored when Data is set.
	URL string

	// Data is the inline image payload.
	Data []byte

	// MIMEType is the declared type, verified against the payload's
	// magic bytes.
	MIMEType string
}

// ExtractedAsset is the result of one pipeline invocation. It is owned by
// that invocation and never shared across requests.
type ExtractedAsset struct {
	// Intermediate is the padded crop of the detected region, nil when
	// detection or cropping failed.
	Intermediate *media.Image `json:"intermediate,omitempty"`

	// Final is the regenerated image, nil on any failure.
	Final *media.Image `json:"final,omitempty"`

	// Err is a user-presentable failure message, empty on success.
	Err string `json:"error,omitempty"`
}

// GenerateRequest asks the image-generation provider for a regenerated
// version of a cropped asset.
type GenerateRequest struct {
	// Prompt is the asset-specific fidelity instruction.
	Prompt string

	// Image is the cropped source to regenerate.
	Image media.Image

	// AspectRatio is the target aspect ratio hint (e.g. "4:3").
	AspectRatio string
}

// Generator is the image-generation provider contract.
type Generator interface {
	// Generate produces one image from the prompt and source image.
	Generate(ctx context.Context, req GenerateRequest) (*media.Image, error)

	// Name returns the provider identifier for logging.
	Name() string
}

// Fetcher resolves an ImageRef to a decoded-enough payload: bytes plus a
// verified MIME type.
type Fetcher interface {
	Fetch(ctx context.Context, ref ImageRef) (media.Image, error)
}
