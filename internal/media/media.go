// Package media defines the immutable image payload passed between the
// detection, extraction and generation stages.
package media

import (
	"bytes"
	"fmt"
	"image"

	// Decoders for the flyer formats we accept.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Image is an opaque image payload. Once produced it is never mutated;
// every pipeline stage that transforms an image allocates a new one.
type Image struct {
	// Data is the encoded image bytes.
	Data []byte

	// MIMEType is the encoding of Data (e.g. "image/png").
	MIMEType string

	// Prompt records the instruction that produced this image, when it
	// came out of a generative model. Empty for source uploads and crops.
	Prompt string

	// AspectRatio is an optional target aspect ratio hint ("16:9")
	// forwarded to the image-generation provider.
	AspectRatio string
}

// ingestableTypes are the MIME types the downstream vision and
// image-generation models accept. Vector and animated formats are
// rejected at the door.
var ingestableTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Ingestable reports whether the MIME type can be sent to the model
// providers.
func Ingestable(mimeType string) bool {
	return ingestableTypes[mimeType]
}

// Decode decodes the payload into a pixel image.
func (i Image) Decode() (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(i.Data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s image: %w", i.MIMEType, err)
	}
	return img, nil
}

// DetectMIMEType sniffs the MIME type from the payload's magic bytes,
// falling back to the declared type when the payload is unrecognized.
func DetectMIMEType(data []byte, declared string) string {
	switch {
	case len(data) >= 3 && bytes.Equal(data[:3], []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg"
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}):
		return "image/png"
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	case len(data) >= 6 && (bytes.Equal(data[:6], []byte("GIF87a")) || bytes.Equal(data[:6], []byte("GIF89a"))):
		return "image/gif"
	case bytes.Contains(data[:minInt(len(data), 256)], []byte("<svg")):
		return "image/svg+xml"
	}
	return declared
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
