// Package detect provides region detection over flyer images. A detector
// maps an image to zero or more labeled bounding boxes; absence of a
// detection is a normal outcome, never an error.
package detect

import (
	"context"
	"errors"

	"github.com/flyerdeck/flyerdeck/internal/geometry"
	"github.com/flyerdeck/flyerdeck/internal/media"
)

// AssetKind identifies the class of region being looked for.
type AssetKind string

const (
	// AssetPropertyPhoto is an exterior or interior photograph of the
	// listed property.
	AssetPropertyPhoto AssetKind = "property_photo"

	// AssetFloorPlan is the floor-plan drawing on the flyer.
	AssetFloorPlan AssetKind = "floor_plan"
)

// DisplayName returns the Japanese label used in user-facing messages.
func (k AssetKind) DisplayName() string {
	switch k {
	case AssetPropertyPhoto:
		return "物件写真"
	case AssetFloorPlan:
		return "間取り図"
	default:
		return string(k)
	}
}

// ErrUnknownAssetKind is returned by the policy when no detector is
// registered for the requested kind.
var ErrUnknownAssetKind = errors.New("no detector registered for asset kind")

// Detector finds regions of the given kind in an image.
//
// Implementations must map malformed provider responses, empty
// detections and out-of-range coordinates to an empty slice with a nil
// error; only transport-level failures (network, auth) surface as errors.
type Detector interface {
	// Detect returns zero or more valid bounding boxes for the asset kind.
	Detect(ctx context.Context, img media.Image, kind AssetKind) ([]geometry.BoundingBox, error)

	// Name returns the detector identifier for logging.
	Name() string
}

// Policy selects which detector variant handles each asset kind. The
// mapping is configuration, not a detector concern: swapping variants
// must not touch the extraction pipeline.
type Policy struct {
	detectors map[AssetKind]Detector
}

// NewPolicy creates an empty detector policy.
func NewPolicy() *Policy {
	return &Policy{detectors: make(map[AssetKind]Detector)}
}

// Register assigns a detector to an asset kind, replacing any previous
// assignment.
func (p *Policy) Register(kind AssetKind, d Detector) {
	p.detectors[kind] = d
}

// ForKind returns the detector for the asset kind.
func (p *Policy) ForKind(kind AssetKind) (Detector, error) {
	d, ok := p.detectors[kind]
	if !ok {
		return nil, ErrUnknownAssetKind
	}
	return d, nil
}
