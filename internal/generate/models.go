// Package generate builds the slide deck plan from flyer images and
// drives the per-slide extraction and route aggregation, emitting
// ordered events onto a queue.
package generate

import (
	"context"
	"errors"

	"github.com/flyerdeck/flyerdeck/internal/detect"
	"github.com/flyerdeck/flyerdeck/internal/extract"
	"github.com/flyerdeck/flyerdeck/internal/geo"
)

// Validation errors.
var (
	ErrCustomerNameRequired = errors.New("customer name is required")
	ErrNoFlyers             = errors.New("at least one flyer image is required")
)

// Slide kinds.
const (
	SlideKindCover     = "cover"
	SlideKindPhoto     = "photo"
	SlideKindFloorPlan = "floor_plan"
	SlideKindAccess    = "access"
	SlideKindClosing   = "closing"
)

// Input is the validated generation request: the multipart JSON field
// plus the attached flyer files.
type Input struct {
	CustomerName string `json:"customer_name"`
	AgentName    string `json:"agent_name,omitempty"`
	CompanyName  string `json:"company_name,omitempty"`
	PropertyName string `json:"property_name,omitempty"`
	Address      string `json:"address,omitempty"`

	// Flyers are the uploaded flyer images, attached by the transport
	// layer after multipart parsing.
	Flyers []extract.ImageRef `json:"-"`
}

// Validate checks the input before any generation work starts.
func (in *Input) Validate() error {
	if in.CustomerName == "" {
		return ErrCustomerNameRequired
	}
	if len(in.Flyers) == 0 {
		return ErrNoFlyers
	}
	return nil
}

// CoverSlide is the slide:end payload for the cover.
type CoverSlide struct {
	Title        string `json:"title"`
	CustomerName string `json:"customer_name"`
	AgentName    string `json:"agent_name,omitempty"`
	CompanyName  string `json:"company_name,omitempty"`
}

// AssetSlide is the slide:end payload for photo and floor-plan slides.
type AssetSlide struct {
	FlyerIndex int                     `json:"flyer_index"`
	Asset      *extract.ExtractedAsset `json:"asset,omitempty"`
}

// AccessSlide is the slide:end payload for the access slide.
type AccessSlide struct {
	Address string                  `json:"address"`
	Station *geo.NearestStationInfo `json:"station,omitempty"`
	Routes  []geo.RouteResult       `json:"routes"`
}

// ClosingSlide is the slide:end payload for the closing slide.
type ClosingSlide struct {
	AgentName   string `json:"agent_name,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
}

// Extractor runs the per-asset visual pipeline.
type Extractor interface {
	Extract(ctx context.Context, kind detect.AssetKind, ref extract.ImageRef) extract.ExtractedAsset
}

// RouteAggregator resolves the property's transit access.
type RouteAggregator interface {
	AggregateFromAddress(ctx context.Context, address string, hubs []geo.Hub) geo.AggregationResult
}
