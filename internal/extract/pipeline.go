package extract

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/rs/zerolog"

	"github.com/flyerdeck/flyerdeck/internal/detect"
	"github.com/flyerdeck/flyerdeck/internal/geometry"
	"github.com/flyerdeck/flyerdeck/internal/media"
)

// DefaultPadding is the fraction added around the detected region before
// cropping.
const DefaultPadding = 0.03

// regenerationPrompts are the asset-specific fidelity instructions. The
// floor-plan prompt forbids altering any label or measurement; fidelity is
// enforced by instruction only, there is no OCR verification pass.
var regenerationPrompts = map[detect.AssetKind]string{
	detect.AssetPropertyPhoto: `Recreate this property photograph as a clean, bright, professionally ` +
		`shot real-estate photo. Keep the building's architecture, materials, colors and ` +
		`surroundings exactly as shown. Do not add, remove or restyle any structure.`,
	detect.AssetFloorPlan: `Redraw this floor plan as a clean, high-contrast diagram suitable for a ` +
		`presentation slide. Reproduce every room name, dimension and area figure exactly as ` +
		`written in the source — do not translate, alter or omit any text or numeric ` +
		`measurement. Keep the wall layout and proportions unchanged.`,
}

// aspectRatios are the slide-layout target ratios per asset kind.
var aspectRatios = map[detect.AssetKind]string{
	detect.AssetPropertyPhoto: "4:3",
	detect.AssetFloorPlan:     "4:3",
}

// PipelineConfig holds configuration for the extraction pipeline.
type PipelineConfig struct {
	// Policy selects the detector variant per asset kind.
	Policy *detect.Policy

	// Generator is the image-generation provider.
	Generator Generator

	// Fetcher resolves source image references.
	Fetcher Fetcher

	// Padding is the crop padding fraction (default: 0.03).
	Padding float64

	// Logger for pipeline operations.
	Logger zerolog.Logger
}

// Pipeline runs detect → crop → regenerate for one asset at a time.
type Pipeline struct {
	policy    *detect.Policy
	generator Generator
	fetcher   Fetcher
	padding   float64
	logger    zerolog.Logger
}

// NewPipeline creates an extraction pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	padding := cfg.Padding
	if padding == 0 {
		padding = DefaultPadding
	}
	return &Pipeline{
		policy:    cfg.Policy,
		generator: cfg.Generator,
		fetcher:   cfg.Fetcher,
		padding:   padding,
		logger:    cfg.Logger,
	}
}

// Extract runs the full per-asset pipeline. All failures come back as the
// Err field on the result; sibling assets are unaffected.
func (p *Pipeline) Extract(ctx context.Context, kind detect.AssetKind, ref ImageRef) ExtractedAsset {
	src, err := p.fetcher.Fetch(ctx, ref)
	if err != nil {
		p.logger.Warn().Err(err).Str("asset_kind", string(kind)).Msg("source image fetch failed")
		return ExtractedAsset{Err: "画像を読み込めませんでした"}
	}

	detector, err := p.policy.ForKind(kind)
	if err != nil {
		return ExtractedAsset{Err: err.Error()}
	}

	boxes, err := detector.Detect(ctx, src, kind)
	if err != nil {
		p.logger.Warn().Err(err).
			Str("detector", detector.Name()).
			Str("asset_kind", string(kind)).
			Msg("detection failed")
		return ExtractedAsset{Err: UserFacingMessage(err)}
	}

	best, ok := detect.LargestBox(boxes)
	if !ok {
		// Absence is a normal outcome: the flyer simply has no such region.
		return ExtractedAsset{Err: fmt.Sprintf("%sが検出されませんでした", kind.DisplayName())}
	}

	intermediate, err := p.crop(src, best)
	if err != nil {
		p.logger.Warn().Err(err).Str("asset_kind", string(kind)).Msg("crop failed")
		return ExtractedAsset{Err: "画像の切り抜きに失敗しました"}
	}

	final, err := p.generator.Generate(ctx, GenerateRequest{
		Prompt:      regenerationPrompts[kind],
		Image:       *intermediate,
		AspectRatio: aspectRatios[kind],
	})
	if err != nil {
		p.logger.Warn().Err(err).
			Str("provider", p.generator.Name()).
			Str("asset_kind", string(kind)).
			Msg("regeneration failed")
		return ExtractedAsset{Intermediate: intermediate, Err: UserFacingMessage(err)}
	}

	p.logger.Info().
		Str("asset_kind", string(kind)).
		Str("label", best.Label).
		Int("final_bytes", len(final.Data)).
		Msg("asset extracted")

	return ExtractedAsset{Intermediate: intermediate, Final: final}
}

// crop cuts the padded detection region out of the source image and
// re-encodes it as PNG for the generation model.
func (p *Pipeline) crop(src media.Image, box geometry.BoundingBox) (*media.Image, error) {
	img, err := src.Decode()
	if err != nil {
		return nil, err
	}

	region := geometry.RegionFromBox(box).Pad(p.padding)
	cropped, err := geometry.Crop(img, region)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("encoding crop: %w", err)
	}

	return &media.Image{Data: buf.Bytes(), MIMEType: "image/png"}, nil
}
