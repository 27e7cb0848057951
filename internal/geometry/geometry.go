// Package geometry provides bounding-box and crop-region math for
// detected flyer regions. Detector output uses per-mille coordinates
// ([0,1000] relative to the image); crop regions are normalized to [0,1].
package geometry

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// PerMilleMax is the upper bound of the detector coordinate space.
const PerMilleMax = 1000

// BoundingBox is an axis-aligned rectangle in per-mille image coordinates,
// ordered [y0, x0, y1, x1] as returned by the vision model.
type BoundingBox struct {
	Coords [4]int `json:"box_2d"`
	Label  string `json:"label"`
}

// Valid reports whether the box is well-formed: all four coordinates in
// [0, 1000], y0 < y1 and x0 < x1. Violating boxes are rejected outright
// rather than clamped.
func (b BoundingBox) Valid() bool {
	for _, c := range b.Coords {
		if c < 0 || c > PerMilleMax {
			return false
		}
	}
	return b.Coords[0] < b.Coords[2] && b.Coords[1] < b.Coords[3]
}

// Area returns the box area in squared per-mille units.
func (b BoundingBox) Area() int {
	return (b.Coords[2] - b.Coords[0]) * (b.Coords[3] - b.Coords[1])
}

// PixelRect scales the box to pixel space for an image of the given
// dimensions. Swapped endpoint pairs are tolerated and the result is
// clamped to the image bounds.
func (b BoundingBox) PixelRect(width, height int) image.Rectangle {
	top := b.Coords[0] * height / PerMilleMax
	left := b.Coords[1] * width / PerMilleMax
	bottom := b.Coords[2] * height / PerMilleMax
	right := b.Coords[3] * width / PerMilleMax

	rect := image.Rect(
		clampInt(min(left, right), 0, width),
		clampInt(min(top, bottom), 0, height),
		clampInt(max(left, right), 0, width),
		clampInt(max(top, bottom), 0, height),
	)
	return promoteDegenerate(rect, width, height)
}

// Region is a normalized crop region with all fields in [0,1] and
// x+width <= 1, y+height <= 1.
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RegionFromBox converts a valid per-mille box to a normalized region.
func RegionFromBox(b BoundingBox) Region {
	return Region{
		X:      float64(b.Coords[1]) / PerMilleMax,
		Y:      float64(b.Coords[0]) / PerMilleMax,
		Width:  float64(b.Coords[3]-b.Coords[1]) / PerMilleMax,
		Height: float64(b.Coords[2]-b.Coords[0]) / PerMilleMax,
	}
}

// Pad expands the region by p on each side, clamped so the result never
// leaves the unit square.
func (r Region) Pad(p float64) Region {
	x := math.Max(0, r.X-p)
	y := math.Max(0, r.Y-p)
	return Region{
		X:      x,
		Y:      y,
		Width:  math.Min(1-x, r.Width+2*p),
		Height: math.Min(1-y, r.Height+2*p),
	}
}

// PixelRect scales the region to pixel space for an image of the given
// dimensions. Degenerate rectangles are promoted to a 1-pixel minimum
// extent so downstream crops stay valid.
func (r Region) PixelRect(width, height int) image.Rectangle {
	x0 := int(r.X * float64(width))
	y0 := int(r.Y * float64(height))
	x1 := int((r.X + r.Width) * float64(width))
	y1 := int((r.Y + r.Height) * float64(height))

	rect := image.Rect(
		clampInt(x0, 0, width),
		clampInt(y0, 0, height),
		clampInt(x1, 0, width),
		clampInt(y1, 0, height),
	)
	return promoteDegenerate(rect, width, height)
}

// Crop extracts the region from img. Returns an error when the source
// image has no pixels to crop from.
func Crop(img image.Image, r Region) (image.Image, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("source image has zero extent (%dx%d)", width, height)
	}
	rect := r.PixelRect(width, height)
	return imaging.Crop(img, rect.Add(bounds.Min)), nil
}

// promoteDegenerate grows a zero-extent rectangle to 1px, shifting away
// from the image edge when needed.
func promoteDegenerate(rect image.Rectangle, width, height int) image.Rectangle {
	if rect.Dx() == 0 {
		if rect.Max.X < width {
			rect.Max.X++
		} else if rect.Min.X > 0 {
			rect.Min.X--
		}
	}
	if rect.Dy() == 0 {
		if rect.Max.Y < height {
			rect.Max.Y++
		} else if rect.Min.Y > 0 {
			rect.Min.Y--
		}
	}
	return rect
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

