package detect

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/flyerdeck/flyerdeck/internal/geometry"
)

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment   = regexp.MustCompile(`(?m)^\s*//.*$`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// SanitizeModelJSON strips the decoration vision models wrap around JSON
// output: code fences, comments, trailing commas, and prose outside the
// outermost array.
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reTrailingComma.ReplaceAllString(raw, "$1")

	// Keep only the outermost [...].
	if start := strings.Index(raw, "["); start >= 0 {
		if end := strings.LastIndex(raw, "]"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

// ParseBoxes parses a model response into validated bounding boxes.
// Unparseable responses and invalid boxes yield an empty slice; the
// caller treats absence as a normal outcome.
func ParseBoxes(raw string) []geometry.BoundingBox {
	cleaned := SanitizeModelJSON(raw)
	if !strings.HasPrefix(cleaned, "[") {
		return nil
	}

	var candidates []geometry.BoundingBox
	if err := json.Unmarshal([]byte(cleaned), &candidates); err != nil {
		return nil
	}

	boxes := make([]geometry.BoundingBox, 0, len(candidates))
	for _, b := range candidates {
		if b.Valid() {
			boxes = append(boxes, b)
		}
	}
	return boxes
}

// LargestBox returns the box with the greatest per-mille area, breaking
// ties in favor of the earlier box. ok is false for an empty slice.
func LargestBox(boxes []geometry.BoundingBox) (geometry.BoundingBox, bool) {
	if len(boxes) == 0 {
		return geometry.BoundingBox{}, false
	}
	best := boxes[0]
	for _, b := range boxes[1:] {
		if b.Area() > best.Area() {
			best = b
		}
	}
	return best, true
}
