package detect

import (
	"testing"

	"github.com/flyerdeck/flyerdeck/internal/geometry"
)

func TestParseBoxes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{
			name: "plain array",
			raw:  `[{"box_2d":[100,100,200,200],"label":"建物外観"}]`,
			want: 1,
		},
		{
			name: "fenced json",
			raw:  "```json\n[{\"box_2d\":[50,60,400,500],\"label\":\"floor plan\"}]\n```",
			want: 1,
		},
		{
			name: "trailing comma and comment",
			raw:  "[\n  {\"box_2d\":[10,10,20,20],\"label\":\"a\"}, // main photo\n]",
			want: 1,
		},
		{
			name: "prose around array",
			raw:  `Here are the detected regions: [{"box_2d":[0,0,500,500],"label":"photo"}] Hope this helps!`,
			want: 1,
		},
		{
			name: "invalid boxes filtered",
			raw:  `[{"box_2d":[200,100,100,200],"label":"inverted"},{"box_2d":[0,0,1500,900],"label":"out of range"},{"box_2d":[1,1,999,999],"label":"valid"}]`,
			want: 1,
		},
		{
			name: "not json",
			raw:  "I could not find any regions in this image.",
			want: 0,
		},
		{
			name: "empty array",
			raw:  "[]",
			want: 0,
		},
		{
			name: "object instead of array",
			raw:  `{"box_2d":[100,100,200,200],"label":"a"}`,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseBoxes(tt.raw)
			if len(got) != tt.want {
				t.Errorf("ParseBoxes() returned %d boxes, want %d: %v", len(got), tt.want, got)
			}
		})
	}
}

func TestLargestBox(t *testing.T) {
	boxes := []geometry.BoundingBox{
		{Coords: [4]int{0, 0, 100, 100}, Label: "small"},
		{Coords: [4]int{0, 0, 500, 500}, Label: "large"},
		{Coords: [4]int{0, 0, 200, 200}, Label: "medium"},
	}

	best, ok := LargestBox(boxes)
	if !ok {
		t.Fatal("expected a box")
	}
	if best.Label != "large" {
		t.Errorf("LargestBox() = %q, want %q", best.Label, "large")
	}
}

func TestLargestBox_TieBreaksFirst(t *testing.T) {
	boxes := []geometry.BoundingBox{
		{Coords: [4]int{0, 0, 300, 300}, Label: "first"},
		{Coords: [4]int{100, 100, 400, 400}, Label: "second"},
	}

	best, _ := LargestBox(boxes)
	if best.Label != "first" {
		t.Errorf("tie should keep first-returned box, got %q", best.Label)
	}
}

func TestLargestBox_Empty(t *testing.T) {
	if _, ok := LargestBox(nil); ok {
		t.Error("expected ok=false for empty input")
	}
}

func TestPolicy(t *testing.T) {
	p := NewPolicy()
	if _, err := p.ForKind(AssetFloorPlan); err == nil {
		t.Error("expected error for unregistered kind")
	}
}
