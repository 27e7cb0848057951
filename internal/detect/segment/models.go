package segment

// segmentRequest is the wire format for the segmentation call.
type segmentRequest struct {
	Prompt string       `json:"prompt"`
	Image  imagePayload `json:"image"`
}

type imagePayload struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

// segmentResponse carries the candidate masks. Only the box metadata is
// consumed here; masks stay unused until a compositing stage needs them.
type segmentResponse struct {
	Candidates []segmentCandidate `json:"candidates"`
}

type segmentCandidate struct {
	// Mask is a base64 PNG alpha mask for the candidate region.
	Mask string `json:"mask"`

	// Score is the model's confidence in [0,1].
	Score float64 `json:"score"`

	// Box is the candidate bounding box as [y0, x0, y1, x1] per-mille.
	Box [4]int `json:"box_2d"`

	// Label is the semantic label echoed back by the service.
	Label string `json:"label"`
}
