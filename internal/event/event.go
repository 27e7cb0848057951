// Package event defines the generation event stream: typed events
// produced by the slide generator and an unbounded queue bridging them
// to a pull-based consumer.
package event

import "time"

// Type tags an event with its payload shape.
type Type string

const (
	// TypeSlideStart announces that work on a slide has begun.
	TypeSlideStart Type = "slide:start"

	// TypeSlideGenerating reports progress on a slide's assets.
	TypeSlideGenerating Type = "slide:generating"

	// TypeSlideEnd carries the finished slide payload.
	TypeSlideEnd Type = "slide:end"

	// TypeHeartbeat is the transport keep-alive; it carries no pipeline
	// progress and interleaves freely with slide events.
	TypeHeartbeat Type = "heartbeat"

	// TypeComplete is the success terminal. Exactly one terminal event
	// ends every drain.
	TypeComplete Type = "complete"

	// TypeError is the failure terminal.
	TypeError Type = "error"
)

// Event is the tagged union flowing from generator to stream. Data is
// marshaled as the SSE frame's data field.
type Event struct {
	Type Type `json:"type"`
	Data any  `json:"data"`
}

// SlideStart is the payload for slide:start.
type SlideStart struct {
	Index int    `json:"index"`
	Kind  string `json:"kind"`
	Title string `json:"title,omitempty"`
}

// SlideGenerating is the payload for slide:generating.
type SlideGenerating struct {
	Index int    `json:"index"`
	Stage string `json:"stage,omitempty"`
}

// SlideEnd is the payload for slide:end. Errors carries per-asset
// failure messages; a slide with errors still ends normally.
type SlideEnd struct {
	Index  int      `json:"index"`
	Kind   string   `json:"kind"`
	Slide  any      `json:"slide,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// Heartbeat is the payload for heartbeat.
type Heartbeat struct {
	Timestamp time.Time `json:"timestamp"`
}

// Complete is the payload for the success terminal.
type Complete struct {
	SlideCount int `json:"slide_count"`
}

// ErrorPayload is the payload for the failure terminal.
type ErrorPayload struct {
	Message string `json:"message"`
}
