// Package sse implements Server-Sent Events framing over an
// http.ResponseWriter.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// Writer frames events onto a streaming HTTP response. It is safe for
// concurrent use; frames from different goroutines never interleave and
// ids stay monotonic across all writers of the stream.
type Writer struct {
	mu     sync.Mutex
	w      http.ResponseWriter
	rc     *http.ResponseController
	nextID uint64
	closed bool
}

// NewWriter prepares the response for event streaming and sends the
// stream headers. Returns an error if the underlying writer cannot
// flush, since an unflushed stream never reaches the client.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)

	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return nil, fmt.Errorf("response writer does not support streaming: %w", err)
	}

	return &Writer{w: w, rc: rc, nextID: 1}, nil
}

// WriteEvent sends one id/event/data frame. The payload is marshaled as
// JSON into the data field. Writes after Close are dropped.
func (sw *Writer) WriteEvent(eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling event payload: %w", err)
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.closed {
		return nil
	}

	id := sw.nextID
	sw.nextID++

	if _, err := fmt.Fprintf(sw.w, "id: %d\nevent: %s\ndata: %s\n\n", id, eventType, data); err != nil {
		return fmt.Errorf("writing event frame: %w", err)
	}
	return sw.rc.Flush()
}

// Close stops further frames. Idempotent; the connection itself is
// owned by the HTTP server.
func (sw *Writer) Close() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.closed = true
}
