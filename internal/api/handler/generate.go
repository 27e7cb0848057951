// Package handler provides HTTP handlers for the flyerdeck API.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/flyerdeck/flyerdeck/internal/api/middleware"
	"github.com/flyerdeck/flyerdeck/internal/api/models"
	"github.com/flyerdeck/flyerdeck/internal/api/response"
	"github.com/flyerdeck/flyerdeck/internal/event"
	"github.com/flyerdeck/flyerdeck/internal/extract"
	"github.com/flyerdeck/flyerdeck/internal/generate"
	"github.com/flyerdeck/flyerdeck/pkg/sse"
)

const (
	// HeartbeatInterval is the keep-alive period for generation streams.
	HeartbeatInterval = 15 * time.Second

	// maxUploadBytes caps the whole multipart request body.
	maxUploadBytes = 100 << 20 // 100 MiB

	// multipartMemory is the in-memory threshold for multipart parsing.
	multipartMemory = 32 << 20
)

// Generator runs a deck generation and streams its events.
type Generator interface {
	Run(ctx context.Context, input generate.Input) *event.Queue
}

// GenerateHandler owns the long-lived generation stream.
type GenerateHandler struct {
	generator         Generator
	heartbeatInterval time.Duration
	logger            zerolog.Logger
}

// NewGenerateHandler creates a new GenerateHandler.
func NewGenerateHandler(generator Generator, logger zerolog.Logger) *GenerateHandler {
	return &GenerateHandler{
		generator:         generator,
		heartbeatInterval: HeartbeatInterval,
		logger:            logger,
	}
}

// GenerateDeck handles POST /v1/decks:generate. The request is multipart
// with a JSON `input` field and one or more `flyers` files; the response
// is a server-sent event stream.
func (h *GenerateHandler) GenerateDeck(w http.ResponseWriter, r *http.Request) {
	input, fieldErrors := h.parseInput(r)
	if fieldErrors != nil {
		response.BadRequest(w, r, "invalid generation request", fieldErrors)
		return
	}

	requestID := middleware.GetRequestID(r.Context())
	userID := middleware.GetUserID(r.Context())

	h.logger.Info().
		Str("request_id", requestID).
		Str("user_id", userID).
		Int("flyers", len(input.Flyers)).
		Msg("starting deck generation stream")

	// The generation must survive a client abort: in-flight provider
	// calls run to completion, only forwarding stops.
	genCtx := context.WithoutCancel(r.Context())
	q := h.generator.Run(genCtx, *input)

	stream, err := sse.NewWriter(w)
	if err != nil {
		h.logger.Error().Err(err).Str("request_id", requestID).Msg("cannot open event stream")
		response.InternalError(w, r, "streaming unsupported")
		return
	}
	defer stream.Close()

	heartbeatDone := make(chan struct{})
	defer close(heartbeatDone)
	go h.heartbeat(stream, heartbeatDone)

	h.drain(r, stream, q, requestID)
}

// heartbeat emits keep-alive frames until the stream ends. It runs
// independently of pipeline progress.
func (h *GenerateHandler) heartbeat(stream *sse.Writer, done <-chan struct{}) {
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := stream.WriteEvent(string(event.TypeHeartbeat), event.Heartbeat{Timestamp: time.Now().UTC()}); err != nil {
				return
			}
		}
	}
}

// drain forwards queue events to the stream until the queue closes or
// the client goes away. Abort is cooperative: generation keeps running,
// its remaining events just go unforwarded.
func (h *GenerateHandler) drain(r *http.Request, stream *sse.Writer, q *event.Queue, requestID string) {
	forwarded := 0
	for {
		e, ok := q.Next(r.Context())
		if !ok {
			if r.Context().Err() != nil {
				h.logger.Info().
					Str("request_id", requestID).
					Int("forwarded", forwarded).
					Msg("client aborted generation stream")
			} else {
				h.logger.Info().
					Str("request_id", requestID).
					Int("forwarded", forwarded).
					Msg("generation stream completed")
			}
			return
		}

		if err := stream.WriteEvent(string(e.Type), e.Data); err != nil {
			h.logger.Warn().Err(err).
				Str("request_id", requestID).
				Int("forwarded", forwarded).
				Msg("event stream write failed, stopping forwarding")
			return
		}
		forwarded++
	}
}

// parseInput validates the multipart body into a generation input.
func (h *GenerateHandler) parseInput(r *http.Request) (*generate.Input, []models.FieldError) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, []models.FieldError{{Field: "body", Message: "must be multipart/form-data", Code: "INVALID_BODY"}}
	}

	rawInput := r.FormValue("input")
	if rawInput == "" {
		return nil, []models.FieldError{{Field: "input", Message: "is required", Code: "REQUIRED"}}
	}

	var input generate.Input
	if err := json.Unmarshal([]byte(rawInput), &input); err != nil {
		return nil, []models.FieldError{{Field: "input", Message: "must be valid JSON", Code: "INVALID_JSON"}}
	}

	files := r.MultipartForm.File["flyers"]
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, []models.FieldError{{Field: "flyers", Message: "unreadable file " + fh.Filename, Code: "INVALID_FILE"}}
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, []models.FieldError{{Field: "flyers", Message: "unreadable file " + fh.Filename, Code: "INVALID_FILE"}}
		}
		input.Flyers = append(input.Flyers, extract.ImageRef{
			Data:     data,
			MIMEType: fh.Header.Get("Content-Type"),
		})
	}

	if err := input.Validate(); err != nil {
		switch err {
		case generate.ErrCustomerNameRequired:
			return nil, []models.FieldError{{Field: "input.customer_name", Message: "is required", Code: "REQUIRED"}}
		case generate.ErrNoFlyers:
			return nil, []models.FieldError{{Field: "flyers", Message: "at least one flyer image is required", Code: "REQUIRED"}}
		default:
			return nil, []models.FieldError{{Field: "input", Message: err.Error(), Code: "INVALID"}}
		}
	}

	return &input, nil
}
