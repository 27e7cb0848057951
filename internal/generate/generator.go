package generate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/flyerdeck/flyerdeck/internal/detect"
	"github.com/flyerdeck/flyerdeck/internal/event"
	"github.com/flyerdeck/flyerdeck/internal/extract"
)

// ServiceConfig holds configuration for the slide generator.
type ServiceConfig struct {
	// Extractor is the visual extraction pipeline.
	Extractor Extractor

	// Routes is the route aggregator, used for the access slide.
	Routes RouteAggregator

	// Logger for generation runs.
	Logger zerolog.Logger
}

// Service generates slide decks.
type Service struct {
	extractor Extractor
	routes    RouteAggregator
	logger    zerolog.Logger
}

// NewService creates a slide generator.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		extractor: cfg.Extractor,
		routes:    cfg.Routes,
		logger:    cfg.Logger,
	}
}

// Run starts the generation and returns immediately with the queue the
// events arrive on. The queue is closed exactly once, after a single
// terminal event (complete or error).
func (s *Service) Run(ctx context.Context, input Input) *event.Queue {
	q := event.NewQueue()

	go func() {
		defer q.Close()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().Interface("panic", r).Msg("generation run panicked")
				q.Push(event.Event{
					Type: event.TypeError,
					Data: event.ErrorPayload{Message: "スライドの生成中にエラーが発生しました"},
				})
			}
		}()

		count := s.run(ctx, input, q)
		q.Push(event.Event{Type: event.TypeComplete, Data: event.Complete{SlideCount: count}})
	}()

	return q
}

// run emits the slide sequence and returns the slide count. Per-slide
// failures become payload errors; only a panic aborts the run.
func (s *Service) run(ctx context.Context, input Input, q *event.Queue) int {
	index := 0

	s.emitCover(q, index, input)
	index++

	for i, flyer := range input.Flyers {
		s.emitAssetSlide(ctx, q, index, SlideKindPhoto, detect.AssetPropertyPhoto, i, flyer)
		index++

		s.emitAssetSlide(ctx, q, index, SlideKindFloorPlan, detect.AssetFloorPlan, i, flyer)
		index++
	}

	if input.Address != "" {
		s.emitAccess(ctx, q, index, input.Address)
		index++
	}

	s.emitClosing(q, index, input)
	index++

	s.logger.Info().
		Int("slides", index).
		Int("flyers", len(input.Flyers)).
		Msg("generation run completed")

	return index
}

func (s *Service) emitCover(q *event.Queue, index int, input Input) {
	title := fmt.Sprintf("%s様邸 物件のご提案", input.CustomerName)
	if input.PropertyName != "" {
		title = input.PropertyName
	}

	q.Push(event.Event{Type: event.TypeSlideStart, Data: event.SlideStart{
		Index: index, Kind: SlideKindCover, Title: title,
	}})
	q.Push(event.Event{Type: event.TypeSlideEnd, Data: event.SlideEnd{
		Index: index,
		Kind:  SlideKindCover,
		Slide: CoverSlide{
			Title:        title,
			CustomerName: input.CustomerName,
			AgentName:    input.AgentName,
			CompanyName:  input.CompanyName,
		},
	}})
}

func (s *Service) emitAssetSlide(ctx context.Context, q *event.Queue, index int, kind string, assetKind detect.AssetKind, flyerIndex int, flyer extract.ImageRef) {
	q.Push(event.Event{Type: event.TypeSlideStart, Data: event.SlideStart{
		Index: index, Kind: kind,
	}})
	q.Push(event.Event{Type: event.TypeSlideGenerating, Data: event.SlideGenerating{
		Index: index, Stage: "extracting",
	}})

	asset := s.extractor.Extract(ctx, assetKind, flyer)

	end := event.SlideEnd{
		Index: index,
		Kind:  kind,
		Slide: AssetSlide{FlyerIndex: flyerIndex, Asset: &asset},
	}
	if asset.Err != "" {
		end.Errors = []string{asset.Err}
	}
	q.Push(event.Event{Type: event.TypeSlideEnd, Data: end})
}

func (s *Service) emitAccess(ctx context.Context, q *event.Queue, index int, address string) {
	q.Push(event.Event{Type: event.TypeSlideStart, Data: event.SlideStart{
		Index: index, Kind: SlideKindAccess,
	}})
	q.Push(event.Event{Type: event.TypeSlideGenerating, Data: event.SlideGenerating{
		Index: index, Stage: "routing",
	}})

	agg := s.routes.AggregateFromAddress(ctx, address, nil)

	end := event.SlideEnd{
		Index: index,
		Kind:  SlideKindAccess,
		Slide: AccessSlide{Address: address, Station: agg.Station, Routes: agg.Routes},
	}
	if agg.Err != "" {
		end.Errors = []string{agg.Err}
	}
	q.Push(event.Event{Type: event.TypeSlideEnd, Data: end})
}

func (s *Service) emitClosing(q *event.Queue, index int, input Input) {
	q.Push(event.Event{Type: event.TypeSlideStart, Data: event.SlideStart{
		Index: index, Kind: SlideKindClosing,
	}})
	q.Push(event.Event{Type: event.TypeSlideEnd, Data: event.SlideEnd{
		Index: index,
		Kind:  SlideKindClosing,
		Slide: ClosingSlide{AgentName: input.AgentName, CompanyName: input.CompanyName},
	}})
}
