package extract

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/flyerdeck/flyerdeck/internal/detect"
	"github.com/flyerdeck/flyerdeck/internal/geometry"
	"github.com/flyerdeck/flyerdeck/internal/media"
)

type mockDetector struct {
	boxes     []geometry.BoundingBox
	err       error
	callCount int
}

func (m *mockDetector) Detect(_ context.Context, _ media.Image, _ detect.AssetKind) ([]geometry.BoundingBox, error) {
	m.callCount++
	return m.boxes, m.err
}

func (m *mockDetector) Name() string { return "mock-detector" }

type mockGenerator struct {
	result    *media.Image
	err       error
	callCount int
	lastReq   GenerateRequest
}

func (m *mockGenerator) Generate(_ context.Context, req GenerateRequest) (*media.Image, error) {
	m.callCount++
	m.lastReq = req
	return m.result, m.err
}

func (m *mockGenerator) Name() string { return "mock-generator" }

type mockFetcher struct {
	img media.Image
	err error
}

func (m *mockFetcher) Fetch(_ context.Context, _ ImageRef) (media.Image, error) {
	return m.img, m.err
}

func testFlyer(t *testing.T) media.Image {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test flyer: %v", err)
	}
	return media.Image{Data: buf.Bytes(), MIMEType: "image/png"}
}

func newTestPipeline(detector *mockDetector, generator *mockGenerator, fetcher *mockFetcher) *Pipeline {
	policy := detect.NewPolicy()
	policy.Register(detect.AssetPropertyPhoto, detector)
	policy.Register(detect.AssetFloorPlan, detector)

	return NewPipeline(PipelineConfig{
		Policy:    policy,
		Generator: generator,
		Fetcher:   fetcher,
		Logger:    zerolog.Nop(),
	})
}

func TestPipelineExtract(t *testing.T) {
	detector := &mockDetector{
		boxes: []geometry.BoundingBox{{Coords: [4]int{100, 100, 600, 700}, Label: "photo"}},
	}
	generator := &mockGenerator{
		result: &media.Image{Data: []byte("regenerated"), MIMEType: "image/png"},
	}
	fetcher := &mockFetcher{img: testFlyer(t)}

	result := newTestPipeline(detector, generator, fetcher).
		Extract(context.Background(), detect.AssetPropertyPhoto, ImageRef{URL: "http://example.com/flyer.png"})

	if result.Err != "" {
		t.Fatalf("unexpected error: %s", result.Err)
	}
	if result.Intermediate == nil {
		t.Fatal("expected intermediate crop")
	}
	if result.Intermediate.MIMEType != "image/png" {
		t.Errorf("intermediate MIME type = %s, want image/png", result.Intermediate.MIMEType)
	}
	if _, err := png.Decode(bytes.NewReader(result.Intermediate.Data)); err != nil {
		t.Errorf("intermediate is not decodable PNG: %v", err)
	}
	if result.Final == nil || string(result.Final.Data) != "regenerated" {
		t.Errorf("final = %+v, want regenerated image", result.Final)
	}
	if generator.lastReq.AspectRatio != "4:3" {
		t.Errorf("aspect ratio = %s, want 4:3", generator.lastReq.AspectRatio)
	}
	if generator.lastReq.Prompt == "" {
		t.Error("expected a regeneration prompt")
	}
}

func TestPipelineExtractNothingDetected(t *testing.T) {
	detector := &mockDetector{boxes: nil}
	generator := &mockGenerator{}
	fetcher := &mockFetcher{img: testFlyer(t)}

	result := newTestPipeline(detector, generator, fetcher).
		Extract(context.Background(), detect.AssetFloorPlan, ImageRef{URL: "http://example.com/flyer.png"})

	if result.Intermediate != nil || result.Final != nil {
		t.Errorf("expected no images on absence, got %+v", result)
	}
	if !strings.Contains(result.Err, "間取り図") {
		t.Errorf("error = %q, want kind display name in message", result.Err)
	}
	if generator.callCount != 0 {
		t.Errorf("generator called %d times on absence, want 0", generator.callCount)
	}
}

func TestPipelineExtractDetectionError(t *testing.T) {
	detector := &mockDetector{err: errors.New("candidate blocked due to SAFETY")}
	generator := &mockGenerator{}
	fetcher := &mockFetcher{img: testFlyer(t)}

	result := newTestPipeline(detector, generator, fetcher).
		Extract(context.Background(), detect.AssetPropertyPhoto, ImageRef{})

	if result.Err != "安全性ポリシーにより画像を生成できませんでした" {
		t.Errorf("error = %q, want localized safety message", result.Err)
	}
	if generator.callCount != 0 {
		t.Errorf("generator called %d times after detection failure, want 0", generator.callCount)
	}
}

func TestPipelineExtractGenerationFailureKeepsIntermediate(t *testing.T) {
	detector := &mockDetector{
		boxes: []geometry.BoundingBox{{Coords: [4]int{0, 0, 500, 500}}},
	}
	generator := &mockGenerator{err: errors.New("quota exceeded for project")}
	fetcher := &mockFetcher{img: testFlyer(t)}

	result := newTestPipeline(detector, generator, fetcher).
		Extract(context.Background(), detect.AssetPropertyPhoto, ImageRef{})

	if result.Intermediate == nil {
		t.Error("expected intermediate crop to survive generation failure")
	}
	if result.Final != nil {
		t.Error("expected no final image on generation failure")
	}
	if !strings.Contains(result.Err, "上限") {
		t.Errorf("error = %q, want localized quota message", result.Err)
	}
}

func TestPipelineExtractFetchFailure(t *testing.T) {
	detector := &mockDetector{}
	generator := &mockGenerator{}
	fetcher := &mockFetcher{err: errors.New("connection refused")}

	result := newTestPipeline(detector, generator, fetcher).
		Extract(context.Background(), detect.AssetPropertyPhoto, ImageRef{URL: "http://example.com/x.png"})

	if result.Err == "" {
		t.Fatal("expected an error message")
	}
	if detector.callCount != 0 {
		t.Errorf("detector called %d times after fetch failure, want 0", detector.callCount)
	}
}
