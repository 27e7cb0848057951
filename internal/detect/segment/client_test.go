package segment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/flyerdeck/flyerdeck/internal/detect"
	"github.com/flyerdeck/flyerdeck/internal/media"
)

type mockHTTPClient struct {
	client *http.Client
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.client.Do(req)
}

func testImage() media.Image {
	return media.Image{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"}
}

func TestClient_Detect_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/segment" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer seg-key" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [
				{"mask": "aGVsbG8=", "score": 0.91, "box_2d": [100, 50, 900, 700], "label": "floor plan drawing"},
				{"mask": "d29ybGQ=", "score": 0.95, "box_2d": [400, 400, 500, 500], "label": "floor plan drawing"}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		APIKey:     "seg-key",
		HTTPClient: &mockHTTPClient{client: server.Client()},
		Logger:     zerolog.Nop(),
	})

	boxes, err := client.Detect(context.Background(), testImage(), detect.AssetFloorPlan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(boxes) != 2 {
		t.Fatalf("expected 2 candidate boxes, got %d", len(boxes))
	}

	// Candidate order is preserved so the largest-area tiebreak stays
	// first-returned.
	if boxes[0].Coords != [4]int{100, 50, 900, 700} {
		t.Errorf("candidate order not preserved: %v", boxes[0].Coords)
	}

	best, ok := detect.LargestBox(boxes)
	if !ok || best.Coords != [4]int{100, 50, 900, 700} {
		t.Errorf("largest-area candidate not selected: %v", best.Coords)
	}
}

func TestClient_Detect_InvalidCandidatesDropped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"score":0.5,"box_2d":[900,900,100,100],"label":"inverted"}]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: &mockHTTPClient{client: server.Client()},
		Logger:     zerolog.Nop(),
	})

	boxes, err := client.Detect(context.Background(), testImage(), detect.AssetFloorPlan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(boxes) != 0 {
		t.Errorf("invalid candidates must be dropped, got %v", boxes)
	}
}

func TestClient_Detect_EmptyResponseIsAbsence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: &mockHTTPClient{client: server.Client()},
		Logger:     zerolog.Nop(),
	})

	boxes, err := client.Detect(context.Background(), testImage(), detect.AssetPropertyPhoto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(boxes) != 0 {
		t.Errorf("expected absence, got %v", boxes)
	}
}
