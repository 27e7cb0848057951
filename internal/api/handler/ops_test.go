package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flyerdeck/flyerdeck/internal/api/models"
	"github.com/flyerdeck/flyerdeck/internal/provider/resilience"
)

func TestHealthCheck(t *testing.T) {
	h := NewOpsHandler("1.2.3", "2026-01-01T00:00:00Z", nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var health models.Health
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != models.HealthStatusOK {
		t.Errorf("status = %s, want OK", health.Status)
	}
	if health.Details["version"] != "1.2.3" {
		t.Errorf("version = %v, want 1.2.3", health.Details["version"])
	}
}

func TestReadinessCheck(t *testing.T) {
	h := NewOpsHandler("dev", "", nil)
	rec := httptest.NewRecorder()
	h.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestSystemStatus(t *testing.T) {
	registry := resilience.NewRegistry()
	resilience.NewClient(resilience.ClientConfig{Name: "gemini", Registry: registry})
	resilience.NewClient(resilience.ClientConfig{Name: "routes", Registry: registry})
	registry.RecordSuccess("gemini")
	registry.RecordFailure("routes", errors.New("upstream 503"))

	h := NewOpsHandler("dev", "", registry)
	rec := httptest.NewRecorder()
	h.SystemStatus(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var status models.SystemStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Status != models.HealthStatusOK {
		t.Errorf("overall = %s, want OK with closed circuits", status.Status)
	}
	if len(status.Providers) != 2 {
		t.Fatalf("got %d providers, want 2", len(status.Providers))
	}

	byName := map[string]models.ProviderStatus{}
	for _, p := range status.Providers {
		byName[p.Provider] = p
	}
	if byName["gemini"].LastSuccessAt == nil {
		t.Error("gemini missing last success timestamp")
	}
	routes := byName["routes"]
	if routes.Message == nil || *routes.Message != "upstream 503" {
		t.Errorf("routes message = %v, want upstream 503", routes.Message)
	}
}

func TestSystemStatusNoRegistry(t *testing.T) {
	h := NewOpsHandler("dev", "", nil)
	rec := httptest.NewRecorder()
	h.SystemStatus(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/status", nil))

	var status models.SystemStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Status != models.HealthStatusOK {
		t.Errorf("overall = %s, want OK", status.Status)
	}
	if len(status.Providers) != 0 {
		t.Errorf("got %d providers, want none", len(status.Providers))
	}
}
