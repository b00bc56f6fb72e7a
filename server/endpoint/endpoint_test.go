package endpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authgate/component"
)

func serve(t *testing.T, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", h)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/x", http.NoBody))
	return rr
}

func checker(statuses ...component.HealthStatus) HealthChecker {
	return func(context.Context) []component.Health {
		out := make([]component.Health, len(statuses))
		for i, s := range statuses {
			out[i] = component.Health{Name: string(s), Status: s}
		}
		return out
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		checker  HealthChecker
		code     int
		expected component.HealthStatus
	}{
		{"no checker", nil, http.StatusOK, component.StatusHealthy},
		{"all healthy", checker(component.StatusHealthy, component.StatusHealthy), http.StatusOK, component.StatusHealthy},
		{"degraded", checker(component.StatusHealthy, component.StatusDegraded), http.StatusOK, component.StatusDegraded},
		{"unhealthy", checker(component.StatusDegraded, component.StatusUnhealthy), http.StatusServiceUnavailable, component.StatusUnhealthy},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(t, Health("authgate", tc.checker))
			if rr.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rr.Code)
			}
			var body HealthResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tc.expected || body.Service != "authgate" {
				t.Errorf("unexpected body %+v", body)
			}
		})
	}
}

func TestReadinessAndLiveness(t *testing.T) {
	if rr := serve(t, Readiness("authgate", checker(component.StatusUnhealthy))); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rr.Code)
	}
	if rr := serve(t, Readiness("authgate", checker(component.StatusDegraded))); rr.Code != http.StatusOK {
		t.Errorf("degraded should still be ready, got %d", rr.Code)
	}
	if rr := serve(t, Liveness("authgate")); rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

func TestVersion(t *testing.T) {
	rr := serve(t, Version())
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["version"] == "" || body["version"] == nil {
		t.Errorf("expected a version, got %v", body)
	}
}
