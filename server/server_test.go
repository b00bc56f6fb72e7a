package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authgate/component"
	apperrors "github.com/kbukum/authgate/errors"
	"github.com/kbukum/authgate/logger"
	"github.com/kbukum/authgate/security"
	"github.com/kbukum/authgate/security/tlstest"
)

func newTestServer(cfg Config) *Server {
	s := New(cfg, logger.NewNop())
	s.ApplyMiddleware()
	return s
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServer_StartServeStop(t *testing.T) {
	s := newTestServer(Config{Host: "127.0.0.1", Port: freePort(t)})
	s.RegisterDefaultEndpoints("authgate", func(context.Context) []component.Health {
		return []component.Health{{Name: "database", Status: component.StatusHealthy}}
	})
	comp := NewComponent(s)

	if h := comp.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}
	if err := comp.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { comp.Stop(context.Background()) })

	if h := comp.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy after start, got %s", h.Status)
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/health", s.Addr()))
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("expected request id header from the server middleware")
	}

	if err := comp.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := comp.Stop(context.Background()); err != nil {
		t.Errorf("second Stop should be a no-op: %v", err)
	}
}

func TestServer_TLS(t *testing.T) {
	certs := tlstest.Generate(t)
	s := newTestServer(Config{
		Host: "127.0.0.1",
		Port: freePort(t),
		TLS:  security.TLSConfig{Enabled: true, CertFile: certs.CertFile, KeyFile: certs.KeyFile},
	})
	s.RegisterDefaultEndpoints("authgate", nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { s.Stop(context.Background()) })

	client := &http.Client{Transport: &http.Transport{
		TLSClientConfig:   &tls.Config{RootCAs: certs.Pool},
		ForceAttemptHTTP2: true,
	}}
	resp, err := client.Get(fmt.Sprintf("https://%s/health/live", s.Addr()))
	if err != nil {
		t.Fatalf("GET over TLS: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if resp.ProtoMajor != 2 {
		t.Errorf("expected HTTP/2 over ALPN, got %s", resp.Proto)
	}
}

func TestServer_TLSWithoutCertFailsStart(t *testing.T) {
	s := newTestServer(Config{Host: "127.0.0.1", Port: freePort(t), TLS: security.TLSConfig{Enabled: true}})
	if err := s.Start(context.Background()); err == nil {
		s.Stop(context.Background())
		t.Fatal("expected start to fail without a certificate")
	}
}

func TestServer_NoRoute(t *testing.T) {
	s := newTestServer(Config{})
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/nope", http.NoBody))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	var body apperrors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != apperrors.ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", body.Error.Code)
	}
}

func TestServer_PanicRecovered(t *testing.T) {
	s := newTestServer(Config{})
	s.GinEngine().GET("/boom", func(*gin.Context) { panic("boom") })

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/boom", http.NoBody))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestRespondWithError_ExposeErrors(t *testing.T) {
	tests := []struct {
		name   string
		expose bool
		err    error
		status int
		reason bool
	}{
		{"app error", true, apperrors.Conflict("taken"), http.StatusConflict, false},
		{"plain error hidden", false, errors.New("disk on fire"), http.StatusInternalServerError, false},
		{"plain error exposed", true, errors.New("disk on fire"), http.StatusInternalServerError, true},
		{"storage failure exposed", true, apperrors.StorageFailure("persist", errors.New("locked")), http.StatusServiceUnavailable, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(Config{ExposeErrors: tc.expose})
			s.GinEngine().GET("/err", func(c *gin.Context) { RespondWithError(c, tc.err) })

			rr := httptest.NewRecorder()
			s.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/err", http.NoBody))
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			var body apperrors.ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			_, hasReason := body.Error.Details["reason"]
			if hasReason != tc.reason {
				t.Errorf("expected reason present=%v, got details %v", tc.reason, body.Error.Details)
			}
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Port != 8080 || cfg.MaxBodySize != "1MB" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	bad := Config{Port: 70000}
	if bad.Validate() == nil {
		t.Error("expected invalid port error")
	}
}
