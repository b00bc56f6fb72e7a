package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	return m
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	cfg := &Config{Level: "invalid-level", Format: "json", Output: "stdout"}
	if l := New(cfg, "test"); l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "authgate").WithComponent("tokenstore").Warn("hello")

	m := decodeLine(t, &buf)
	if m[FieldComponent] != "tokenstore" {
		t.Errorf("expected component=tokenstore, got %v", m[FieldComponent])
	}
	if m[FieldService] != "authgate" {
		t.Errorf("service should be preserved, got %v", m[FieldService])
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithUserID(ctx, "user-7")

	NewWithWriter(&buf, "authgate").WithContext(ctx).Warn("ctx")

	m := decodeLine(t, &buf)
	if m[FieldRequestID] != "req-1" {
		t.Errorf("expected request_id=req-1, got %v", m[FieldRequestID])
	}
	if m[FieldUserID] != "user-7" {
		t.Errorf("expected user_id=user-7, got %v", m[FieldUserID])
	}
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext = %q", got)
	}
}

func TestLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "authgate").WithComponent("tokenstore")
	l.Error("failed", ErrorFields("persist", fmt.Errorf("boom")), Fields("attempt", 2))

	m := decodeLine(t, &buf)
	if m["level"] != "error" {
		t.Errorf("expected level=error, got %v", m["level"])
	}
	if m[FieldOperation] != "persist" || m[FieldError] != "boom" {
		t.Errorf("expected operation and error fields, got %v", m)
	}
	if m["attempt"] != float64(2) {
		t.Errorf("expected attempt=2, got %v", m["attempt"])
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Info("dropped")
	l.WithComponent("x").Error("dropped")
}

func TestGlobalLogger(t *testing.T) {
	orig := globalLogger
	defer func() { globalLogger = orig }()

	globalLogger = nil
	if GetGlobalLogger() == nil {
		t.Fatal("expected a default global logger")
	}

	custom := NewNop()
	SetGlobalLogger(custom)
	if GetGlobalLogger() != custom {
		t.Error("SetGlobalLogger did not replace the global logger")
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, "b", "two", 3, "skipped", "dangling")
	if len(m) != 2 {
		t.Fatalf("expected 2 fields, got %d: %v", len(m), m)
	}
	if m["a"] != 1 || m["b"] != "two" {
		t.Errorf("unexpected fields %v", m)
	}

	ef := ErrorFields("persist", fmt.Errorf("disk"))
	if ef[FieldOperation] != "persist" || ef[FieldError] != "disk" {
		t.Errorf("unexpected error fields %v", ef)
	}

	df := DurationFields("purge", 1500*time.Millisecond)
	if df[FieldDuration] != int64(1500) {
		t.Errorf("expected 1500ms, got %v", df[FieldDuration])
	}
}

func TestConfig_ApplyDefaultsAndValidate(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != FormatConsole || cfg.Output != "stdout" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad level", Config{Level: "loud", Format: FormatJSON}},
		{"bad format", Config{Level: "info", Format: "xml"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
