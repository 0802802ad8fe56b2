package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewJSONWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(String("component", "scene")).Debug(context.Background(), "drag",
		Float64("dx", 3.5), Bool("applied", true), Err(errors.New("boom")))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	if rec["msg"] != "drag" || rec["component"] != "scene" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if rec["dx"] != 3.5 || rec["applied"] != true || rec["error"] != "boom" {
		t.Fatalf("unexpected fields: %v", rec)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
	log.Warn(context.Background(), "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn not logged: %q", buf.String())
	}
}

func TestNewFromEnvWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orbs.log")
	t.Setenv(EnvFile, path)
	t.Setenv(EnvFormat, "json")

	log, closeFn, err := NewFromEnv(nil)
	if err != nil {
		t.Fatalf("NewFromEnv error: %v", err)
	}
	log.Info(context.Background(), "to file")
	if err := closeFn(); err != nil {
		t.Fatalf("close error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"to file"`) {
		t.Fatalf("log file = %q", data)
	}
}

func TestWithRequestLoggerStoresIDAndLogger(t *testing.T) {
	ctx, l := WithRequestLogger(context.Background(), nil, "")
	if l == nil {
		t.Fatalf("nil logger")
	}
	id := RequestIDFromContext(ctx)
	if id == "" {
		t.Fatalf("request id not set")
	}
	if LoggerFromContext(ctx) == nil {
		t.Fatalf("logger not stored on context")
	}

	ctx, _ = WithRequestLogger(context.Background(), Noop(), "upstream-7")
	if got := RequestIDFromContext(ctx); got != "upstream-7" {
		t.Fatalf("request id = %q, want the inbound one", got)
	}
}
