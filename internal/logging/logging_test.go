package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/raysh454/threatcheck/internal/logging"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("line is not JSON: %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogger_WritesJSONLine(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := logging.NewLogger(&buf, "verifier", logging.LevelDebug)

	l.Info("submitted", logging.Field{Key: "analysis_id", Value: "abc"})

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0]["level"] != "info" || lines[0]["msg"] != "submitted" || lines[0]["component"] != "verifier" {
		t.Errorf("unexpected entry: %v", lines[0])
	}
	fields, _ := lines[0]["fields"].(map[string]any)
	if fields["analysis_id"] != "abc" {
		t.Errorf("expected analysis_id field, got %v", fields)
	}
}

func TestLogger_LevelThreshold(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := logging.NewLogger(&buf, "", logging.LevelWarn)

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines above warn, got %d", len(lines))
	}
}

func TestLogger_WithComponentAndFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	root := logging.NewLogger(&buf, "root", logging.LevelInfo)

	child := root.With(
		logging.Field{Key: "component", Value: "scanclient"},
		logging.Field{Key: "backend", Value: "nethttp"},
	)
	child.Warn("request failed", logging.Field{Key: "error", Value: errors.New("boom")})

	lines := decodeLines(t, &buf)
	if lines[0]["component"] != "scanclient" {
		t.Errorf("expected component scanclient, got %v", lines[0]["component"])
	}
	fields, _ := lines[0]["fields"].(map[string]any)
	if fields["backend"] != "nethttp" {
		t.Errorf("expected persistent backend field, got %v", fields)
	}
	if fields["error"] != "boom" {
		t.Errorf("expected error rendered as string, got %v", fields["error"])
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    logging.Level
		wantErr bool
	}{
		{"", logging.LevelInfo, false},
		{"DEBUG", logging.LevelDebug, false},
		{"warning", logging.LevelWarn, false},
		{"error", logging.LevelError, false},
		{"loud", logging.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := logging.ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err=%v, wantErr=%v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
