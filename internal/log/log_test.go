package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{"WARN", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"trace", zerolog.TraceLevel, false},
		{"loud", zerolog.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLogger(&buf, "warn")
	l.Info().Msg("hidden")
	l.Warn().Str("k", "v").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["message"] != "shown" || entry["k"] != "v" {
		t.Errorf("entry = %v", entry)
	}
}

func TestInit_FileIsJSON(t *testing.T) {
	saved := output
	output = &bytes.Buffer{}
	defer func() {
		output = saved
		if err := Init("info", false, ""); err != nil {
			t.Errorf("restore logger: %v", err)
		}
	}()

	path := filepath.Join(t.TempDir(), "xudt.log")
	if err := Init("debug", false, path); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Wallet.Debug().Msg("to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log file is not JSON: %v", err)
	}
	if entry["component"] != "wallet" || entry["message"] != "to file" {
		t.Errorf("entry = %v", entry)
	}
}

func TestInit_BadLevel(t *testing.T) {
	if err := Init("loud", true, ""); err == nil {
		t.Error("expected error for unknown level")
	}
}
