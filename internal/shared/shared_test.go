package shared

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLogLevel(t *testing.T) {
	tc := []struct {
		name    string
		in      string
		want    log.Level
		wantErr bool
	}{
		{name: "empty defaults to info", in: "", want: log.InfoLevel},
		{name: "debug", in: "debug", want: log.DebugLevel},
		{name: "mixed case", in: "WaRn", want: log.WarnLevel},
		{name: "padded", in: "  error ", want: log.ErrorLevel},
		{name: "unknown", in: "loud", want: log.InfoLevel, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	t.Run("child logger carries fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		child := WithLogger(logger, "run_id", "abc")
		child.Info("hello")

		if !strings.Contains(buf.String(), "run_id=abc") {
			t.Errorf("expected run_id field in output, got %q", buf.String())
		}
	})

	t.Run("level filters debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		SetLogLevel(logger, log.InfoLevel)
		logger.Debug("hidden")

		if buf.Len() != 0 {
			t.Errorf("expected no output at info level, got %q", buf.String())
		}
	})
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc…" {
		t.Errorf("Truncate() = %q, want %q", got, "abc…")
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Errorf("Truncate() = %q, want %q", got, "abc")
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Errorf("Truncate() with n=0 = %q, want %q", got, "abc")
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique IDs")
	}
	if len(a) != 36 {
		t.Errorf("expected 36 character UUID, got %d", len(a))
	}
}
