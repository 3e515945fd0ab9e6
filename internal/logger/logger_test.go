package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetup_ReturnsJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	if l == nil {
		t.Fatal("expected non-nil logger")
	}

	l.Info("test message", slog.String("key", "value"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log output, got error: %v\nraw output: %s", err, buf.String())
	}

	if entry["msg"] != "test message" {
		t.Errorf("msg = %q, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %q, want %q", entry["key"], "value")
	}
}

func TestSetup_IncludesTimeAndLevelFields(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	l.Warn("warning test")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if _, ok := entry["time"]; !ok {
		t.Error("expected 'time' field in JSON log output")
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %q, want %q", entry["level"], "WARN")
	}
}

func TestSetup_MultipleAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	l.Info("session cleanup finished",
		slog.String("session_id", "s-123"),
		slog.Int("deleted_count", 4),
		slog.Float64("duration_ms", 12.5),
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if entry["session_id"] != "s-123" {
		t.Errorf("session_id = %q, want %q", entry["session_id"], "s-123")
	}
	if entry["deleted_count"] != float64(4) {
		t.Errorf("deleted_count = %v, want %v", entry["deleted_count"], 4)
	}
	if entry["duration_ms"] != 12.5 {
		t.Errorf("duration_ms = %v, want %v", entry["duration_ms"], 12.5)
	}
}

func TestSetup_LevelFollowsEnv(t *testing.T) {
	t.Run("デフォルトではdebugを出力しない", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "")
		var buf bytes.Buffer
		Setup(&buf).Debug("hidden")

		if buf.Len() != 0 {
			t.Errorf("debug log should be suppressed at default level, got %q", buf.String())
		}
	})

	t.Run("LOG_LEVEL=debugでdebugを出力する", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "debug")
		var buf bytes.Buffer
		Setup(&buf).Debug("visible")

		if buf.Len() == 0 {
			t.Error("debug log should be emitted when LOG_LEVEL=debug")
		}
	})

	t.Run("LOG_LEVEL=errorでwarnを抑制する", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "error")
		var buf bytes.Buffer
		Setup(&buf).Warn("hidden")

		if buf.Len() != 0 {
			t.Errorf("warn log should be suppressed at error level, got %q", buf.String())
		}
	})

	t.Run("不正な値はinfoに落ちる", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "verbose")
		var buf bytes.Buffer
		Setup(&buf).Info("visible")

		if buf.Len() == 0 {
			t.Error("info log should be emitted for unknown LOG_LEVEL values")
		}
	})
}

func TestSetupDefault_SetsGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	SetupDefault(&buf)

	slog.Default().Info("global test", slog.String("test_key", "test_val"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v\nraw: %s", err, buf.String())
	}

	if entry["msg"] != "global test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "global test")
	}
	if entry["test_key"] != "test_val" {
		t.Errorf("test_key = %q, want %q", entry["test_key"], "test_val")
	}
}
