package logs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/labstack/gommon/log"
)

func TestLoggerWith(t *testing.T) {
	var buffer bytes.Buffer
	logger := NewLogger(log.DEBUG)
	logger.SetOutput(&buffer)
	reqLogger := logger.With(Any("req_id", "42"))
	reqLogger.Warn(
		"Vote rejected",
		Any("assignment_id", 7),
		Any("latency", 1500*time.Millisecond),
		fmt.Errorf("test error"),
	)
	var line map[string]any
	if err := json.Unmarshal(buffer.Bytes(), &line); err != nil {
		t.Fatal("Error:", err)
	}
	expected := map[string]any{
		"level":         "WARN",
		"message":       "Vote rejected",
		"req_id":        "42",
		"assignment_id": float64(7),
		"latency":       "1.5s",
		"error":         "test error",
	}
	for key, value := range expected {
		if line[key] != value {
			t.Fatalf("Expected %v for %q, got %v", value, key, line[key])
		}
	}
	file, ok := line["file"].(string)
	if !ok || !strings.Contains(file, "logger_test.go") {
		t.Fatalf("Invalid caller file: %v", line["file"])
	}
}

func TestLoggerLevel(t *testing.T) {
	var buffer bytes.Buffer
	logger := NewLogger(log.WARN)
	logger.SetOutput(&buffer)
	logger.Info("Hidden")
	logger.Debugf("Hidden %d", 1)
	if buffer.Len() != 0 {
		t.Fatalf("Unexpected output: %q", buffer.String())
	}
	logger.Errorf("Visible %d", 2)
	if !strings.Contains(buffer.String(), `"message":"Visible 2"`) {
		t.Fatalf("Unexpected output: %q", buffer.String())
	}
}
