package logging

import (
	"os"
	"path/filepath"
	"testing"

	"drifttapes/internal/config"

	"github.com/sirupsen/logrus"
)

func TestNew(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "store.log")

	logger, closer, err := New(config.LoggingConfig{Level: "debug", Format: "json", File: logFile})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	defer closer.Close()

	if logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", logger.GetLevel())
	}
	if _, ok := logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("formatter = %T, want JSON", logger.Formatter)
	}

	logger.WithField("component", "test").Info("hello")
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected log file to contain output")
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, _, err := New(config.LoggingConfig{Level: "loud", Format: "text"}); err == nil {
		t.Error("New() expected error for bad level")
	}
}
