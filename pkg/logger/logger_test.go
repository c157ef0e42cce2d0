package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")
	log := New(Options{Production: true, FilePath: path})

	log.Info("consultation created")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"message":"consultation created"`) {
		t.Fatalf("expected JSON log line, got %s", data)
	}
}
