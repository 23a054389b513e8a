package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_JSONToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "log.json")
	l, err := New(Config{Level: "debug", Format: "json", OutputPath: out})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Debug("extracting entry", Entry("a/b.txt"))
	_ = l.Sync()

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, `"msg":"extracting entry"`) || !strings.Contains(got, `"entry":"a/b.txt"`) {
		t.Errorf("log output missing fields: %s", got)
	}
}

func TestNew_LevelFiltersDebug(t *testing.T) {
	out := filepath.Join(t.TempDir(), "log.json")
	l, err := New(Config{Level: "warn", Format: "json", OutputPath: out})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("hidden")
	l.Warn("shown")
	_ = l.Sync()

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(data), "hidden") {
		t.Error("info message written at warn level")
	}
	if !strings.Contains(string(data), "shown") {
		t.Error("warn message missing")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
}
