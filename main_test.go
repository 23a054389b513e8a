package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"zipdir/pkg/archive"
)

func TestDefaultOutput(t *testing.T) {
	dir := t.TempDir()
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change working directory: %v", err)
	}
	defer os.Chdir(origWd)

	if got := defaultOutput("some/site/"); got != "site.zip" {
		t.Errorf("defaultOutput = %q, want site.zip", got)
	}
	if err := os.WriteFile("site.zip", nil, 0o644); err != nil {
		t.Fatalf("Failed to write site.zip: %v", err)
	}
	if got := defaultOutput("some/site"); got != "output.zip" {
		t.Errorf("defaultOutput with existing archive = %q, want output.zip", got)
	}

	// archiving the working directory puts the archive beside it
	want := filepath.Join(filepath.Dir(dir), filepath.Base(dir)+".zip")
	if got := defaultOutput("."); got != want {
		t.Errorf("defaultOutput(.) = %q, want %q", got, want)
	}
	sub := filepath.Join(dir, "some")
	if err := os.MkdirAll(filepath.Join(sub, "site"), 0o755); err != nil {
		t.Fatalf("Failed to create some/site: %v", err)
	}
	if err := os.Chdir(filepath.Join(sub, "site")); err != nil {
		t.Fatalf("Failed to change working directory: %v", err)
	}
	if got := defaultOutput(".."); got != filepath.Join(dir, "some.zip") {
		t.Errorf("defaultOutput(..) = %q, want %q", got, filepath.Join(dir, "some.zip"))
	}
}

func TestWriteEntries(t *testing.T) {
	modified := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	entries := []archive.Entry{
		{Name: "src/a.txt", Size: 2048, CompressedSize: 100, Method: archive.MethodDeflate, Modified: modified},
		{Name: "src/b.bin", Size: 10, CompressedSize: 10, Method: archive.MethodStore, Modified: modified},
	}
	var buf bytes.Buffer
	if err := writeEntries(&buf, entries); err != nil {
		t.Fatalf("writeEntries failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	for i, want := range []string{"deflate", "store"} {
		if !strings.Contains(lines[i], want) || !strings.Contains(lines[i], "2024-03-01 12:30") {
			t.Errorf("line %d = %q, want method %s and timestamp", i, lines[i], want)
		}
	}
	if !strings.HasSuffix(lines[2], "2 entries") {
		t.Errorf("summary line = %q", lines[2])
	}
}

func TestSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zipdir.yaml")
	if err := os.WriteFile(path, []byte("compression: store\nprogress: false\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	cfg := &MainConfig{ConfigFile: path, Verbose: true, Stats: true}
	s, err := cfg.session()
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}
	if s.settings.LogLevel != "debug" {
		t.Errorf("-v did not raise the log level: %q", s.settings.LogLevel)
	}
	if s.tracker(10) != nil {
		t.Error("progress disabled by config but tracker returned")
	}

	base := t.TempDir()
	if err := os.WriteFile(filepath.Join(base, "f.txt"), []byte("abc"), 0o644); err != nil {
		t.Fatalf("Failed to write f.txt: %v", err)
	}
	opts, err := s.encodeOptions(nil)
	if err != nil {
		t.Fatalf("encodeOptions failed: %v", err)
	}
	out := filepath.Join(base, "out.zip")
	if err := archive.ZipFile(out, []string{filepath.Join(base, "f.txt")}, opts...); err != nil {
		t.Fatalf("ZipFile failed: %v", err)
	}
	entries, err := archive.List(out)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Method != archive.MethodStore {
		t.Errorf("entries = %+v, want one stored entry", entries)
	}

	var stats bytes.Buffer
	if err := s.close(&stats); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !strings.Contains(stats.String(), "zipdir_entries_encoded_total 1") {
		t.Errorf("stats output missing encoded counter:\n%s", stats.String())
	}
}

func TestSession_BadConfig(t *testing.T) {
	cfg := &MainConfig{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")}
	if _, err := cfg.session(); err == nil {
		t.Fatal("session accepted a missing config file")
	}
}
