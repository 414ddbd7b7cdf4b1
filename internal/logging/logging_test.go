package logging

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDefaultLogPath(t *testing.T) {
	path := DefaultLogPath()

	if filepath.Base(path) != "vaultsearch.log" {
		t.Errorf("DefaultLogPath() = %s, want vaultsearch.log file", path)
	}
	if !strings.Contains(path, filepath.Join(".vaultsearch", "logs")) {
		t.Errorf("DefaultLogPath() = %s, want under .vaultsearch/logs", path)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("Level = %s, want info", cfg.Level)
	}
	if cfg.MaxSizeMB != 10 || cfg.MaxFiles != 5 {
		t.Errorf("rotation = %dMB/%d files, want 10MB/5 files", cfg.MaxSizeMB, cfg.MaxFiles)
	}
	if cfg.WriteToStderr {
		t.Error("default config should not write to stderr")
	}

	debug := DebugConfig()
	if debug.Level != "debug" || !debug.WriteToStderr {
		t.Errorf("DebugConfig() = %+v, want debug level mirrored to stderr", debug)
	}
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "vaultsearch.log")

	logger, cleanup, err := Setup(Config{Level: "info", FilePath: logPath, MaxSizeMB: 1, MaxFiles: 2})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	logger.Debug("hidden_event")
	logger.Info("ingest_item_done", slog.String("item_id", "passport"), slog.Int("chunks", 3))
	cleanup()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	got := string(content)
	if !strings.Contains(got, `"msg":"ingest_item_done"`) || !strings.Contains(got, `"item_id":"passport"`) {
		t.Errorf("log missing event: %s", got)
	}
	if strings.Contains(got, "hidden_event") {
		t.Error("debug record written at info level")
	}
}

func TestSetup_NoFileUsesStderr(t *testing.T) {
	logger, cleanup, err := Setup(Config{Level: "warn"})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer cleanup()

	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"chatty", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := LevelFromString(tt.input); got != tt.want {
			t.Errorf("LevelFromString(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestFindLogFile(t *testing.T) {
	if _, err := FindLogFile(filepath.Join(t.TempDir(), "missing.log")); err == nil {
		t.Error("expected error for missing explicit path")
	}

	path := filepath.Join(t.TempDir(), "present.log")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := FindLogFile(path)
	if err != nil || got != path {
		t.Errorf("FindLogFile() = %s, %v; want %s", got, err, path)
	}
}

// ============================================================================
// Writer
// ============================================================================

func TestRotatingWriter_Rotation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "rotate.log")

	// 0 MB rotates before every write to a non-empty file.
	w, err := NewRotatingWriter(logPath, 0, 3)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	defer w.Close()

	for _, line := range []string{"first\n", "second\n", "third\n"} {
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	want := map[string]string{
		logPath:        "third\n",
		logPath + ".1": "second\n",
		logPath + ".2": "first\n",
	}
	for path, content := range want {
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if string(got) != content {
			t.Errorf("%s = %q, want %q", filepath.Base(path), got, content)
		}
	}
}

func TestRotatingWriter_MaxFilesLimit(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "maxfiles.log")

	w, err := NewRotatingWriter(logPath, 0, 2)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	defer w.Close()

	for i := 0; i < 5; i++ {
		if _, err := fmt.Fprintf(w, "line %d\n", i); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	if _, err := os.Stat(logPath + ".2"); err != nil {
		t.Errorf(".2 should exist: %v", err)
	}
	if _, err := os.Stat(logPath + ".3"); !os.IsNotExist(err) {
		t.Error("rotated file .3 should not exist (beyond maxFiles)")
	}
}

func TestRotatingWriter_AppendsToExisting(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "append.log")
	if err := os.WriteFile(logPath, []byte("old\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	w, err := NewRotatingWriter(logPath, 1, 3)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	if _, err := w.Write([]byte("new\n")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := w.Sync(); err != nil {
		t.Errorf("sync failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}

	got, _ := os.ReadFile(logPath)
	if string(got) != "old\nnew\n" {
		t.Errorf("content = %q, want appended", got)
	}
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "concurrent.log")

	w, err := NewRotatingWriter(logPath, 10, 3)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	defer w.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = fmt.Fprintf(w, `{"id":%d,"iter":%d}`+"\n", id, j)
			}
		}(i)
	}
	wg.Wait()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file should exist: %v", err)
	}
	if n := strings.Count(string(content), "\n"); n != 1000 {
		t.Errorf("lines = %d, want 1000", n)
	}
}

// ============================================================================
// Viewer
// ============================================================================

const sampleLog = `{"time":"2026-03-01T09:00:00.000Z","level":"DEBUG","msg":"search_completed","results":2}
{"time":"2026-03-01T09:00:01.000Z","level":"INFO","msg":"ingest_item_done","item_id":"lease","chunks":4}
not json at all
{"time":"2026-03-01T09:00:02.000Z","level":"WARN","msg":"search_vector_leg_failed","error":"model unavailable"}
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vaultsearch.log")
	if err := os.WriteFile(path, []byte(sampleLog), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestViewer_Tail(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})

	entries, err := v.Tail(writeSample(t), 2)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].IsValid {
		t.Error("plain line should be kept as invalid entry")
	}
	if entries[1].Msg != "search_vector_leg_failed" {
		t.Errorf("last msg = %s", entries[1].Msg)
	}
}

func TestViewer_Tail_LevelFilter(t *testing.T) {
	v := NewViewer(ViewerConfig{Level: "info", NoColor: true}, &bytes.Buffer{})

	entries, err := v.Tail(writeSample(t), 10)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}

	var msgs []string
	for _, e := range entries {
		if e.IsValid {
			msgs = append(msgs, e.Msg)
		}
	}
	if strings.Join(msgs, ",") != "ingest_item_done,search_vector_leg_failed" {
		t.Errorf("msgs = %v", msgs)
	}
}

func TestViewer_Tail_PatternFilter(t *testing.T) {
	v := NewViewer(ViewerConfig{Pattern: regexp.MustCompile(`lease`), NoColor: true}, &bytes.Buffer{})

	entries, err := v.Tail(writeSample(t), 10)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Attrs["item_id"] != "lease" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestViewer_Tail_Missing(t *testing.T) {
	v := NewViewer(ViewerConfig{}, &bytes.Buffer{})

	if _, err := v.Tail(filepath.Join(t.TempDir(), "none.log"), 5); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestViewer_FormatAndPrint(t *testing.T) {
	var out bytes.Buffer
	v := NewViewer(ViewerConfig{NoColor: true}, &out)

	entries, err := v.Tail(writeSample(t), 10)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	v.Print(entries[1:3])

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := []string{
		"09:00:01.000 INFO  ingest_item_done chunks=4 item_id=lease",
		"not json at all",
	}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestViewer_Follow(t *testing.T) {
	path := writeSample(t)
	v := NewViewer(ViewerConfig{Level: "warn"}, &bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	entries := make(chan LogEntry, 4)
	done := make(chan error, 1)
	go func() { done <- v.Follow(ctx, path, entries) }()

	// Give Follow time to seek to the end before appending.
	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString(`{"time":"2026-03-01T09:01:00Z","level":"INFO","msg":"quiet"}` + "\n")
	_, _ = f.WriteString(`{"time":"2026-03-01T09:01:01Z","level":"ERROR","msg":"search_failed"}` + "\n")
	_ = f.Close()

	select {
	case e := <-entries:
		if e.Msg != "search_failed" {
			t.Errorf("followed msg = %s, want search_failed", e.Msg)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for followed entry")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Follow() error = %v", err)
	}
}
