package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deusflow/cosmosbot/internal/news"
	"github.com/deusflow/cosmosbot/internal/pipeline"
	"github.com/deusflow/cosmosbot/internal/storage"
)

func TestVersionCommand(t *testing.T) {
	version, commit, date = "1.2.3", "abc", "2025-01-06"
	defer func() { version, commit, date = "dev", "none", "unknown" }()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := out.String(); got != "cosmosbot 1.2.3 (commit: abc, built: 2025-01-06)\n" {
		t.Errorf("unexpected version output %q", got)
	}
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SOURCES_CONFIG_PATH", filepath.Join(dir, "missing.yaml"))
	t.Setenv("TITLE_FONT_PATH", filepath.Join(dir, "missing.ttf"))
	t.Setenv("SUBTITLE_FONT_PATH", filepath.Join(dir, "missing.ttf"))
	t.Setenv("UNSPLASH_API_KEY", "")
	t.Setenv("HISTORY_BACKEND", "memory")
	t.Setenv("IMAGE_WIDTH", "400")
	t.Setenv("IMAGE_HEIGHT", "210")

	out := filepath.Join(dir, "post.jpg")
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"render", "--title", "Новая миссия к Луне", "--subtitle", "Роскосмос", "-o", out})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if st, err := os.Stat(out); err != nil || st.Size() == 0 {
		t.Fatalf("expected rendered image: %v", err)
	}
	if !strings.Contains(buf.String(), "background: starfield") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, pipeline.CycleResult{
		ID:       "c1",
		Item:     &news.Item{Title: "Старт Falcon 9"},
		Stage:    pipeline.StagePublish,
		Reason:   "publisher reported failure",
		Duration: 1500 * time.Millisecond,
	})
	got := buf.String()
	for _, want := range []string{"Cycle c1 finished in 1.5s", "title: Старт Falcon 9", "not published (publish): publisher reported failure"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, "file", nil)
	if !strings.Contains(buf.String(), "nothing posted yet") {
		t.Errorf("unexpected empty output %q", buf.String())
	}

	buf.Reset()
	printHistory(&buf, "sqlite", []storage.Record{{
		Title:    "Запуск Союз-2",
		SourceID: "roscosmos",
		PostedAt: time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC),
	}})
	if !strings.Contains(buf.String(), "1. Запуск Союз-2") || !strings.Contains(buf.String(), "Posted: 2025-01-06 10:00:00") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
