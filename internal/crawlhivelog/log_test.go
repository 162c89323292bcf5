package crawlhivelog_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/lukemcguire/crawlhive/internal/crawlhivelog"
)

func TestNewJSONHandlerEmitsParseableRecords(t *testing.T) {
	var buf bytes.Buffer
	log := crawlhivelog.New(crawlhivelog.Options{JSON: true, Output: &buf, Level: slog.LevelInfo})

	log.Info("crawl started", "url", "https://example.com")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal log line: %v\nraw: %s", err, buf.String())
	}
	if record["msg"] != "crawl started" {
		t.Errorf("msg = %v, want %q", record["msg"], "crawl started")
	}
	if record["url"] != "https://example.com" {
		t.Errorf("url = %v, want https://example.com", record["url"])
	}
}

func TestNewTextHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := crawlhivelog.New(crawlhivelog.Options{Output: &buf, Level: slog.LevelWarn})

	log.Info("should be filtered out")
	log.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should be filtered out") {
		t.Errorf("info record logged despite Warn level: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("warn record missing from output: %q", out)
	}
}

func TestNewDefaultsToStderrWithoutPanicking(t *testing.T) {
	log := crawlhivelog.New(crawlhivelog.Options{})
	log.Info("no output target configured, should not panic")
}
