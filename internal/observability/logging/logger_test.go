package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got %s", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got %s", cfg.Format)
	}
	if cfg.TimeFormat != time.RFC3339 {
		t.Errorf("expected RFC3339 time format, got %s", cfg.TimeFormat)
	}
}

func TestInit_InvalidLevelFallsBackToInfo(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "not-a-level"
	Init(cfg)

	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("expected info level on invalid input, got %s", zerolog.GlobalLevel())
	}
}

func TestWithJob_AttachesContext(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	logger := WithJob("job-1", "file-1")
	logger.Info().Msg("processing")

	out := buf.String()
	if !strings.Contains(out, `"jobId":"job-1"`) {
		t.Errorf("jobId missing from log line: %s", out)
	}
	if !strings.Contains(out, `"fileId":"file-1"`) {
		t.Errorf("fileId missing from log line: %s", out)
	}
}

func TestWithComponent_AttachesContext(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	logger := WithComponent("queue.listener")
	logger.Info().Msg("started")

	if !strings.Contains(buf.String(), `"component":"queue.listener"`) {
		t.Errorf("component missing from log line: %s", buf.String())
	}
}
