package slogpretty

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestPrettyHandler(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	opts := PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelInfo}}
	log := slog.New(opts.NewPrettyHandler(&buf)).With(slog.String("component", "test"))

	log.Debug("hidden")
	log.Warn("cache read failed", slog.String("dataset", "supply"), slog.Any("error", errors.New("boom")))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN:")
	assert.Contains(t, out, "cache read failed")
	assert.Contains(t, out, `"dataset": "supply"`)
	assert.Contains(t, out, `"error": "boom"`)
	assert.Contains(t, out, `"component": "test"`)
}
