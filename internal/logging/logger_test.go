package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
		infoSeen  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"error", false, false},
		{"bogus", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(&buf, tt.level, "text")
			l.Debug("dbg")
			l.Info("inf")

			assert.Equal(t, tt.debugSeen, strings.Contains(buf.String(), "msg=dbg"))
			assert.Equal(t, tt.infoSeen, strings.Contains(buf.String(), "msg=inf"))
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", "json").Info("checkpoint saved", "epoch", 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "checkpoint saved", rec["msg"])
	assert.Equal(t, float64(2), rec["epoch"])
}

func TestInitLoggerSetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	InitLogger("debug", "text")
	require.NotNil(t, Logger)
	assert.Same(t, Logger, slog.Default())
	assert.NotNil(t, WithRun("abc"))
}
