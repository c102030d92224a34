package logger

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestForMatch(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = orig })

	l := ForMatch("ab12c")
	l.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"matchId":"ab12c"`) {
		t.Errorf("missing matchId field: %s", buf.String())
	}
}

func TestLogBatch_Truncates(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).Level(zerolog.DebugLevel)

	lines := make([]string, maxLoggedLines+5)
	for i := range lines {
		lines[i] = fmt.Sprintf("9 %d 0 99", i)
	}
	LogBatch(l, "Response batch", lines)

	out := buf.String()
	if !strings.Contains(out, `"truncated":true`) || !strings.Contains(out, `"total":25`) {
		t.Errorf("expected truncation fields: %s", out)
	}
	if strings.Contains(out, lines[len(lines)-1]) {
		t.Errorf("last line should have been cut: %s", out)
	}
}

func TestLogBatch_Empty(t *testing.T) {
	var buf bytes.Buffer
	LogBatch(zerolog.New(&buf), "nothing", nil)
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %s", buf.String())
	}
}
