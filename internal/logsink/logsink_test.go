package logsink

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewForTestingRoutesToDistinctWriters(t *testing.T) {
	var events, fallbacks bytes.Buffer
	s := NewForTesting(LevelInfo, &events, &fallbacks)

	s.Events().Info("translated a write statement")
	s.Fallbacks().Warn("falling back to embedded engine", "reason", "unsupported pragma")

	if !strings.Contains(events.String(), "translated a write statement") {
		t.Errorf("expected the event message in the events stream, got %q", events.String())
	}
	if strings.Contains(fallbacks.String(), "translated a write statement") {
		t.Errorf("did not expect the event message to leak into the fallback stream")
	}
	if !strings.Contains(fallbacks.String(), "unsupported pragma") {
		t.Errorf("expected the fallback reason in the fallback stream, got %q", fallbacks.String())
	}
}

func TestLevelFiltersBelowThreshold(t *testing.T) {
	var events bytes.Buffer
	s := NewForTesting(LevelError, &events, &bytes.Buffer{})
	s.Events().Info("should be filtered out")
	s.Events().Error("should appear")

	if strings.Contains(events.String(), "should be filtered out") {
		t.Errorf("expected INFO to be filtered at LevelError, got %q", events.String())
	}
	if !strings.Contains(events.String(), "should appear") {
		t.Errorf("expected ERROR to pass through, got %q", events.String())
	}
}
