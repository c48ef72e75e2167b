package dtxnlog

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelWarn)
	logger.SetOutput(&buf)

	logger.Debug("comp", "op", "should be filtered", nil)
	logger.Info("comp", "op", "should also be filtered", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected debug/info to be filtered at warn level, got:\n%s", buf.String())
	}

	logger.Warn("comp", "op", "should appear", nil)
	if !strings.Contains(buf.String(), "should appear") {
		t.Error("expected warn-level message to be written")
	}
}

func TestJSONFormatterIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelInfo)
	logger.SetOutput(&buf)

	logger.Info("tm", "commit", "T1 committed", map[string]any{"tx": "T1"})

	out := buf.String()
	for _, want := range []string{`"component":"tm"`, `"operation":"commit"`, `"tx":"T1"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %s, got %s", want, out)
		}
	}
}

func TestWithAttachesPersistentFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(LevelInfo)
	base.SetOutput(&buf)
	child := base.With("run", "42")

	child.Info("comp", "op", "hello", nil)

	if !strings.Contains(buf.String(), `"run":"42"`) {
		t.Errorf("expected persistent field from With, got %s", buf.String())
	}
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelInfo)
	logger.SetOutput(&buf)
	logger.SetFormatter(&TextFormatter{})

	logger.Info("tm", "begin", "T1 begins", map[string]any{"tx": "T1"})

	if !strings.Contains(buf.String(), "tm/begin: T1 begins") {
		t.Errorf("expected text formatter output, got %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug": LevelDebug,
		"warn":  LevelWarn,
		"error": LevelError,
		"info":  LevelInfo,
		"":      LevelInfo,
		"bogus": LevelInfo,
	}
	for s, want := range cases {
		if got := ParseLevel(s); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", s, got, want)
		}
	}
}
