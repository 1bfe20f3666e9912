package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		raw   string
		level zerolog.Level
		ok    bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, true},
		{" WARN ", zerolog.WarnLevel, true},
		{"off", zerolog.Disabled, true},
		{"bogus", zerolog.InfoLevel, false},
	}
	for _, tc := range cases {
		level, ok := parseLevel(tc.raw)
		if level != tc.level || ok != tc.ok {
			t.Fatalf("parseLevel(%q) = (%v, %v), want (%v, %v)", tc.raw, level, ok, tc.level, tc.ok)
		}
	}
}

func TestParseBool(t *testing.T) {
	if v, ok := parseBool("true"); !v || !ok {
		t.Fatalf("parseBool(true) = (%v, %v)", v, ok)
	}
	if _, ok := parseBool(""); ok {
		t.Fatalf("empty string should not parse")
	}
	if _, ok := parseBool("maybe"); ok {
		t.Fatalf("garbage should not parse")
	}
}

func TestWireLoggerRecordsLine(t *testing.T) {
	var sb strings.Builder
	sink := NewWireLogger(zerolog.New(&sb))
	sink.RecordLine(`OK {"isabelle_id":"mock"}`)
	if !strings.Contains(sb.String(), `OK {\"isabelle_id\":\"mock\"}`) {
		t.Fatalf("wire line not recorded: %q", sb.String())
	}
}

func TestFileWireLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	sink, closeSink, err := NewFileWireLogger(path)
	if err != nil {
		t.Fatalf("new file sink: %v", err)
	}
	sink.RecordLine("OK")
	sink.RecordLine("FINISHED done")
	if err := closeSink(); err != nil {
		t.Fatalf("close sink: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "FINISHED done") {
		t.Fatalf("log missing wire line: %q", string(data))
	}
}
