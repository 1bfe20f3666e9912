package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/provekit/isactl/internal/protocol/frame"
	"github.com/provekit/isactl/internal/testutil/testlog"
)

type recordingSink struct {
	lines []string
}

func (s *recordingSink) RecordLine(line string) {
	s.lines = append(s.lines, line)
}

func collect(t *testing.T, wire string, final FinalKinds, sink Sink) ([]frame.Frame, error) {
	t.Helper()
	return Collect(bufio.NewReader(strings.NewReader(wire)), final, sink)
}

func TestCollectSynchronousCompletion(t *testing.T) {
	testlog.Start(t)
	wire := `OK {"isabelle_id":"mock"}` + "\n" + `OK "42"` + "\n"
	exchange, err := collect(t, wire, SyncFinal, nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(exchange) != 2 {
		t.Fatalf("exchange length = %d, want 2", len(exchange))
	}
	if exchange[1].Kind != frame.KindOK || exchange[1].Body.Raw != `"42"` {
		t.Fatalf("terminal frame %+v", exchange[1])
	}
}

func TestCollectAsynchronousWithNotifications(t *testing.T) {
	testlog.Start(t)
	wire := strings.Join([]string{
		`OK {"isabelle_id":"mock"}`,
		`NOTE {"percentage":25}`,
		`NOTE {"percentage":80}`,
		`FINISHED {"ok":true}`,
		`NOTE never read`,
	}, "\n") + "\n"
	exchange, err := collect(t, wire, AsyncFinal, nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(exchange) != 4 {
		t.Fatalf("exchange length = %d, want 4", len(exchange))
	}
	wantKinds := []frame.Kind{frame.KindOK, frame.KindNote, frame.KindNote, frame.KindFinished}
	for i, want := range wantKinds {
		if exchange[i].Kind != want {
			t.Fatalf("frame %d kind = %s, want %s", i, exchange[i].Kind, want)
		}
	}
}

func TestCollectAuthGating(t *testing.T) {
	testlog.Start(t)
	// A final-looking token before the acknowledgement must not close the
	// exchange; only the one arriving after the OK does.
	wire := strings.Join([]string{
		`FINISHED {"ok":false}`,
		`OK {"isabelle_id":"mock"}`,
		`FINISHED {"ok":true}`,
	}, "\n") + "\n"
	exchange, err := collect(t, wire, FinalKinds{frame.KindFinished}, nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(exchange) != 3 {
		t.Fatalf("exchange length = %d, want 3", len(exchange))
	}
	if exchange[2].Body.Raw != `{"ok":true}` {
		t.Fatalf("terminated on wrong frame: %+v", exchange[2])
	}
}

func TestCollectFirstOKIsNotTerminalForSyncSet(t *testing.T) {
	testlog.Start(t)
	// The very first OK is the acknowledgement even though OK is in the
	// final set; it arms the gate rather than closing the exchange.
	wire := "OK\nERROR \"boom\"\n"
	exchange, err := collect(t, wire, SyncFinal, nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(exchange) != 2 || exchange[1].Kind != frame.KindError {
		t.Fatalf("unexpected exchange %+v", exchange)
	}
}

func TestCollectMalformedDiscardsPartialExchange(t *testing.T) {
	testlog.Start(t)
	wire := `OK {"isabelle_id":"mock"}` + "\n" + "# !!!\n"
	exchange, err := collect(t, wire, AsyncFinal, nil)
	if !errors.Is(err, frame.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if exchange != nil {
		t.Fatalf("partial exchange leaked: %+v", exchange)
	}
}

func TestCollectPropagatesStreamClosure(t *testing.T) {
	testlog.Start(t)
	// Stream ends before any terminal frame: the read error surfaces
	// unchanged, no retry, no fabricated result.
	wire := `OK {"isabelle_id":"mock"}` + "\n"
	_, err := collect(t, wire, AsyncFinal, nil)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestCollectRecordsWireLinesInOrder(t *testing.T) {
	testlog.Start(t)
	body := `{"ok":true}`
	note := "NOTE note one"
	prefixed := fmt.Sprintf("%d\n%s", len(note), note) // length-prefixed intermediate frame
	wire := "OK\n" + prefixed + "FINISHED " + body + "\n"
	sink := &recordingSink{}
	exchange, err := collect(t, wire, AsyncFinal, sink)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(exchange) != 3 {
		t.Fatalf("exchange length = %d, want 3", len(exchange))
	}
	want := []string{"OK", prefixed, "FINISHED " + body}
	if len(sink.lines) != len(want) {
		t.Fatalf("sink lines = %v", sink.lines)
	}
	for i := range want {
		if sink.lines[i] != want[i] {
			t.Fatalf("sink line %d = %q, want %q", i, sink.lines[i], want[i])
		}
	}
}

func TestFinalKindsContains(t *testing.T) {
	testlog.Start(t)
	if !AsyncFinal.Contains(frame.KindFailed) {
		t.Fatalf("async set should contain FAILED")
	}
	if AsyncFinal.Contains(frame.KindOK) {
		t.Fatalf("async set should not contain OK")
	}
	if !SyncFinal.Contains(frame.KindOK) || SyncFinal.Contains(frame.KindFinished) {
		t.Fatalf("sync set wrong: %v", SyncFinal)
	}
}
