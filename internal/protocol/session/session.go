package session

import (
	"bufio"

	"github.com/provekit/isactl/internal/protocol/frame"
)

// FinalKinds is the set of response kinds allowed to close an exchange.
type FinalKinds []frame.Kind

var (
	// AsyncFinal closes exchanges for commands that start a background task
	// and report completion later.
	AsyncFinal = FinalKinds{frame.KindFinished, frame.KindFailed, frame.KindError}
	// SyncFinal closes exchanges for commands answered immediately: a second
	// OK after the connection acknowledgement, or an ERROR.
	SyncFinal = FinalKinds{frame.KindOK, frame.KindError}
)

func (fk FinalKinds) Contains(k frame.Kind) bool {
	for _, v := range fk {
		if v == k {
			return true
		}
	}
	return false
}

// Sink records one rendered wire line. A sink shared between concurrent
// exchanges must be safe for concurrent use.
type Sink interface {
	RecordLine(line string)
}

// Collect reads frames from r until a final frame closes the exchange.
//
// The server acknowledges the password+command preamble with exactly one OK
// frame before any task output. No frame counts as final until that OK has
// been seen, so a final-looking token arriving beforehand cannot close the
// exchange early. The acknowledgement re-arms only once: after the first OK,
// every qualifying kind is a valid terminal.
//
// The returned slice holds every frame in arrival order, acknowledgement and
// terminal frame included. Each frame is handed to sink, when non-nil, in
// its wire form. On any read error the partial exchange is discarded and
// the error returned unchanged.
func Collect(r *bufio.Reader, final FinalKinds, sink Sink) ([]frame.Frame, error) {
	var exchange []frame.Frame
	authSeen := false
	for {
		f, err := frame.Read(r)
		if err != nil {
			return nil, err
		}
		exchange = append(exchange, f)
		if sink != nil {
			sink.RecordLine(f.String())
		}
		if authSeen && final.Contains(f.Kind) {
			return exchange, nil
		}
		if !authSeen && f.Kind == frame.KindOK {
			authSeen = true
		}
	}
}
