package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// WireLogger adapts a zerolog logger into an exchange sink satisfying
// session.Sink. zerolog loggers are safe for concurrent use, so one
// WireLogger may serve concurrent exchanges.
type WireLogger struct {
	logger zerolog.Logger
}

func NewWireLogger(logger zerolog.Logger) *WireLogger {
	return &WireLogger{logger: logger}
}

func (w *WireLogger) RecordLine(line string) {
	w.logger.Info().Msg(line)
}

// NewFileWireLogger records wire lines to a log file, appending if it
// exists. The returned closer must be called when the sink is retired.
func NewFileWireLogger(path string) (*WireLogger, func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	logger := zerolog.New(f).With().Timestamp().Logger()
	return NewWireLogger(logger), f.Close, nil
}
