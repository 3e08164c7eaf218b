// Package logging configures zerolog output for the stdio daemons: all
// levels append to the configured file, WARN and above are duplicated
// to stderr, and stdout is never touched because it carries the RPC
// response stream.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Open builds the daemon logger. An empty file path keeps file output
// disabled; WARN/ERROR still reach stderr. The returned func closes the
// log file.
func Open(file string) (zerolog.Logger, func(), error) {
	zerolog.TimeFieldFormat = timestampFormat

	var fileOut io.Writer = io.Discard
	closer := func() {}

	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("os.OpenFile failed: %w", err)
		}
		fileOut = f
		closer = func() { _ = f.Close() }
	}

	out := zerolog.MultiLevelWriter(
		swallowErrors{console(fileOut)},
		levelFilter{w: swallowErrors{console(os.Stderr)}, min: zerolog.WarnLevel},
	)

	logger := zerolog.New(out).Level(zerolog.DebugLevel).With().Timestamp().Logger()

	return logger, closer, nil
}

// console renders events as "[timestamp] [LEVEL] message".
func console(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: timestampFormat,
		FormatTimestamp: func(i interface{}) string {
			return fmt.Sprintf("[%v]", i)
		},
		FormatLevel: func(i interface{}) string {
			return fmt.Sprintf("[%s]", strings.ToUpper(fmt.Sprintf("%v", i)))
		},
	}
}

// levelFilter forwards only events at or above min. Events arriving
// through the plain Write path (no level information) are dropped.
type levelFilter struct {
	w   io.Writer
	min zerolog.Level
}

func (l levelFilter) Write(p []byte) (int, error) {
	return len(p), nil
}

func (l levelFilter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < l.min {
		return len(p), nil
	}
	return l.w.Write(p)
}

// swallowErrors reports success even when the underlying writer fails;
// a locked or vanished log file must not break request handling.
type swallowErrors struct {
	w io.Writer
}

func (s swallowErrors) Write(p []byte) (int, error) {
	_, _ = s.w.Write(p)
	return len(p), nil
}
