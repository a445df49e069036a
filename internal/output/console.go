// Package output provides the sinks the output stage writes formatted
// messages to: the console and numbered files with rotation.
package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/rleer/rmq-cli-sub002/internal/pipeline"
)

// ConsoleSink writes messages to a terminal-style writer, each preceded by
// a one-line header describing where the message came from.
type ConsoleSink struct {
	w       io.Writer
	sep     []byte
	headers bool
	header  *color.Color
	n       int
}

// NewConsoleSink returns a sink writing to w with the given between-message
// separator. Headers honor the global color configuration.
func NewConsoleSink(w io.Writer, separator string) *ConsoleSink {
	return &ConsoleSink{
		w:       w,
		sep:     []byte(separator),
		headers: true,
		header:  color.New(color.FgCyan, color.Bold),
	}
}

// WithoutHeaders disables the per-message header line, for machine-readable
// output on stdout.
func (s *ConsoleSink) WithoutHeaders() *ConsoleSink {
	s.headers = false
	return s
}

// WriteMessage implements pipeline.Sink.
func (s *ConsoleSink) WriteMessage(m pipeline.Message, rendered []byte) error {
	if s.n > 0 && len(s.sep) > 0 {
		if _, err := s.w.Write(s.sep); err != nil {
			return err
		}
	}

	if s.headers {
		header := fmt.Sprintf("message %d  exchange=%q key=%q tag=%d", s.n+1, m.Exchange, m.RoutingKey, m.DeliveryTag)
		if m.Redelivered {
			header += " redelivered"
		}
		if _, err := s.header.Fprintln(s.w, header); err != nil {
			return err
		}
	}

	if _, err := s.w.Write(rendered); err != nil {
		return err
	}
	if len(rendered) == 0 || rendered[len(rendered)-1] != '\n' {
		if _, err := io.WriteString(s.w, "\n"); err != nil {
			return err
		}
	}

	s.n++
	return nil
}

// Close implements pipeline.Sink. The console is not ours to close.
func (s *ConsoleSink) Close() error { return nil }
