package output

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rleer/rmq-cli-sub002/internal/pipeline"
)

// FileSink writes messages to a file, or to a sequence of numbered files
// when a per-file message threshold is set. Writes are buffered; each file
// is flushed and closed before the next one is opened.
type FileSink struct {
	path    string
	perFile int // messages per file; 0 disables rotation
	sep     []byte

	f      *os.File
	buf    *bufio.Writer
	inFile int
	index  int
}

// NewFileSink returns a sink writing to path. When perFile is positive a
// new numbered file is opened every perFile messages.
func NewFileSink(path string, perFile int, separator string) *FileSink {
	return &FileSink{
		path:    path,
		perFile: perFile,
		sep:     []byte(separator),
	}
}

// WriteMessage implements pipeline.Sink.
func (s *FileSink) WriteMessage(_ pipeline.Message, rendered []byte) error {
	if s.buf == nil || (s.perFile > 0 && s.inFile >= s.perFile) {
		if err := s.rotate(); err != nil {
			return err
		}
	}

	if s.inFile > 0 && len(s.sep) > 0 {
		if _, err := s.buf.Write(s.sep); err != nil {
			return err
		}
	}
	if _, err := s.buf.Write(rendered); err != nil {
		return err
	}
	if len(rendered) == 0 || rendered[len(rendered)-1] != '\n' {
		if err := s.buf.WriteByte('\n'); err != nil {
			return err
		}
	}

	s.inFile++
	return nil
}

// rotate finishes the current file, if any, and opens the next one.
func (s *FileSink) rotate() error {
	if err := s.finish(); err != nil {
		return err
	}

	name := s.path
	if s.perFile > 0 {
		s.index++
		name = numbered(s.path, s.index)
	}

	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("create %q: %w", name, err)
	}

	s.f = f
	s.buf = bufio.NewWriter(f)
	s.inFile = 0
	return nil
}

// Close implements pipeline.Sink, flushing and closing the current file.
func (s *FileSink) Close() error {
	return s.finish()
}

func (s *FileSink) finish() error {
	if s.f == nil {
		return nil
	}

	var err error
	if fErr := s.buf.Flush(); fErr != nil {
		err = fErr
	}
	if cErr := s.f.Close(); cErr != nil && err == nil {
		err = cErr
	}

	s.f = nil
	s.buf = nil
	return err
}

// numbered inserts a zero-padded index before the path's extension:
// messages.json becomes messages-0001.json.
func numbered(path string, index int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%04d%s", strings.TrimSuffix(path, ext), index, ext)
}
