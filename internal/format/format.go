// Package format renders retrieved messages as plain text, JSON or a
// properties table.
package format

import (
	"fmt"

	"github.com/rleer/rmq-cli-sub002/internal/pipeline"
)

// New returns the formatter registered under kind: "plain", "json" or
// "table". compact only affects JSON output.
func New(kind string, compact bool) (pipeline.Formatter, error) {
	switch kind {
	case "plain":
		return Plain{}, nil
	case "json":
		return JSON{Compact: compact}, nil
	case "table":
		return Table{}, nil
	}
	return nil, fmt.Errorf("unknown format %q (want plain, json or table)", kind)
}

// Plain renders just the message body, decoded as text.
type Plain struct{}

// Format implements pipeline.Formatter.
func (Plain) Format(m pipeline.Message) ([]byte, error) {
	return m.Body, nil
}
