package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// Formatter renders one message for output. Implementations live in
// internal/format; the stage treats it as an opaque function.
type Formatter interface {
	Format(m Message) ([]byte, error)
}

// Sink is the destination formatted messages are written to.
type Sink interface {
	WriteMessage(m Message, rendered []byte) error
	Close() error
}

// Stats aggregates what one output stage run accomplished.
type Stats struct {
	Processed int64 // messages successfully written
	Requeued  int64 // messages explicitly rejected back to the broker
	Bytes     int64 // body bytes written
}

// OutputStage drains the receive channel, formats and writes each message,
// and emits exactly one ack intent per dequeued message. A message taken
// off the channel is always either written or explicitly failed before
// cancellation is checked again, so nothing dequeued is left in an
// undefined ack state.
type OutputStage struct {
	Sink      Sink
	Formatter Formatter
	Policy    AckPolicy

	// HaltOnError stops the whole run on the first write failure. File
	// sinks set it: a broken output stream cannot be trusted to continue.
	// Console output treats a single failure as non-fatal.
	HaltOnError bool

	Logger *slog.Logger
}

// WriteMessages runs until the receive channel closes or, on cancellation,
// until the remainder of the channel has been drained back to the broker.
// It closes the intent channel on exit so the ack dispatcher terminates.
func (s *OutputStage) WriteMessages(ctx context.Context, msgs <-chan Message, intents chan<- intent) (Stats, error) {
	defer close(intents)

	var stats Stats
	for {
		// cancellation is only observed between messages; a message already
		// in hand was fully handled before we got back here.
		if ctx.Err() != nil {
			s.drain(msgs, intents, &stats)
			return stats, nil
		}

		select {
		case <-ctx.Done():
			s.drain(msgs, intents, &stats)
			return stats, nil
		case m, ok := <-msgs:
			if !ok {
				return stats, nil
			}
			if err := s.write(m); err != nil {
				s.Logger.Error("write message", "delivery_tag", m.DeliveryTag, "queue", m.Queue, "error", err)
				intents <- intent{tag: m.DeliveryTag, outcome: OutcomeRequeue}
				stats.Requeued++
				if s.HaltOnError {
					return stats, err
				}
				continue
			}
			intents <- intent{tag: m.DeliveryTag, outcome: s.Policy.outcome()}
			stats.Processed++
			stats.Bytes += int64(m.Size)
		}
	}
}

// drain requeues everything the strategy already enqueued once cancellation
// was observed. The strategy closes the channel shortly after the same
// signal, which bounds this loop.
func (s *OutputStage) drain(msgs <-chan Message, intents chan<- intent, stats *Stats) {
	for m := range msgs {
		intents <- intent{tag: m.DeliveryTag, outcome: OutcomeRequeue}
		stats.Requeued++
	}
}

func (s *OutputStage) write(m Message) error {
	rendered, err := s.Formatter.Format(m)
	if err != nil {
		return fmt.Errorf("format: %w", err)
	}
	if err := s.Sink.WriteMessage(m, rendered); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
