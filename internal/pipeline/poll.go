package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// PollingStrategy retrieves messages one basic.get at a time. It stops when
// the counter reaches Limit, when the broker reports the queue empty, or
// when the context is cancelled. Each fetched message is handed downstream
// before the next fetch is issued, so nothing fetched here is ever left
// without a pending ack decision.
type PollingStrategy struct {
	Fetcher Fetcher
	Queue   string
	Limit   int64 // 0 means no ceiling
	Counter *Counter
	Logger  *slog.Logger
}

// Retrieve implements Strategy.
func (s *PollingStrategy) Retrieve(ctx context.Context, out chan<- Message) error {
	defer close(out)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if s.Limit > 0 && s.Counter.Value() >= s.Limit {
			return nil
		}

		d, ok, err := s.Fetcher.Get(s.Queue, false)
		if err != nil {
			return fmt.Errorf("get from queue %q: %w", s.Queue, err)
		}
		if !ok {
			// an empty get is the normal end-of-data signal, not an error.
			s.Logger.Debug("queue exhausted", "queue", s.Queue, "received", s.Counter.Value())
			return nil
		}

		s.Counter.Inc()
		select {
		case out <- NewMessage(s.Queue, d):
		case <-ctx.Done():
			// the in-hand message stays unacked and goes back to the queue
			// when the channel closes.
			return nil
		}
	}
}
