package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// SubscriptionStrategy registers a push-style consumer and accepts
// deliveries until the counter reaches Limit, the broker closes the
// delivery stream, or the context is cancelled. Reaching the limit raises
// an internal stop signal which is combined (OR) with the caller's
// cancellation; both the accept loop and the shutdown path observe only the
// combined signal.
type SubscriptionStrategy struct {
	Consumer  Consumer
	Queue     string
	Limit     int64 // 0 means no ceiling
	Counter   *Counter
	Exclusive bool
	Tag       string // consumer tag; generated when empty
	Logger    *slog.Logger
}

// Retrieve implements Strategy.
func (s *SubscriptionStrategy) Retrieve(ctx context.Context, out chan<- Message) error {
	defer close(out)

	tag := s.Tag
	if tag == "" {
		tag = "rmq-" + uuid.NewString()
	}

	deliveries, err := s.Consumer.Consume(s.Queue, tag, false, s.Exclusive, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume from queue %q: %w", s.Queue, err)
	}

	// stop fires when the message limit is reached; the combined signal the
	// loop observes is this derived context.
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	for {
		if ctx.Err() != nil {
			s.shutdown(tag)
			return nil
		}

		select {
		case <-ctx.Done():
			s.shutdown(tag)
			return nil
		case d, ok := <-deliveries:
			if !ok {
				// the broker ended the consume (channel close or
				// consumer cancel); downstream drains what it has.
				return nil
			}
			if ctx.Err() != nil {
				// dropped on purpose: anything left unacked is returned to
				// the queue by the broker when the channel closes.
				continue
			}
			select {
			case out <- NewMessage(s.Queue, d):
			case <-ctx.Done():
				continue
			}
			// a delivery already accepted above is never discarded; the
			// limit only stops deliveries after this one.
			if n := s.Counter.Inc(); s.Limit > 0 && n >= s.Limit {
				s.Logger.Debug("message limit reached", "queue", s.Queue, "limit", s.Limit)
				stop()
			}
		}
	}
}

// shutdown asks the broker to cancel this consumer registration. It is
// fire-and-forget: a failed cancel is logged and ignored, the channel close
// that follows the run is the actual safety net.
func (s *SubscriptionStrategy) shutdown(tag string) {
	go func() {
		if err := s.Consumer.Cancel(tag, false); err != nil {
			s.Logger.Error("cancel consumer", "consumer_tag", tag, "error", err)
		}
	}()
}
