// Package publish implements the burst-send path: one message body fired
// repeatedly at an exchange.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rabbitmq/amqp091-go"
	"github.com/sourcegraph/conc/pool"
)

// Channel is the slice of an amqp091.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Options configures one burst.
type Options struct {
	Exchange   string
	RoutingKey string
	Count      int           // number of copies to send; defaults to 1
	Interval   time.Duration // pause after each publish
	Workers    int           // parallel publishers; defaults to 1
	Persistent bool
	Headers    amqp091.Table

	// ContentType overrides detection. When empty the type is sniffed from
	// the body.
	ContentType string
}

// Publisher fires messages at the broker.
type Publisher struct {
	Channel Channel
	Logger  *slog.Logger
}

// Burst publishes body opts.Count times and returns how many copies were
// actually sent. On error or cancellation the returned count reflects the
// publishes that went out before the burst stopped.
func (p *Publisher) Burst(ctx context.Context, body []byte, opts Options) (int, error) {
	if opts.Count <= 0 {
		opts.Count = 1
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(body).String()
	}

	msg := amqp091.Publishing{
		ContentType: contentType,
		Body:        body,
		Headers:     opts.Headers,
	}
	if opts.Persistent {
		msg.DeliveryMode = amqp091.Persistent
	}

	p.Logger.Debug("starting burst",
		"exchange", opts.Exchange,
		"routing_key", opts.RoutingKey,
		"count", opts.Count,
		"content_type", contentType,
	)

	var published atomic.Int64
	group := pool.New().WithMaxGoroutines(workers).WithContext(ctx).WithCancelOnError()
	for i := 0; i < opts.Count; i++ {
		group.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := p.Channel.PublishWithContext(ctx, opts.Exchange, opts.RoutingKey, false, false, msg); err != nil {
				return fmt.Errorf("publish to %q: %w", opts.Exchange, err)
			}
			published.Add(1)

			if opts.Interval > 0 {
				select {
				case <-time.After(opts.Interval):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}

	err := group.Wait()
	return int(published.Load()), err
}
