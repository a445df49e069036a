// Package broker wraps the amqp091 client with the small surface the rest
// of the tool needs: dialing with backoff, opening channels with a prefetch
// and passive queue inspection.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/cenkalti/backoff/v4"
	"github.com/rabbitmq/amqp091-go"
)

// ErrQueueNotFound is returned by InspectQueue when the broker does not
// know the queue.
var ErrQueueNotFound = errors.New("queue not found")

// QueueInfo is the metadata a passive declare returns.
type QueueInfo struct {
	Name      string
	Messages  int
	Consumers int
}

// Connection is an open broker connection.
type Connection struct {
	conn *amqp091.Connection
	log  *slog.Logger
}

// Dial connects to the broker at uri, retrying with exponential backoff
// while the context allows.
func Dial(ctx context.Context, uri string, log *slog.Logger) (*Connection, error) {
	var conn *amqp091.Connection
	op := func() error {
		var err error
		conn, err = dial(uri)
		if err != nil {
			log.Debug("dial attempt failed", "error", err)
		}
		return err
	}

	if err := backoff.Retry(op, newBackoff(ctx)); err != nil {
		return nil, fmt.Errorf("dial %s: %w", Redact(uri), err)
	}

	log.Debug("connected", "broker", Redact(uri))
	return &Connection{conn: conn, log: log}, nil
}

// Channel opens a channel on the connection. A positive prefetch is applied
// as the per-consumer basic.qos count.
func (c *Connection) Channel(prefetch int) (*amqp091.Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("set qos: %w", err)
		}
	}
	return ch, nil
}

// InspectQueue checks that a queue exists and returns its metadata. The
// passive declare is issued on a throwaway channel: a failed declare closes
// the channel it ran on.
func (c *Connection) InspectQueue(ctx context.Context, name string) (QueueInfo, error) {
	if err := ctx.Err(); err != nil {
		return QueueInfo{}, err
	}

	ch, err := inspectChannel(c.conn)
	if err != nil {
		return QueueInfo{}, fmt.Errorf("open channel: %w", err)
	}
	defer func() {
		// the channel is already gone after a failed declare.
		if cErr := ch.Close(); cErr != nil && !errors.Is(cErr, amqp091.ErrClosed) {
			c.log.Debug("close inspect channel", "error", cErr)
		}
	}()

	q, err := ch.QueueDeclarePassive(name, false, false, false, false, nil)
	if err != nil {
		var aErr *amqp091.Error
		if errors.As(err, &aErr) && aErr.Code == amqp091.NotFound {
			return QueueInfo{}, fmt.Errorf("queue %q: %w", name, ErrQueueNotFound)
		}
		return QueueInfo{}, fmt.Errorf("inspect queue %q: %w", name, err)
	}

	return QueueInfo{Name: q.Name, Messages: q.Messages, Consumers: q.Consumers}, nil
}

// Close closes the underlying connection. Any message left unacknowledged
// at this point is returned to its queue by the broker.
func (c *Connection) Close() error {
	if c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}

// Redact strips credentials from a broker URI for logs and error messages.
func Redact(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	return u.Redacted()
}
