package broker

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"github.com/rabbitmq/amqp091-go"
)

// indirection points over the amqp091 library so tests can stand in for a
// live broker.

var dial = amqp091.Dial

// declarer is the slice of a channel InspectQueue needs.
type declarer interface {
	QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	Close() error
}

var inspectChannel = func(conn *amqp091.Connection) (declarer, error) {
	return conn.Channel()
}

// newBackoff builds the retry policy for dialing. A variable so tests can
// shrink the intervals.
var newBackoff = func(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
}
