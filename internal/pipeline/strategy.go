package pipeline

import (
	"context"

	"github.com/rabbitmq/amqp091-go"
)

// Strategy pulls messages off a broker queue and hands them to the output
// stage over the receive channel. Implementations close out before
// returning, whether they stopped on the message limit, on queue
// exhaustion, on cancellation or on an error.
type Strategy interface {
	Retrieve(ctx context.Context, out chan<- Message) error
}

// the interfaces below describe the slices of an amqp091.Channel each
// strategy needs, so tests can stand in for a live broker.

// Fetcher issues discrete basic.get calls.
type Fetcher interface {
	Get(queue string, autoAck bool) (amqp091.Delivery, bool, error)
}

// Consumer registers and cancels push-style consumers.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Cancel(consumer string, noWait bool) error
}
