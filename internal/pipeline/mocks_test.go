package pipeline

import (
	"io"
	"log/slog"
	"sync"

	"github.com/rabbitmq/amqp091-go"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// deliveries builds n sequential deliveries with tags 1..n.
func deliveries(n int) []amqp091.Delivery {
	ds := make([]amqp091.Delivery, 0, n)
	for i := 1; i <= n; i++ {
		ds = append(ds, amqp091.Delivery{
			DeliveryTag: uint64(i),
			Exchange:    "amq.direct",
			RoutingKey:  "orders.created",
			Body:        []byte("payload"),
		})
	}
	return ds
}

type fetcherFunc func(queue string, autoAck bool) (amqp091.Delivery, bool, error)

func (f fetcherFunc) Get(queue string, autoAck bool) (amqp091.Delivery, bool, error) {
	return f(queue, autoAck)
}

// queueFetcher serves a fixed backlog of deliveries, then empty gets.
func queueFetcher(backlog []amqp091.Delivery) fetcherFunc {
	i := 0
	return func(string, bool) (amqp091.Delivery, bool, error) {
		if i >= len(backlog) {
			return amqp091.Delivery{}, false, nil
		}
		d := backlog[i]
		i++
		return d, true, nil
	}
}

type mockConsumerHandlers struct {
	Consume func() (<-chan amqp091.Delivery, error)
	Cancel  func(tag string) error
}

func newDefaultConsumerHandlers() mockConsumerHandlers {
	return mockConsumerHandlers{
		Consume: func() (<-chan amqp091.Delivery, error) {
			ch := make(chan amqp091.Delivery)
			close(ch)
			return ch, nil
		},
		Cancel: func(string) error { return nil },
	}
}

type mockConsumer struct {
	h mockConsumerHandlers
}

func (m *mockConsumer) Consume(_, _ string, _, _, _, _ bool, _ amqp091.Table) (<-chan amqp091.Delivery, error) {
	return m.h.Consume()
}

func (m *mockConsumer) Cancel(tag string, _ bool) error {
	return m.h.Cancel(tag)
}

// ackCall records one protocol-level acknowledgment.
type ackCall struct {
	Tag     uint64
	Nack    bool
	Requeue bool
}

type mockAcknowledger struct {
	mu    sync.Mutex
	calls []ackCall
	fail  func(tag uint64) error
}

func (m *mockAcknowledger) Ack(tag uint64, _ bool) error {
	return m.record(ackCall{Tag: tag})
}

func (m *mockAcknowledger) Nack(tag uint64, _, requeue bool) error {
	return m.record(ackCall{Tag: tag, Nack: true, Requeue: requeue})
}

func (m *mockAcknowledger) record(c ackCall) error {
	if m.fail != nil {
		if err := m.fail(c.Tag); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	return nil
}

func (m *mockAcknowledger) recorded() []ackCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ackCall(nil), m.calls...)
}

type formatterFunc func(m Message) ([]byte, error)

func (f formatterFunc) Format(m Message) ([]byte, error) {
	return f(m)
}

func bodyFormatter() formatterFunc {
	return func(m Message) ([]byte, error) { return m.Body, nil }
}

type mockSink struct {
	mu       sync.Mutex
	written  []Message
	writeErr func(m Message) error
	closed   bool
}

func (s *mockSink) WriteMessage(m Message, _ []byte) error {
	if s.writeErr != nil {
		if err := s.writeErr(m); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, m)
	return nil
}

func (s *mockSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *mockSink) messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.written...)
}
