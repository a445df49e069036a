package pipeline

import (
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Properties carries the standard AMQP message properties. Each field is
// independently optional; the broker only relays what the publisher set,
// so a zero value means the property was absent.
type Properties struct {
	ContentType     string
	ContentEncoding string
	DeliveryMode    uint8
	Priority        uint8
	CorrelationID   string
	ReplyTo         string
	Expiration      string
	MessageID       string
	Timestamp       time.Time
	Type            string
	UserID          string
	AppID           string
}

// Message is one message taken off a queue. It is built the moment a
// delivery arrives from the broker and is read-only afterwards.
//
// DeliveryTag identifies this exact message for acknowledgment purposes.
// It is unique within the channel session that produced it and meaningless
// once that channel closes.
type Message struct {
	Body        []byte
	DeliveryTag uint64
	Redelivered bool
	Exchange    string
	RoutingKey  string
	Queue       string
	Properties  Properties
	Headers     amqp091.Table
	Size        int
}

// NewMessage builds a Message from a raw broker delivery.
func NewMessage(queue string, d amqp091.Delivery) Message {
	return Message{
		Body:        d.Body,
		DeliveryTag: d.DeliveryTag,
		Redelivered: d.Redelivered,
		Exchange:    d.Exchange,
		RoutingKey:  d.RoutingKey,
		Queue:       queue,
		Properties: Properties{
			ContentType:     d.ContentType,
			ContentEncoding: d.ContentEncoding,
			DeliveryMode:    d.DeliveryMode,
			Priority:        d.Priority,
			CorrelationID:   d.CorrelationId,
			ReplyTo:         d.ReplyTo,
			Expiration:      d.Expiration,
			MessageID:       d.MessageId,
			Timestamp:       d.Timestamp,
			Type:            d.Type,
			UserID:          d.UserId,
			AppID:           d.AppId,
		},
		Headers: d.Headers,
		Size:    len(d.Body),
	}
}
