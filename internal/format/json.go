package format

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/rleer/rmq-cli-sub002/internal/pipeline"
)

// JSON renders the whole message, routing metadata and properties included,
// as one JSON document. Compact switches off indentation for line-oriented
// consumers.
type JSON struct {
	Compact bool
}

type jsonProperties struct {
	ContentType     string `json:"content_type,omitempty"`
	ContentEncoding string `json:"content_encoding,omitempty"`
	DeliveryMode    uint8  `json:"delivery_mode,omitempty"`
	Priority        uint8  `json:"priority,omitempty"`
	CorrelationID   string `json:"correlation_id,omitempty"`
	ReplyTo         string `json:"reply_to,omitempty"`
	Expiration      string `json:"expiration,omitempty"`
	MessageID       string `json:"message_id,omitempty"`
	Timestamp       string `json:"timestamp,omitempty"`
	Type            string `json:"type,omitempty"`
	UserID          string `json:"user_id,omitempty"`
	AppID           string `json:"app_id,omitempty"`
}

type jsonDocument struct {
	Exchange    string         `json:"exchange"`
	RoutingKey  string         `json:"routing_key"`
	Queue       string         `json:"queue"`
	DeliveryTag uint64         `json:"delivery_tag"`
	Redelivered bool           `json:"redelivered"`
	Size        int            `json:"size"`
	Properties  jsonProperties `json:"properties"`
	Headers     map[string]any `json:"headers,omitempty"`
	Body        string         `json:"body"`
}

// Format implements pipeline.Formatter.
func (f JSON) Format(m pipeline.Message) ([]byte, error) {
	doc := jsonDocument{
		Exchange:    m.Exchange,
		RoutingKey:  m.RoutingKey,
		Queue:       m.Queue,
		DeliveryTag: m.DeliveryTag,
		Redelivered: m.Redelivered,
		Size:        m.Size,
		Properties:  newJSONProperties(m.Properties),
		Headers:     sanitizeTable(m.Headers),
		Body:        string(m.Body),
	}

	if f.Compact {
		return json.Marshal(doc)
	}
	return json.MarshalIndent(doc, "", "  ")
}

func newJSONProperties(p pipeline.Properties) jsonProperties {
	jp := jsonProperties{
		ContentType:     p.ContentType,
		ContentEncoding: p.ContentEncoding,
		DeliveryMode:    p.DeliveryMode,
		Priority:        p.Priority,
		CorrelationID:   p.CorrelationID,
		ReplyTo:         p.ReplyTo,
		Expiration:      p.Expiration,
		MessageID:       p.MessageID,
		Type:            p.Type,
		UserID:          p.UserID,
		AppID:           p.AppID,
	}
	if !p.Timestamp.IsZero() {
		jp.Timestamp = p.Timestamp.Format(time.RFC3339)
	}
	return jp
}

// sanitizeTable converts an AMQP header table into something every JSON
// encoder agrees on. Values nest arbitrarily; raw binary is replaced with a
// size marker instead of being dumped into the document.
func sanitizeTable(tbl amqp091.Table) map[string]any {
	if len(tbl) == 0 {
		return nil
	}

	out := make(map[string]any, len(tbl))
	for k, v := range tbl {
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case amqp091.Table:
		return sanitizeTable(t)
	case map[string]any:
		return sanitizeTable(amqp091.Table(t))
	case []any:
		list := make([]any, len(t))
		for i, e := range t {
			list[i] = sanitizeValue(e)
		}
		return list
	case []byte:
		return fmt.Sprintf("<binary %d bytes>", len(t))
	case time.Time:
		return t.Format(time.RFC3339)
	case amqp091.Decimal:
		return fmt.Sprintf("%d E-%d", t.Value, t.Scale)
	default:
		return v
	}
}
