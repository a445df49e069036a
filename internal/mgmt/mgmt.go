// Package mgmt talks to the RabbitMQ management HTTP API for the
// operations the AMQP protocol does not cover.
package mgmt

import (
	"fmt"
	"log/slog"

	rabbithole "github.com/michaelklishin/rabbit-hole/v2"
)

// QueueStatus is the slice of queue metadata the tool reports.
type QueueStatus struct {
	Name      string
	Messages  int
	Consumers int
}

// Client wraps the management API client.
type Client struct {
	rh  *rabbithole.Client
	log *slog.Logger
}

// New builds a client for the management endpoint at url.
func New(url, user, password string, log *slog.Logger) (*Client, error) {
	rh, err := rabbithole.NewClient(url, user, password)
	if err != nil {
		return nil, fmt.Errorf("management client: %w", err)
	}
	return &Client{rh: rh, log: log}, nil
}

// Queue returns the current status of a queue.
func (c *Client) Queue(vhost, name string) (QueueStatus, error) {
	q, err := c.rh.GetQueue(vhost, name)
	if err != nil {
		return QueueStatus{}, fmt.Errorf("get queue %q: %w", name, err)
	}
	return QueueStatus{Name: q.Name, Messages: q.Messages, Consumers: q.Consumers}, nil
}

// Purge drops all ready messages from a queue. Unacknowledged messages held
// by consumers are not affected.
func (c *Client) Purge(vhost, name string) error {
	c.log.Debug("purging queue", "vhost", vhost, "queue", name)
	if _, err := c.rh.PurgeQueue(vhost, name); err != nil {
		return fmt.Errorf("purge queue %q: %w", name, err)
	}
	return nil
}
