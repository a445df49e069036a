package pipeline

import (
	"fmt"
	"log/slog"
)

// AckPolicy is the caller-selected outcome for successfully written
// messages. Failed messages are always rejected and requeued no matter the
// policy, so a message the client could not record is never lost.
type AckPolicy int

const (
	// AckPolicyAck acknowledges messages on success.
	AckPolicyAck AckPolicy = iota
	// AckPolicyReject negatively acknowledges without requeue on success,
	// dropping the message from the broker.
	AckPolicyReject
	// AckPolicyRequeue negatively acknowledges with requeue on success,
	// leaving the queue untouched. Used by peek.
	AckPolicyRequeue
)

// ParseAckPolicy maps the user-facing policy names to an AckPolicy.
func ParseAckPolicy(s string) (AckPolicy, error) {
	switch s {
	case "ack":
		return AckPolicyAck, nil
	case "reject":
		return AckPolicyReject, nil
	case "requeue":
		return AckPolicyRequeue, nil
	}
	return 0, fmt.Errorf("unknown ack policy %q (want ack, reject or requeue)", s)
}

func (p AckPolicy) String() string {
	switch p {
	case AckPolicyAck:
		return "ack"
	case AckPolicyReject:
		return "reject"
	case AckPolicyRequeue:
		return "requeue"
	}
	return fmt.Sprintf("AckPolicy(%d)", int(p))
}

// outcome returns the per-message outcome the policy dictates on a
// successful write.
func (p AckPolicy) outcome() Outcome {
	switch p {
	case AckPolicyReject:
		return OutcomeDrop
	case AckPolicyRequeue:
		return OutcomeRequeue
	}
	return OutcomeAck
}

// Outcome is the acknowledgment decision for one message.
type Outcome int

const (
	// OutcomeAck positively acknowledges the message.
	OutcomeAck Outcome = iota
	// OutcomeDrop negatively acknowledges without requeue.
	OutcomeDrop
	// OutcomeRequeue negatively acknowledges with requeue.
	OutcomeRequeue
)

// intent pairs a delivery tag with its decided outcome. The output stage
// produces exactly one intent per message it dequeues; the dispatcher
// consumes each exactly once.
type intent struct {
	tag     uint64
	outcome Outcome
}

// Acknowledger is the slice of an amqp091.Channel the dispatcher needs.
type Acknowledger interface {
	Ack(tag uint64, multiple bool) error
	Nack(tag uint64, multiple, requeue bool) error
}

// AckDispatcher drains ack intents and issues the matching protocol calls
// against the broker channel, preserving per-message order.
type AckDispatcher struct {
	ack Acknowledger
	log *slog.Logger
}

// NewAckDispatcher returns a dispatcher acknowledging against ack.
func NewAckDispatcher(ack Acknowledger, log *slog.Logger) *AckDispatcher {
	return &AckDispatcher{ack: ack, log: log}
}

// Dispatch runs until the intent channel is closed. After the first broker
// error it keeps draining without acknowledging, so the producing stage
// never blocks, and returns that first error once the channel closes.
func (d *AckDispatcher) Dispatch(intents <-chan intent) error {
	var firstErr error
	for it := range intents {
		if firstErr != nil {
			continue
		}
		if err := d.apply(it); err != nil {
			firstErr = fmt.Errorf("acknowledge delivery %d: %w", it.tag, err)
			d.log.Error("acknowledge delivery", "delivery_tag", it.tag, "outcome", it.outcome, "error", err)
		}
	}
	return firstErr
}

func (d *AckDispatcher) apply(it intent) error {
	switch it.outcome {
	case OutcomeDrop:
		return d.ack.Nack(it.tag, false, false)
	case OutcomeRequeue:
		return d.ack.Nack(it.tag, false, true)
	}
	return d.ack.Ack(it.tag, false)
}
