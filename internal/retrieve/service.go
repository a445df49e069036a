// Package retrieve drives one retrieval pipeline run per command
// invocation: pre-flight queue check, strategy selection, stage wiring and
// the final accounting.
package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rleer/rmq-cli-sub002/internal/broker"
	"github.com/rleer/rmq-cli-sub002/internal/pipeline"
)

// Channel is the slice of an amqp091.Channel a retrieval run touches. Only
// the strategy and the ack dispatcher ever act on it.
type Channel interface {
	pipeline.Fetcher
	pipeline.Consumer
	pipeline.Acknowledger
}

// QueueInspector performs the pre-flight queue existence check.
type QueueInspector interface {
	InspectQueue(ctx context.Context, name string) (broker.QueueInfo, error)
}

// Options configures one retrieval run.
type Options struct {
	Queue     string
	Limit     int64 // 0 means run until the queue is exhausted or cancelled
	Policy    pipeline.AckPolicy
	Polling   bool // discrete basic.get polling instead of a push consumer
	Exclusive bool

	Formatter pipeline.Formatter
	Sink      pipeline.Sink

	// HaltOnError aborts the remainder of the run on the first write
	// failure; set for file destinations.
	HaltOnError bool
}

// Result is the aggregate outcome of a run. Received counts messages taken
// from the broker, Processed messages successfully written; the difference
// was skipped and returned to the broker.
type Result struct {
	Received  int64
	Processed int64
	Requeued  int64
	Bytes     int64
	Elapsed   time.Duration
	Cancelled bool
}

// Skipped is the number of received messages that were not written.
func (r Result) Skipped() int64 {
	return r.Received - r.Processed
}

// Rate is the processing throughput in messages per second.
func (r Result) Rate() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Processed) / r.Elapsed.Seconds()
}

// Service runs retrieval pipelines against one broker channel.
type Service struct {
	Inspector QueueInspector
	Channel   Channel
	Logger    *slog.Logger
}

// Consume retrieves messages destructively, acknowledging per the
// configured policy.
func (s *Service) Consume(ctx context.Context, opts Options) (Result, error) {
	return s.run(ctx, opts)
}

// Peek retrieves messages without consuming them: always polling, every
// message rejected back onto the queue, positive acks never sent.
func (s *Service) Peek(ctx context.Context, opts Options) (Result, error) {
	opts.Policy = pipeline.AckPolicyRequeue
	opts.Polling = true
	return s.run(ctx, opts)
}

func (s *Service) run(ctx context.Context, opts Options) (Result, error) {
	start := time.Now()

	info, err := s.Inspector.InspectQueue(ctx, opts.Queue)
	if err != nil {
		return Result{}, fmt.Errorf("pre-flight check: %w", err)
	}
	s.Logger.Info("queue ready", "queue", info.Name, "messages", info.Messages, "consumers", info.Consumers)

	counter := new(pipeline.Counter)
	strategy := s.strategy(opts, counter)

	orch := &pipeline.Orchestrator{
		Output: &pipeline.OutputStage{
			Sink:        opts.Sink,
			Formatter:   opts.Formatter,
			Policy:      opts.Policy,
			HaltOnError: opts.HaltOnError,
			Logger:      s.Logger,
		},
		Dispatcher: pipeline.NewAckDispatcher(s.Channel, s.Logger),
	}

	// runCtx lets a failed stage unblock the strategy; the parent context
	// carries the user's cancellation.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs := make(chan pipeline.Message)
	run := orch.Start(runCtx, msgs)

	retrieved := make(chan error, 1)
	go func() {
		retrieved <- strategy.Retrieve(runCtx, msgs)
	}()

	stats, outErr := run.Wait()
	cancel()
	strErr := <-retrieved

	res := Result{
		Received:  counter.Value(),
		Processed: stats.Processed,
		Requeued:  stats.Requeued,
		Bytes:     stats.Bytes,
		Elapsed:   time.Since(start),
		Cancelled: ctx.Err() != nil,
	}

	s.Logger.Debug("run finished",
		"received", res.Received,
		"processed", res.Processed,
		"skipped", res.Skipped(),
		"cancelled", res.Cancelled,
	)

	if outErr != nil {
		return res, outErr
	}
	return res, strErr
}

func (s *Service) strategy(opts Options, counter *pipeline.Counter) pipeline.Strategy {
	if opts.Polling {
		return &pipeline.PollingStrategy{
			Fetcher: s.Channel,
			Queue:   opts.Queue,
			Limit:   opts.Limit,
			Counter: counter,
			Logger:  s.Logger,
		}
	}
	return &pipeline.SubscriptionStrategy{
		Consumer:  s.Channel,
		Queue:     opts.Queue,
		Limit:     opts.Limit,
		Counter:   counter,
		Exclusive: opts.Exclusive,
		Logger:    s.Logger,
	}
}
