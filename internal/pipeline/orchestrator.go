package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Orchestrator wires the output stage and the ack dispatcher over the two
// handoff channels and runs them as one unit. It does not retrieve
// messages itself: the caller drives a Strategy against the same receive
// channel and the strategy closes that channel on exit.
type Orchestrator struct {
	Output     *OutputStage
	Dispatcher *AckDispatcher
}

// Run is a handle on the two in-flight stages of one retrieval.
type Run struct {
	group *errgroup.Group
	stats Stats
}

// Start launches the output and ack stages against the given receive
// channel. The intent channel connecting them is private to the run; the
// output stage closes it when done, which terminates the dispatcher.
func (o *Orchestrator) Start(ctx context.Context, msgs <-chan Message) *Run {
	intents := make(chan intent)

	r := &Run{group: new(errgroup.Group)}
	r.group.Go(func() error {
		stats, err := o.Output.WriteMessages(ctx, msgs, intents)
		r.stats = stats
		return err
	})
	r.group.Go(func() error {
		return o.Dispatcher.Dispatch(intents)
	})
	return r
}

// Wait blocks until both stages finish and returns the aggregate output
// stats. Its only join condition is stage completion; it imposes no
// timeout of its own.
func (r *Run) Wait() (Stats, error) {
	err := r.group.Wait()
	return r.stats, err
}
