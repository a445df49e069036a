package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectIntents runs the stage and gathers every emitted intent.
func collectIntents(t *testing.T, run func(intents chan<- intent) (Stats, error)) ([]intent, Stats, error) {
	t.Helper()

	intents := make(chan intent, 64)
	stats, err := run(intents)

	var got []intent
	for it := range intents {
		got = append(got, it)
	}
	return got, stats, err
}

func feed(msgs []Message) chan Message {
	ch := make(chan Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return ch
}

func messages(n int) []Message {
	ds := deliveries(n)
	ms := make([]Message, 0, n)
	for _, d := range ds {
		ms = append(ms, NewMessage("orders", d))
	}
	return ms
}

func TestOutputStage_WriteMessages(t *testing.T) {
	tt := []struct {
		Name     string
		Policy   AckPolicy
		Halt     bool
		Count    int
		WriteErr func(m Message) error
		Expected func(t *testing.T, intents []intent, stats Stats, err error)
	}{
		{
			Name:   "AckPolicy",
			Policy: AckPolicyAck,
			Count:  3,
			Expected: func(t *testing.T, intents []intent, stats Stats, err error) {
				require.NoError(t, err)
				require.Len(t, intents, 3)
				for i, it := range intents {
					assert.EqualValues(t, i+1, it.tag)
					assert.Equal(t, OutcomeAck, it.outcome)
				}
				assert.EqualValues(t, 3, stats.Processed)
				assert.EqualValues(t, 3*len("payload"), stats.Bytes)
			},
		},
		{
			Name:   "RejectPolicy",
			Policy: AckPolicyReject,
			Count:  2,
			Expected: func(t *testing.T, intents []intent, stats Stats, err error) {
				require.NoError(t, err)
				require.Len(t, intents, 2)
				for _, it := range intents {
					assert.Equal(t, OutcomeDrop, it.outcome)
				}
			},
		},
		{
			Name:   "RequeuePolicy",
			Policy: AckPolicyRequeue,
			Count:  2,
			Expected: func(t *testing.T, intents []intent, stats Stats, err error) {
				require.NoError(t, err)
				require.Len(t, intents, 2)
				for _, it := range intents {
					assert.Equal(t, OutcomeRequeue, it.outcome)
				}
			},
		},
		{
			Name:   "ConsoleWriteFailureIsNonFatal",
			Policy: AckPolicyAck,
			Count:  3,
			WriteErr: func(m Message) error {
				if m.DeliveryTag == 2 {
					return errors.New("broken pipe")
				}
				return nil
			},
			Expected: func(t *testing.T, intents []intent, stats Stats, err error) {
				require.NoError(t, err)
				require.Len(t, intents, 3)
				assert.Equal(t, OutcomeAck, intents[0].outcome)
				assert.Equal(t, OutcomeRequeue, intents[1].outcome)
				assert.Equal(t, OutcomeAck, intents[2].outcome)
				assert.EqualValues(t, 2, stats.Processed)
				assert.EqualValues(t, 1, stats.Requeued)
			},
		},
		{
			Name:   "FileWriteFailureIsFatal",
			Policy: AckPolicyAck,
			Halt:   true,
			Count:  3,
			WriteErr: func(m Message) error {
				if m.DeliveryTag == 2 {
					return errors.New("no space left on device")
				}
				return nil
			},
			Expected: func(t *testing.T, intents []intent, stats Stats, err error) {
				assert.Error(t, err)
				// the failing message still gets its requeue intent before
				// the run aborts; nothing is dropped silently.
				require.Len(t, intents, 2)
				assert.Equal(t, OutcomeAck, intents[0].outcome)
				assert.Equal(t, OutcomeRequeue, intents[1].outcome)
				assert.EqualValues(t, 1, stats.Processed)
				assert.EqualValues(t, 1, stats.Requeued)
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			sink := &mockSink{writeErr: tc.WriteErr}
			stage := &OutputStage{
				Sink:        sink,
				Formatter:   bodyFormatter(),
				Policy:      tc.Policy,
				HaltOnError: tc.Halt,
				Logger:      discardLogger(),
			}

			msgs := feed(messages(tc.Count))
			got, stats, err := collectIntents(t, func(intents chan<- intent) (Stats, error) {
				return stage.WriteMessages(context.Background(), msgs, intents)
			})
			tc.Expected(t, got, stats, err)
		})
	}
}

func TestOutputStage_FormatterFailure(t *testing.T) {
	stage := &OutputStage{
		Sink: &mockSink{},
		Formatter: formatterFunc(func(Message) ([]byte, error) {
			return nil, errors.New("unrenderable")
		}),
		Policy: AckPolicyAck,
		Logger: discardLogger(),
	}

	msgs := feed(messages(2))
	got, stats, err := collectIntents(t, func(intents chan<- intent) (Stats, error) {
		return stage.WriteMessages(context.Background(), msgs, intents)
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, it := range got {
		assert.Equal(t, OutcomeRequeue, it.outcome)
	}
	assert.Zero(t, stats.Processed)
	assert.EqualValues(t, 2, stats.Requeued)
}

func TestOutputStage_CancellationDrainsToBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &mockSink{}
	stage := &OutputStage{
		Sink:      sink,
		Formatter: bodyFormatter(),
		Policy:    AckPolicyAck,
		Logger:    discardLogger(),
	}

	msgs := feed(messages(3))
	got, stats, err := collectIntents(t, func(intents chan<- intent) (Stats, error) {
		return stage.WriteMessages(ctx, msgs, intents)
	})

	require.NoError(t, err)
	// nothing is written after the signal, but everything already enqueued
	// is requeued so no message is left without an ack decision.
	assert.Empty(t, sink.messages())
	require.Len(t, got, 3)
	for _, it := range got {
		assert.Equal(t, OutcomeRequeue, it.outcome)
	}
	assert.Zero(t, stats.Processed)
	assert.EqualValues(t, 3, stats.Requeued)
}
