package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollingStrategy_Retrieve(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tt := []struct {
		Name     string
		Context  context.Context
		Backlog  int
		Limit    int64
		Fetcher  func(backlog []amqp091.Delivery) fetcherFunc
		Expected func(t *testing.T, got []Message, received int64, err error)
	}{
		{
			Name:    "CountCeiling",
			Backlog: 5,
			Limit:   3,
			Expected: func(t *testing.T, got []Message, received int64, err error) {
				require.NoError(t, err)
				require.Len(t, got, 3)
				assert.EqualValues(t, 3, received)
				// broker delivery order is preserved.
				for i, m := range got {
					assert.EqualValues(t, i+1, m.DeliveryTag)
				}
			},
		},
		{
			Name:    "Exhaustion",
			Backlog: 2,
			Limit:   5,
			Expected: func(t *testing.T, got []Message, received int64, err error) {
				require.NoError(t, err)
				assert.Len(t, got, 2)
				assert.EqualValues(t, 2, received)
			},
		},
		{
			Name:    "Unbounded",
			Backlog: 4,
			Limit:   0,
			Expected: func(t *testing.T, got []Message, received int64, err error) {
				require.NoError(t, err)
				assert.Len(t, got, 4)
			},
		},
		{
			Name:    "CancelledBeforeStart",
			Context: cancelled,
			Backlog: 5,
			Limit:   5,
			Expected: func(t *testing.T, got []Message, received int64, err error) {
				require.NoError(t, err)
				assert.Empty(t, got)
				assert.Zero(t, received)
			},
		},
		{
			Name:    "ErrFromGet",
			Backlog: 5,
			Limit:   5,
			Fetcher: func([]amqp091.Delivery) fetcherFunc {
				return func(string, bool) (amqp091.Delivery, bool, error) {
					return amqp091.Delivery{}, false, errors.New("channel gone")
				}
			},
			Expected: func(t *testing.T, got []Message, received int64, err error) {
				assert.Error(t, err)
				assert.Empty(t, got)
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			ctx := context.Background()
			if tc.Context != nil {
				ctx = tc.Context
			}

			fetch := queueFetcher(deliveries(tc.Backlog))
			if tc.Fetcher != nil {
				fetch = tc.Fetcher(deliveries(tc.Backlog))
			}

			counter := new(Counter)
			s := &PollingStrategy{
				Fetcher: fetch,
				Queue:   "orders",
				Limit:   tc.Limit,
				Counter: counter,
				Logger:  discardLogger(),
			}

			out := make(chan Message, tc.Backlog+1)
			err := s.Retrieve(ctx, out)

			var got []Message
			for m := range out {
				got = append(got, m)
			}
			tc.Expected(t, got, counter.Value(), err)
		})
	}
}

func TestPollingStrategy_NeverAutoAcks(t *testing.T) {
	var autoAcked bool
	fetch := fetcherFunc(func(_ string, autoAck bool) (amqp091.Delivery, bool, error) {
		autoAcked = autoAck
		return amqp091.Delivery{}, false, nil
	})

	s := &PollingStrategy{Fetcher: fetch, Queue: "orders", Counter: new(Counter), Logger: discardLogger()}
	out := make(chan Message, 1)
	require.NoError(t, s.Retrieve(context.Background(), out))
	assert.False(t, autoAcked)
}
