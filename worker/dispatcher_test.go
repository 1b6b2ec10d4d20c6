package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/ragflow/core"
	"github.com/poiesic/ragflow/pipeline"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slowRunner struct {
	delay       time.Duration
	inFlight    atomic.Int32
	maxObserved atomic.Int32
}

func (r *slowRunner) Run(ctx context.Context, job pipeline.Job) (*pipeline.Outcome, error) {
	current := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		observed := r.maxObserved.Load()
		if current <= observed || r.maxObserved.CompareAndSwap(observed, current) {
			break
		}
	}
	time.Sleep(r.delay)
	return &pipeline.Outcome{Status: core.QueryStatusCompleted}, nil
}

func TestDispatcher(t *testing.T) {
	ctx := context.Background()

	t.Run("never exceeds the ceiling", func(t *testing.T) {
		runner := &slowRunner{delay: 20 * time.Millisecond}
		dispatcher, err := NewDispatcher(3, runner)
		require.NoError(t, err)
		defer dispatcher.Release()

		var wg sync.WaitGroup
		for i := 0; i < 12; i++ {
			wg.Add(1)
			err := dispatcher.Dispatch(ctx, pipeline.Job{QueryText: "pergunta"}, func(*pipeline.Outcome, error) {
				wg.Done()
			})
			require.NoError(t, err)
		}
		wg.Wait()

		assert.LessOrEqual(t, runner.maxObserved.Load(), int32(3))
	})

	t.Run("drain waits for in-flight jobs", func(t *testing.T) {
		runner := &slowRunner{delay: 10 * time.Millisecond}
		dispatcher, err := NewDispatcher(2, runner)
		require.NoError(t, err)
		defer dispatcher.Release()

		var completed atomic.Int32
		for i := 0; i < 4; i++ {
			require.NoError(t, dispatcher.Dispatch(ctx, pipeline.Job{QueryText: "pergunta"}, func(*pipeline.Outcome, error) {
				completed.Add(1)
			}))
		}
		dispatcher.Drain()
		assert.Equal(t, int32(4), completed.Load())
	})
}

func TestDeliveryAttempts(t *testing.T) {
	t.Run("first delivery", func(t *testing.T) {
		assert.Equal(t, 1, deliveryAttempts(amqp.Delivery{}))
	})

	t.Run("redelivered without history", func(t *testing.T) {
		assert.Equal(t, 2, deliveryAttempts(amqp.Delivery{Redelivered: true}))
	})

	t.Run("x-death history counts", func(t *testing.T) {
		delivery := amqp.Delivery{
			Headers: amqp.Table{
				"x-death": []interface{}{
					amqp.Table{"count": int64(2), "queue": "queries"},
				},
			},
		}
		assert.Equal(t, 3, deliveryAttempts(delivery))
	})
}
