// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/ragflow/config"
	"github.com/poiesic/ragflow/pipeline"
	amqp "github.com/rabbitmq/amqp091-go"
)

const consumerTag = "ragflow-worker"

// Consumer pulls query jobs from the durable broker queue and hands them to
// the dispatcher. A message is acknowledged only after the pipeline records
// a terminal status; failed counts, because failed means a definitive
// outcome was recorded, not that the broker should redeliver forever.
type Consumer struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	cfg        *config.Config
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewConsumer connects to the broker, declares the work and dead-letter
// queues, and sets the prefetch window to the concurrency ceiling.
func NewConsumer(cfg *config.Config, dispatcher *Dispatcher) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.BrokerURL)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := channel.QueueDeclare(cfg.DeadLetterQueue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare dead-letter queue: %w", err)
	}
	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.DeadLetterQueue,
	}
	if _, err := channel.QueueDeclare(cfg.QueueName, true, false, false, false, args); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	// Prefetch no more messages than we have workers; pulling further
	// would just buffer jobs in memory past the ceiling.
	if err := channel.Qos(cfg.Concurrency, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set prefetch: %w", err)
	}

	return &Consumer{
		conn:       conn,
		channel:    channel,
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     slog.Default().With("component", "worker"),
	}, nil
}

// Consume processes deliveries until ctx is cancelled or the channel closes.
// On cancellation it stops pulling, waits for in-flight runs to finish, and
// returns nil.
func (c *Consumer) Consume(ctx context.Context) error {
	deliveries, err := c.channel.Consume(c.cfg.QueueName, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	c.logger.Info("consuming", "queue", c.cfg.QueueName, "prefetch", c.cfg.Concurrency)

	for {
		select {
		case <-ctx.Done():
			if err := c.channel.Cancel(consumerTag, false); err != nil {
				c.logger.Warn("cancel consumer failed", "error", err)
			}
			c.logger.Info("draining in-flight runs")
			c.dispatcher.Drain()
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				c.dispatcher.Drain()
				return ErrConsumerClosed
			}
			c.handle(ctx, delivery)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, delivery amqp.Delivery) {
	envelope, err := ParseEnvelope(delivery.Body)
	if err != nil {
		// A requeue does not grow the x-death history, so a redelivered
		// malformed message is dead-lettered rather than cycled forever.
		attempts := deliveryAttempts(delivery)
		if attempts >= c.cfg.MaxDeliveryAttempts || delivery.Redelivered {
			c.logger.Error("dead-lettering malformed message",
				"messageID", delivery.MessageId, "attempts", attempts, "error", err)
			c.nack(delivery, false)
		} else {
			c.logger.Warn("requeueing malformed message",
				"messageID", delivery.MessageId, "attempts", attempts, "error", err)
			c.nack(delivery, true)
		}
		return
	}

	// Dispatch blocks when the pool is full; that stall is the
	// backpressure point. The run context is detached from the consume
	// context: shutdown stops pulling new deliveries, and drain lets the
	// accepted ones finish instead of cancelling them mid-pipeline.
	err = c.dispatcher.Dispatch(context.WithoutCancel(ctx), envelope.Job(), func(outcome *pipeline.Outcome, runErr error) {
		if runErr != nil {
			// No terminal state was recorded; let the broker redeliver.
			c.nack(delivery, true)
			return
		}
		c.logger.Debug("acknowledging", "queryID", outcome.QueryID, "status", outcome.Status)
		if err := delivery.Ack(false); err != nil {
			c.logger.Error("ack failed", "queryID", outcome.QueryID, "error", err)
		}
	})
	if err != nil {
		c.logger.Error("dispatch failed", "messageID", envelope.MessageID, "error", err)
		c.nack(delivery, true)
	}
}

func (c *Consumer) nack(delivery amqp.Delivery, requeue bool) {
	if err := delivery.Nack(false, requeue); err != nil {
		c.logger.Error("nack failed", "messageID", delivery.MessageId, "error", err)
	}
}

// Close shuts down the broker connection.
func (c *Consumer) Close() error {
	if err := c.channel.Close(); err != nil {
		c.conn.Close()
		return err
	}
	return c.conn.Close()
}

// deliveryAttempts counts how many times this message has been delivered,
// using the broker's x-death history plus the current delivery.
func deliveryAttempts(delivery amqp.Delivery) int {
	attempts := 1
	deaths, ok := delivery.Headers["x-death"].([]interface{})
	if !ok {
		if delivery.Redelivered {
			attempts++
		}
		return attempts
	}
	for _, d := range deaths {
		table, ok := d.(amqp.Table)
		if !ok {
			continue
		}
		if count, ok := table["count"].(int64); ok {
			attempts += int(count)
		}
	}
	return attempts
}
