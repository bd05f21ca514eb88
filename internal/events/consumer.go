package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/itm-space/backend-resources/internal/metrics"
	"github.com/itm-space/backend-resources/models"
	"github.com/rs/zerolog"
)

// HandlerFunc processes a single decoded user event.
type HandlerFunc func(ctx context.Context, event models.UserEvent) error

// receiver is the part of pulsar.Consumer the run loop needs.
type receiver interface {
	Receive(ctx context.Context) (pulsar.Message, error)
	Ack(msg pulsar.Message) error
	Nack(msg pulsar.Message)
}

const (
	defaultRetryDelay  = 500 * time.Millisecond
	maxReceiveFailures = 5
)

type EventConsumer struct {
	consumer   receiver
	closer     func()
	retryDelay time.Duration
}

// NewEventConsumer initializes the Pulsar client and consumer.
func NewEventConsumer(pulsarURL, topic, subscription string) (*EventConsumer, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{URL: pulsarURL})
	if err != nil {
		return nil, fmt.Errorf("could not create Pulsar client: %w", err)
	}

	consumer, err := client.Subscribe(pulsar.ConsumerOptions{
		Topic:            topic,
		SubscriptionName: subscription,
		Type:             pulsar.Shared,
		DLQ: &pulsar.DLQPolicy{
			MaxDeliveries:   3,
			DeadLetterTopic: topic + "-dlq",
		},
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not create Pulsar consumer: %w", err)
	}

	return &EventConsumer{
		consumer: consumer,
		closer: func() {
			consumer.Close()
			client.Close()
		},
		retryDelay: defaultRetryDelay,
	}, nil
}

// Run receives messages until ctx is cancelled. Messages handled without
// error are acked; undecodable messages and handler failures are nacked and
// end up in the dead letter topic after repeated delivery. Receive errors are
// retried with a doubling delay and Run gives up after maxReceiveFailures in
// a row.
func (c *EventConsumer) Run(ctx context.Context, handle HandlerFunc) error {
	logger := zerolog.Ctx(ctx)

	delay := c.retryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	failures := 0

	for {
		msg, err := c.consumer.Receive(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			failures++
			if failures >= maxReceiveFailures {
				return fmt.Errorf("receive failed %d times in a row: %w", failures, err)
			}

			wait := delay << (failures - 1)
			logger.Error().Err(err).Dur("retry_in", wait).Msg("Error receiving message")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		failures = 0

		var event models.UserEvent
		if err := json.Unmarshal(msg.Payload(), &event); err != nil {
			logger.Error().Err(err).Str("message_id", msg.ID().String()).Msg("Error unmarshaling user event")
			metrics.EventsProcessedTotal.WithLabelValues("unknown", "error").Inc()
			c.consumer.Nack(msg)
			continue
		}

		if err := handle(ctx, event); err != nil {
			logger.Error().Err(err).Str("event_id", event.ID).Str("action", event.Action).Msg("Failed to process user event")
			metrics.EventsProcessedTotal.WithLabelValues(event.Action, "error").Inc()
			c.consumer.Nack(msg)
			continue
		}

		if err := c.consumer.Ack(msg); err != nil {
			logger.Warn().Err(err).Str("event_id", event.ID).Msg("Failed to ack user event")
		}
		metrics.EventsProcessedTotal.WithLabelValues(event.Action, "ok").Inc()
	}
}

// Close cleans up the Pulsar consumer and client.
func (c *EventConsumer) Close() {
	if c.closer != nil {
		c.closer()
	}
}
