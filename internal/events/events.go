package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/itm-space/backend-resources/models"
	"github.com/rs/zerolog/log"
)

// Notifier publishes user lifecycle events.
type Notifier interface {
	Publish(ctx context.Context, event models.UserEvent) error
	Close()
}

type EventPublisher struct {
	client   pulsar.Client
	producer pulsar.Producer
}

// NewEventPublisher initializes the Pulsar client and producer
func NewEventPublisher(pulsarURL, topic string) (*EventPublisher, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: pulsarURL,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create Pulsar client: %w", err)
	}

	producer, err := client.CreateProducer(pulsar.ProducerOptions{
		Topic: topic,
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not create Pulsar producer: %w", err)
	}

	log.Info().Str("topic", topic).Msg("Pulsar client and producer initialized")
	return &EventPublisher{
		client:   client,
		producer: producer,
	}, nil
}

// Publish sends a user event keyed by the user ID so events for one user stay ordered.
func (p *EventPublisher) Publish(ctx context.Context, event models.UserEvent) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not serialize event payload: %w", err)
	}

	_, err = p.producer.Send(ctx, &pulsar.ProducerMessage{
		Payload:    message,
		Key:        event.UserID,
		Properties: map[string]string{"action": event.Action},
	})
	if err != nil {
		return fmt.Errorf("could not send event to Pulsar: %w", err)
	}

	return nil
}

// Close closes the Pulsar client and producer
func (p *EventPublisher) Close() {
	p.producer.Close()
	p.client.Close()
	log.Info().Msg("Pulsar client and producer closed")
}

// NopNotifier drops events. It is used when no broker is configured.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, models.UserEvent) error { return nil }

func (NopNotifier) Close() {}
