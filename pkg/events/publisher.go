package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// AuditTopic is the in-process topic carrying every kernel event.
const AuditTopic = "kernel.audit"

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// ChannelPublisher publishes events on a watermill publisher, typically the
// in-process gochannel pub/sub.
type ChannelPublisher struct {
	publisher message.Publisher
	topic     string
}

func NewChannelPublisher(publisher message.Publisher, topic string) *ChannelPublisher {
	if topic == "" {
		topic = AuditTopic
	}
	return &ChannelPublisher{publisher: publisher, topic: topic}
}

func (p *ChannelPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(ToEnvelope(event))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", event.EventType())

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event to topic %s: %w", p.topic, err)
	}
	return nil
}

// MultiPublisher fans an event out to every publisher, joining their errors.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
