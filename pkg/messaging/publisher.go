package messaging

import (
	"context"
	"time"
)

// Publisher wraps a Broker so callers publish typed events onto one channel.
type Publisher struct {
	broker  Broker
	channel string
	now     func() time.Time
}

func NewPublisher(broker Broker, channel string) *Publisher {
	if broker == nil {
		broker = NopBroker{}
	}
	return &Publisher{broker: broker, channel: channel, now: time.Now}
}

func (p *Publisher) Channel() string { return p.channel }

// PublishEvent wraps payload in a Message of the given type.
func (p *Publisher) PublishEvent(ctx context.Context, eventType string, payload interface{}) error {
	return p.broker.Publish(ctx, p.channel, Message{
		Type:       eventType,
		OccurredAt: p.now().UTC(),
		Payload:    payload,
	})
}
