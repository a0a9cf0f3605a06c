package relay

import (
	"context"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

// Topics hands out publishers by topic name. *pubsub.Client satisfies it.
type Topics interface {
	Publisher(name string) *gcppubsub.Publisher
}

// PubSubSink publishes through Pub/Sub topic handles.
type PubSubSink struct {
	Topics Topics
}

func (s PubSubSink) Send(ctx context.Context, topic string, msg *gcppubsub.Message) (string, error) {
	if s.Topics == nil {
		return "", registry.NewNonRetryableError(fmt.Errorf("no pubsub client for topic %q", topic))
	}
	p := s.Topics.Publisher(topic)
	if p == nil {
		return "", registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %q", topic))
	}
	id, err := p.Publish(ctx, msg).Get(ctx)
	if err != nil && msg.OrderingKey != "" {
		// A failed ordered publish pauses the key until resumed.
		p.ResumePublish(msg.OrderingKey)
	}
	return id, err
}
