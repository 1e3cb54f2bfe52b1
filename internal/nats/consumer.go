package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// ConsumerManager handles durable consumer creation and retrieval.
type ConsumerManager struct {
	js jetstream.JetStream
}

func NewConsumerManager(js jetstream.JetStream) *ConsumerManager {
	return &ConsumerManager{js: js}
}

// EnsureConsumer creates or updates a durable consumer on the given stream.
// AckWait is sized for a model round trip.
func (cm *ConsumerManager) EnsureConsumer(ctx context.Context, stream, name, filterSubject string, ackWait time.Duration) (jetstream.Consumer, error) {
	cfg := jetstream.ConsumerConfig{
		Durable:       name,
		FilterSubject: filterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       ackWait,
		MaxDeliver:    5,
	}

	consumer, err := cm.js.CreateOrUpdateConsumer(ctx, stream, cfg)
	if err != nil {
		return nil, fmt.Errorf("ensuring consumer %s on %s: %w", name, stream, err)
	}
	return consumer, nil
}

// Handler processes one message and is responsible for acking it.
type Handler func(ctx context.Context, msg jetstream.Msg)

// FetchLoop pulls batches from consumer until ctx is cancelled.
func FetchLoop(ctx context.Context, name string, consumer jetstream.Consumer, handle Handler) error {
	slog.Info("consumer started", "consumer", name)

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("fetching messages", "consumer", name, "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			handle(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}
