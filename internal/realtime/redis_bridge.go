package realtime

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBridge fans events out across instances over a Redis pub/sub channel.
// Events are delivered to the local hub immediately and echoes are skipped.
type RedisBridge struct {
	client  redis.UniversalClient
	channel string
	hub     *Hub
	origin  string
	logger  *zap.Logger
}

// NewRedisBridge constructs a bridge publishing on channel.
func NewRedisBridge(client redis.UniversalClient, channel string, hub *Hub, logger *zap.Logger) *RedisBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBridge{
		client:  client,
		channel: channel,
		hub:     hub,
		origin:  newOrigin(),
		logger:  logger.Named("realtime.redis"),
	}
}

// Publish delivers ev locally and announces it to other instances.
func (b *RedisBridge) Publish(ctx context.Context, ev Event) error {
	_ = b.hub.Publish(ctx, ev)

	payload, err := encodeEnvelope(b.origin, ev)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", b.channel, err)
	}
	return nil
}

// Run relays messages from the channel into the hub until ctx is done.
func (b *RedisBridge) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close() //nolint:errcheck

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}
	b.logger.Info("realtime bridge listening", zap.String("channel", b.channel))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("redis channel %s closed", b.channel)
			}
			b.handleMessage(ctx, msg.Payload)
		}
	}
}

func (b *RedisBridge) handleMessage(ctx context.Context, payload string) {
	env, err := decodeEnvelope(payload)
	if err != nil {
		b.logger.Warn("dropping realtime message", zap.Error(err))
		return
	}
	if env.Origin == b.origin {
		return
	}
	_ = b.hub.Publish(ctx, env.Event)
}
