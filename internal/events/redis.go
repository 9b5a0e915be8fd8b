package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/region-catalog/internal/model"
)

// DefaultChannel is the Redis channel used when none is configured.
const DefaultChannel = "region-catalog:items"

// RedisBus fans item events out to every instance subscribed to the same
// Redis channel. Local subscribers are notified directly on Publish; events
// coming back from Redis with this instance's origin are dropped.
type RedisBus struct {
	local   *LocalBus
	client  *redis.Client
	channel string
	origin  string
	logger  *zap.Logger
}

// NewRedisBus creates a RedisBus. Call Run to start receiving remote events.
func NewRedisBus(client *redis.Client, channel string, logger *zap.Logger) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBus{
		local:   NewLocalBus(logger),
		client:  client,
		channel: channel,
		origin:  uuid.New().String(),
		logger:  logger,
	}
}

// Origin returns the instance id stamped on published events.
func (b *RedisBus) Origin() string {
	return b.origin
}

// Publish notifies local subscribers and forwards the event to Redis.
func (b *RedisBus) Publish(ctx context.Context, event model.ItemEvent) error {
	event.Origin = b.origin
	b.local.dispatch(event)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal item event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish item event: %w", err)
	}
	return nil
}

// Subscribe registers handler for local and remote events.
func (b *RedisBus) Subscribe(handler Handler) func() {
	return b.local.Subscribe(handler)
}

// Run receives events from Redis until ctx is done.
func (b *RedisBus) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer func() {
		if err := sub.Close(); err != nil {
			b.logger.Warn("failed to close redis subscription", zap.Error(err))
		}
	}()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}

	b.logger.Info("listening for item events",
		zap.String("channel", b.channel),
		zap.String("origin", b.origin),
	)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			b.handleMessage(msg.Payload)
		}
	}
}

func (b *RedisBus) handleMessage(payload string) {
	var event model.ItemEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		b.logger.Warn("dropping malformed item event", zap.Error(err))
		return
	}
	if event.Origin == b.origin {
		return
	}
	b.local.dispatch(event)
}
