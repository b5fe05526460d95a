package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

// OpportunityBus implements domain.OpportunityBus over Redis Pub/Sub.
// Qualifying results are published as JSON for external consumers;
// delivery is fire-and-forget.
type OpportunityBus struct {
	rdb     *redis.Client
	channel string
	logger  *slog.Logger
}

// NewOpportunityBus creates a bus publishing to the given channel.
func NewOpportunityBus(c *Client, channel string, logger *slog.Logger) *OpportunityBus {
	return &OpportunityBus{rdb: c.Underlying(), channel: channel, logger: logger}
}

// Publish sends one result to the channel.
func (b *OpportunityBus) Publish(ctx context.Context, result domain.OpportunityResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("redis: marshal opportunity %s: %w", result.ID, err)
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish opportunity %s: %w", result.ID, err)
	}
	return nil
}

// Subscribe returns a channel of decoded results. The subscription ends
// with the context; the returned channel is closed at that point.
// Messages that fail to decode are dropped with a warning.
func (b *OpportunityBus) Subscribe(ctx context.Context) (<-chan domain.OpportunityResult, error) {
	pubsub := b.rdb.Subscribe(ctx, b.channel)

	// Receive the subscription confirmation before handing out the
	// channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", b.channel, err)
	}

	out := make(chan domain.OpportunityResult, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var result domain.OpportunityResult
				if err := json.Unmarshal([]byte(msg.Payload), &result); err != nil {
					b.logger.WarnContext(ctx, "redis: drop undecodable opportunity",
						slog.String("error", err.Error()),
					)
					continue
				}
				select {
				case out <- result:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
