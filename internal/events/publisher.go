package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/heureka-wishlist/internal/config"
)

const source = "heureka-wishlist"

// RedisClient is the subset of *redis.Client the publisher needs.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Publisher appends wishlist changes to a Redis stream. A nil Publisher is
// valid and publishes nothing.
type Publisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
	now    func() time.Time
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
		now:    time.Now,
	}
}

// Connect opens a Redis client for cfg and checks it with PING. It returns
// nil without error when no address is configured.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return client, nil
}

// Publish writes one stream entry per change and returns how many were
// written. It stops at the first failure.
func (p *Publisher) Publish(ctx context.Context, changes []Change) (int, error) {
	if p == nil || p.redis == nil || len(changes) == 0 {
		return 0, nil
	}

	published := 0
	for _, change := range changes {
		if err := p.publish(ctx, change); err != nil {
			return published, err
		}
		published++
	}

	p.logger.Info("published wishlist changes",
		"stream", p.stream,
		"count", published)

	return published, nil
}

func (p *Publisher) publish(ctx context.Context, change Change) error {
	eventID := uuid.New().String()
	timestamp := p.now().UTC()

	payload, err := json.Marshal(map[string]interface{}{
		"event_id":  eventID,
		"kind":      change.Kind,
		"timestamp": timestamp.Format(time.RFC3339),
		"product":   change.Product,
		"old_price": change.OldPrice,
		"new_price": change.NewPrice,
		"source":    source,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"event_id":   eventID,
			"kind":       string(change.Kind),
			"product_id": change.Product.ID,
			"name":       change.Product.Name,
			"old_price":  strconv.FormatFloat(change.OldPrice, 'f', -1, 64),
			"new_price":  strconv.FormatFloat(change.NewPrice, 'f', -1, 64),
			"timestamp":  strconv.FormatInt(timestamp.UnixNano(), 10),
			"data":       string(payload),
		},
	}

	if _, err := p.redis.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish %s for %s: %w", change.Kind, change.Product.ID, err)
	}

	p.logger.Debug("change published",
		"event_id", eventID,
		"kind", change.Kind,
		"product_id", change.Product.ID)

	return nil
}

func (p *Publisher) Close() error {
	if p == nil || p.redis == nil {
		return nil
	}
	return p.redis.Close()
}
