package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamReader is the subset of *redis.Client a consumer group needs.
type StreamReader interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// Handler receives every decoded change. Returning an error leaves the
// entry unacknowledged.
type Handler func(ctx context.Context, change Change) error

type ConsumerConfig struct {
	Stream string
	Group  string
	Name   string
	Block  time.Duration
}

type Consumer struct {
	redis  StreamReader
	cfg    ConsumerConfig
	logger *slog.Logger
}

func NewConsumer(client StreamReader, cfg ConsumerConfig, logger *slog.Logger) *Consumer {
	if cfg.Group == "" {
		cfg.Group = "wishlist-watchers"
	}
	if cfg.Name == "" {
		cfg.Name = "watcher-1"
	}
	if cfg.Block == 0 {
		cfg.Block = 5 * time.Second
	}
	return &Consumer{
		redis:  client,
		cfg:    cfg,
		logger: logger.With("component", "event_consumer", "stream", cfg.Stream),
	}
}

// Run reads the stream until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	err := c.redis.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("starting consumer", "group", c.cfg.Group)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopped")
			return nil
		default:
		}

		if err := c.poll(ctx, handle); err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("failed to read from stream", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

func (c *Consumer) poll(ctx context.Context, handle Handler) error {
	streams, err := c.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Name,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    10,
		Block:    c.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			change, err := DecodeChange(message)
			if err != nil {
				c.logger.Warn("skipping malformed entry", "id", message.ID, "error", err)
			} else if err := handle(ctx, change); err != nil {
				c.logger.Error("failed to handle change", "id", message.ID, "error", err)
				continue
			}

			if err := c.redis.XAck(ctx, c.cfg.Stream, c.cfg.Group, message.ID).Err(); err != nil {
				c.logger.Error("failed to acknowledge entry", "id", message.ID, "error", err)
			}
		}
	}

	return nil
}

// DecodeChange reads a change back from a stream entry written by Publisher.
func DecodeChange(msg redis.XMessage) (Change, error) {
	data, ok := msg.Values["data"].(string)
	if !ok {
		return Change{}, fmt.Errorf("entry %s has no data field", msg.ID)
	}

	var change Change
	if err := json.Unmarshal([]byte(data), &change); err != nil {
		return Change{}, fmt.Errorf("entry %s: %w", msg.ID, err)
	}

	switch change.Kind {
	case KindAdded, KindRemoved, KindPriceChanged:
	default:
		return Change{}, fmt.Errorf("entry %s has unknown kind %q", msg.ID, change.Kind)
	}

	return change, nil
}
