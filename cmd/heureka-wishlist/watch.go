package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/maltedev/heureka-wishlist/internal/events"
	"github.com/maltedev/heureka-wishlist/internal/render"
)

func newWatchCmd(c *cli) *cobra.Command {
	var group, name string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follows the wishlist change stream in Redis and logs every change.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := events.Connect(ctx, c.cfg.Redis)
			if err != nil {
				return err
			}
			if client == nil {
				return errors.New("REDIS_ADDR must be set to watch wishlist changes")
			}
			defer client.Close()

			consumer := events.NewConsumer(client, events.ConsumerConfig{
				Stream: c.cfg.Redis.Stream,
				Group:  group,
				Name:   name,
			}, c.logger)

			return consumer.Run(ctx, logChange(c.logger))
		},
	}

	cmd.Flags().StringVar(&group, "group", "wishlist-watchers", "Consumer group name")
	cmd.Flags().StringVar(&name, "name", "watcher-1", "Consumer name within the group")

	return cmd
}

func logChange(logger *slog.Logger) events.Handler {
	return func(ctx context.Context, change events.Change) error {
		attrs := []any{
			"kind", change.Kind,
			"id", change.Product.ID,
			"name", change.Product.Name,
		}
		if change.OldPrice >= 0 {
			attrs = append(attrs, "old_price", render.FormatPrice(change.OldPrice))
		}
		if change.NewPrice >= 0 {
			attrs = append(attrs, "new_price", render.FormatPrice(change.NewPrice))
		}

		if change.Kind == events.KindPriceChanged && change.OldPrice >= 0 && change.NewPrice >= 0 && change.NewPrice < change.OldPrice {
			logger.Info("price dropped", attrs...)
			return nil
		}

		logger.Info("wishlist changed", attrs...)
		return nil
	}
}
