package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maltedev/heureka-wishlist/internal/cache"
	"github.com/maltedev/heureka-wishlist/internal/database"
	"github.com/maltedev/heureka-wishlist/internal/render"
	"github.com/maltedev/heureka-wishlist/internal/server"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the cached wishlist page and a JSON API over HTTP.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("addr") {
				c.cfg.Server.Addr = addr
			}

			order, err := render.ParseSortOrder(c.cfg.Output.Sort)
			if err != nil {
				return err
			}

			renderer, err := render.New()
			if err != nil {
				return err
			}

			var history server.HistoryStore
			db, err := database.New(ctx, database.Config{
				URL:      c.cfg.Database.URL,
				MaxConns: c.cfg.Database.MaxConns,
			})
			switch {
			case errors.Is(err, database.ErrNotConfigured):
			case err != nil:
				return fmt.Errorf("failed to connect to database: %w", err)
			default:
				defer db.Close()
				history = database.NewPriceHistory(db)
			}

			store := cache.New(c.cfg.Output.CachePath, c.logger)
			handlers := server.NewHandlers(store, renderer, history, order, c.logger)

			return server.New(c.cfg.Server, server.NewRouter(handlers), c.logger).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Address to listen on")

	return cmd
}
