package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/maltedev/heureka-wishlist/internal/browser"
	"github.com/maltedev/heureka-wishlist/internal/cache"
	"github.com/maltedev/heureka-wishlist/internal/config"
	"github.com/maltedev/heureka-wishlist/internal/database"
	"github.com/maltedev/heureka-wishlist/internal/events"
	"github.com/maltedev/heureka-wishlist/internal/models"
	"github.com/maltedev/heureka-wishlist/internal/parser"
	"github.com/maltedev/heureka-wishlist/internal/ratelimit"
	"github.com/maltedev/heureka-wishlist/internal/render"
	"github.com/maltedev/heureka-wishlist/internal/scraper"
)

type launcherFactory func(cfg *config.Config, logger *slog.Logger) scraper.Launcher

// browserLauncher starts Playwright with the configured engine and opens a
// single tab. Closing the returned closer closes the tab and the browser.
func browserLauncher(cfg *config.Config, logger *slog.Logger) scraper.Launcher {
	return func(ctx context.Context) (scraper.Page, io.Closer, error) {
		engine, err := browser.ParseEngine(cfg.Browser.Engine)
		if err != nil {
			return nil, nil, err
		}

		b, err := browser.New(&browser.Options{
			Engine:         engine,
			Headless:       cfg.Browser.Headless,
			Timeout:        cfg.Browser.Timeout,
			MaxRetries:     cfg.Scraper.MaxRetries,
			ViewportWidth:  cfg.Browser.ViewportWidth,
			ViewportHeight: cfg.Browser.ViewportHeight,
			TimezoneID:     cfg.Browser.TimezoneID,
			Locale:         cfg.Browser.Locale,
		}, logger)
		if err != nil {
			return nil, nil, err
		}

		session, err := b.NewSession()
		if err != nil {
			b.Close()
			return nil, nil, err
		}

		return session, b.SessionCloser(session), nil
	}
}

func newScraper(cfg *config.Config, launch scraper.Launcher, logger *slog.Logger) *scraper.Scraper {
	authOpts := scraper.DefaultAuthOptions()
	authOpts.LoginURL = cfg.Scraper.LoginURL
	authOpts.Timeout = cfg.Scraper.AuthTimeout

	fetchOpts := scraper.DefaultFetchOptions()
	fetchOpts.WishlistURL = cfg.Scraper.WishlistURL
	fetchOpts.WaitTimeout = cfg.Scraper.WaitTimeout
	fetchOpts.MaxPages = cfg.Scraper.MaxPages

	p := parser.NewHeurekaParser()
	limiter := ratelimit.NewPageDelay(cfg.Scraper.PageDelayMin, cfg.Scraper.PageDelayMax)

	return scraper.New(
		launch,
		scraper.NewAuthenticator(authOpts, logger),
		scraper.NewFetcher(fetchOpts, p, limiter, logger),
		p,
		logger,
	)
}

// run is the root command: reuse a fresh cache or scrape, then always render.
// Credentials are checked before anything else so a misconfigured run never
// starts a browser.
func run(ctx context.Context, cfg *config.Config, forceRefresh bool, launch scraper.Launcher, logger *slog.Logger) error {
	creds, err := config.LoadCredentials()
	if err != nil {
		return err
	}

	order, err := render.ParseSortOrder(cfg.Output.Sort)
	if err != nil {
		return err
	}

	renderer, err := render.New()
	if err != nil {
		return err
	}

	store := cache.New(cfg.Output.CachePath, logger)
	cached, ok := store.Load()

	var file *cache.File
	if ok && store.IsFresh(cached, forceRefresh) {
		logger.Info("using cached wishlist",
			"path", store.Path(),
			"scraped_at", cached.ScrapedAt,
			"products", len(cached.Products))
		file = cached
	} else {
		if forceRefresh {
			logger.Info("refresh forced, scraping wishlist")
		} else {
			logger.Info("cache missing or stale, scraping wishlist")
		}

		started := time.Now()
		products, err := newScraper(cfg, launch, logger).Scrape(ctx, creds)
		if err != nil {
			return fmt.Errorf("scrape failed: %w", err)
		}
		logger.Info("scrape finished", "products", len(products), "duration", time.Since(started).Round(time.Millisecond))

		file, err = store.Save(products)
		if err != nil {
			return err
		}

		var previous []models.Product
		if cached != nil {
			previous = cached.Products
		}
		afterScrape(ctx, cfg, previous, file, logger)
	}

	opts := render.DefaultOptions()
	opts.Order = order
	opts.ScrapedAt = file.ScrapedAt

	if err := renderer.WriteFile(cfg.Output.HTMLPath, file.Products, opts); err != nil {
		return err
	}

	logger.Info("wrote wishlist page", "path", cfg.Output.HTMLPath, "products", len(file.Products))
	return nil
}

// afterScrape publishes changes and archives prices when Redis or Postgres
// are configured. Failures are logged and never fail the run.
func afterScrape(ctx context.Context, cfg *config.Config, previous []models.Product, file *cache.File, logger *slog.Logger) {
	changes := events.Diff(previous, file.Products)
	summary := events.Summary(changes)
	logger.Info("wishlist changes",
		"added", summary[events.KindAdded],
		"removed", summary[events.KindRemoved],
		"price_changed", summary[events.KindPriceChanged])

	if err := publishChanges(ctx, cfg.Redis, changes, logger); err != nil {
		logger.Warn("failed to publish wishlist changes", "error", err)
	}

	if err := recordHistory(ctx, cfg.Database, file, logger); err != nil {
		logger.Warn("failed to archive prices", "error", err)
	}
}

func publishChanges(ctx context.Context, cfg config.RedisConfig, changes []events.Change, logger *slog.Logger) error {
	if len(changes) == 0 {
		return nil
	}

	client, err := events.Connect(ctx, cfg)
	if err != nil || client == nil {
		return err
	}

	publisher := events.NewPublisher(client, cfg.Stream, logger)
	defer publisher.Close()

	_, err = publisher.Publish(ctx, changes)
	return err
}

func recordHistory(ctx context.Context, cfg config.DatabaseConfig, file *cache.File, logger *slog.Logger) error {
	db, err := database.New(ctx, database.Config{URL: cfg.URL, MaxConns: cfg.MaxConns})
	if errors.Is(err, database.ErrNotConfigured) {
		return nil
	}
	if err != nil {
		return err
	}
	defer db.Close()

	history := database.NewPriceHistory(db)
	if err := history.EnsureSchema(ctx); err != nil {
		return err
	}

	if err := history.Record(ctx, file.ScrapedAt, file.Products); err != nil {
		return err
	}

	logger.Info("archived prices", "products", len(file.Products))
	return nil
}
