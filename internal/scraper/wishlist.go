package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/heureka-wishlist/internal/parser"
	"github.com/maltedev/heureka-wishlist/internal/ratelimit"
)

const emptyWishlistSelector = ".c-favourites__empty, .c-empty-state"

type FetchedPage struct {
	URL  string
	HTML string
}

type FetchOptions struct {
	WishlistURL  string
	WaitTimeout  time.Duration
	PollInterval time.Duration
	MaxPages     int
}

func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		WishlistURL:  "https://account.heureka.cz/oblibene",
		WaitTimeout:  10 * time.Second,
		PollInterval: 500 * time.Millisecond,
		MaxPages:     50,
	}
}

type Fetcher struct {
	opts    FetchOptions
	parser  parser.Parser
	limiter ratelimit.RateLimiter
	logger  *slog.Logger
}

func NewFetcher(opts FetchOptions, p parser.Parser, limiter ratelimit.RateLimiter, logger *slog.Logger) *Fetcher {
	if limiter == nil {
		limiter = ratelimit.NoDelay{}
	}
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	return &Fetcher{
		opts:    opts,
		parser:  p,
		limiter: limiter,
		logger:  logger.With("component", "fetcher"),
	}
}

// Fetch returns the rendered HTML of every wishlist page, following the
// next-page link until there is none, a page repeats or MaxPages is hit.
func (f *Fetcher) Fetch(ctx context.Context, page Page) ([]FetchedPage, error) {
	var (
		pages   []FetchedPage
		visited = make(map[string]bool)
		url     = f.opts.WishlistURL
	)

	for len(pages) < f.opts.MaxPages {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		f.logger.Info("loading wishlist page", "page", len(pages)+1, "url", url)
		if err := page.Goto(ctx, url); err != nil {
			return nil, fmt.Errorf("failed to open wishlist: %w", err)
		}
		visited[url] = true

		matched, err := waitAny(ctx, page, f.opts.WaitTimeout, f.opts.PollInterval, parser.CardSelector, emptyWishlistSelector)
		if err != nil {
			return nil, fmt.Errorf("wishlist page %s did not load: %w", url, err)
		}

		html, err := page.Content()
		if err != nil {
			return nil, err
		}
		pages = append(pages, FetchedPage{URL: url, HTML: html})

		if matched == 1 {
			f.logger.Info("wishlist is empty")
			break
		}

		next, ok := f.parser.NextPageURL(html, url)
		if !ok {
			break
		}
		if visited[next] {
			f.logger.Warn("pagination points back to a visited page", "url", next)
			break
		}
		url = next

		if len(pages) == f.opts.MaxPages {
			f.logger.Warn("stopped at page limit, wishlist may be incomplete", "max_pages", f.opts.MaxPages)
		}
	}

	return pages, nil
}
