package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/maltedev/heureka-wishlist/internal/config"
	"github.com/maltedev/heureka-wishlist/internal/models"
	"github.com/maltedev/heureka-wishlist/internal/parser"
)

var (
	ErrAuthentication = errors.New("authentication failed")
	ErrWaitTimeout    = errors.New("timed out waiting for page element")
)

// Page is the slice of a browser tab the scraper needs.
type Page interface {
	Goto(ctx context.Context, url string) error
	Exists(selector string) (bool, error)
	Click(selector string) error
	Fill(selector, value string) error
	Press(selector, key string) error
	WaitFor(selector string, timeout time.Duration) error
	Content() (string, error)
	URL() string
}

// Launcher starts a browser session. The closer releases every resource the
// session holds.
type Launcher func(ctx context.Context) (Page, io.Closer, error)

type Scraper struct {
	launch  Launcher
	auth    *Authenticator
	fetcher *Fetcher
	parser  parser.Parser
	logger  *slog.Logger
}

func New(launch Launcher, auth *Authenticator, fetcher *Fetcher, p parser.Parser, logger *slog.Logger) *Scraper {
	return &Scraper{
		launch:  launch,
		auth:    auth,
		fetcher: fetcher,
		parser:  p,
		logger:  logger.With("component", "scraper"),
	}
}

// Scrape logs in, reads every wishlist page and returns the parsed products
// in wishlist order. The browser session is closed before returning.
func (s *Scraper) Scrape(ctx context.Context, creds config.Credentials) ([]models.Product, error) {
	page, closer, err := s.launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if cerr := closer.Close(); cerr != nil {
			s.logger.Warn("failed to close browser", "error", cerr)
		}
	}()

	if err := s.auth.Login(ctx, page, creds); err != nil {
		return nil, err
	}
	s.logger.Info("logged in")

	pages, err := s.fetcher.Fetch(ctx, page)
	if err != nil {
		return nil, err
	}

	return s.ParsePages(pages), nil
}

// ParsePages parses fetched pages into one list. Positions continue across
// pages and a product repeated on a later page is kept only once.
func (s *Scraper) ParsePages(pages []FetchedPage) []models.Product {
	products := make([]models.Product, 0)
	seen := make(map[string]bool)

	for _, fp := range pages {
		parsed, errs := s.parser.ParseWishlist(fp.HTML, fp.URL)
		for _, perr := range errs {
			s.logger.Debug("skipped wishlist entry", "page", fp.URL, "error", perr)
		}

		for _, product := range parsed {
			if seen[product.ID] {
				s.logger.Debug("skipped product repeated across pages", "id", product.ID)
				continue
			}
			seen[product.ID] = true

			if !product.HasPrice() {
				s.logger.Debug("product has no readable price", "id", product.ID, "name", product.Name)
			}

			product.Position = len(products) + 1
			products = append(products, product)
		}
	}

	s.logger.Info("parsed wishlist", "pages", len(pages), "products", len(products))
	return products
}

// waitAny polls until one of selectors is present and returns its index.
func waitAny(ctx context.Context, page Page, timeout, interval time.Duration, selectors ...string) (int, error) {
	deadline := time.Now().Add(timeout)

	for {
		for i, selector := range selectors {
			found, err := page.Exists(selector)
			if err != nil {
				return -1, err
			}
			if found {
				return i, nil
			}
		}

		if !time.Now().Before(deadline) {
			return -1, fmt.Errorf("%w after %s", ErrWaitTimeout, timeout)
		}

		select {
		case <-ctx.Done():
			return -1, ctx.Err()
		case <-time.After(interval):
		}
	}
}
