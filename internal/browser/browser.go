package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

type Engine string

const (
	EngineFirefox Engine = "firefox"
	// EngineSafari drives Playwright's WebKit build, the engine behind Safari.
	EngineSafari Engine = "safari"
)

func ParseEngine(name string) (Engine, error) {
	switch Engine(name) {
	case EngineFirefox, EngineSafari:
		return Engine(name), nil
	default:
		return "", fmt.Errorf("unsupported browser %q (expected firefox or safari)", name)
	}
}

type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	opts    *Options
	logger  *slog.Logger
}

type Options struct {
	Engine         Engine
	Headless       bool
	Timeout        time.Duration
	MaxRetries     int
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	TimezoneID     string
	Locale         string
}

func DefaultOptions() *Options {
	return &Options{
		Engine:         EngineFirefox,
		Headless:       true,
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		ViewportWidth:  1440,
		ViewportHeight: 900,
		TimezoneID:     "Europe/Prague",
		Locale:         "cs-CZ",
	}
}

func New(opts *Options, logger *slog.Logger) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	var browserType playwright.BrowserType
	switch opts.Engine {
	case EngineSafari:
		browserType = pw.WebKit
	case EngineFirefox, "":
		browserType = pw.Firefox
	default:
		pw.Stop()
		return nil, fmt.Errorf("unsupported browser %q", opts.Engine)
	}

	browser, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch %s: %w", opts.Engine, err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            playwright.String(opts.Locale),
		TimezoneId:        playwright.String(opts.TimezoneID),
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
	}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(opts.UserAgent)
	}

	browserContext, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &Browser{
		pw:      pw,
		browser: browser,
		context: browserContext,
		opts:    opts,
		logger:  logger.With("component", "browser", "engine", string(opts.Engine)),
	}, nil
}

// NewSession opens a tab that the scraper drives through the Session API.
func (b *Browser) NewSession() (*Session, error) {
	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	page.SetDefaultTimeout(float64(b.opts.Timeout.Milliseconds()))

	maxRetries := b.opts.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &Session{
		page:       page,
		timeout:    b.opts.Timeout,
		maxRetries: maxRetries,
		logger:     b.logger,
	}, nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// SessionCloser returns a closer that closes the tab and then the whole
// browser. The browser is closed even when closing the tab fails.
func (b *Browser) SessionCloser(s *Session) io.Closer {
	return closerFunc(func() error {
		return closeInOrder(s.Close, b.Close)
	})
}

func closeInOrder(closers ...func() error) error {
	var errs []error
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Session struct {
	page       playwright.Page
	timeout    time.Duration
	maxRetries int
	logger     *slog.Logger
}

// Goto navigates to url, retrying failed loads with a growing pause.
func (s *Session) Goto(ctx context.Context, url string) error {
	var lastErr error

	for i := 0; i < s.maxRetries; i++ {
		if i > 0 {
			s.logger.Info("retrying navigation", "attempt", i+1, "url", url)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * time.Second):
			}
		}

		_, err := s.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(s.timeout.Milliseconds())),
		})
		if err == nil {
			return nil
		}

		lastErr = err
		s.logger.Warn("navigation failed", "error", err, "attempt", i+1)
	}

	return fmt.Errorf("failed to load %s after %d attempts: %w", url, s.maxRetries, lastErr)
}

func (s *Session) Exists(selector string) (bool, error) {
	count, err := s.page.Locator(selector).Count()
	if err != nil {
		return false, fmt.Errorf("failed to query %q: %w", selector, err)
	}
	return count > 0, nil
}

func (s *Session) Click(selector string) error {
	return s.page.Locator(selector).First().Click()
}

func (s *Session) Fill(selector, value string) error {
	return s.page.Locator(selector).First().Fill(value)
}

func (s *Session) Press(selector, key string) error {
	return s.page.Locator(selector).First().Press(key)
}

func (s *Session) WaitFor(selector string, timeout time.Duration) error {
	return s.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

func (s *Session) Content() (string, error) {
	content, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}
	return content, nil
}

func (s *Session) URL() string {
	return s.page.URL()
}

func (s *Session) Close() error {
	return s.page.Close()
}
