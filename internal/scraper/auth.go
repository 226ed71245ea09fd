package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/heureka-wishlist/internal/config"
)

const (
	consentSelector    = "#didomi-notice-agree-button, button.didomi-components-button"
	emailSelector      = `input[name="email"]`
	passwordSelector   = `input[name="password"]`
	submitSelector     = `form button[type="submit"]`
	loginErrorSelector = ".c-form__error, .c-form-message--error, .c-alert--danger"
	// Only rendered for a signed-in account.
	loggedInSelector = `a[href*="/auth/logout"], a[href*="odhlaseni"], [data-testid="user-menu"]`
)

type AuthOptions struct {
	LoginURL     string
	ConsentWait  time.Duration
	FormWait     time.Duration
	Timeout      time.Duration
	PollInterval time.Duration
}

func DefaultAuthOptions() AuthOptions {
	return AuthOptions{
		LoginURL:     "https://account.heureka.cz/auth/login",
		ConsentWait:  5 * time.Second,
		FormWait:     10 * time.Second,
		Timeout:      20 * time.Second,
		PollInterval: 500 * time.Millisecond,
	}
}

type Authenticator struct {
	opts   AuthOptions
	logger *slog.Logger
}

func NewAuthenticator(opts AuthOptions, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		opts:   opts,
		logger: logger.With("component", "auth"),
	}
}

// Login signs the session in. A rejected password and a login that never
// reaches the signed-in page both return an error wrapping ErrAuthentication.
func (a *Authenticator) Login(ctx context.Context, page Page, creds config.Credentials) error {
	a.logger.Info("opening login page", "url", a.opts.LoginURL)
	if err := page.Goto(ctx, a.opts.LoginURL); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}

	if a.DismissConsent(page) {
		a.logger.Info("dismissed cookie consent")
	}

	if err := page.WaitFor(emailSelector, a.opts.FormWait); err != nil {
		return fmt.Errorf("%w: login form did not appear: %v", ErrAuthentication, err)
	}

	if err := page.Fill(emailSelector, creds.Email); err != nil {
		return fmt.Errorf("failed to enter email: %w", err)
	}
	if err := page.Fill(passwordSelector, creds.Password); err != nil {
		return fmt.Errorf("failed to enter password: %w", err)
	}

	a.logger.Info("submitting login form")
	if err := page.Click(submitSelector); err != nil {
		a.logger.Debug("submit button not clickable, pressing enter", "error", err)
		if err := page.Press(passwordSelector, "Enter"); err != nil {
			return fmt.Errorf("failed to submit login form: %w", err)
		}
	}

	matched, err := waitAny(ctx, page, a.opts.Timeout, a.opts.PollInterval, loggedInSelector, loginErrorSelector)
	switch {
	case errors.Is(err, ErrWaitTimeout):
		return fmt.Errorf("%w: not signed in within %s", ErrAuthentication, a.opts.Timeout)
	case err != nil:
		return fmt.Errorf("failed waiting for login result: %w", err)
	case matched == 1:
		return fmt.Errorf("%w: credentials rejected", ErrAuthentication)
	}

	return nil
}

// DismissConsent accepts the cookie dialog when it shows up. Its absence is
// not an error.
func (a *Authenticator) DismissConsent(page Page) bool {
	if err := page.WaitFor(consentSelector, a.opts.ConsentWait); err != nil {
		a.logger.Debug("no cookie consent dialog", "error", err)
		return false
	}

	if err := page.Click(consentSelector); err != nil {
		a.logger.Warn("could not dismiss cookie consent, continuing", "error", err)
		return false
	}

	return true
}
