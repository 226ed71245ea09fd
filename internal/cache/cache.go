package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/maltedev/heureka-wishlist/internal/fsutil"
	"github.com/maltedev/heureka-wishlist/internal/models"
)

// FreshnessWindow is how long a scrape is reused before the wishlist is
// fetched again.
const FreshnessWindow = 24 * time.Hour

var ErrCorrupt = errors.New("cache file is corrupt")

type File struct {
	ScrapedAt time.Time        `json:"scraped_at"`
	Products  []models.Product `json:"products"`
}

func (f *File) Age(now time.Time) time.Duration {
	return now.Sub(f.ScrapedAt)
}

type Manager struct {
	path   string
	now    func() time.Time
	logger *slog.Logger
}

func New(path string, logger *slog.Logger) *Manager {
	return &Manager{
		path:   path,
		now:    time.Now,
		logger: logger.With("component", "cache"),
	}
}

// WithClock replaces the manager's time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) Path() string {
	return m.path
}

// Read returns the cache file or the reason it could not be used.
func (m *Manager) Read() (*File, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if f.ScrapedAt.IsZero() {
		return nil, fmt.Errorf("%w: scraped_at is missing", ErrCorrupt)
	}

	for i := range f.Products {
		if problems := f.Products[i].Validate(); len(problems) > 0 {
			return nil, fmt.Errorf("%w: product %d: %s", ErrCorrupt, i+1, strings.Join(problems, ", "))
		}
	}

	return &f, nil
}

// Load is Read with every failure treated as a cache miss.
func (m *Manager) Load() (*File, bool) {
	f, err := m.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			m.logger.Debug("no cache file", "path", m.path)
		} else {
			m.logger.Warn("ignoring unusable cache file", "path", m.path, "error", err)
		}
		return nil, false
	}

	return f, true
}

func (m *Manager) IsFresh(f *File, force bool) bool {
	return IsFresh(f, force, m.now())
}

// IsFresh reports whether f may be used instead of scraping. A timestamp
// further in the future than the window is treated as stale.
func IsFresh(f *File, force bool, now time.Time) bool {
	if force || f == nil {
		return false
	}

	age := f.Age(now)
	return age < FreshnessWindow && age > -FreshnessWindow
}

// Save replaces the cache file with products stamped with the current time.
func (m *Manager) Save(products []models.Product) (*File, error) {
	if products == nil {
		products = []models.Product{}
	}

	f := &File{
		ScrapedAt: m.now().UTC(),
		Products:  products,
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache: %w", err)
	}

	if err := fsutil.WriteFileAtomic(m.path, data); err != nil {
		return nil, fmt.Errorf("failed to write cache: %w", err)
	}

	m.logger.Info("saved products to cache", "path", m.path, "products", len(products))
	return f, nil
}
