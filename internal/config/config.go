package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvEmail    = "HEUREKA_EMAIL"
	EnvPassword = "HEUREKA_PASSWORD"
)

var ErrMissingCredentials = errors.New("missing Heureka credentials")

type Config struct {
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Output   OutputConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

type ScraperConfig struct {
	LoginURL     string
	WishlistURL  string
	AuthTimeout  time.Duration
	WaitTimeout  time.Duration
	PageDelayMin time.Duration
	PageDelayMax time.Duration
	MaxPages     int
	MaxRetries   int
}

type BrowserConfig struct {
	Engine         string
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	TimezoneID     string
	Locale         string
}

type OutputConfig struct {
	HTMLPath  string
	CachePath string
	Sort      string
}

type DatabaseConfig struct {
	URL      string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Credentials are kept out of Config so they never end up in logged structs.
type Credentials struct {
	Email    string
	Password string
}

// LoadDotEnv loads a .env file from the working directory when one exists.
func LoadDotEnv() {
	_ = godotenv.Load()
}

func Load() (*Config, error) {
	cfg := &Config{
		Scraper: ScraperConfig{
			LoginURL:     getEnvOrDefault("HEUREKA_LOGIN_URL", "https://account.heureka.cz/auth/login"),
			WishlistURL:  getEnvOrDefault("HEUREKA_WISHLIST_URL", "https://account.heureka.cz/oblibene"),
			AuthTimeout:  getDurationOrDefault("SCRAPER_AUTH_TIMEOUT", 20*time.Second),
			WaitTimeout:  getDurationOrDefault("SCRAPER_WAIT_TIMEOUT", 10*time.Second),
			PageDelayMin: getDurationOrDefault("SCRAPER_PAGE_DELAY_MIN", 1*time.Second),
			PageDelayMax: getDurationOrDefault("SCRAPER_PAGE_DELAY_MAX", 3*time.Second),
			MaxPages:     getIntOrDefault("SCRAPER_MAX_PAGES", 50),
			MaxRetries:   getIntOrDefault("SCRAPER_MAX_RETRIES", 3),
		},
		Browser: BrowserConfig{
			Engine:         getEnvOrDefault("BROWSER_ENGINE", "firefox"),
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1440),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 900),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Europe/Prague"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "cs-CZ"),
		},
		Output: OutputConfig{
			HTMLPath:  getEnvOrDefault("WISHLIST_OUTPUT", "wishlist.html"),
			CachePath: getEnvOrDefault("WISHLIST_CACHE", "wishlist_data.json"),
			Sort:      getEnvOrDefault("WISHLIST_SORT", "newest"),
		},
		Database: DatabaseConfig{
			URL:      getEnvOrDefault("DATABASE_URL", ""),
			MaxConns: int32(getIntOrDefault("DATABASE_MAX_CONNS", 2)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "wishlist:changes"),
		},
		Server: ServerConfig{
			Addr:            getEnvOrDefault("SERVER_ADDR", ":8080"),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Browser.Engine {
	case "firefox", "safari":
	default:
		return fmt.Errorf("unsupported browser %q (expected firefox or safari)", c.Browser.Engine)
	}

	if c.Scraper.MaxPages < 1 {
		return fmt.Errorf("SCRAPER_MAX_PAGES must be at least 1")
	}

	if c.Scraper.MaxRetries < 1 {
		return fmt.Errorf("SCRAPER_MAX_RETRIES must be at least 1")
	}

	if c.Scraper.PageDelayMin > c.Scraper.PageDelayMax {
		return fmt.Errorf("SCRAPER_PAGE_DELAY_MIN cannot be greater than SCRAPER_PAGE_DELAY_MAX")
	}

	if c.Scraper.AuthTimeout <= 0 || c.Scraper.WaitTimeout <= 0 {
		return fmt.Errorf("scraper timeouts must be positive")
	}

	if c.Output.HTMLPath == "" || c.Output.CachePath == "" {
		return fmt.Errorf("output and cache paths are required")
	}

	return nil
}

// LoadCredentials reads the account credentials from the environment. It is
// called before any browser work so a misconfigured run fails immediately.
func LoadCredentials() (Credentials, error) {
	creds := Credentials{
		Email:    strings.TrimSpace(os.Getenv(EnvEmail)),
		Password: os.Getenv(EnvPassword),
	}

	var missing []string
	if creds.Email == "" {
		missing = append(missing, EnvEmail)
	}
	if creds.Password == "" {
		missing = append(missing, EnvPassword)
	}

	if len(missing) > 0 {
		return Credentials{}, fmt.Errorf("%w: %s must be set", ErrMissingCredentials, strings.Join(missing, " and "))
	}

	return creds, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
