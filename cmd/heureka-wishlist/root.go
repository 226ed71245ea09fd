package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/maltedev/heureka-wishlist/internal/config"
	"github.com/maltedev/heureka-wishlist/pkg/logger"
)

type rootFlags struct {
	forceRefresh bool
	browser      string
	noHeadless   bool
	output       string
	cache        string
	sort         string
}

// cli holds what every command needs once flags and environment are merged.
type cli struct {
	flags  rootFlags
	cfg    *config.Config
	logger *slog.Logger
	launch launcherFactory
}

func newRootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "heureka-wishlist",
		Short: "Scrapes your Heureka.cz wishlist and renders it as a sortable HTML page.",
		Long: "Signs in to account.heureka.cz with HEUREKA_EMAIL and HEUREKA_PASSWORD, " +
			"reads every page of the wishlist and writes a self-contained HTML page. " +
			"Results are cached for 24 hours unless --force-refresh is given.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), c.cfg, c.flags.forceRefresh, c.launch(c.cfg, c.logger), c.logger)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&c.flags.forceRefresh, "force-refresh", false, "Ignore the cache and scrape again")
	flags.StringVar(&c.flags.browser, "browser", "firefox", "Browser engine to use (firefox or safari)")
	flags.BoolVar(&c.flags.noHeadless, "no-headless", false, "Show the browser window")

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&c.flags.output, "output", "wishlist.html", "Path of the generated HTML page")
	persistent.StringVar(&c.flags.cache, "cache", "wishlist_data.json", "Path of the JSON cache file")
	persistent.StringVar(&c.flags.sort, "sort", "newest", "Initial order: newest, oldest, price_asc or price_desc")

	cmd.AddCommand(newServeCmd(c))
	cmd.AddCommand(newWatchCmd(c))

	return cmd
}

// setup loads .env and the environment, lets explicitly set flags win over
// both, and builds the logger.
func (c *cli) setup(cmd *cobra.Command) error {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("browser") {
		cfg.Browser.Engine = c.flags.browser
	}
	if changed("no-headless") {
		cfg.Browser.Headless = !c.flags.noHeadless
	}
	if changed("output") {
		cfg.Output.HTMLPath = c.flags.output
	}
	if changed("cache") {
		cfg.Output.CachePath = c.flags.cache
	}
	if changed("sort") {
		cfg.Output.Sort = c.flags.sort
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	c.cfg = cfg
	c.logger = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(c.logger)

	return nil
}

func execute(ctx context.Context, args []string) int {
	cmd := newRootCmd(&cli{launch: browserLauncher})
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}

	return 0
}
