// Package cli implements the sseqchart command-line interface.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sseqchart/internal/config"
	"github.com/matzehuels/sseqchart/pkg/buildinfo"
	"github.com/matzehuels/sseqchart/pkg/cache"
	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "sseqchart"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded before any subcommand runs.
	Config     *config.Config
	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.DefaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "sseqchart builds, replays and renders spectral sequence charts",
		Long: `sseqchart maintains spectral sequence charts: classes placed by degree, joined by
structlines, differentials and extensions, with page-dependent display properties.

Charts are JSON snapshots that can be replayed against message streams, inspected,
rendered with Graphviz, browsed page by page, or served live over WebSocket.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.loadConfig,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: search $"+config.EnvConfigPath+", ./sseqchart.toml, ~/.config/sseqchart/)")

	root.AddCommand(c.replayCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.chartsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file and attaches the logger to the command
// context. --verbose wins over the configured level.
func (c *CLI) loadConfig(cmd *cobra.Command, _ []string) error {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if c.configPath != "" {
		cfg, path, err = config.LoadFromPath(c.configPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return err
	}
	c.Config = cfg

	level := cfg.Log.ParsedLevel()
	if c.verbose {
		level = log.DebugLevel
	}
	c.SetLogLevel(level)
	if path != "" {
		c.Logger.Debug("loaded config", "path", path)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(withLogger(ctx, c.Logger))
	return nil
}

// =============================================================================
// Backends
// =============================================================================

// chartOptions returns options for a new chart.
func (c *CLI) chartOptions() chart.Options {
	opts := c.Config.ChartOptions()
	opts.Logger = c.Logger
	return opts
}

// newCache opens the configured cache. Redis is used when an address is
// configured; otherwise entries go to files under the cache directory.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if addr := c.Config.Cache.RedisAddr; addr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: addr, Prefix: appName + ":"})
		if err != nil {
			c.Logger.Warn("redis unavailable, caching disabled", "addr", addr, "err", err)
			return cache.NewNullCache(), nil
		}
		return rc, nil
	}
	dir, err := c.cacheDir()
	if err != nil {
		c.Logger.Warn("no cache directory, caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// cacheDir returns the configured cache directory or the XDG default.
func (c *CLI) cacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cache.DefaultDir()
}

// newStore opens the configured snapshot store.
func (c *CLI) newStore(ctx context.Context) (store.Store, error) {
	sc := c.Config.Store
	if sc.MongoURI != "" {
		return store.NewMongoStore(ctx, store.MongoConfig{URI: sc.MongoURI, Database: sc.Database, Collection: sc.Collection})
	}
	return store.NewFileStore(sc.Dir)
}
