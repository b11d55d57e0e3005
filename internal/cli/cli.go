// Package cli implements the rulesmith command-line interface.
//
// This package provides commands for generating code-quality plugins from
// published analyzer packages, serving the pipeline over HTTP, and managing
// the feed metadata cache. The CLI is built using cobra and supports verbose
// logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - generate: Convert an analyzer package into an installable plugin
//   - serve: Expose the generation pipeline over HTTP
//   - cache: Manage the feed metadata cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
//
// # Example
//
//	import "github.com/rulesmith/rulesmith/internal/cli"
//
//	func main() {
//	    c := cli.New(os.Stderr, cli.LogInfo)
//	    if err := c.RootCommand().Execute(); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/rulesmith/rulesmith/pkg/buildinfo"
	"github.com/rulesmith/rulesmith/pkg/cache"
	"github.com/rulesmith/rulesmith/pkg/config"
	"github.com/rulesmith/rulesmith/pkg/httputil"
	"github.com/rulesmith/rulesmith/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "rulesmith"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *config.Config

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "rulesmith",
		Short:        "Rulesmith turns analyzer packages into code-quality plugins",
		Long:         `Rulesmith is a CLI tool that converts published analyzer packages into installable code-quality plugins: it materializes a package from the feed, discovers the analyzers inside, derives platform rules, and assembles the plugin artifact.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.config/rulesmith/config.toml)")

	// Register all subcommands
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file once, honoring the --config flag.
func (c *CLI) loadConfig() error {
	if c.Config != nil {
		return nil
	}

	path := c.configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			c.Config = config.Default()
			return nil
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	c.Config = cfg
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use, wiring the metadata cache
// backend the config selects.
func (c *CLI) newRunner(ctx context.Context, noCache bool) *pipeline.Runner {
	return pipeline.NewRunner(pipeline.RunnerOptions{
		MetadataCache: c.newMetadataCache(ctx, noCache),
		Logger:        c.Logger,
	})
}

// newMetadataCache builds the feed metadata cache. Backend failures degrade
// to no caching rather than failing the run.
func (c *CLI) newMetadataCache(ctx context.Context, noCache bool) *httputil.Cache {
	cfg := c.Config
	if cfg == nil {
		cfg = config.Default()
	}

	backend := cfg.Cache.Backend
	if noCache {
		backend = config.CacheBackendNone
	}

	var store cache.Cache
	switch backend {
	case config.CacheBackendRedis:
		redis, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		if err != nil {
			c.Logger.Warn("redis cache unavailable, caching disabled", "err", err)
			store = cache.NewNullCache()
		} else {
			store = redis
		}
	case config.CacheBackendFile:
		dir, err := cacheDir()
		if err == nil {
			store, err = cache.NewFileCache(dir)
		}
		if err != nil {
			c.Logger.Warn("file cache unavailable, caching disabled", "err", err)
			store = cache.NewNullCache()
		}
	default:
		store = cache.NewNullCache()
	}

	return httputil.NewCache(store, cfg.MetadataTTL())
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/rulesmith/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
