package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/viastitch/pkg/board"
	"github.com/matzehuels/viastitch/pkg/board/memory"
	"github.com/matzehuels/viastitch/pkg/buildinfo"
	"github.com/matzehuels/viastitch/pkg/cache"
	"github.com/matzehuels/viastitch/pkg/config"
	"github.com/matzehuels/viastitch/pkg/history"
	"github.com/matzehuels/viastitch/pkg/history/mongo"
	"github.com/matzehuels/viastitch/pkg/history/sqlite"
	"github.com/matzehuels/viastitch/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "viastitch"

	// historyFile is the SQLite history database name under the data dir.
	historyFile = "history.db"
)

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

	// Out receives command output.
	Out io.Writer

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "viastitch",
		Short: "viastitch places stitching vias on PCB copper pours",
		Long: `viastitch places a regular grid of stitching vias wherever the copper
zones of one net overlap on two or more layers, keeping clear of pads,
tracks, existing vias and foreign zones.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetOut(c.Out)
	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/viastitch/viastitch.toml)")

	root.AddCommand(c.netsCommand())
	root.AddCommand(c.zonesCommand())
	root.AddCommand(c.stitchCommand())
	root.AddCommand(c.previewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config returns the loaded configuration, or the defaults before
// PersistentPreRunE has run.
func (c *CLI) config() *config.Config {
	if c.cfg == nil {
		return config.Default()
	}
	return c.cfg
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use from the configured
// cache and history backends.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cfg := c.config()
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	store, err := c.newHistory(ctx)
	if err != nil {
		ch.Close()
		return nil, err
	}
	r := pipeline.NewRunner(ch, nil, store, c.Logger)
	if r.PlanTTL, err = cfg.Cache.TTLDuration(cache.TTLPlan); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cfg := c.config().Cache
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Prefix,
		})
		if err != nil {
			// Stitching works without a cache.
			c.Logger.Warn("plan cache disabled", "err", err)
			return cache.NewNullCache(), nil
		}
		return rc, nil
	}
	dir := cfg.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

func (c *CLI) newHistory(ctx context.Context) (history.Store, error) {
	cfg := c.config().History
	switch cfg.Backend {
	case config.BackendNone:
		return history.Nop{}, nil
	case config.BackendMongo:
		store, err := mongo.Connect(ctx, cfg.MongoURI, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		return store, nil
	}
	path := cfg.Path
	if path == "" {
		dir, err := dataDir()
		if err != nil {
			return history.Nop{}, nil
		}
		path = filepath.Join(dir, historyFile)
	}
	store, err := sqlite.Open(path, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

// loadBoard opens a board document and checks its declared units against
// the configured scale.
func (c *CLI) loadBoard(path string) (*memory.Board, error) {
	doc, err := board.LoadDocument(path)
	if err != nil {
		return nil, err
	}
	if err := doc.CheckScale(c.config().Units.PerMM); err != nil {
		return nil, err
	}
	return memory.New(doc)
}

// saveBoard writes b back to path.
func saveBoard(b *memory.Board, path string) error {
	return board.SaveDocument(b.Document(), path)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/viastitch/).
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

// dataDir returns the data directory using XDG standard (~/.local/share/viastitch/).
func dataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}
