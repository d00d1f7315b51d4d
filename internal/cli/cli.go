package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/cyberedpro/cybered/pkg/api"
	"github.com/cyberedpro/cybered/pkg/buildinfo"
	"github.com/cyberedpro/cybered/pkg/cache"
	"github.com/cyberedpro/cybered/pkg/config"
	"github.com/cyberedpro/cybered/pkg/gateway"
	"github.com/cyberedpro/cybered/pkg/session"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "cybered"

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

	// ConfigPath is the --config flag; empty selects the default file.
	ConfigPath string

	// out receives command results; status lines go to stdout via the
	// print helpers.
	out io.Writer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// SetOutput redirects command results, for tests.
func (c *CLI) SetOutput(w io.Writer) {
	c.out = w
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "cybered talks to the CyberEd Pro learning platform",
		Long:         `cybered is a command-line client for the CyberEd Pro LMS API. Every request goes through a shared gateway that caches reads, retries transient failures and bounds each attempt with a deadline.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default ~/.config/cybered/config.toml)")

	root.AddCommand(c.callCommand())
	root.AddCommand(c.meCommand())
	root.AddCommand(c.coursesCommand())
	root.AddCommand(c.enrollmentsCommand())
	root.AddCommand(c.loginCommand())
	root.AddCommand(c.logoutCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.mockCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// versionCommand prints the build information.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(c.out, buildinfo.String())
		},
	}
}

// =============================================================================
// Client Factory
// =============================================================================

// env is everything a command needs to reach the API.
type env struct {
	cfg    *config.Config
	client *api.Client
	store  *session.CLIStore
	mirror cache.Cache
}

// Close releases the cache mirror.
func (e *env) Close() error {
	return e.mirror.Close()
}

// newEnv loads the configuration and builds the gateway and API client.
func (c *CLI) newEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}

	store, err := session.NewCLIStore(cfg.Auth.SessionDir)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	mirror, err := c.newMirror(ctx, cfg)
	if err != nil {
		return nil, err
	}

	table := cache.NewTable(
		cache.WithRoutes(cache.DefaultRoutes(cfg.TTLs())),
		cache.WithMirror(mirror),
		cache.WithLogger(c.Logger),
	)

	opts := cfg.GatewayOptions()
	opts.Cache = table
	opts.Logger = c.Logger
	opts.Tokens = tokenSource(cfg, store)

	gw, err := gateway.New(opts)
	if err != nil {
		mirror.Close()
		return nil, err
	}

	c.Logger.Debug("gateway ready", "base_url", cfg.BaseURL, "cache", cfg.Cache.Backend)
	return &env{cfg: cfg, client: api.New(gw), store: store, mirror: mirror}, nil
}

// tokenSource prefers a configured token over the stored session.
func tokenSource(cfg *config.Config, store *session.CLIStore) gateway.TokenSource {
	if cfg.Auth.Token != "" {
		return gateway.StaticToken(cfg.Auth.Token)
	}
	return store
}

// newMirror opens the byte store the cache table is mirrored into.
func (c *CLI) newMirror(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.BackendFile:
		dir, err := mirrorDir(cfg)
		if err != nil {
			return nil, fmt.Errorf("get cache dir: %w", err)
		}
		return cache.NewFileCache(dir)
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cfg.RedisConfig())
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return rc, nil
	default:
		return cache.NewNullCache(), nil
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/cybered/).
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

// mirrorDir is the file mirror's directory for cfg's API, keeping entries
// for different base URLs apart.
func mirrorDir(cfg *config.Config) (string, error) {
	dir := cfg.Cache.Dir
	if dir == "" {
		var err error
		if dir, err = cacheDir(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, cache.Namespace(cfg.BaseURL)), nil
}
