package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyberedpro/cybered/pkg/cache"
	"github.com/cyberedpro/cybered/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
		Long: `Manage the response cache.

Within one command the cache lives in memory. With cache.backend set to
"file" or "redis" it is mirrored so later commands reuse fresh responses.`,
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheStatusCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.newEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if e.cfg.Cache.Backend == config.BackendMemory {
				printInfo("Cache is in memory only; nothing persisted")
				return nil
			}
			if err := e.client.Gateway().InvalidateAll(ctx); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			printSuccess("Cleared cached responses")
			printDetail("Backend: %s", describeBackend(e.cfg))
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the file cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.ConfigPath)
			if err != nil {
				return err
			}
			dir, err := mirrorDir(cfg)
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(c.out, dir)
			return nil
		},
	}
}

// cacheStatusCommand creates the "cache status" subcommand.
func (c *CLI) cacheStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which cached resources are fresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.newEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			printKeyValue("Backend", describeBackend(e.cfg))
			printKeyValue("API", e.cfg.BaseURL)
			printNewline()

			// Only the mirror outlives a command; looking up each route's
			// canonical endpoint pulls fresh entries into the table.
			gw := e.client.Gateway()
			table := gw.Cache()
			scoped := gw.CacheContext(ctx)
			for _, endpoint := range statusEndpoints {
				table.Lookup(scoped, endpoint)
			}

			states := table.Snapshot()
			if len(states) == 0 {
				printInfo("No cached responses")
				return nil
			}
			now := time.Now()
			for _, st := range states {
				printCacheState(slotName(st), st.Size, age(now, st), st.Fresh)
			}
			return nil
		},
	}
}

// statusEndpoints are looked up by "cache status". Course details are keyed by
// id and cannot be enumerated in a mirror.
var statusEndpoints = []string{"/users/me", "/courses/", "/enrollments/"}

func describeBackend(cfg *config.Config) string {
	switch cfg.Cache.Backend {
	case config.BackendFile:
		if dir, err := mirrorDir(cfg); err == nil {
			return "file " + dir
		}
	case config.BackendRedis:
		return "redis " + cfg.Cache.RedisAddr
	}
	return cfg.Cache.Backend
}

func slotName(st cache.SlotState) string {
	if st.ID == "" {
		return string(st.Slot)
	}
	return string(st.Slot) + "/" + st.ID
}

func age(now time.Time, st cache.SlotState) string {
	a := now.Sub(st.Timestamp).Round(time.Second)
	if st.TTL == 0 {
		return fmt.Sprintf("%s old, no expiry", a)
	}
	return fmt.Sprintf("%s old of %s", a, st.TTL)
}
