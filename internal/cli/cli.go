package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pyelevate/pyelevate/pkg/buildinfo"
	"github.com/pyelevate/pyelevate/pkg/cache"
	"github.com/pyelevate/pyelevate/pkg/errors"
)

// appName is the application name used for directories and display.
const appName = "pyelevate"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands
// registered. Running without a subcommand opens the interactive
// dashboard.
func (c *CLI) RootCommand() *cobra.Command {
	var requirements string
	var dryRun bool

	root := &cobra.Command{
		Use:          appName,
		Short:        "PyElevate inspects and upgrades Python dependency manifests",
		Long:         `PyElevate reads a Python requirements file, checks every package against the index for newer releases and known vulnerabilities, and helps apply upgrades safely.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			c.Config = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.requirementsPath(requirements)
			if err != nil {
				return err
			}
			return c.runDashboard(cmd.Context(), path, dryRun)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.Flags().StringVarP(&requirements, "requirements", "r", "", "path to the requirements file")
	root.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "never write files, even on confirm")

	root.AddCommand(c.checkCommand())
	root.AddCommand(c.upgradeCommand())
	root.AddCommand(c.simulateCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())

	return root
}

// requirementsPath resolves the manifest path: the flag wins, then the
// config file, then ./requirements.txt. Resolution failures are fatal
// before any network activity starts.
func (c *CLI) requirementsPath(provided string) (string, error) {
	if provided != "" {
		return provided, nil
	}
	if c.Config.Requirements != "" {
		return c.Config.Requirements, nil
	}
	if _, err := os.Stat("requirements.txt"); err == nil {
		return "requirements.txt", nil
	}
	return "", errors.New(errors.ErrCodeFileNotFound,
		"could not find requirements.txt, specify one with --requirements <path>")
}

// newBackend selects the cache backend: Redis when configured, the
// file cache otherwise, and the null cache when caching is disabled or
// unavailable.
func (c *CLI) newBackend(ctx context.Context, noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	if c.Config.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, c.Config.RedisAddr)
		if err == nil {
			return rc
		}
		c.Logger.Warn("redis unavailable, falling back to file cache", "err", err)
	}
	dir := c.Config.CacheDir
	if dir == "" {
		var err error
		dir, err = cacheDir()
		if err != nil {
			return cache.NewNullCache()
		}
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "err", err)
		return cache.NewNullCache()
	}
	return fc
}

// cacheDir returns the cache directory using the XDG convention
// (~/.cache/pyelevate/).
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
