// Package cli implements the forcegraph command-line interface.
//
// # Commands
//
//   - layout: compute a force-directed layout for a JSON or YAML graph file
//   - serve: run the HTTP layout service
//   - cache: inspect or clear the local layout cache
//   - version: print build information
//
// All commands support --verbose (-v) for debug-level logging. The logger
// is attached to the command context, so long-running commands such as
// serve pick it up with loggerFromContext.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/forcegraph/pkg/cache"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "forcegraph"

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

	// out receives command results; errOut receives logs and the spinner.
	out    io.Writer
	errOut io.Writer
}

// New creates a CLI whose logs are written to w at the given level.
// Command output goes to stdout.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		out:    os.Stdout,
		errOut: w,
	}
}

// SetOutput redirects command output.
func (c *CLI) SetOutput(w io.Writer) {
	c.out = w
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner backed by the local file cache.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	lc, err := c.newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(lc, nil, c.Logger), nil
}

func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		c.Logger.Debug("no cache directory, caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/forcegraph/).
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
