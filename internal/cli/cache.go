package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local layout cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached layouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}

			count, err := clearDir(dir)
			if errors.Is(err, fs.ErrNotExist) {
				printInfo(c.out, "Cache is empty")
				return nil
			}
			if err != nil {
				return err
			}

			printSuccess(c.out, "Cleared %d cached layouts", count)
			printDetail(c.out, "Directory: %s", dir)
			return nil
		},
	}
}

// clearDir removes every file below dir, then the emptied shard
// directories. dir itself is kept.
func clearDir(dir string) (int, error) {
	if _, err := os.Stat(dir); err != nil {
		return 0, err
	}

	count := 0
	var shards []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || path == dir {
			return nil
		}
		if d.IsDir() {
			shards = append(shards, path)
			return nil
		}
		if os.Remove(path) == nil {
			count++
		}
		return nil
	})
	for i := len(shards) - 1; i >= 0; i-- {
		_ = os.Remove(shards[i])
	}
	return count, err
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(c.out, dir)
			return nil
		},
	}
}
