package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/modkeep/pkg/modkeep/archive"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage the archive cache",
	Long: `The archive cache remembers which archive file each mod was installed from,
keyed by the mod's content hash. It lives in the XDG data directory
(typically ~/.local/share/modkeep/archives).`,
}

var archivePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show archive cache location",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), cfg.Archive.Path)
	},
}

var archiveAddCmd = &cobra.Command{
	Use:   "add <object> <mod> <archive-file>",
	Short: "Remember the archive a mod came from",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.entry(args[0], args[1])
		if err != nil {
			return err
		}
		path, err := filepath.Abs(args[2])
		if err != nil {
			return err
		}
		if err := s.lib.RecordArchive(e.Mod(), path); err != nil {
			return err
		}
		printInfo("Recorded %s for %s", path, e.Mod().Name())
		return nil
	},
}

var archiveLookupCmd = &cobra.Command{
	Use:   "lookup <object> <mod>",
	Short: "Show the archive a mod came from",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.entry(args[0], args[1])
		if err != nil {
			return err
		}
		path, ok, err := s.lib.ArchiveFor(e.Mod())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no archive recorded for %s", e.Mod().Name())
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var archivePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Forget archives that no longer exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withArchive(func(c *archive.Cache) error {
			n, err := c.Prune()
			if err != nil {
				return err
			}
			printInfo("Pruned %d stale records.", n)
			return nil
		})
	},
}

var archiveClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withArchive(func(c *archive.Cache) error {
			if err := c.Clear(); err != nil {
				return fmt.Errorf("failed to clear archive cache: %w", err)
			}
			printInfo("Archive cache cleared.")
			return nil
		})
	},
}

var archiveStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show archive cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withArchive(func(c *archive.Cache) error {
			n, err := c.Count()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archive cache: %s\nRecords: %d\n", cfg.Archive.Path, n)
			return nil
		})
	},
}

func init() {
	archiveCmd.AddCommand(archivePathCmd, archiveAddCmd, archiveLookupCmd, archivePruneCmd, archiveClearCmd, archiveStatsCmd)
	rootCmd.AddCommand(archiveCmd)
}

// withArchive opens the archive cache on its own, without a library.
func withArchive(fn func(*archive.Cache) error) error {
	if cfg.Archive.Path == "" {
		return errors.New("archive cache path is not configured")
	}
	c, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}
