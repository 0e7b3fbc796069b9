package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/modkeep/pkg/modkeep/trash"
)

var enableCmd = &cobra.Command{
	Use:   "enable <object> <mod>",
	Short: "Enable a mod",
	Long:  `Strip the DISABLED_ prefix from a mod folder. Fails if the enabled name is taken.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEntry(cmd, args, func(s *session, id string) error {
			repo, err := s.lib.Repository(args[0])
			if err != nil {
				return err
			}
			if err := repo.Enable(id); err != nil {
				return err
			}
			printInfo("Enabled %s", args[1])
			return nil
		})
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <object> <mod>",
	Short: "Disable a mod",
	Long:  `Add the DISABLED_ prefix to a mod folder. Fails if the disabled name is taken.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEntry(cmd, args, func(s *session, id string) error {
			repo, err := s.lib.Repository(args[0])
			if err != nil {
				return err
			}
			if err := repo.Disable(id); err != nil {
				return err
			}
			printInfo("Disabled %s", args[1])
			return nil
		})
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <object> <mod>",
	Short: "Flip a mod between enabled and disabled",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEntry(cmd, args, func(s *session, id string) error {
			repo, err := s.lib.Repository(args[0])
			if err != nil {
				return err
			}
			enabled, err := repo.Toggle(id)
			if err != nil {
				return err
			}
			printInfo("%s is now %s", args[1], map[bool]string{true: "enabled", false: "disabled"}[enabled])
			return nil
		})
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <object> <mod> <new-name>",
	Short: "Rename a mod folder",
	Long: `Rename a mod folder, keeping its enabled or disabled prefix. Both the
enabled and the disabled form of the new name must be free.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEntry(cmd, args[:2], func(s *session, id string) error {
			repo, err := s.lib.Repository(args[0])
			if err != nil {
				return err
			}
			if err := repo.Rename(id, args[2]); err != nil {
				return err
			}
			printInfo("Renamed %s to %s", args[1], args[2])
			return nil
		})
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <object> <mod> <target-object>",
	Short: "Move a mod to another object",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEntry(cmd, args[:2], func(s *session, id string) error {
			src, err := s.lib.Repository(args[0])
			if err != nil {
				return err
			}
			dst, err := s.lib.Repository(args[2])
			if err != nil {
				return err
			}
			if err := dst.CreateFolder(); err != nil {
				return err
			}
			if _, err := src.MoveEntry(id, dst); err != nil {
				return err
			}
			printInfo("Moved %s from %s to %s", args[1], src.Object(), dst.Object())
			return nil
		})
	},
}

var deletePermanent bool

var deleteCmd = &cobra.Command{
	Use:   "delete <object> <mod>",
	Short: "Move a mod to the trash",
	Long:  `Move a mod folder to the trash, or remove it for good with --permanent.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEntry(cmd, args, func(s *session, id string) error {
			repo, err := s.lib.Repository(args[0])
			if err != nil {
				return err
			}
			if err := repo.DeleteEntry(id, !deletePermanent); err != nil {
				if errors.Is(err, trash.ErrUnavailable) {
					return fmt.Errorf("%w; the folder was left in place, use --permanent to remove it", err)
				}
				return err
			}
			if deletePermanent {
				printInfo("Deleted %s", args[1])
			} else {
				printInfo("Moved %s to trash", args[1])
			}
			return nil
		})
	},
}

var hashCmd = &cobra.Command{
	Use:   "hash <object> <mod>",
	Short: "Print a mod's content hash and size",
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
		hash, err := e.Mod().ContentHash()
		if err != nil {
			return err
		}
		size, err := e.Mod().Size()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", hash, humanize.IBytes(uint64(size)), e.Mod().Path())
		return nil
	},
}

var dupesCmd = &cobra.Command{
	Use:   "dupes",
	Short: "Find mods with identical content",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		groups, err := s.lib.Duplicates()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(groups) == 0 {
			printInfo("No duplicate mods found.")
			return nil
		}
		for _, g := range groups {
			fmt.Fprintf(out, "%s  %s\n", g.Hash[:12], humanize.IBytes(uint64(g.Size)))
			for _, e := range g.Entries {
				fmt.Fprintf(out, "  %s\n", e.Mod().Path())
			}
		}
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVar(&deletePermanent, "permanent", false, "remove instead of moving to trash")

	rootCmd.AddCommand(enableCmd, disableCmd, toggleCmd, renameCmd, moveCmd, deleteCmd, hashCmd, dupesCmd)
}

// withEntry opens a session, resolves args[0]/args[1] to an entry ID and
// runs fn.
func withEntry(cmd *cobra.Command, args []string, fn func(s *session, id string) error) error {
	s, err := openSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	e, err := s.entry(args[0], args[1])
	if err != nil {
		return err
	}
	return fn(s, e.ID())
}
