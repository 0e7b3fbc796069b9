package main

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/modkeep/cmd/modkeep/tui"
	"github.com/jamesainslie/modkeep/pkg/modkeep/events"
)

var watchCmd = &cobra.Command{
	Use:   "watch [object]",
	Short: "Follow mod changes live",
	Long: `Watch the mods root and show every change as repositories reconcile it.
Changes made in a file manager appear here as created, deleted, renamed,
enabled or disabled events.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("plain", false, "print events as lines instead of the interactive view")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	object := ""
	if len(args) == 1 {
		repo, err := s.lib.Repository(args[0])
		if err != nil {
			return err
		}
		object = repo.Object()
	}

	sub := s.bus.Subscribe(object)
	if sub == nil {
		return fmt.Errorf("event bus closed")
	}
	defer s.bus.Unsubscribe(sub.ID)

	mods := 0
	for _, repo := range s.lib.Repositories() {
		if object == "" || repo.Object() == object {
			mods += repo.Len()
		}
	}

	plain, _ := cmd.Flags().GetBool("plain")
	if plain {
		printInfo("Watching %s (ctrl+c to stop)", s.lib.Root())
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-sub.Events:
				if !ok {
					return nil
				}
				printEvent(ev)
			}
		}
	}

	model := tui.NewWatchModel(s.lib.Root(), len(s.lib.Objects()), mods, sub.Events)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch view: %w", err)
	}
	return nil
}

func printEvent(ev events.Event) {
	what := filepath.Base(ev.Path)
	if ev.OldPath != "" {
		what = filepath.Base(ev.OldPath) + " -> " + what
	}
	fmt.Printf("%s\t%s\t%s\t%s\n", ev.Time.Format("15:04:05"), ev.Type, ev.Object, what)
}
