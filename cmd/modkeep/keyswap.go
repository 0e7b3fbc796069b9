package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/modkeep/pkg/modkeep/history"
	"github.com/jamesainslie/modkeep/pkg/modkeep/keyswap"
	"github.com/jamesainslie/modkeep/pkg/modkeep/logging"
)

var keyswapCmd = &cobra.Command{
	Use:     "keyswap",
	Aliases: []string{"keys"},
	Short:   "Show or change a mod's key-swap bindings",
	Long: `Key-swap sections in a mod's merged config bind keys that cycle the mod's
variants. Only the key and back values are ever rewritten; every other byte
of the file is preserved.`,
}

var keyswapShowCmd = &cobra.Command{
	Use:   "show <object> <mod>",
	Short: "List key-swap sections",
	Args:  cobra.ExactArgs(2),
	RunE:  runKeyswapShow,
}

var keyswapFlags struct {
	forward  string
	backward string
}

var keyswapSetCmd = &cobra.Command{
	Use:   "set <object> <mod> <section>",
	Short: "Change the keys of one section",
	Long: `Change the forward (key) and/or backward (back) binding of one key-swap
section. The section is matched by name, ignoring case.

Example:
  modkeep keyswap set Alice RedHat KeySwap --forward VK_3`,
	Args: cobra.ExactArgs(3),
	RunE: runKeyswapSet,
}

func init() {
	keyswapSetCmd.Flags().StringVarP(&keyswapFlags.forward, "forward", "f", "", "new forward key")
	keyswapSetCmd.Flags().StringVarP(&keyswapFlags.backward, "backward", "b", "", "new backward key")

	keyswapCmd.AddCommand(keyswapShowCmd, keyswapSetCmd)
	rootCmd.AddCommand(keyswapCmd)
}

func runKeyswapShow(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	e, err := s.entry(args[0], args[1])
	if err != nil {
		return err
	}
	store, err := e.Mod().KeySwaps()
	if err != nil {
		return err
	}
	sections, err := store.Load()
	if err != nil {
		return err
	}

	if len(sections) == 0 {
		printInfo("No key-swap sections in %s", store.Path())
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTION\tKEY\tBACK\tTYPE\tVARIANTS\tCONDITION")
	for _, sec := range sections {
		variants := "-"
		if n, ok := sec.Variants(); ok {
			variants = fmt.Sprintf("%d", n)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			sec.Name(), orDash(sec.ForwardKey()), orDash(sec.BackwardKey()), sec.Type(), variants, orDash(sec.Condition()))
	}
	return tw.Flush()
}

func runKeyswapSet(cmd *cobra.Command, args []string) error {
	if keyswapFlags.forward == "" && keyswapFlags.backward == "" {
		return errors.New("nothing to change: pass --forward and/or --backward")
	}

	s, err := openSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	e, err := s.entry(args[0], args[1])
	if err != nil {
		return err
	}
	store, err := e.Mod().KeySwaps()
	if err != nil {
		return err
	}
	sections, err := store.Load()
	if err != nil {
		return err
	}

	found := false
	for i, sec := range sections {
		if !strings.EqualFold(sec.Name(), args[2]) {
			continue
		}
		if keyswapFlags.forward != "" {
			sec = sec.WithForwardKey(keyswapFlags.forward)
		}
		if keyswapFlags.backward != "" {
			sec = sec.WithBackwardKey(keyswapFlags.backward)
		}
		sections[i] = sec
		found = true
	}
	if !found {
		return fmt.Errorf("no key-swap section %q in %s", args[2], store.Path())
	}

	if err := store.Save(sections); err != nil {
		if errors.Is(err, keyswap.ErrFormatMismatch) {
			return fmt.Errorf("%w; the file changed on disk, run the command again", err)
		}
		return err
	}

	if s.history != nil {
		if _, err := s.history.Record(history.OpKeySwap, e.Repository().Object(), store.Path(), ""); err != nil {
			logging.Get("cli").Warn("recording history", "error", err)
		}
	}
	printInfo("Updated [%s] in %s", args[2], store.Path())
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
