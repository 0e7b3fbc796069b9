package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/modkeep/pkg/modkeep/mod"
)

var infoCmd = &cobra.Command{
	Use:   "info <object> <mod>",
	Short: "Show or edit a mod's details",
	Long: `Show a mod's settings, merged config and preview images.

Flags update the settings sidecar before printing:
  modkeep info Alice RedHat --name "Red Hat" --author someone
  modkeep info Alice RedHat --checked`,
	Args: cobra.ExactArgs(2),
	RunE: runInfo,
}

var infoFlags struct {
	name    string
	author  string
	url     string
	checked bool
}

func init() {
	f := infoCmd.Flags()
	f.StringVar(&infoFlags.name, "name", "", "set the custom display name")
	f.StringVar(&infoFlags.author, "author", "", "set the author")
	f.StringVar(&infoFlags.url, "url", "", "set the mod page URL")
	f.BoolVar(&infoFlags.checked, "checked", false, "record that the mod was checked for updates now")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	e, err := s.entry(args[0], args[1])
	if err != nil {
		return err
	}
	m := e.Mod()

	if err := applyInfoFlags(cmd, m); err != nil {
		return err
	}
	return printModInfo(cmd.OutOrStdout(), m, e.Enabled())
}

// applyInfoFlags writes the changed settings flags to the sidecar.
func applyInfoFlags(cmd *cobra.Command, m *mod.Mod) error {
	settings := m.Settings()
	changed := false
	if cmd.Flags().Changed("name") {
		settings.CustomName = infoFlags.name
		changed = true
	}
	if cmd.Flags().Changed("author") {
		settings.Author = infoFlags.author
		changed = true
	}
	if cmd.Flags().Changed("url") {
		settings.ModURL = infoFlags.url
		changed = true
	}
	if changed {
		if err := m.SaveSettings(settings); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
	}
	if infoFlags.checked {
		if err := m.SetLastChecked(time.Now()); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
	}
	return nil
}

func printModInfo(out io.Writer, m *mod.Mod, enabled bool) error {
	settings := m.Settings()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s\n", m.DisplayName())
	fmt.Fprintf(w, "Folder:\t%s\n", m.Path())
	fmt.Fprintf(w, "State:\t%s\n", stateWord(enabled))
	fmt.Fprintf(w, "Author:\t%s\n", orDash(settings.Author))
	fmt.Fprintf(w, "Version:\t%s\n", orDash(settings.Version))
	fmt.Fprintf(w, "URL:\t%s\n", orDash(settings.ModURL))
	fmt.Fprintf(w, "Added:\t%s\n", timeOrDash(settings.DateAdded))
	fmt.Fprintf(w, "Checked:\t%s\n", timeOrDash(settings.LastChecked))

	if size, err := m.Size(); err == nil {
		fmt.Fprintf(w, "Size:\t%s\n", humanize.IBytes(uint64(size)))
	}

	merged, err := m.MergedConfigPath()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Config:\t%s\n", orDash(merged))

	images, err := m.PreviewImages()
	if err != nil {
		return err
	}
	if len(images) == 0 {
		fmt.Fprintf(w, "Images:\t-\n")
	}
	for i, img := range images {
		label := ""
		if i == 0 {
			label = "Images:"
		}
		fmt.Fprintf(w, "%s\t%s\n", label, img)
	}
	return w.Flush()
}

func stateWord(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func timeOrDash(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04") + " (" + humanize.Time(*t) + ")"
}
