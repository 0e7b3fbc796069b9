package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// PrettyFormatter renders a styled terminal listing.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(HeaderBox.Render(LabelStyle.Render("Root:") + " " + ValueStyle.Render(r.Root)))
	w.WriteString("\n")
	w.WriteString(f.formatTable(r))
	w.WriteString(f.formatFooter(r))

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
		w.WriteString("\n")
		for _, warning := range r.Warnings {
			w.WriteString(WarningStyle.Render("  " + warning))
			w.WriteString("\n")
		}
	}
	return nil
}

func (f *PrettyFormatter) formatTable(r *Result) string {
	if len(r.Mods) == 0 {
		return MutedStyle.Render("  No mods found matching criteria") + "\n"
	}

	objectWidth, nameWidth, sizeWidth := len("OBJECT"), len("NAME"), 8
	for _, m := range r.Mods {
		objectWidth = max(objectWidth, lipgloss.Width(m.Object))
		nameWidth = max(nameWidth, lipgloss.Width(m.DisplayName))
		sizeWidth = max(sizeWidth, len(m.SizeHuman))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "  %s %s %s %s\n",
		TableHeaderStyle.Render(padRight("STATE", 5)),
		TableHeaderStyle.Render(padRight("OBJECT", objectWidth)),
		TableHeaderStyle.Render(padRight("NAME", nameWidth)),
		TableHeaderStyle.Render(padLeft("SIZE", sizeWidth)))

	for _, m := range r.Mods {
		state := MutedStyle.Render(padRight(stateLabel(m.Enabled), 5))
		if m.Enabled {
			state = SuccessStyle.Render(padRight(stateLabel(m.Enabled), 5))
		}
		fmt.Fprintf(&sb, "  %s   %s   %s   %s\n",
			state,
			LabelStyle.Render(padRight(m.Object, objectWidth)),
			ValueStyle.Render(padRight(m.DisplayName, nameWidth)),
			SizeStyle.Render(padLeft(m.SizeHuman, sizeWidth)))
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Result) string {
	parts := []string{
		LabelStyle.Render("Mods:") + " " + ValueStyle.Render(fmt.Sprintf("%d", len(r.Mods))),
		LabelStyle.Render("Enabled:") + " " + SuccessStyle.Render(fmt.Sprintf("%d", r.EnabledCount())),
		LabelStyle.Render("Total:") + " " + SizeStyle.Render(humanize.IBytes(uint64(max(r.TotalSize(), 0)))),
		MutedStyle.Render("Use -o plain for unformatted output"),
	}
	return FooterBox.Render(strings.Join(parts, "  "))
}

func padLeft(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return strings.Repeat(" ", width-n) + s
	}
	return s
}

func padRight(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)
