package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// PlainFormatter writes an aligned, unstyled table.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	if _, err := fmt.Fprintln(tw, "STATE\tOBJECT\tNAME\tSIZE\tID"); err != nil {
		return err
	}
	for _, m := range r.Mods {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", stateLabel(m.Enabled), m.Object, m.Name, m.SizeHuman, m.ID); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// PathsFormatter writes one mod folder path per line.
type PathsFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PathsFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, m := range r.Mods {
		w.WriteString(m.Path)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
	Register("paths", func() Formatter {
		return &PathsFormatter{}
	})
}

var (
	_ Formatter = (*PlainFormatter)(nil)
	_ Formatter = (*PathsFormatter)(nil)
)
