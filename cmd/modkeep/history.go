package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/modkeep/pkg/modkeep/config"
	"github.com/jamesainslie/modkeep/pkg/modkeep/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View change history",
	Long: `View the enable, disable, rename, move, delete and key-swap changes
modkeep has made.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one history record",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove records older than the retention period",
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of records to show")

	historyCmd.AddCommand(historyShowCmd, historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory() (*history.Log, error) {
	if !cfg.History.Enabled {
		return nil, errors.New("history is disabled (history.enabled: false)")
	}
	return history.New(cfg.History.Path)
}

func runHistory(cmd *cobra.Command, args []string) error {
	h, err := openHistory()
	if err != nil {
		return err
	}
	records, err := h.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(records) == 0 {
		printInfo("No history records found.")
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-36s  %-8s  %-12s  %-14s  %s\n", "ID", "OP", "OBJECT", "WHEN", "FOLDER")
	fmt.Fprintln(out, strings.Repeat("-", 100))
	for _, rec := range records {
		fmt.Fprintf(out, "%-36s  %-8s  %-12s  %-14s  %s\n",
			truncateString(rec.ID, 36),
			rec.Op,
			truncateString(rec.Object, 12),
			humanize.Time(rec.Timestamp),
			describeChange(rec))
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	h, err := openHistory()
	if err != nil {
		return err
	}
	rec, err := h.Get(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:         %s\n", rec.ID)
	fmt.Fprintf(out, "Timestamp:  %s\n", rec.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Operation:  %s\n", rec.Op)
	fmt.Fprintf(out, "Object:     %s\n", rec.Object)
	fmt.Fprintf(out, "From:       %s\n", rec.From)
	if rec.To != "" {
		fmt.Fprintf(out, "To:         %s\n", rec.To)
	}
	return nil
}

func runHistoryClean(cmd *cobra.Command, args []string) error {
	h, err := openHistory()
	if err != nil {
		return err
	}
	days := cfg.History.RetentionDays
	if days <= 0 {
		days = config.DefaultRetentionDays
	}

	n, err := h.Cleanup(days)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}
	printInfo("Removed %d records older than %d days.", n, days)
	return nil
}

func describeChange(rec history.Record) string {
	if rec.To == "" {
		return rec.From
	}
	return rec.From + " -> " + rec.To
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
