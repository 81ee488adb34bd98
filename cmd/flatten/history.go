package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/flatten/pkg/flatten/config"
	"github.com/jamesainslie/flatten/pkg/flatten/manifest"
	"github.com/jamesainslie/flatten/pkg/flatten/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View run history",
	Long: `View the history of flatten and restore runs.

Each run that changes a directory is recorded with the moves it made.
Dry runs and runs with --no-history are not recorded.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific run",
	Long:  `Display the moves of a run by its ID or a unique ID prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than the retention period.`,
	RunE:  runHistoryClean,
}

var (
	historyLimit int
)

// showLimit caps the number of moves history show prints.
const showLimit = 50

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// runHistory lists recent runs.
func runHistory(cmd *cobra.Command, args []string) error {
	m, err := manifest.New(appConfig.History.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}
	return printHistory(os.Stdout, m, historyLimit)
}

func printHistory(w io.Writer, m *manifest.Manifest, limit int) error {
	entries, err := m.List(limit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No history entries found.")
		return nil
	}

	fmt.Fprintf(w, "\n%-36s  %-8s  %-7s  %-10s  %s\n", "ID", "TYPE", "FILES", "SIZE", "TARGET")
	fmt.Fprintln(w, strings.Repeat("-", 90))

	for _, entry := range entries {
		fmt.Fprintf(w, "%-36s  %-8s  %-7d  %-10s  %s\n",
			truncateString(entry.ID, 36),
			entry.Operation,
			entry.Summary.TotalFiles,
			types.FormatSize(entry.Summary.TotalBytes),
			entry.Target,
		)
	}

	fmt.Fprintln(w, strings.Repeat("-", 90))
	fmt.Fprintf(w, "\nShowing %d entries. Use --limit to see more.\n", len(entries))
	fmt.Fprintln(w, "Use 'flatten history show <id>' for details on a specific entry.")

	return nil
}

// runHistoryShow displays details of a specific run.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	m, err := manifest.New(appConfig.History.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	entry, err := m.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	printEntry(os.Stdout, entry)
	return nil
}

func printEntry(w io.Writer, entry *manifest.Entry) {
	fmt.Fprintln(w, "\nRun Details")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "ID:          %s\n", entry.ID)
	fmt.Fprintf(w, "Timestamp:   %s\n", entry.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Operation:   %s\n", entry.Operation)
	fmt.Fprintf(w, "Target:      %s\n", entry.Target)
	fmt.Fprintf(w, "Files:       %d\n", entry.Summary.TotalFiles)
	fmt.Fprintf(w, "Total Size:  %s\n", types.FormatSize(entry.Summary.TotalBytes))
	fmt.Fprintf(w, "Directories: %d\n", entry.Summary.Directories)
	fmt.Fprintf(w, "Elapsed:     %s\n", entry.Summary.Elapsed)

	var moved []types.Move
	for _, m := range entry.Moves {
		if !m.Skip {
			moved = append(moved, m)
		}
	}
	if len(moved) == 0 {
		return
	}

	fmt.Fprintln(w, "\nMoves:")
	fmt.Fprintln(w, strings.Repeat("-", 60))

	limit := min(len(moved), showLimit)
	for _, m := range moved[:limit] {
		from, to := m.From, m.To
		if entry.Operation == manifest.OpRestore {
			from, to = to, from
		}
		fmt.Fprintf(w, "%-10s  %s -> %s\n", types.FormatSize(m.Size), from, to)
	}

	if len(moved) > limit {
		fmt.Fprintf(w, "\n... and %d more moves\n", len(moved)-limit)
	}
}

// runHistoryClean removes old history entries.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	m, err := manifest.New(appConfig.History.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	retentionDays := appConfig.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)

	removed, err := m.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("Removed %d entries.", removed)
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
