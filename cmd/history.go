package cmd

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"httpconnect/internal/report"
	"httpconnect/internal/storage"
	"httpconnect/internal/tui/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "List recorded sweeps, or print the report of one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 1 {
			rec, err := store.Get(args[0])
			if err != nil {
				return err
			}
			return printRecord(cmd.OutOrStdout(), *rec)
		}

		limit, _ := cmd.Flags().GetInt("limit")
		records, err := store.List(limit)
		if err != nil {
			return err
		}

		if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
			p := tea.NewProgram(history.NewModel(records), tea.WithAltScreen())
			_, err := p.Run()
			return err
		}
		printRecords(cmd.OutOrStdout(), records)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of sweeps to list (0 lists all)")
	historyCmd.Flags().BoolP("interactive", "i", false, "Browse the history in the terminal UI")
}

func printRecords(w io.Writer, records []storage.SweepRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No sweeps recorded.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-19s  %-21s  %-14s  %7s  %6s  %s\n",
		"ID", "STARTED", "GATEWAY", "AGENTS", "SAMPLES", "LEVELS", "STATUS")
	for i, row := range history.Rows(records) {
		fmt.Fprintf(w, "%-36s  %-19s  %-21s  %-14s  %7s  %6s  %s\n",
			records[i].ID, row[0], row[1], row[2], row[3], row[4], row[5])
	}
}

func printRecord(w io.Writer, rec storage.SweepRecord) error {
	rw := report.NewWriter(w)
	if err := rw.WriteHeader(); err != nil {
		return err
	}
	for _, r := range rec.Results {
		if err := rw.WriteLevel(r); err != nil {
			return err
		}
	}
	if rec.Error != "" {
		fmt.Fprintf(w, "# aborted: %s\n", strings.ReplaceAll(rec.Error, "\n", " "))
	}
	return nil
}
