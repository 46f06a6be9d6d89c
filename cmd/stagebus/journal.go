package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/stagebus/pkg/stagebus/journal"
)

var journalPath string

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Read a SQLite run journal",
}

var journalSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List journaled sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := journal.NewSQLiteStore(journalPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ids, err := store.Sessions()
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var journalShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session's journaled events in publish order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := journal.NewSQLiteStore(journalPath)
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			type row struct {
				Seq        uint64          `json:"seq"`
				Type       string          `json:"type"`
				RecordedAt time.Time       `json:"recorded_at"`
				Event      json.RawMessage `json:"event"`
			}
			rows := make([]row, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, row{Seq: e.Seq, Type: e.EventType, RecordedAt: e.RecordedAt, Event: e.Data})
			}
			data, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SEQ\tTYPE\tRECORDED")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\n", e.Seq, e.EventType, e.RecordedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

func init() {
	journalCmd.PersistentFlags().StringVar(&journalPath, "db", "stagebus-journal.db", "journal database path")
	journalCmd.AddCommand(journalSessionsCmd)
	journalCmd.AddCommand(journalShowCmd)
}
