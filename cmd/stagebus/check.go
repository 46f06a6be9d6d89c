package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/stagebus/pkg/stagebus/pipeline"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a config by building the pipeline bus",
	Long: `Builds the pipeline's bus from the config without starting any worker
and prints the resulting routing table. Exits non-zero on any
configuration error.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := cfg.Logger(os.Stderr)
		if err != nil {
			return err
		}

		routes, err := pipeline.Check(cfg, logger)
		if err != nil {
			return err
		}

		if jsonOutput {
			type row struct {
				Type       string `json:"type"`
				Subscriber string `json:"subscriber"`
				Policy     string `json:"policy"`
			}
			rows := make([]row, 0, len(routes))
			for _, r := range routes {
				rows = append(rows, row{Type: string(r.Type), Subscriber: r.SubscriberID, Policy: r.Kind.String()})
			}
			data, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tSUBSCRIBER\tPOLICY")
		for _, r := range routes {
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Type, r.SubscriberID, r.Kind)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "OK: %d routes\n", len(routes))
		return nil
	},
}
