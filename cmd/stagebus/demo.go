package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/stagebus/pkg/stagebus/pipeline"
)

var (
	demoURL     string
	demoFailAt  string
	demoDelay   time.Duration
	demoTimeout time.Duration
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the video-report pipeline with stub collaborators",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		stub := &pipeline.Stub{Delay: demoDelay, FailAt: demoFailAt}
		h, err := pipeline.Start(ctx, pipeline.Options{
			Config:        &cfg,
			Collaborators: stub.Collaborators(),
		})
		if err != nil {
			return err
		}
		defer h.Stop()

		h.Submit(ctx, pipeline.Job{URL: demoURL, CacheDir: os.TempDir()})

		var out pipeline.Outcome
		select {
		case out = <-h.Done():
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(demoTimeout):
			return fmt.Errorf("pipeline did not finish within %s", demoTimeout)
		}

		stats := h.Stats()
		if jsonOutput {
			data, err := json.MarshalIndent(map[string]any{
				"outcome":   out,
				"published": stats.Published,
				"unrouted":  stats.Unrouted,
				"dropped":   stats.Dropped(),
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		} else if out.Failed() {
			fmt.Fprintf(cmd.OutOrStdout(), "Failed in %s handling %s: %s\n",
				out.Failure.Stage, out.Failure.FailedType, out.Failure.Message)
		} else {
			r := out.Report.Report
			fmt.Fprintf(cmd.OutOrStdout(), "Report: %s (%s, %.1f min, %d chapters)\n",
				r.Title, r.Language, r.DurationMinutes, len(r.Chapters))
		}
		fmt.Fprintf(cmd.OutOrStderr(), "session %s: published=%d unrouted=%d dropped=%d\n",
			h.Bus().SessionID(), stats.Published, stats.Unrouted, stats.Dropped())

		if out.Failed() {
			return fmt.Errorf("pipeline failed")
		}
		return nil
	},
}

func init() {
	demoCmd.Flags().StringVar(&demoURL, "url", "https://www.youtube.com/watch?v=demo", "video URL to submit")
	demoCmd.Flags().StringVar(&demoFailAt, "fail-at", "", "stage whose stub collaborator fails (e.g. audio.transcribe)")
	demoCmd.Flags().DurationVar(&demoDelay, "delay", 50*time.Millisecond, "simulated work per stage")
	demoCmd.Flags().DurationVar(&demoTimeout, "timeout", 30*time.Second, "maximum time to wait for the outcome")
}
