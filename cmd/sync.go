package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/shelter-mirror/internal/queue"
)

func newSyncCmd() *cobra.Command {
	var (
		timeout time.Duration
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one reconciliation against the remote listing",
		Long: `Fetches the shelter's listing once, updates and inserts records,
downloads photos for new records, purges removed ones, and prints
"updated" or "not updated".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if err := a.Migrate(ctx); err != nil {
				return err
			}
			if err := a.SeedSettings(ctx); err != nil {
				return fmt.Errorf("seed settings: %w", err)
			}

			runCtx, stop := context.WithCancel(ctx)
			done := make(chan struct{})
			go func() {
				defer close(done)
				a.Dispatcher.Run(runCtx)
			}()
			summary, syncErr := a.Dispatcher.Submit(ctx, queue.SourceCLI)
			stop()
			<-done

			out := cmd.OutOrStdout()
			if verbose {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(summary); err != nil {
					return fmt.Errorf("encode summary: %w", err)
				}
			}
			result := summary.Outcome
			if syncErr != nil || result == "" {
				result = "not updated"
			}
			_, err = fmt.Fprintln(out, result)
			return err
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall time allowed for the sync")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the run summary as JSON")
	return cmd
}
