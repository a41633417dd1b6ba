package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <search-id>",
		Short: "Run one search and report new items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSearchID(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext(cmd)
			defer stop()

			if err := a.authenticate(ctx); err != nil {
				return err
			}

			items, err := a.service.RunSearch(ctx, id)
			if err != nil {
				return WrapExitError(ExitFailure, "search failed", err)
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return writeJSON(out, items)
			}
			fmt.Fprintf(out, "Found %d new items\n", len(items))
			for _, item := range items {
				fmt.Fprintf(out, "  - %s ($%.2f) - %s\n", item.Title, item.CurrentPrice, item.URL)
			}
			return nil
		},
	}
}

type runAllOutput struct {
	CycleID  string            `json:"cycle_id"`
	TotalNew int               `json:"total_new"`
	Searches []runAllSearchOut `json:"searches"`
}

type runAllSearchOut struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	New   int    `json:"new"`
	Error string `json:"error,omitempty"`
}

// NewRunAllCommand creates the run-all command.
func NewRunAllCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run-all",
		Short: "Run all active searches",
		Long: `Run every active search once. A failing search is reported and does not
stop the others; the command exits with status 1 if any search failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext(cmd)
			defer stop()

			if err := a.authenticate(ctx); err != nil {
				return err
			}

			summary, err := a.service.RunAll(ctx)
			if err != nil {
				return WrapExitError(ExitFailure, "poll cycle aborted", err)
			}

			out := cmd.OutOrStdout()
			report := runAllOutput{CycleID: summary.CycleID, TotalNew: summary.TotalNew, Searches: make([]runAllSearchOut, 0, len(summary.Order))}
			for _, id := range summary.Order {
				res := summary.Results[id]
				entry := runAllSearchOut{ID: id, Name: res.Name, New: len(res.NewItems)}
				if res.Err != nil {
					entry.Error = res.Err.Error()
				}
				report.Searches = append(report.Searches, entry)
			}

			if rootOpts.Format == "json" {
				if err := writeJSON(out, report); err != nil {
					return err
				}
			} else {
				for _, entry := range report.Searches {
					if entry.Error != "" {
						fmt.Fprintf(out, "Error running search '%s': %s\n", entry.Name, entry.Error)
						continue
					}
					fmt.Fprintf(out, "Search '%s': %d new items\n", entry.Name, entry.New)
				}
				fmt.Fprintf(out, "Total new items found: %d\n", report.TotalNew)
			}

			if failed := summary.Failed(); len(failed) > 0 {
				return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d of %d searches failed", len(failed), len(summary.Order))}
			}
			return nil
		},
	}
}

// signalContext cancels on SIGINT/SIGTERM. Uses the command's context if
// available (for testing).
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
