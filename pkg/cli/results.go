package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ResultsOptions holds flags for the results command.
type ResultsOptions struct {
	*RootOptions
	SearchID uint
	Limit    int
}

// NewResultsCommand creates the results command.
func NewResultsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResultsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show stored results, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			var searchID *uint
			if opts.SearchID != 0 {
				searchID = &opts.SearchID
			}

			items, err := a.service.Results(searchID, opts.Limit)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to load results", err)
			}

			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				return writeJSON(out, items)
			}
			if len(items) == 0 {
				fmt.Fprintln(out, "No results found")
				return nil
			}

			fmt.Fprintf(out, "%-50s %-10s %-15s %s\n", "Title", "Price", "Search", "URL")
			fmt.Fprintln(out, strings.Repeat("-", 100))
			for _, item := range items {
				title := item.Title
				if len(title) > 50 {
					title = title[:47] + "..."
				}
				price := fmt.Sprintf("$%.2f", item.CurrentPrice)
				fmt.Fprintf(out, "%-50s %-10s %-15s %s\n", title, price, item.SearchName, item.URL)
			}
			return nil
		},
	}

	cmd.Flags().UintVar(&opts.SearchID, "search-id", 0, "only show results of this search")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of results")

	return cmd
}
