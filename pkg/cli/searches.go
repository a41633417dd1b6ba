package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danielstefank/goodwill-alert/pkg/model"
	"github.com/spf13/cobra"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	MinPrice    float64
	MaxPrice    float64
	CategoryIDs string
	PickupOnly  bool
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <name> <keywords>",
		Short: "Add a new search",
		Example: `  goodwill-alert add laptops "thinkpad x220" --max-price 120
  goodwill-alert add gaylords gaylord --pickup-only --category-ids 12,40`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := model.SearchSpec{
				Name:        args[0],
				Keywords:    args[1],
				CategoryIDs: model.SplitCategoryIDs(opts.CategoryIDs),
				PickupOnly:  opts.PickupOnly,
			}
			if cmd.Flags().Changed("min-price") {
				v := opts.MinPrice
				spec.MinPrice = &v
			}
			if cmd.Flags().Changed("max-price") {
				v := opts.MaxPrice
				spec.MaxPrice = &v
			}
			return runAdd(opts, spec, cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.MinPrice, "min-price", 0, "minimum price")
	cmd.Flags().Float64Var(&opts.MaxPrice, "max-price", 0, "maximum price")
	cmd.Flags().StringVar(&opts.CategoryIDs, "category-ids", "", "category ids (comma separated)")
	cmd.Flags().BoolVar(&opts.PickupOnly, "pickup-only", false, "pickup only items")

	return cmd
}

func runAdd(opts *AddOptions, spec model.SearchSpec, cmd *cobra.Command) error {
	a, err := newApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.service.CreateSearch(spec)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to create search", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), map[string]uint{"id": id})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Search created with ID: %d\n", id)
	return nil
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all active searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			searches, err := a.service.ListSearches()
			if err != nil {
				return WrapExitError(ExitFailure, "failed to list searches", err)
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return writeJSON(out, searches)
			}
			if len(searches) == 0 {
				fmt.Fprintln(out, "No searches found")
				return nil
			}

			fmt.Fprintf(out, "%-5s %-20s %-30s %-15s %-8s\n", "ID", "Name", "Keywords", "Price Range", "Pickup")
			fmt.Fprintln(out, strings.Repeat("-", 90))
			for _, s := range searches {
				pickup := "No"
				if s.PickupOnly {
					pickup = "Yes"
				}
				priceRange := fmt.Sprintf("$%s-$%s", formatPrice(s.MinPrice, "0"), formatPrice(s.MaxPrice, "∞"))
				fmt.Fprintf(out, "%-5d %-20s %-30s %-15s %-8s\n", s.ID, s.Name, s.Keywords, priceRange, pickup)
			}
			return nil
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <search-id>",
		Short: "Delete a search (its results are kept)",
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

			deleted, err := a.service.DeleteSearch(id)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to delete search", err)
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return writeJSON(out, map[string]bool{"deleted": deleted})
			}
			if deleted {
				fmt.Fprintf(out, "Search %d deleted successfully\n", id)
			} else {
				fmt.Fprintf(out, "Search %d not found\n", id)
			}
			return nil
		},
	}
}

func parseSearchID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("invalid search id %q", raw)}
	}
	return uint(id), nil
}

func formatPrice(v *float64, fallback string) string {
	if v == nil {
		return fallback
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
