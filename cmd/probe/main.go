// Command probe runs a single keyword query against the marketplace and
// prints what came back. Nothing is stored; it is meant for checking
// credentials and query encoding.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/danielstefank/goodwill-alert/pkg/config"
	"github.com/danielstefank/goodwill-alert/pkg/marketplace"
	"github.com/danielstefank/goodwill-alert/pkg/model"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type probeOptions struct {
	configPath string
	minPrice   float64
	maxPrice   float64
	showQuery  bool
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	opts := &probeOptions{}
	cmd := &cobra.Command{
		Use:          "probe <keywords>",
		Short:        "Run one marketplace query without storing anything",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return probe(cmd.Context(), opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "path to the YAML config file")
	cmd.Flags().Float64Var(&opts.minPrice, "min-price", 1, "minimum price")
	cmd.Flags().Float64Var(&opts.maxPrice, "max-price", 1000, "maximum price")
	cmd.Flags().BoolVar(&opts.showQuery, "query", false, "print the query body")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func probe(ctx context.Context, opts *probeOptions, term string) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	creds, err := cfg.Credentials()
	if err != nil {
		return err
	}

	query := marketplace.Translate(model.SavedSearch{
		Keywords: term,
		MinPrice: &opts.minPrice,
		MaxPrice: &opts.maxPrice,
	})
	if opts.showQuery {
		body, err := json.MarshalIndent(query, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(body))
	}

	client := marketplace.NewShopGoodwill(marketplace.ShopGoodwillOptions{
		BaseURL:   cfg.Marketplace.BaseURL,
		UserAgent: cfg.Marketplace.UserAgent,
		Timeout:   cfg.Marketplace.Timeout,
	})

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	session, err := client.Authenticate(ctx, creds)
	if err != nil {
		return fmt.Errorf("could not log in: %w", err)
	}
	log.Debug().Msg("logged in")

	items, err := client.Search(ctx, query, session)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Printf("Found %d results for %q\n", len(items), term)
	if len(items) > 0 {
		first := items[0]
		fmt.Printf("First result: %s ($%.2f) %s\n", first.Title, first.Price, first.URL)
	}
	return nil
}
