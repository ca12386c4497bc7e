package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/amaumene/streambox/internal/api/handlers"
	"github.com/amaumene/streambox/internal/app"
	"github.com/amaumene/streambox/internal/config"
	"github.com/amaumene/streambox/internal/models"
	"github.com/amaumene/streambox/internal/utils"
	"github.com/spf13/cobra"
)

type listOptions struct {
	kind     string
	featured bool
	search   string
	asJSON   bool
}

func newCatalogCmd() *cobra.Command {
	catalog := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the content catalog",
	}

	var opts listOptions
	list := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries, optionally filtered",
		Long: `List catalog entries. A non-empty --search takes precedence over --type,
and --type over --featured, matching GET /api/content.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCatalog(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	list.Flags().StringVar(&opts.kind, "type", "", "only movie or series entries")
	list.Flags().BoolVar(&opts.featured, "featured", false, "only featured entries")
	list.Flags().StringVar(&opts.search, "search", "", "case-insensitive match on title, genre or cast")
	list.Flags().BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")

	catalog.AddCommand(list)
	return catalog
}

func (o listOptions) filter() (handlers.ListFilter, error) {
	filter := handlers.ListFilter{Search: o.search, Featured: o.featured}
	if o.kind != "" {
		kind, ok := models.ParseContentType(o.kind)
		if !ok {
			return filter, fmt.Errorf("unknown type %q: want movie or series", o.kind)
		}
		filter.Type = kind
	}
	return filter, nil
}

func listCatalog(ctx context.Context, out io.Writer, opts listOptions) error {
	filter, err := opts.filter()
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Logs go to stderr so the listing stays clean
	logger := utils.NewLoggerWithOutput(os.Stderr, "warn", cfg.LogFormat)

	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer container.Close(context.Background())

	items, err := filter.Apply(ctx, container.Service)
	if err != nil {
		return fmt.Errorf("failed to fetch content: %w", err)
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	return printTable(out, items)
}

func printTable(out io.Writer, items []*models.Content) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tYEAR\tRATING\tCLASS\tFEATURED\tTITLE")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%t\t%s\n",
			item.ID, item.Type(), item.Year, item.Rating, item.Classification, item.Featured, item.Title)
	}
	return tw.Flush()
}
