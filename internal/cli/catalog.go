package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/replicate/internal/adapter"
	"github.com/roach88/replicate/internal/catalog"
	"github.com/roach88/replicate/internal/cql"
	"github.com/roach88/replicate/internal/model"
)

// CatalogRecord is the listed form of a local catalog record.
type CatalogRecord struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Modified time.Time         `json:"modified"`
	Tags     []string          `json:"tags,omitempty"`
	Origins  []string          `json:"origins,omitempty"`
	Attrs    map[string]string `json:"attributes,omitempty"`
	Size     int64             `json:"resource_size,omitempty"`
}

// NewCatalogCommand creates the catalog command group for bolt sites.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage local bolt catalogs declared in the topology",
		Long: `Operate on the bbolt file of a site with kind "bolt".

A site takes part in replication only once it has a system name. "catalog
init" writes the site's name as its registry identity record.`,
	}

	cmd.AddCommand(newCatalogInitCommand(rootOpts))
	cmd.AddCommand(newCatalogListCommand(rootOpts))
	cmd.AddCommand(newCatalogPutCommand(rootOpts))
	cmd.AddCommand(newCatalogRemoveCommand(rootOpts))

	return cmd
}

// withCatalog opens the bolt catalog of siteID and calls fn with it.
func withCatalog(rootOpts *RootOptions, cmd *cobra.Command, siteID string, fn func(*app, *catalog.Catalog, *OutputFormatter) error) error {
	f := newFormatter(rootOpts, cmd)
	ctx := commandContext(cmd)
	a, err := openApp(ctx, rootOpts, cmd, f, appOptions{topology: true})
	if err != nil {
		return err
	}
	defer a.Close()

	site, ok := a.topology.Site(siteID)
	if !ok {
		return fail(f, ExitCommandError, ErrCodeNotFound, "cannot open catalog", fmt.Errorf("unknown site %q", siteID))
	}
	if site.Kind != catalog.Kind {
		return fail(f, ExitCommandError, ErrCodeGeneric, "cannot open catalog",
			fmt.Errorf("site %q has kind %q, not %q", siteID, site.Kind, catalog.Kind))
	}

	c, err := catalog.Open(site.Location, catalog.WithLabel(site.Name), catalog.WithLogger(a.logger))
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeGeneric, "cannot open catalog", err)
	}
	defer c.Close()

	return fn(a, c, f)
}

func newCatalogInitCommand(rootOpts *RootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:           "init <site-id>",
		Short:         "Create the catalog file and set its system name",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(rootOpts, cmd, args[0], func(a *app, c *catalog.Catalog, f *OutputFormatter) error {
				systemName := name
				if systemName == "" {
					site, _ := a.topology.Site(args[0])
					systemName = site.Name
				}
				if err := c.SetSystemName(commandContext(cmd), systemName); err != nil {
					return fail(f, ExitCommandError, ErrCodeWriteFailed, "failed to set system name", err)
				}
				return f.Render(map[string]string{"site": args[0], "system_name": systemName}, func(w io.Writer) {
					fmt.Fprintf(w, "✓ Site %s is %q\n", args[0], systemName)
				})
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "system name (defaults to the site name)")

	return cmd
}

func newCatalogListCommand(rootOpts *RootOptions) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:           "list <site-id>",
		Short:         "List records matching a query",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(rootOpts, cmd, args[0], func(a *app, c *catalog.Catalog, f *OutputFormatter) error {
				req := adapter.QueryRequest{Expression: query, PageSize: a.settings.PageSize}
				records := []CatalogRecord{}
				for md, err := range c.Query(commandContext(cmd), req) {
					if err != nil {
						return fail(f, ExitFailure, ErrCodeGeneric, "query failed", err)
					}
					records = append(records, catalogRecord(md))
				}
				return f.Render(records, func(w io.Writer) { printRecords(w, records) })
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", cql.Like(model.AttrID, "*"), "query expression")

	return cmd
}

func newCatalogPutCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		title string
		attrs []string
	)

	cmd := &cobra.Command{
		Use:   "put <site-id> <record-id>",
		Short: "Create or replace a record as a local edit",
		Example: `  replicate catalog put site-a doc-1 --title "Quarterly report"
  replicate catalog put site-a doc-1 --attr classification=internal`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			md := model.Metadata{
				ID:         args[1],
				Tags:       []string{model.TagDefault},
				Attributes: map[string]string{},
			}
			for _, kv := range attrs {
				k, v, ok := strings.Cut(kv, "=")
				if !ok || k == "" {
					return NewExitError(ExitCommandError, fmt.Sprintf("invalid attribute %q: want key=value", kv))
				}
				md.Attributes[k] = v
			}
			if title != "" {
				md.Attributes[model.AttrTitle] = title
			}

			return withCatalog(rootOpts, cmd, args[0], func(_ *app, c *catalog.Catalog, f *OutputFormatter) error {
				if err := c.Put(commandContext(cmd), md); err != nil {
					return fail(f, ExitCommandError, ErrCodeWriteFailed, "failed to store record", err)
				}
				return f.Render(map[string]string{"id": md.ID}, func(w io.Writer) {
					fmt.Fprintf(w, "✓ Stored %s\n", md.ID)
				})
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "record title")
	cmd.Flags().StringArrayVar(&attrs, "attr", nil, "attribute as key=value (repeatable)")

	return cmd
}

func newCatalogRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "remove <site-id> <record-id>",
		Short:         "Delete a record, leaving a tombstone revision",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(rootOpts, cmd, args[0], func(_ *app, c *catalog.Catalog, f *OutputFormatter) error {
				if err := c.Remove(commandContext(cmd), args[1]); err != nil {
					return fail(f, ExitFailure, ErrCodeNotFound, "failed to remove record", err)
				}
				return f.Render(map[string]string{"removed": args[1]}, func(w io.Writer) {
					fmt.Fprintf(w, "✓ Removed %s\n", args[1])
				})
			})
		},
	}

	return cmd
}

func catalogRecord(md model.Metadata) CatalogRecord {
	attrs := make(map[string]string, len(md.Attributes))
	for k, v := range md.Attributes {
		if k != model.AttrTitle {
			attrs[k] = v
		}
	}
	return CatalogRecord{
		ID:       md.ID,
		Title:    md.Title(),
		Modified: md.Modified,
		Tags:     md.Tags,
		Origins:  md.Origins,
		Attrs:    attrs,
		Size:     md.ResourceSize(),
	}
}

func printRecords(w io.Writer, records []CatalogRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tMODIFIED\tTAGS\tORIGINS")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Title,
			r.Modified.UTC().Format(time.RFC3339),
			strings.Join(r.Tags, ","),
			strings.Join(r.Origins, ","))
	}
	_ = tw.Flush()
}
