package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/replicate/internal/model"
)

// NewFiltersCommand creates the filters command.
func NewFiltersCommand(rootOpts *RootOptions) *cobra.Command {
	var site string

	cmd := &cobra.Command{
		Use:   "filters",
		Short: "List stored filters",
		Long: `List the filters known to the database. Filters declared in the topology
are stored, replacing earlier definitions, before they are listed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			ctx := commandContext(cmd)
			a, err := openApp(ctx, rootOpts, cmd, f, appOptions{topology: true})
			if err != nil {
				return err
			}
			defer a.Close()

			var filters []model.Filter
			if site != "" {
				filters, err = a.store.FiltersForSite(ctx, site)
			} else {
				filters, err = a.store.Filters(ctx)
			}
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeDatabase, "failed to list filters", err)
			}
			return f.Render(filters, func(w io.Writer) { printFilters(w, filters) })
		},
	}

	cmd.Flags().StringVar(&site, "site", "", "only filters of this site")

	return cmd
}

func printFilters(w io.Writer, filters []model.Filter) {
	if len(filters) == 0 {
		fmt.Fprintln(w, "No filters.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSITE\tNAME\tSUSPENDED\tQUERY")
	for _, flt := range filters {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", flt.ID, flt.SiteID, flt.Name, flt.Suspended, flt.Query)
	}
	_ = tw.Flush()
}
