package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/replicate/internal/model"
	"github.com/roach88/replicate/internal/store"
)

// NewItemsCommand creates the items command group.
func NewItemsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Inspect and maintain replication item state",
		Long: `Replication items record the last outcome of each record per source and
destination. Items whose failure count reached the maximum are no longer
retried until they are reset.`,
	}

	cmd.AddCommand(newItemsListCommand(rootOpts))
	cmd.AddCommand(newItemsResetCommand(rootOpts))
	cmd.AddCommand(newItemsPurgeCommand(rootOpts))

	return cmd
}

func newItemsListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		replication string
		offset      int
		limit       int
	)

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List replication items",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			ctx := commandContext(cmd)
			a, err := openApp(ctx, rootOpts, cmd, f, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.store.ListItems(ctx, replication, offset, limit)
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeDatabase, "failed to list items", err)
			}
			return f.Render(items, func(w io.Writer) { printItems(w, items) })
		},
	}

	cmd.Flags().StringVar(&replication, "replication", "", "only items of this replication")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of items to skip")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of items (0 for all)")

	return cmd
}

func newItemsResetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset <metadata-id> <source> <destination>",
		Short: "Reset an item's failure count so it is retried",
		Long: `Reset the failure count of one item. Source and destination are the
system names of the sites, as shown by "items list".`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			ctx := commandContext(cmd)
			a, err := openApp(ctx, rootOpts, cmd, f, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.ResetItem(ctx, args[0], args[1], args[2]); err != nil {
				if errors.Is(err, store.ErrItemNotFound) {
					return fail(f, ExitFailure, ErrCodeNotFound, "cannot reset", err)
				}
				return fail(f, ExitCommandError, ErrCodeDatabase, "failed to reset item", err)
			}
			return f.Render(map[string]string{"reset": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Reset %s (%s -> %s)\n", args[0], args[1], args[2])
			})
		},
	}

	return cmd
}

func newItemsPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "purge [replication-id]",
		Short: "Delete replication items",
		Long: `Delete the items of one replication, or of every replication with --all.
Purged records are replicated again on the next run only if they changed
after the watermark.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return NewExitError(ExitCommandError, "name one replication or pass --all")
			}

			f := newFormatter(rootOpts, cmd)
			ctx := commandContext(cmd)
			a, err := openApp(ctx, rootOpts, cmd, f, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			var n int64
			if all {
				n, err = a.store.DeleteAllItems(ctx)
			} else {
				n, err = a.store.DeleteItemsForConfig(ctx, args[0])
			}
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeDatabase, "failed to purge items", err)
			}
			return f.Render(map[string]int64{"deleted": n}, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Deleted %d item(s)\n", n)
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "delete items of every replication")

	return cmd
}

func printItems(w io.Writer, items []model.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREPLICATION\tSOURCE\tDESTINATION\tSTATUS\tFAILURES\tLAST ATTEMPT")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			it.MetadataID,
			it.ConfigID,
			it.Source,
			it.Destination,
			it.Status,
			it.FailureCount,
			it.LastAttempt.UTC().Format(time.RFC3339))
	}
	_ = tw.Flush()
}
