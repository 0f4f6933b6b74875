package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/replicate/internal/model"
	"github.com/roach88/replicate/internal/store"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		replication string
		state       string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List completed runs, newest first",
		Example: `  replicate history --replication a-b --limit 5
  replicate history --state FAILURE --format json`,
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

			statuses, err := a.store.History(ctx, store.HistoryQuery{
				ConfigID: replication,
				State:    model.State(state),
				Limit:    limit,
			})
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeDatabase, "failed to read history", err)
			}
			return f.Render(statuses, func(w io.Writer) { printStatuses(w, statuses) })
		},
	}

	cmd.Flags().StringVar(&replication, "replication", "", "only runs of this replication")
	cmd.Flags().StringVar(&state, "state", "", "only runs that ended in this state")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs (0 for all)")

	return cmd
}
