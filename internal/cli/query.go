package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/replicate/internal/adapter"
	"github.com/roach88/replicate/internal/model"
)

// QueryResult is the JSON payload of the query command.
type QueryResult struct {
	Replication string          `json:"replication"`
	Direction   model.Direction `json:"direction"`
	Query       string          `json:"query"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	var direction string

	cmd := &cobra.Command{
		Use:   "query <replication-id>",
		Short: "Print the incremental query a replication would issue",
		Long: `Plan a replication and print the query its next run would send to the
source site (pull) or the destination site (push).

The query includes the watermark from the last successful run, the
system-name exclusions and the ids of items due for retry. Both sites
must be reachable to resolve their system names.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := model.ParseDirection(direction)
			if err != nil || dir == model.DirectionBoth {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid direction %q: must be pull or push", direction))
			}
			return runQuery(rootOpts, args[0], dir, cmd)
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "pull", "direction to plan (pull|push)")

	return cmd
}

func runQuery(opts *RootOptions, id string, dir model.Direction, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	ctx := commandContext(cmd)

	a, err := openApp(ctx, opts, cmd, f, appOptions{topology: true})
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.replication(id)
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeNotFound, "cannot plan", err)
	}
	job, err := a.planner.Plan(ctx, rep)
	if err != nil {
		return fail(f, ExitFailure, ErrCodePlan, "failed to plan "+id, err)
	}

	from, to := job.Source, job.Destination
	if dir == model.DirectionPush {
		from, to = to, from
	}
	src, err := a.registry.Create(ctx, from)
	if err != nil {
		return fail(f, ExitFailure, ErrCodePlan, "cannot open site "+from, err)
	}
	defer closeQuietly(src)
	dst, err := a.registry.Create(ctx, to)
	if err != nil {
		return fail(f, ExitFailure, ErrCodePlan, "cannot open site "+to, err)
	}
	defer closeQuietly(dst)

	query, err := a.syncer.Plan(ctx, src, dst, job)
	if err != nil {
		return fail(f, ExitFailure, ErrCodePlan, "failed to build query", err)
	}

	result := QueryResult{Replication: rep.ID, Direction: dir, Query: query}
	return f.Render(result, func(w io.Writer) {
		fmt.Fprintln(w, query)
	})
}

func closeQuietly(node adapter.NodeAdapter) {
	_ = node.Close()
}
