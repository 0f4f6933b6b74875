package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/replicate/internal/model"
)

// SyncResult is the JSON payload of the sync command.
type SyncResult struct {
	Statuses []model.Status `json:"statuses"`
	Pending  int            `json:"pending"`
	Active   int            `json:"active"`
	TimedOut bool           `json:"timed_out"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "sync [replication-id...]",
		Short: "Run replications once and print their statuses",
		Long: `Plan the named replications, run them once and wait for them to finish.

Suspended replications are run when named explicitly. With --all, every
non-suspended replication is run. The command exits 1 if any job did not
end in SUCCESS.

Example:
  replicate sync a-b
  replicate sync --all --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return NewExitError(ExitCommandError, "name at least one replication or pass --all")
			}
			return runSync(rootOpts, args, all, cmd)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "run every non-suspended replication")

	return cmd
}

func runSync(opts *RootOptions, ids []string, all bool, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	ctx := commandContext(cmd)

	a, err := openApp(ctx, opts, cmd, f, appOptions{topology: true})
	if err != nil {
		return err
	}
	defer a.Close()

	reps := a.topology.Replications
	if !all {
		reps = make([]model.Replication, 0, len(ids))
		for _, id := range ids {
			rep, err := a.replication(id)
			if err != nil {
				return fail(f, ExitCommandError, ErrCodeNotFound, "cannot sync", err)
			}
			rep.Suspended = false
			reps = append(reps, rep)
		}
	}

	jobs, err := a.planner.PlanAll(ctx, reps)
	if err != nil {
		return fail(f, ExitFailure, ErrCodePlan, "failed to plan", err)
	}

	collector := &statusCollector{}
	rep := a.newReplicator(collector)
	for _, job := range jobs {
		if err := rep.Submit(job); err != nil {
			return fail(f, ExitCommandError, ErrCodeGeneric, "failed to submit "+job.Name(), err)
		}
	}
	if err := rep.Start(ctx); err != nil {
		return fail(f, ExitCommandError, ErrCodeGeneric, "failed to start replicator", err)
	}
	report := rep.Shutdown(ctx)

	result := SyncResult{
		Statuses: collector.all(),
		Pending:  report.Pending,
		Active:   report.Active,
		TimedOut: report.TimedOut,
	}
	if err := f.Render(result, func(w io.Writer) { printStatuses(w, result.Statuses) }); err != nil {
		return err
	}

	if err := report.Err(); err != nil {
		return &ExitError{Code: ExitFailure, Message: "drain timed out", Err: err}
	}
	for _, st := range result.Statuses {
		if st.State != model.StateSuccess {
			return NewExitError(ExitFailure, fmt.Sprintf("replication %s ended in %s", st.ConfigID, st.State))
		}
	}
	return nil
}

// printStatuses writes statuses as an aligned table.
func printStatuses(w io.Writer, statuses []model.Status) {
	if len(statuses) == 0 {
		fmt.Fprintln(w, "No runs.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REPLICATION\tDIRECTION\tSTATE\tSTART\tDURATION\tPULLED\tPUSHED\tFAILED")
	for _, st := range statuses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			st.ConfigID,
			st.Direction,
			st.State,
			st.StartTime.UTC().Format(time.RFC3339),
			st.Duration.Round(time.Millisecond),
			st.Pull.Replicated,
			st.Push.Replicated,
			st.Pull.Failed+st.Push.Failed)
	}
	_ = tw.Flush()
}
