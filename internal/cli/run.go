package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/replicate/internal/engine"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	// Period overrides the settings schedule period when non-zero.
	Period time.Duration

	// Once submits a single round and drains instead of scheduling forever.
	Once bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the replicator and schedule all replications",
		Long: `Start the replicator with the configured topology.

Every period, each non-suspended replication is planned and submitted.
A replication still pending from the previous round is not queued twice.
SIGINT or SIGTERM stops scheduling and drains queued and running jobs,
waiting at most the drain timeout.

Example:
  replicate run --config replicate.yaml
  replicate run --db ./replicate.db --topology ./topology --period 1m`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplicator(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Period, "period", 0, "schedule period (overrides settings)")
	cmd.Flags().BoolVar(&opts.Once, "once", false, "run a single round, then drain and exit")

	return cmd
}

func runReplicator(opts *RunOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	parentCtx := commandContext(cmd)

	a, err := openApp(parentCtx, opts.RootOptions, cmd, f, appOptions{topology: true})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.logger.Error("error closing resources", "error", closeErr)
		}
	}()

	period := a.settings.Period
	if opts.Period > 0 {
		period = opts.Period
	}

	// Cancellation stops scheduling only. Workers keep running until
	// Shutdown has drained them.
	rep := a.newReplicator()
	if err := rep.Start(context.WithoutCancel(parentCtx)); err != nil {
		return fail(f, ExitCommandError, ErrCodeGeneric, "failed to start replicator", err)
	}

	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("scheduling replications",
		"replications", len(a.topology.Replications),
		"period", period,
		"db", a.settings.Database)
	if !opts.Once {
		f.VerboseLog("Replicator started. Press Ctrl-C to stop.")
	}

	schedule(ctx, a, rep)
	if !opts.Once {
		ticker := time.NewTicker(period)
	loop:
		for {
			select {
			case <-ctx.Done():
				a.logger.Info("stopping scheduler", "reason", context.Cause(ctx))
				break loop
			case <-ticker.C:
				schedule(ctx, a, rep)
			}
		}
		ticker.Stop()
	}

	report := rep.Shutdown(context.WithoutCancel(parentCtx))
	if err := report.Err(); err != nil {
		return fail(f, ExitFailure, ErrCodeDrain, "shutdown incomplete", err)
	}
	return f.Render(report, func(w io.Writer) {
		fmt.Fprintln(w, "✓ Replicator stopped")
	})
}

// schedule plans every non-suspended replication and submits the jobs.
// Planning failures are logged and do not stop the others.
func schedule(ctx context.Context, a *app, rep *engine.Replicator) {
	jobs, err := a.planner.PlanAll(ctx, a.topology.Replications)
	if err != nil {
		a.logger.Warn("some replications could not be planned", "error", err)
	}
	for _, job := range jobs {
		if err := rep.Submit(job); err != nil {
			a.logger.Error("failed to submit job", "job", job.Name(), "error", err)
		}
	}
	a.logger.Debug("round submitted", "jobs", len(jobs))
}
