package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/replicate/internal/cql"
	"github.com/roach88/replicate/internal/model"
)

//go:generate go tool moq -out plannerstore_mock_test.go . PlannerStore

// PlannerStore is the persistence the planner reads.
type PlannerStore interface {
	FiltersForSite(ctx context.Context, siteID string) ([]model.Filter, error)
	LastSuccess(ctx context.Context, configID string) (time.Time, bool, error)
}

// Planner resolves configured replications into executable jobs.
type Planner struct {
	store PlannerStore
}

// NewPlanner creates a Planner reading filters and history from store.
func NewPlanner(store PlannerStore) *Planner {
	return &Planner{store: store}
}

// Plan builds the job for one run of rep.
//
// The job query is the OR of the replication's own query and the queries
// of the source site's active filters. The watermark is the start time of
// the replication's last successful run; without one the job is a first
// synchronization.
func (p *Planner) Plan(ctx context.Context, rep model.Replication) (model.Job, error) {
	if err := rep.Validate(); err != nil {
		return model.Job{}, err
	}

	var queries []string
	if q := strings.TrimSpace(rep.Query); q != "" {
		queries = append(queries, q)
	}
	filters, err := p.store.FiltersForSite(ctx, rep.Source)
	if err != nil {
		return model.Job{}, fmt.Errorf("plan %s: filters: %w", rep.ID, err)
	}
	for _, f := range filters {
		if f.Active() {
			queries = append(queries, f.Query)
		}
	}
	if len(queries) == 0 {
		return model.Job{}, fmt.Errorf("plan %s: %w for site %s", rep.ID, ErrNoActiveFilters, rep.Source)
	}
	query, err := cql.AnyOfList(queries)
	if err != nil {
		return model.Job{}, fmt.Errorf("plan %s: %w", rep.ID, err)
	}

	var watermark time.Time
	last, ok, err := p.store.LastSuccess(ctx, rep.ID)
	if err != nil {
		return model.Job{}, fmt.Errorf("plan %s: last success: %w", rep.ID, err)
	}
	if ok {
		watermark = last
	}

	job := model.Job{
		ConfigID:      rep.ID,
		ConfigName:    rep.Name,
		Source:        rep.Source,
		Destination:   rep.Destination,
		Direction:     rep.Direction,
		Query:         query,
		ModifiedAfter: watermark,
	}
	if err := job.Validate(); err != nil {
		return model.Job{}, err
	}
	return job, nil
}

// PlanAll plans every replication that is not suspended. Replications
// that fail to plan are skipped and their errors joined.
func (p *Planner) PlanAll(ctx context.Context, reps []model.Replication) ([]model.Job, error) {
	var (
		jobs []model.Job
		errs []error
	)
	for _, rep := range reps {
		if rep.Suspended {
			continue
		}
		job, err := p.Plan(ctx, rep)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, errors.Join(errs...)
}
