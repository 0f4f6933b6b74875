package harness

import "github.com/roach88/replicate/internal/model"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success.
	// True if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Statuses are the completed runs, in step order.
	Statuses []model.Status `json:"statuses"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Snapshot is the final state used for golden comparison.
	Snapshot Snapshot `json:"snapshot"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Statuses: []model.Status{},
		Errors:   []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStatus records a completed run.
func (r *Result) AddStatus(st model.Status) {
	r.Statuses = append(r.Statuses, st)
}
