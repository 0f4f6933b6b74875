package model

import "time"

// State is the lifecycle state of one job execution.
type State string

const (
	StatePending               State = "PENDING"
	StatePullInProgress        State = "PULL_IN_PROGRESS"
	StatePushInProgress        State = "PUSH_IN_PROGRESS"
	StateSuccess               State = "SUCCESS"
	StateFailure               State = "FAILURE"
	StateConnectionUnavailable State = "CONNECTION_UNAVAILABLE"
)

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	switch s {
	case StateSuccess, StateFailure, StateConnectionUnavailable:
		return true
	default:
		return false
	}
}

// Counts summarises one direction of a run.
type Counts struct {
	Replicated int64 `json:"replicated"`
	Failed     int64 `json:"failed"`
	Bytes      int64 `json:"bytes"`
}

// Status records a single job execution. It is mutated by the executing
// worker and frozen once appended to history.
type Status struct {
	ID          string        `json:"id"`
	ConfigID    string        `json:"config_id"`
	ConfigName  string        `json:"config_name"`
	Source      string        `json:"source"`
	Destination string        `json:"destination"`
	Direction   Direction     `json:"direction"`
	State       State         `json:"state"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Duration    time.Duration `json:"duration"`
	Pull        Counts        `json:"pull"`
	Push        Counts        `json:"push"`
}

// NewStatus creates a PENDING status for job.
func NewStatus(id string, job Job) *Status {
	return &Status{
		ID:          id,
		ConfigID:    job.ConfigID,
		ConfigName:  job.Name(),
		Source:      job.Source,
		Destination: job.Destination,
		Direction:   job.Direction,
		State:       StatePending,
	}
}

// MarkStart records the execution start time.
func (s *Status) MarkStart(t time.Time) {
	s.StartTime = t
}

// Complete sets the end time and duration. Only the first call has an
// effect; it returns false on subsequent calls.
func (s *Status) Complete(t time.Time) bool {
	if s.Completed() {
		return false
	}
	s.EndTime = t
	s.Duration = t.Sub(s.StartTime)
	return true
}

// Completed reports whether Complete has been called.
func (s *Status) Completed() bool { return !s.EndTime.IsZero() }

// Key returns the identity of the job this status belongs to.
func (s *Status) Key() JobKey {
	return Job{ConfigID: s.ConfigID, Source: s.Source, Destination: s.Destination, Direction: s.Direction}.Key()
}
