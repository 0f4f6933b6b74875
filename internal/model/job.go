package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Direction selects which way a job moves data between its two sites.
// PULL moves records from Source to Destination, PUSH moves them from
// Destination back to Source, BOTH runs PULL then PUSH.
type Direction string

const (
	DirectionPull Direction = "PULL"
	DirectionPush Direction = "PUSH"
	DirectionBoth Direction = "BOTH"
)

// ErrInvalidDirection is returned by ParseDirection for unknown values.
var ErrInvalidDirection = errors.New("invalid direction")

// ParseDirection parses a direction case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToUpper(strings.TrimSpace(s))); d {
	case DirectionPull, DirectionPush, DirectionBoth:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// Pulls reports whether the direction includes a pull phase.
func (d Direction) Pulls() bool { return d == DirectionPull || d == DirectionBoth }

// Pushes reports whether the direction includes a push phase.
func (d Direction) Pushes() bool { return d == DirectionPush || d == DirectionBoth }

// Job is a fully-resolved synchronization request for one site pair.
// Jobs are values; callers must not mutate the slices after submission.
type Job struct {
	ConfigID    string
	ConfigName  string
	Source      string
	Destination string
	Direction   Direction

	// Query is the base catalog expression selecting records to replicate.
	Query string

	// ModifiedAfter is the watermark. The zero value means no watermark
	// (first synchronization).
	ModifiedAfter time.Time

	// ExcludedNodes lists system names whose writes must not be echoed back.
	ExcludedNodes []string

	// FailedItemIDs are metadata ids to retry regardless of the watermark.
	// Ids whose tracked failure count reached the maximum are dropped.
	FailedItemIDs []string
}

// Key returns the job's identity.
func (j Job) Key() JobKey {
	return JobKey{
		ConfigID:    NormalizeName(j.ConfigID),
		Source:      NormalizeName(j.Source),
		Destination: NormalizeName(j.Destination),
		Direction:   j.Direction,
	}
}

// HasWatermark reports whether the job carries a modified-after watermark.
func (j Job) HasWatermark() bool { return !j.ModifiedAfter.IsZero() }

// Validate checks that the job can be executed.
func (j Job) Validate() error {
	switch {
	case NormalizeName(j.ConfigID) == "":
		return errors.New("job: config id is required")
	case NormalizeName(j.Source) == "":
		return errors.New("job: source is required")
	case NormalizeName(j.Destination) == "":
		return errors.New("job: destination is required")
	case strings.TrimSpace(j.Query) == "":
		return errors.New("job: query is required")
	}
	if _, err := ParseDirection(string(j.Direction)); err != nil {
		return fmt.Errorf("job: %w", err)
	}
	return nil
}

// Clone returns a deep copy so snapshots cannot alias scheduler state.
func (j Job) Clone() Job {
	j.ExcludedNodes = slices.Clone(j.ExcludedNodes)
	j.FailedItemIDs = slices.Clone(j.FailedItemIDs)
	return j
}

// Name returns the config name, falling back to the config id.
func (j Job) Name() string {
	if j.ConfigName != "" {
		return j.ConfigName
	}
	return j.ConfigID
}
