package model

import (
	"errors"
	"fmt"
	"strings"
)

// Replication is a configured, recurring synchronization between two
// sites. Each scheduled run is planned into a Job.
type Replication struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Direction   Direction `json:"direction"`

	// Query is optional; active filters of the source site are OR'ed
	// with it.
	Query     string `json:"query,omitempty"`
	Suspended bool   `json:"suspended"`
}

// Validate checks the required fields.
func (r Replication) Validate() error {
	var errs []error
	if strings.TrimSpace(r.ID) == "" {
		errs = append(errs, errors.New("replication: id is required"))
	}
	if strings.TrimSpace(r.Source) == "" {
		errs = append(errs, errors.New("replication: source is required"))
	}
	if strings.TrimSpace(r.Destination) == "" {
		errs = append(errs, errors.New("replication: destination is required"))
	}
	if NormalizeName(r.Source) != "" && NormalizeName(r.Source) == NormalizeName(r.Destination) {
		errs = append(errs, errors.New("replication: source and destination must differ"))
	}
	if _, err := ParseDirection(string(r.Direction)); err != nil {
		errs = append(errs, fmt.Errorf("replication: %w", err))
	}
	return errors.Join(errs...)
}
