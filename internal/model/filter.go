package model

import (
	"errors"
	"strings"
)

// Filter is a named query fragment scoped to one site. Suspended filters
// are ignored when planning jobs.
type Filter struct {
	ID          string `json:"id"`
	SiteID      string `json:"site_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Query       string `json:"query"`
	Suspended   bool   `json:"suspended"`
}

// Validate checks the required fields.
func (f Filter) Validate() error {
	var errs []error
	if strings.TrimSpace(f.ID) == "" {
		errs = append(errs, errors.New("filter: id is required"))
	}
	if strings.TrimSpace(f.SiteID) == "" {
		errs = append(errs, errors.New("filter: site id is required"))
	}
	if strings.TrimSpace(f.Name) == "" {
		errs = append(errs, errors.New("filter: name is required"))
	}
	if strings.TrimSpace(f.Query) == "" {
		errs = append(errs, errors.New("filter: query is required"))
	}
	return errors.Join(errs...)
}

// Active reports whether the filter participates in scheduling.
func (f Filter) Active() bool { return !f.Suspended }
