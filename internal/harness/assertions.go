package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/replicate/internal/catalog"
	"github.com/roach88/replicate/internal/model"
	"github.com/roach88/replicate/internal/store"
	"github.com/roach88/replicate/internal/testutil"
)

// AssertionError is returned when an assertion fails.
// It includes the completed runs to help debug the failure.
type AssertionError struct {
	Type     string         // Assertion type for categorization
	Expected string         // Human-readable expected outcome
	Actual   string         // Human-readable actual outcome
	Statuses []model.Status // Completed runs for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Statuses) > 0 {
		fmt.Fprintf(&buf, "\nRuns:\n")
		for i, st := range e.Statuses {
			fmt.Fprintf(&buf, "  [%d] %s %s %s pull=%d/%d push=%d/%d\n",
				i+1, st.ConfigID, st.Direction, st.State,
				st.Pull.Replicated, st.Pull.Failed, st.Push.Replicated, st.Push.Failed)
		}
	}
	return buf.String()
}

// AssertionContext provides the state assertions are evaluated against.
type AssertionContext struct {
	Ctx      context.Context
	Store    *store.Store
	Catalogs map[string]*catalog.Catalog
	Nodes    map[string]*testutil.FaultyAdapter
}

func (c *AssertionContext) catalog(site string) (*catalog.Catalog, error) {
	if c == nil || c.Catalogs == nil {
		return nil, errors.New("no catalogs available")
	}
	cat, ok := c.Catalogs[site]
	if !ok {
		return nil, fmt.Errorf("unknown site %q", site)
	}
	return cat, nil
}

// lookup returns the live record id on site, or found=false.
func (c *AssertionContext) lookup(site, id string) (md model.Metadata, found bool, err error) {
	cat, err := c.catalog(site)
	if err != nil {
		return model.Metadata{}, false, err
	}
	md, err = cat.Get(c.Ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return model.Metadata{}, false, nil
	}
	if err != nil {
		return model.Metadata{}, false, err
	}
	return md, true, nil
}

func assertRecordPresent(actx *AssertionContext, a Assertion, statuses []model.Status) error {
	_, found, err := actx.lookup(a.Site, a.ID)
	if err != nil {
		return err
	}
	if !found {
		return &AssertionError{
			Type:     AssertRecordPresent,
			Expected: fmt.Sprintf("record %s on %s", a.ID, a.Site),
			Actual:   "not found",
			Statuses: statuses,
		}
	}
	return nil
}

func assertRecordAbsent(actx *AssertionContext, a Assertion, statuses []model.Status) error {
	md, found, err := actx.lookup(a.Site, a.ID)
	if err != nil {
		return err
	}
	if found {
		return &AssertionError{
			Type:     AssertRecordAbsent,
			Expected: fmt.Sprintf("no record %s on %s", a.ID, a.Site),
			Actual:   fmt.Sprintf("found record titled %q", md.Title()),
			Statuses: statuses,
		}
	}
	return nil
}

func assertOrigins(actx *AssertionContext, a Assertion, statuses []model.Status) error {
	md, found, err := actx.lookup(a.Site, a.ID)
	if err != nil {
		return err
	}
	if !found {
		return &AssertionError{
			Type:     AssertOrigins,
			Expected: fmt.Sprintf("record %s on %s with origins %v", a.ID, a.Site, a.Origins),
			Actual:   "not found",
			Statuses: statuses,
		}
	}
	// Origins compare as sets.
	want := slices.Sorted(slices.Values(a.Origins))
	got := slices.Sorted(slices.Values(md.Origins))
	if !slices.Equal(want, got) {
		return &AssertionError{
			Type:     AssertOrigins,
			Expected: fmt.Sprintf("origins %v", want),
			Actual:   fmt.Sprintf("origins %v", got),
			Statuses: statuses,
		}
	}
	return nil
}

func assertItem(actx *AssertionContext, a Assertion, statuses []model.Status) error {
	if actx == nil || actx.Store == nil {
		return errors.New("item requires database context")
	}
	item, err := actx.Store.Item(actx.Ctx, a.ID, a.Source, a.Destination)
	if errors.Is(err, store.ErrItemNotFound) {
		return &AssertionError{
			Type:     AssertItem,
			Expected: fmt.Sprintf("item %s from %s to %s", a.ID, a.Source, a.Destination),
			Actual:   "not tracked",
			Statuses: statuses,
		}
	}
	if err != nil {
		return err
	}

	if a.Status != "" && item.Status != a.Status {
		return &AssertionError{
			Type:     AssertItem,
			Expected: fmt.Sprintf("item %s status %s", a.ID, a.Status),
			Actual:   fmt.Sprintf("status %s", item.Status),
			Statuses: statuses,
		}
	}
	if a.FailureCount != nil && item.FailureCount != *a.FailureCount {
		return &AssertionError{
			Type:     AssertItem,
			Expected: fmt.Sprintf("item %s failure count %d", a.ID, *a.FailureCount),
			Actual:   fmt.Sprintf("failure count %d", item.FailureCount),
			Statuses: statuses,
		}
	}
	return nil
}

func assertHistoryCount(actx *AssertionContext, a Assertion, statuses []model.Status) error {
	if actx == nil || actx.Store == nil {
		return errors.New("history_count requires database context")
	}
	history, err := actx.Store.History(actx.Ctx, store.HistoryQuery{ConfigID: a.Replication, State: a.State})
	if err != nil {
		return err
	}
	if len(history) != a.Count {
		desc := "runs"
		if a.Replication != "" {
			desc += " of " + a.Replication
		}
		if a.State != "" {
			desc += " in state " + string(a.State)
		}
		return &AssertionError{
			Type:     AssertHistoryCount,
			Expected: fmt.Sprintf("%d %s", a.Count, desc),
			Actual:   fmt.Sprintf("%d %s", len(history), desc),
			Statuses: statuses,
		}
	}
	return nil
}

func assertQueryContains(actx *AssertionContext, a Assertion, statuses []model.Status) error {
	if actx == nil || actx.Nodes == nil {
		return errors.New("query_contains requires site adapters")
	}
	node, ok := actx.Nodes[a.Site]
	if !ok {
		return fmt.Errorf("unknown site %q", a.Site)
	}
	queries := node.Queries()
	for _, q := range queries {
		if strings.Contains(q, a.Text) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertQueryContains,
		Expected: fmt.Sprintf("a query to %s containing %q", a.Site, a.Text),
		Actual:   fmt.Sprintf("%d queries without it", len(queries)),
		Statuses: statuses,
	}
}

// EvaluateAssertions evaluates all assertions against the final state.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRecordPresent:
			err = assertRecordPresent(actx, assertion, result.Statuses)
		case AssertRecordAbsent:
			err = assertRecordAbsent(actx, assertion, result.Statuses)
		case AssertOrigins:
			err = assertOrigins(actx, assertion, result.Statuses)
		case AssertItem:
			err = assertItem(actx, assertion, result.Statuses)
		case AssertHistoryCount:
			err = assertHistoryCount(actx, assertion, result.Statuses)
		case AssertQueryContains:
			err = assertQueryContains(actx, assertion, result.Statuses)
		default:
			err = fmt.Errorf("unknown assertion type %q", assertion.Type)
		}

		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion[%d]: %v", i, err))
		}
	}

	return errs
}
