package harness

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/replicate/internal/adapter"
	"github.com/roach88/replicate/internal/catalog"
	"github.com/roach88/replicate/internal/cql"
	"github.com/roach88/replicate/internal/model"
)

// Snapshot captures the final state of a scenario for golden comparison.
// Timestamps are left out so snapshots are stable across clock changes.
type Snapshot struct {
	Scenario string                      `json:"scenario"`
	Runs     []RunSnapshot               `json:"runs"`
	Items    []ItemSnapshot              `json:"items"`
	Sites    map[string][]RecordSnapshot `json:"sites"`
}

// RunSnapshot is one completed run.
type RunSnapshot struct {
	ID          string          `json:"id"`
	Replication string          `json:"replication"`
	Direction   model.Direction `json:"direction"`
	State       model.State     `json:"state"`
	Pull        model.Counts    `json:"pull"`
	Push        model.Counts    `json:"push"`
}

// ItemSnapshot is one tracked item.
type ItemSnapshot struct {
	ID           string           `json:"id"`
	Replication  string           `json:"replication"`
	Source       string           `json:"source"`
	Destination  string           `json:"destination"`
	Status       model.ItemStatus `json:"status"`
	FailureCount int              `json:"failure_count"`
}

// RecordSnapshot is one record in a site catalog. The identity record is
// omitted.
type RecordSnapshot struct {
	ID      string   `json:"id"`
	Title   string   `json:"title,omitempty"`
	Origins []string `json:"origins,omitempty"`
	Deleted bool     `json:"deleted,omitempty"`
}

func (h *Harness) snapshot(ctx context.Context, name string, result *Result) (Snapshot, error) {
	snap := Snapshot{
		Scenario: name,
		Runs:     make([]RunSnapshot, 0, len(result.Statuses)),
		Items:    []ItemSnapshot{},
		Sites:    make(map[string][]RecordSnapshot, len(h.catalogs)),
	}
	for _, st := range result.Statuses {
		snap.Runs = append(snap.Runs, RunSnapshot{
			ID:          st.ID,
			Replication: st.ConfigID,
			Direction:   st.Direction,
			State:       st.State,
			Pull:        st.Pull,
			Push:        st.Push,
		})
	}

	items, err := h.store.ListItems(ctx, "", 0, 0)
	if err != nil {
		return Snapshot{}, err
	}
	for _, it := range items {
		snap.Items = append(snap.Items, ItemSnapshot{
			ID:           it.MetadataID,
			Replication:  it.ConfigID,
			Source:       it.Source,
			Destination:  it.Destination,
			Status:       it.Status,
			FailureCount: it.FailureCount,
		})
	}

	for siteID, cat := range h.catalogs {
		records, err := siteRecords(ctx, cat)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Sites[siteID] = records
	}
	return snap, nil
}

func siteRecords(ctx context.Context, cat *catalog.Catalog) ([]RecordSnapshot, error) {
	records := []RecordSnapshot{}
	req := adapter.QueryRequest{Expression: cql.Like(model.AttrID, "*")}
	for md, err := range cat.Query(ctx, req) {
		if err != nil {
			return nil, err
		}
		if md.ID == catalog.IdentityRecordID {
			continue
		}
		origins := slices.Clone(md.Origins)
		sort.Strings(origins)
		records = append(records, RecordSnapshot{
			ID:      md.ID,
			Title:   md.Title(),
			Origins: origins,
			Deleted: md.Deleted,
		})
	}
	return records, nil
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
// Map keys are sorted, so output is stable.
func (s Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares a result's snapshot against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := result.Snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
