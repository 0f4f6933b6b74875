package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replicate/internal/model"
)

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertItem,
		Expected: "item doc-1 status SUCCESS",
		Actual:   "status FAILURE",
		Statuses: []model.Status{{
			ConfigID:  "a-b",
			Direction: model.DirectionBoth,
			State:     model.StateSuccess,
			Pull:      model.Counts{Replicated: 2, Failed: 1},
			Push:      model.Counts{Replicated: 3},
		}},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: item")
	assert.Contains(t, msg, "Expected: item doc-1 status SUCCESS")
	assert.Contains(t, msg, "Actual: status FAILURE")
	assert.Contains(t, msg, "[1] a-b BOTH SUCCESS pull=2/1 push=3/0")
}

func TestAssertionError_NoRuns(t *testing.T) {
	err := &AssertionError{Type: AssertHistoryCount, Expected: "1 runs", Actual: "0 runs"}
	assert.NotContains(t, err.Error(), "Runs:")
}

func TestEvaluateAssertions_WithoutContext(t *testing.T) {
	result := NewResult()
	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertRecordPresent, Site: "a", ID: "doc-1"},
		{Type: AssertItem, ID: "doc-1", Source: "Site A", Destination: "Site B"},
		{Type: AssertHistoryCount},
		{Type: AssertQueryContains, Site: "a", Text: "x"},
		{Type: "trace_contains"},
	}, nil)

	require.Len(t, errs, 5)
	assert.Contains(t, errs[0], "no catalogs available")
	assert.Contains(t, errs[1], "requires database context")
	assert.Contains(t, errs[2], "requires database context")
	assert.Contains(t, errs[3], "requires site adapters")
	assert.Contains(t, errs[4], `unknown assertion type "trace_contains"`)
}

func TestEvaluateAssertions_AgainstRun(t *testing.T) {
	scenario := parse(t, `
setup:
  - put: {site: a, id: doc-1, title: "first"}
  - put: {site: a, id: doc-2, title: "second"}
  - reject: {site: b, ids: [doc-2]}
steps:
  - sync: a-b
`)

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"present", Assertion{Type: AssertRecordPresent, Site: "b", ID: "doc-1"}, ""},
		{"present missing", Assertion{Type: AssertRecordPresent, Site: "b", ID: "doc-2"}, "not found"},
		{"present unknown site", Assertion{Type: AssertRecordPresent, Site: "z", ID: "doc-1"}, `unknown site "z"`},
		{"absent", Assertion{Type: AssertRecordAbsent, Site: "b", ID: "doc-2"}, ""},
		{"absent but present", Assertion{Type: AssertRecordAbsent, Site: "b", ID: "doc-1"}, `found record titled "first"`},
		{"origins", Assertion{Type: AssertOrigins, Site: "b", ID: "doc-1", Origins: []string{"Site A"}}, ""},
		{"origins local record", Assertion{Type: AssertOrigins, Site: "a", ID: "doc-1", Origins: []string{"Site A"}}, "origins []"},
		{"origins missing record", Assertion{Type: AssertOrigins, Site: "b", ID: "doc-2"}, "not found"},
		{"item failed", Assertion{Type: AssertItem, ID: "doc-2", Source: "Site A", Destination: "Site B", Status: model.ItemFailure, FailureCount: intPtr(1)}, ""},
		{"item wrong status", Assertion{Type: AssertItem, ID: "doc-1", Source: "Site A", Destination: "Site B", Status: model.ItemFailure}, "status SUCCESS"},
		{"item wrong count", Assertion{Type: AssertItem, ID: "doc-2", Source: "Site A", Destination: "Site B", FailureCount: intPtr(3)}, "failure count 1"},
		{"item untracked", Assertion{Type: AssertItem, ID: "doc-1", Source: "Site B", Destination: "Site A"}, "not tracked"},
		{"history", Assertion{Type: AssertHistoryCount, Replication: "a-b", Count: 1}, ""},
		{"history by state", Assertion{Type: AssertHistoryCount, State: model.StateFailure, Count: 1}, "0 runs in state FAILURE"},
		{"query", Assertion{Type: AssertQueryContains, Site: "a", Text: "'Site B'"}, ""},
		{"query to destination", Assertion{Type: AssertQueryContains, Site: "b", Text: "title"}, "0 queries without it"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := *scenario
			s.Assertions = []Assertion{tt.assertion}

			result, err := Run(&s)
			require.NoError(t, err)

			if tt.wantErr == "" {
				assert.True(t, result.Pass, "errors: %v", result.Errors)
				return
			}
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0], tt.wantErr)
		})
	}
}

func intPtr(n int) *int { return &n }
