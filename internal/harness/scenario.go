package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/replicate/internal/model"
	"github.com/roach88/replicate/internal/testutil"
)

// Scenario defines an end-to-end replication scenario.
// A scenario declares a topology, mutates site catalogs, runs replications
// and asserts on the resulting catalogs, item state and history.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Topology is CUE source declaring sites, filters and replications.
	// Site locations are ignored: every site gets a fresh catalog in the
	// scenario's scratch directory.
	Topology string `yaml:"topology"`

	// MaxFailures and PageSize tune the syncer. Zero keeps the defaults.
	MaxFailures int `yaml:"max_failures,omitempty"`
	PageSize    int `yaml:"page_size,omitempty"`

	// Setup contains steps run before the main flow. Sites get their
	// system names before setup runs.
	Setup []Step `yaml:"setup,omitempty"`

	// Steps is the main flow.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final catalogs, items and history.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scenario action. Exactly one action field is set.
type Step struct {
	// Put stores a record on a site as a local edit.
	Put *RecordSpec `yaml:"put,omitempty"`

	// Remove deletes a record from a site, leaving a tombstone.
	Remove *RecordRef `yaml:"remove,omitempty"`

	// Advance moves the scenario clock forward, e.g. "1h".
	Advance string `yaml:"advance,omitempty"`

	// Fault injects an adapter failure on a site.
	Fault *FaultSpec `yaml:"fault,omitempty"`

	// Reject makes writes of the listed ids report non-success on a site.
	Reject *RejectSpec `yaml:"reject,omitempty"`

	// Clear removes every fault and rejection from the named site.
	Clear string `yaml:"clear,omitempty"`

	// Sync plans and runs the named replication to completion.
	Sync string `yaml:"sync,omitempty"`

	// Expect checks the status of a Sync step.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// RecordSpec describes a record stored by a Put step.
type RecordSpec struct {
	Site       string            `yaml:"site"`
	ID         string            `yaml:"id"`
	Title      string            `yaml:"title"`
	Tags       []string          `yaml:"tags,omitempty"` // default: resource
	Attributes map[string]string `yaml:"attributes,omitempty"`
	Resource   string            `yaml:"resource,omitempty"` // payload text
}

// RecordRef names a record on a site.
type RecordRef struct {
	Site string `yaml:"site"`
	ID   string `yaml:"id"`
}

// FaultSpec injects a failure into one adapter operation.
type FaultSpec struct {
	Site string `yaml:"site"`

	// Op is an adapter operation: system_name, available, query, exists,
	// create, update, delete, create_resource, update_resource.
	Op string `yaml:"op"`

	// Error is the failure message.
	Error string `yaml:"error"`

	// Unavailable marks the failure as a lost connection.
	Unavailable bool `yaml:"unavailable,omitempty"`
}

// RejectSpec lists ids whose writes fail on a site.
type RejectSpec struct {
	Site string   `yaml:"site"`
	IDs  []string `yaml:"ids"`
}

// ExpectClause specifies the expected status of a Sync step.
type ExpectClause struct {
	// State is the expected terminal state, e.g. SUCCESS.
	State model.State `yaml:"state"`

	// Pull and Push are subset matches on the phase counts.
	Pull *ExpectCounts `yaml:"pull,omitempty"`
	Push *ExpectCounts `yaml:"push,omitempty"`
}

// ExpectCounts holds the counts to compare. Nil fields are not checked.
type ExpectCounts struct {
	Replicated *int64 `yaml:"replicated,omitempty"`
	Failed     *int64 `yaml:"failed,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "record_present": Site has a live record with ID
	// - "record_absent": Site has no live record with ID
	// - "origins": Record's origins equal Origins
	// - "item": Tracker item (ID, Source, Destination) matches Status/FailureCount
	// - "history_count": Number of recorded runs, optionally filtered
	// - "query_contains": Some query issued to Site contains Text
	Type string `yaml:"type"`

	// Site and ID select a record (record_present, record_absent, origins,
	// query_contains uses Site only).
	Site string `yaml:"site,omitempty"`
	ID   string `yaml:"id,omitempty"`

	// Origins is the expected origin list (origins).
	Origins []string `yaml:"origins,omitempty"`

	// Source and Destination are system names (item).
	Source      string `yaml:"source,omitempty"`
	Destination string `yaml:"destination,omitempty"`

	// Status and FailureCount are the expected item fields (item).
	Status       model.ItemStatus `yaml:"status,omitempty"`
	FailureCount *int             `yaml:"failure_count,omitempty"`

	// Replication and State filter history (history_count).
	Replication string      `yaml:"replication,omitempty"`
	State       model.State `yaml:"state,omitempty"`

	// Count is the expected number of runs (history_count).
	Count int `yaml:"count,omitempty"`

	// Text is the expected query fragment (query_contains).
	Text string `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertRecordPresent = "record_present"
	AssertRecordAbsent  = "record_absent"
	AssertOrigins       = "origins"
	AssertItem          = "item"
	AssertHistoryCount  = "history_count"
	AssertQueryContains = "query_contains"
)

var faultOps = map[string]bool{
	testutil.OpSystemName:     true,
	testutil.OpAvailable:      true,
	testutil.OpQuery:          true,
	testutil.OpExists:         true,
	testutil.OpCreate:         true,
	testutil.OpUpdate:         true,
	testutil.OpDelete:         true,
	testutil.OpCreateResource: true,
	testutil.OpUpdateResource: true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if s.Topology == "" {
		return errors.New("topology is required")
	}
	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}
	if s.MaxFailures < 0 || s.PageSize < 0 {
		return errors.New("max_failures and page_size must not be negative")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Sync != "" {
			return fmt.Errorf("setup[%d]: sync is not allowed in setup", i)
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	actions := 0
	for _, set := range []bool{
		step.Put != nil,
		step.Remove != nil,
		step.Advance != "",
		step.Fault != nil,
		step.Reject != nil,
		step.Clear != "",
		step.Sync != "",
	} {
		if set {
			actions++
		}
	}
	if actions != 1 {
		return fmt.Errorf("exactly one action is required, got %d", actions)
	}
	if step.Expect != nil && step.Sync == "" {
		return errors.New("expect is only allowed on sync steps")
	}

	switch {
	case step.Put != nil:
		if step.Put.Site == "" || step.Put.ID == "" {
			return errors.New("put: site and id are required")
		}
	case step.Remove != nil:
		if step.Remove.Site == "" || step.Remove.ID == "" {
			return errors.New("remove: site and id are required")
		}
	case step.Advance != "":
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return fmt.Errorf("advance: %w", err)
		}
		if d <= 0 {
			return errors.New("advance: duration must be positive")
		}
	case step.Fault != nil:
		if step.Fault.Site == "" || step.Fault.Error == "" {
			return errors.New("fault: site and error are required")
		}
		if !faultOps[step.Fault.Op] {
			return fmt.Errorf("fault: unknown op %q", step.Fault.Op)
		}
	case step.Reject != nil:
		if step.Reject.Site == "" || len(step.Reject.IDs) == 0 {
			return errors.New("reject: site and ids are required")
		}
	}
	if step.Expect != nil && step.Expect.State == "" {
		return errors.New("expect: state is required")
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(a Assertion) error {
	switch a.Type {
	case "":
		return errors.New("type is required")
	case AssertRecordPresent, AssertRecordAbsent, AssertOrigins:
		if a.Site == "" || a.ID == "" {
			return fmt.Errorf("site and id are required for %s", a.Type)
		}
	case AssertItem:
		if a.ID == "" || a.Source == "" || a.Destination == "" {
			return errors.New("id, source and destination are required for item")
		}
	case AssertHistoryCount:
		if a.Count < 0 {
			return errors.New("count must be non-negative for history_count")
		}
	case AssertQueryContains:
		if a.Site == "" || a.Text == "" {
			return errors.New("site and text are required for query_contains")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
