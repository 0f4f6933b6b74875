package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ScenarioOutcome is the result of one scenario file.
type ScenarioOutcome struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "matched", "updated" or "missing"
	Errors []string `json:"errors,omitempty"`
}

// SuiteResult summarises a directory of scenarios.
type SuiteResult struct {
	Scenarios []ScenarioOutcome `json:"scenarios"`
	Total     int               `json:"total"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
}

// SuiteOptions tunes RunDir.
type SuiteOptions struct {
	// Filter is a glob matched against file names without extension.
	Filter string

	// Update rewrites golden files instead of comparing against them.
	Update bool
}

// FindScenarios returns the .yaml and .yml files under dir, in walk order.
// Files in golden directories are skipped.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// GoldenPath returns the golden file of a scenario file: a sibling golden
// directory holding <name>.golden.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

// RunFile loads and runs one scenario file. The snapshot is compared with
// the golden file when one exists, or written to it when update is set.
func RunFile(path string, update bool) ScenarioOutcome {
	out := ScenarioOutcome{Name: filepath.Base(path), File: path}
	fail := func(format string, args ...any) ScenarioOutcome {
		out.Pass = false
		out.Errors = append(out.Errors, fmt.Sprintf(format, args...))
		return out
	}

	scenario, err := LoadScenario(path)
	if err != nil {
		return fail("failed to load scenario: %v", err)
	}
	out.Name = scenario.Name

	result, err := Run(scenario)
	if err != nil {
		return fail("execution failed: %v", err)
	}
	out.Pass = result.Pass
	out.Errors = append(out.Errors, result.Errors...)

	data, err := result.Snapshot.Marshal()
	if err != nil {
		return fail("failed to marshal snapshot: %v", err)
	}

	goldenPath := GoldenPath(path)
	if update {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
			return fail("failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(goldenPath, data, 0o644); err != nil {
			return fail("failed to write golden file: %v", err)
		}
		out.Golden = "updated"
		return out
	}

	golden, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		// Assertion-based validation only.
		out.Golden = "missing"
		return out
	}
	if err != nil {
		return fail("failed to read golden file: %v", err)
	}
	if !bytes.Equal(golden, data) {
		out.Golden = "mismatch"
		return fail("snapshot does not match golden file (run with --update to regenerate)")
	}
	out.Golden = "matched"
	return out
}

// RunDir runs every scenario found under dir.
func RunDir(dir string, opts SuiteOptions) (*SuiteResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("scenarios directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scenarios: not a directory: %s", dir)
	}

	files, err := FindScenarios(dir, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find scenarios: %w", err)
	}

	result := &SuiteResult{
		Scenarios: make([]ScenarioOutcome, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		outcome := RunFile(file, opts.Update)
		result.Scenarios = append(result.Scenarios, outcome)
		if outcome.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}
	return result, nil
}
