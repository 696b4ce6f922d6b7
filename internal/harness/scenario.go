package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultNamespace is used when a scenario does not name one.
const DefaultNamespace = "settings"

// Backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Scenario defines a preference store scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Namespace is the store under test. Defaults to DefaultNamespace.
	Namespace string `yaml:"namespace,omitempty"`

	// Backend selects the backing table: BackendMemory (default) or
	// BackendSQLite (an in-memory SQLite database).
	Backend string `yaml:"backend,omitempty"`

	// Seed holds rows written to the backing table before the first step.
	Seed map[string]string `yaml:"seed,omitempty"`

	// FailKeys lists keys whose writes fail. Memory backend only.
	FailKeys []string `yaml:"fail_keys,omitempty"`

	// Steps run in order, one editor each.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one editor's worth of changes followed by optional reads.
type Step struct {
	// Clear discards the cache and the editor buffer first.
	Clear bool `yaml:"clear,omitempty"`

	// Put stages string values, applied in key order.
	Put map[string]string `yaml:"put,omitempty"`

	// Remove stages removals after the puts.
	Remove []string `yaml:"remove,omitempty"`

	// Get lists keys read after the step's commit completed.
	Get []string `yaml:"get,omitempty"`

	// Expect checks the step's commit result. Only listed fields are checked.
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// edits reports whether the step applies an editor.
func (s Step) edits() bool {
	return s.Clear || len(s.Put) > 0 || len(s.Remove) > 0
}

// StepExpect is the expected commit result of a step.
type StepExpect struct {
	Persisted []string `yaml:"persisted,omitempty"`
	Unchanged []string `yaml:"unchanged,omitempty"`
	Failed    []string `yaml:"failed,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "notified": Keys is the exact notification sequence
	// - "notify_count": Key was notified exactly Count times
	// - "final_state": Expect is the exact backing table contents
	// - "writes": the store wrote exactly Count rows
	Type string `yaml:"type"`

	Keys   []string          `yaml:"keys,omitempty"`
	Key    string            `yaml:"key,omitempty"`
	Count  int               `yaml:"count,omitempty"`
	Expect map[string]string `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertNotified    = "notified"
	AssertNotifyCount = "notify_count"
	AssertFinalState  = "final_state"
	AssertWrites      = "writes"
)

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

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	if scenario.Namespace == "" {
		scenario.Namespace = DefaultNamespace
	}
	if scenario.Backend == "" {
		scenario.Backend = BackendMemory
	}
	return &scenario, nil
}

// validateScenario checks required fields and value constraints.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps must contain at least one step")
	}

	memory := s.Backend == "" || s.Backend == BackendMemory
	switch s.Backend {
	case "", BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	if len(s.FailKeys) > 0 && !memory {
		return fmt.Errorf("fail_keys requires the memory backend")
	}

	for i, step := range s.Steps {
		if !step.edits() && len(step.Get) == 0 {
			return fmt.Errorf("steps[%d]: step does nothing", i)
		}
		if step.Expect != nil && !step.edits() {
			return fmt.Errorf("steps[%d]: expect needs an edit to check", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a, i, memory); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion.
func validateAssertion(a Assertion, index int, memory bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertNotified:
		if a.Keys == nil {
			return fmt.Errorf("assertions[%d]: keys is required for notified", index)
		}
	case AssertNotifyCount:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for notify_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for notify_count", index)
		}
	case AssertFinalState:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertWrites:
		if !memory {
			return fmt.Errorf("assertions[%d]: writes requires the memory backend", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for writes", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
