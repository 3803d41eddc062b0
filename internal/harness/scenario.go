package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/slotgrid/internal/model"
)

// Scenario defines a booking scenario: a catalogue, a flow of reservation
// changes and assertions on the result.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fixture is the catalogue loaded before the flow.
	// Relative paths are resolved against the scenario file's directory.
	Fixture string `yaml:"fixture"`

	// Flow contains the steps to execute, in order.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Flow actions.
const (
	ActionReserve = "reserve"
	ActionUpdate  = "update"
	ActionCancel  = "cancel"
	ActionPrune   = "prune"
)

// Step is one change made during the flow.
type Step struct {
	// Action is reserve, update, cancel or prune.
	Action string `yaml:"action"`

	// User performs the action. Empty means anonymous.
	User string `yaml:"user,omitempty"`

	// ID names the reservation to update or cancel.
	ID string `yaml:"id,omitempty"`

	// Reservation is the new reservation (reserve) or its replacement (update).
	Reservation *model.Reservation `yaml:"reservation,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the step is assumed to succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Case is the expected outcome (e.g., "ok", "double_booking").
	Case string `yaml:"case"`

	// ID is the expected reservation ID of a successful reserve.
	ID string `yaml:"id,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check action appears in trace (by user, if set)
	// - "trace_order": Check actions appear in order
	// - "trace_count": Check action appears exactly N times
	// - "reservations": Count or list stored reservations matching filter
	// - "lanes": Check the lane count of a time view row
	Type string `yaml:"type"`

	// Action is the flow action (used by trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// User narrows trace_contains to one user.
	User string `yaml:"user,omitempty"`

	// Actions is the expected action order (used by trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Count is the expected number of occurrences (trace_count, reservations).
	Count int `yaml:"count,omitempty"`

	// Filter holds field__lookup=value pairs (used by reservations).
	Filter []string `yaml:"filter,omitempty"`

	// IDs is the exact expected reservation ID list (used by reservations).
	IDs []string `yaml:"ids,omitempty"`

	// Set, ReservableType, Start and Zoom select a time view (used by lanes).
	Set            string    `yaml:"set,omitempty"`
	ReservableType string    `yaml:"reservable_type,omitempty"`
	Start          time.Time `yaml:"start,omitempty"`
	Zoom           string    `yaml:"zoom,omitempty"`

	// Reservable is the row to inspect and Lanes its expected lane count.
	Reservable string `yaml:"reservable,omitempty"`
	Lanes      int    `yaml:"lanes,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertReservations  = "reservations"
	AssertLanes         = "lanes"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the fixture path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the fixture path BEFORE validation
	if scenario.Fixture != "" && !filepath.IsAbs(scenario.Fixture) && basePath != "" {
		scenario.Fixture = filepath.Join(basePath, scenario.Fixture)
	}

	// Validate required fields (now with resolved paths)
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Fixture != "" {
		if _, err := os.Stat(s.Fixture); os.IsNotExist(err) {
			return fmt.Errorf("fixture file not found: %s", s.Fixture)
		}
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step *Step) error {
	switch step.Action {
	case ActionReserve:
		if step.Reservation == nil {
			return fmt.Errorf("flow[%d]: reservation is required for reserve", index)
		}
	case ActionUpdate:
		if step.ID == "" || step.Reservation == nil {
			return fmt.Errorf("flow[%d]: id and reservation are required for update", index)
		}
	case ActionCancel:
		if step.ID == "" {
			return fmt.Errorf("flow[%d]: id is required for cancel", index)
		}
	case ActionPrune:
	case "":
		return fmt.Errorf("flow[%d]: action is required", index)
	default:
		return fmt.Errorf("flow[%d]: unknown action %q", index, step.Action)
	}

	if step.Expect != nil && !validCase(step.Expect.Case) {
		return fmt.Errorf("flow[%d].expect: unknown case %q", index, step.Expect.Case)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertReservations:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for reservations", index)
		}
	case AssertLanes:
		if a.Set == "" || a.ReservableType == "" || a.Reservable == "" || a.Start.IsZero() {
			return fmt.Errorf("assertions[%d]: set, reservable_type, reservable and start are required for lanes", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
