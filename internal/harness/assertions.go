package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/slotgrid/internal/filter"
	"github.com/roach88/slotgrid/internal/store"
	"github.com/roach88/slotgrid/internal/timeview"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Type == EventInvocation {
				fmt.Fprintf(&buf, "  [%d] %s user=%q id=%q %v\n", i+1, event.Action, event.User, event.ID, event.Reservables)
			}
		}
	}

	return buf.String()
}

// assertTraceContains checks if the trace contains an invocation of the
// action, by the given user when one is set.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type == EventInvocation && event.Action == assertion.Action {
			if assertion.User == "" || event.User == assertion.User {
				return nil
			}
		}
	}

	expected := "action " + assertion.Action
	if assertion.User != "" {
		expected += " by " + assertion.User
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed),
// and a repeated action matches its next occurrence.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	for _, want := range assertion.Actions {
		found := false
		for pos < len(trace) {
			event := trace[pos]
			pos++
			if event.Type == EventInvocation && event.Action == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual:   fmt.Sprintf("no %s after position %d", want, pos),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks if the action appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventInvocation && event.Action == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertReservations checks the stored reservations matching the filter.
// With ids set the matching IDs must equal them in order; otherwise only
// the count is checked.
func assertReservations(ctx context.Context, st *store.Store, assertion Assertion) error {
	f, err := filter.ParsePairs(filter.ReservationSchema, assertion.Filter)
	if err != nil {
		return fmt.Errorf("reservations assertion: %w", err)
	}
	list, err := st.ListReservations(ctx, f)
	if err != nil {
		return fmt.Errorf("reservations assertion: %w", err)
	}

	ids := make([]string, len(list))
	for i, r := range list {
		ids[i] = r.ID
	}

	if len(assertion.IDs) > 0 {
		if !slices.Equal(ids, assertion.IDs) {
			return &AssertionError{
				Type:     AssertReservations,
				Expected: fmt.Sprintf("ids %v matching %v", assertion.IDs, assertion.Filter),
				Actual:   fmt.Sprintf("ids %v", ids),
			}
		}
		return nil
	}

	if len(ids) != assertion.Count {
		return &AssertionError{
			Type:     AssertReservations,
			Expected: fmt.Sprintf("%d reservations matching %v", assertion.Count, assertion.Filter),
			Actual:   fmt.Sprintf("%d reservations %v", len(ids), ids),
		}
	}
	return nil
}

// assertLanes builds a time view and checks one row's lane count.
func assertLanes(ctx context.Context, st *store.Store, assertion Assertion) error {
	zoom, err := timeview.ParseZoom(assertion.Zoom)
	if err != nil {
		return fmt.Errorf("lanes assertion: %w", err)
	}
	view, err := timeview.Build(ctx, st, timeview.Request{
		Set:   assertion.Set,
		Type:  assertion.ReservableType,
		Start: assertion.Start,
		Zoom:  zoom,
	})
	if err != nil {
		return fmt.Errorf("lanes assertion: %w", err)
	}

	for _, row := range view.Rows {
		if row.Reservable != assertion.Reservable {
			continue
		}
		if row.Lanes != assertion.Lanes {
			return &AssertionError{
				Type:     AssertLanes,
				Expected: fmt.Sprintf("%d lanes in row %s", assertion.Lanes, assertion.Reservable),
				Actual:   fmt.Sprintf("%d lanes", row.Lanes),
			}
		}
		return nil
	}

	return &AssertionError{
		Type:     AssertLanes,
		Expected: fmt.Sprintf("row %s in %s/%s", assertion.Reservable, assertion.Set, assertion.ReservableType),
		Actual:   "row not found",
	}
}

// AssertionContext provides database access for state assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for reservations and lanes
// assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertReservations, AssertLanes:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires database context", i, assertion.Type)
			} else if assertion.Type == AssertReservations {
				err = assertReservations(actx.Ctx, actx.Store, assertion)
			} else {
				err = assertLanes(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
