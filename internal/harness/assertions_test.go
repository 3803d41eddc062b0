package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Type: EventInvocation, Action: ActionReserve, User: "alice"},
		{Seq: 2, Type: EventCompletion, OutputCase: CaseOK, ID: "res-1"},
		{Seq: 3, Type: EventInvocation, Action: ActionCancel, User: "bob", ID: "res-1"},
		{Seq: 4, Type: EventCompletion, OutputCase: CaseNotOwner},
		{Seq: 5, Type: EventInvocation, Action: ActionReserve, User: "bob"},
		{Seq: 6, Type: EventCompletion, OutputCase: CaseOK, ID: "res-2"},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := testTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Action: ActionCancel}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Action: ActionReserve, User: "bob"}))

	err := assertTraceContains(trace, Assertion{Action: ActionCancel, User: "alice"})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "action cancel by alice", ae.Expected)
	assert.Contains(t, err.Error(), "Full trace:")
}

func TestAssertTraceOrder(t *testing.T) {
	trace := testTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Actions: []string{ActionReserve, ActionCancel}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Actions: []string{ActionReserve, ActionCancel, ActionReserve}}))
	assert.Error(t, assertTraceOrder(trace, Assertion{Actions: []string{ActionCancel, ActionCancel}}))
	assert.Error(t, assertTraceOrder(trace, Assertion{Actions: []string{ActionPrune}}))
}

func TestAssertTraceCount(t *testing.T) {
	trace := testTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Action: ActionReserve, Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Action: ActionPrune, Count: 0}))

	err := assertTraceCount(trace, Assertion{Action: ActionCancel, Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 occurrences")
}

func TestEvaluateAssertions_NeedsStore(t *testing.T) {
	result := &Result{Trace: testTrace()}
	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Action: ActionReserve, Count: 2},
		{Type: AssertReservations, Count: 1},
		{Type: "bogus"},
	}, nil)

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "reservations requires database context")
	assert.Contains(t, errs[1], `unknown assertion type "bogus"`)
}
