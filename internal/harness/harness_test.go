package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return scenario
}

func TestRun_DoubleBooking(t *testing.T) {
	result, err := Run(loadTestScenario(t, "double_booking"))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Trace, 10)
	assert.Equal(t, CaseDoubleBooking, result.Trace[3].OutputCase)
	assert.Equal(t, "res-2", result.Trace[5].ID)
}

func TestRun_Ownership(t *testing.T) {
	result, err := Run(loadTestScenario(t, "ownership"))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 14)
	assert.Equal(t, CaseNotOwner, result.Trace[3].OutputCase)
	assert.Equal(t, CaseOK, result.Trace[5].OutputCase)
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	scenario := loadTestScenario(t, "double_booking")
	scenario.Flow[1].Expect.Case = CaseOK

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], `flow[1] reserve: expected case "ok", got "double_booking"`)
}

func TestRun_ExpectIDMismatchFails(t *testing.T) {
	scenario := loadTestScenario(t, "double_booking")
	scenario.Flow[0].Expect.ID = "res-9"

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], `expected id "res-9", got "res-1"`)
}

func TestRun_FailedAssertionIsReported(t *testing.T) {
	scenario := loadTestScenario(t, "ownership")
	scenario.Assertions = append(scenario.Assertions, Assertion{Type: AssertTraceCount, Action: ActionPrune, Count: 2})

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "2 occurrences of prune")
}

func TestRun_WithoutFixture(t *testing.T) {
	result, err := Run(&Scenario{
		Name:       "empty",
		Flow:       []Step{{Action: ActionPrune}, {Action: ActionCancel, User: "alice", ID: "x", Expect: &ExpectClause{Case: CaseNotFound}}},
		Assertions: []Assertion{{Type: AssertReservations, Count: 0}},
	})
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_BadFixture(t *testing.T) {
	_, err := Run(&Scenario{Name: "bad", Fixture: filepath.Join("testdata", "missing.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load fixture")
}

func TestClassify(t *testing.T) {
	assert.Equal(t, CaseOK, classify(nil))
	assert.Equal(t, "", classify(assert.AnError))
}
