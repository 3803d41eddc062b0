package harness

import (
	"slices"
	"time"
)

// Trace event types.
const (
	EventInvocation = "invocation"
	EventCompletion = "completion"
)

// TraceEvent records one step invocation or its completion.
type TraceEvent struct {
	Seq         int64    `json:"seq"`
	Type        string   `json:"type"` // "invocation" or "completion"
	Action      string   `json:"action,omitempty"`
	User        string   `json:"user,omitempty"`
	ID          string   `json:"id,omitempty"`
	Reservables []string `json:"reservables,omitempty"`
	Start       string   `json:"start,omitempty"`
	End         string   `json:"end,omitempty"`
	OutputCase  string   `json:"output_case,omitempty"`
	Error       string   `json:"error,omitempty"`
	Pruned      int64    `json:"pruned,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains all invocations and completions in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddInvocationTrace adds a step invocation to the trace.
func (r *Result) AddInvocationTrace(step Step, seq int64) {
	ev := TraceEvent{
		Seq:    seq,
		Type:   EventInvocation,
		Action: step.Action,
		User:   step.User,
		ID:     step.ID,
	}
	if step.Reservation != nil {
		ev.Reservables = slices.Clone(step.Reservation.Reservables)
		ev.Start = formatTime(step.Reservation.Start)
		ev.End = formatTime(step.Reservation.End)
	}
	r.Trace = append(r.Trace, ev)
}

// AddCompletionTrace adds a step completion to the trace.
func (r *Result) AddCompletionTrace(o Outcome, seq int64) {
	ev := TraceEvent{
		Seq:        seq,
		Type:       EventCompletion,
		ID:         o.ID,
		OutputCase: o.Case,
		Pruned:     o.Pruned,
	}
	if o.Err != nil {
		ev.Error = o.Err.Error()
	}
	r.Trace = append(r.Trace, ev)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
