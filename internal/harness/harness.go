package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/roach88/slotgrid/internal/access"
	"github.com/roach88/slotgrid/internal/booking"
	"github.com/roach88/slotgrid/internal/fixture"
	"github.com/roach88/slotgrid/internal/model"
	"github.com/roach88/slotgrid/internal/store"
	"github.com/roach88/slotgrid/internal/testutil"
)

// Epoch is the fixed time fixtures are loaded at. Flow writes are stamped
// one second apart from it.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Outcome cases a step can complete with.
const (
	CaseOK              = "ok"
	CaseUnauthenticated = "unauthenticated"
	CaseDenied          = "denied"
	CaseDoubleBooking   = "double_booking"
	CaseNotOwner        = "not_owner"
	CaseNotFound        = "not_found"
	CaseConflict        = "conflict"
	CaseInvalid         = "invalid"
)

func validCase(c string) bool {
	switch c {
	case CaseOK, CaseUnauthenticated, CaseDenied, CaseDoubleBooking,
		CaseNotOwner, CaseNotFound, CaseConflict, CaseInvalid:
		return true
	}
	return false
}

// Outcome is what a step produced.
type Outcome struct {
	Case   string
	ID     string
	Pruned int64
	Err    error
}

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and reservation IDs.
type Harness struct {
	store   *store.Store
	booking *booking.Service
	seq     int64
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load the fixture catalogue
// 3. Execute flow steps with expect validation
// 4. Evaluate assertions
// 5. Return result with pass/fail, trace, and errors
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	if scenario.Fixture != "" {
		if err := loadFixture(ctx, st, scenario.Fixture); err != nil {
			return nil, fmt.Errorf("failed to load fixture: %w", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	clock := testutil.NewStepClock(Epoch, time.Second)

	h := &Harness{
		store: st,
		booking: booking.New(st,
			booking.WithIDGenerator(model.NewSequentialGenerator("res")),
			booking.WithClock(clock.Now),
			booking.WithLogger(logger),
		),
		logger: logger,
	}

	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func loadFixture(ctx context.Context, st *store.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fx, err := fixture.Decode(f)
	if err != nil {
		return err
	}
	_, err = fixture.Apply(ctx, st, fx, model.NewSequentialGenerator("fx"), Epoch)
	return err
}

// next returns the next trace sequence number. Sequence numbers start at 1.
func (h *Harness) next() int64 {
	h.seq++
	return h.seq
}

// executeFlow runs all flow steps, recording an invocation and a
// completion for each and checking expect clauses.
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) error {
	for i, step := range flow {
		result.AddInvocationTrace(step, h.next())

		out, err := h.execute(ctx, step)
		if err != nil {
			return fmt.Errorf("flow step %d (%s): %w", i, step.Action, err)
		}

		result.AddCompletionTrace(out, h.next())

		expected := CaseOK
		if step.Expect != nil {
			expected = step.Expect.Case
		}
		if out.Case != expected {
			msg := fmt.Sprintf("flow[%d] %s: expected case %q, got %q", i, step.Action, expected, out.Case)
			if out.Err != nil {
				msg += fmt.Sprintf(" (%v)", out.Err)
			}
			result.AddError(msg)
			continue
		}
		if step.Expect != nil && step.Expect.ID != "" && out.ID != step.Expect.ID {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected id %q, got %q", i, step.Action, step.Expect.ID, out.ID))
		}
	}
	return nil
}

// execute performs one step. Domain refusals become outcome cases; only
// unexpected failures are returned as errors.
func (h *Harness) execute(ctx context.Context, step Step) (Outcome, error) {
	var (
		out Outcome
		err error
	)

	switch step.Action {
	case ActionReserve:
		var r model.Reservation
		r, err = h.booking.Create(ctx, step.User, *step.Reservation)
		out.ID = r.ID
	case ActionUpdate:
		next := *step.Reservation
		next.ID = step.ID
		var r model.Reservation
		r, err = h.booking.Update(ctx, step.User, next)
		out.ID = r.ID
	case ActionCancel:
		err = h.booking.Cancel(ctx, step.User, step.ID)
		if err == nil {
			out.ID = step.ID
		}
	case ActionPrune:
		out.Pruned, err = h.store.Prune(ctx)
	default:
		return out, fmt.Errorf("unknown action %q", step.Action)
	}

	out.Case = classify(err)
	if out.Case == "" {
		return out, err
	}
	if out.Case != CaseOK {
		out.Err = err
		h.logger.Debug("step refused", "action", step.Action, "case", out.Case, "error", err)
	}
	return out, nil
}

// classify maps a booking error to its outcome case. Returns "" for
// errors that no case describes.
func classify(err error) string {
	if err == nil {
		return CaseOK
	}

	var denied *access.DeniedError
	var invalid *model.ValidationError
	switch {
	case errors.Is(err, access.ErrUnauthenticated):
		return CaseUnauthenticated
	case errors.As(err, &denied):
		switch denied.Reason {
		case access.ReasonDoubleBooking:
			return CaseDoubleBooking
		case access.ReasonNotOwner:
			return CaseNotOwner
		}
		return CaseDenied
	case errors.Is(err, store.ErrNotFound):
		return CaseNotFound
	case errors.Is(err, store.ErrConflict):
		return CaseConflict
	case errors.As(err, &invalid):
		return CaseInvalid
	}
	return ""
}
