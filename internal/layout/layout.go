package layout

import (
	"cmp"
	"slices"
	"time"
)

// Allocation is a time-bounded booking to be placed in a lane.
//
// Start and End are read by the engine; Index and MaxIndex are written by
// it and carry no meaning before Assign returns. Allocations are compared by
// pointer, so two allocations with equal bounds are still distinct.
type Allocation[T any] struct {
	Start T
	End   T

	// Index is the assigned lane, starting at 0.
	Index int

	// MaxIndex is the highest lane used by any allocation sharing time with
	// this one. Always >= Index.
	MaxIndex int
}

// Option configures Assign.
type Option func(*options)

type options struct {
	clusterSpan bool
}

// WithClusterSpan raises every MaxIndex to the highest lane used anywhere in
// its connected overlap cluster, so all allocations of a cluster report the
// same MaxIndex.
func WithClusterSpan() Option {
	return func(o *options) {
		o.clusterSpan = true
	}
}

// Assign gives every allocation a lane and returns allocs.
//
// compare orders two timestamps and must return a negative number, zero or
// a positive number. The input is validated before anything is written: a
// nil comparator, a nil or repeated allocation, or an allocation ending
// before it starts yields an *Error and leaves allocs untouched.
//
// By default MaxIndex only reflects the allocations that run at the same
// time as each allocation, so two allocations of one connected cluster can
// report different values. Pass WithClusterSpan when every allocation of a
// cluster must share the cluster's peak lane.
func Assign[T any](allocs []*Allocation[T], compare func(a, b T) int, opts ...Option) ([]*Allocation[T], error) {
	if compare == nil {
		return nil, invalidInput(-1, "comparator is required")
	}
	if err := validate(allocs, compare); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := newSweep(allocs)
	for _, ev := range sortedEvents(allocs, compare) {
		s.apply(ev)
	}

	if o.clusterSpan {
		s.spanClusters()
	}

	return allocs, nil
}

// AssignOrdered is Assign for naturally ordered timestamps such as integer
// or floating point epochs. NaN timestamps are rejected as not comparable.
func AssignOrdered[T cmp.Ordered](allocs []*Allocation[T], opts ...Option) ([]*Allocation[T], error) {
	for i, a := range allocs {
		if a == nil {
			continue
		}
		if a.Start != a.Start || a.End != a.End {
			return nil, invalidInput(i, "timestamp is not comparable")
		}
	}
	return Assign(allocs, cmp.Compare[T], opts...)
}

// AssignTimes is Assign for time.Time bounds. A zero Start or End is
// treated as missing.
func AssignTimes(allocs []*Allocation[time.Time], opts ...Option) ([]*Allocation[time.Time], error) {
	for i, a := range allocs {
		if a == nil {
			continue
		}
		if a.Start.IsZero() || a.End.IsZero() {
			return nil, invalidInput(i, "start and end are required")
		}
	}
	return Assign(allocs, time.Time.Compare, opts...)
}

func validate[T any](allocs []*Allocation[T], compare func(a, b T) int) error {
	seen := make(map[*Allocation[T]]struct{}, len(allocs))
	for i, a := range allocs {
		if a == nil {
			return invalidInput(i, "allocation is nil")
		}
		if _, dup := seen[a]; dup {
			return invalidInput(i, "allocation appears more than once")
		}
		seen[a] = struct{}{}
		if compare(a.End, a.Start) < 0 {
			return invalidInterval(i)
		}
	}
	return nil
}

// eventKind doubles as the tie-break rank between events at one timestamp.
type eventKind uint8

const (
	endEvent eventKind = iota
	// instantEvent starts and ends a zero-length allocation in one step,
	// after the ends and before the starts at its instant.
	instantEvent
	startEvent
)

type event[T any] struct {
	kind  eventKind
	at    T
	alloc *Allocation[T]
}

func sortedEvents[T any](allocs []*Allocation[T], compare func(a, b T) int) []event[T] {
	events := make([]event[T], 0, 2*len(allocs))
	for _, a := range allocs {
		kind := startEvent
		if compare(a.Start, a.End) == 0 {
			kind = instantEvent
		}
		events = append(events, event[T]{kind: kind, at: a.Start, alloc: a})
	}
	for _, a := range allocs {
		if compare(a.Start, a.End) != 0 {
			events = append(events, event[T]{kind: endEvent, at: a.End, alloc: a})
		}
	}

	slices.SortStableFunc(events, func(x, y event[T]) int {
		if c := compare(x.at, y.at); c != 0 {
			return c
		}
		return cmp.Compare(x.kind, y.kind)
	})
	return events
}

// sweep holds the state carried across events.
type sweep[T any] struct {
	running  map[*Allocation[T]]struct{}
	occupied map[int]struct{}

	// cluster numbers each connected overlap cluster by its first start.
	cluster map[*Allocation[T]]int
	peaks   []int
}

func newSweep[T any](allocs []*Allocation[T]) *sweep[T] {
	return &sweep[T]{
		running:  make(map[*Allocation[T]]struct{}),
		occupied: make(map[int]struct{}),
		cluster:  make(map[*Allocation[T]]int, len(allocs)),
	}
}

func (s *sweep[T]) apply(ev event[T]) {
	a := ev.alloc
	if ev.kind != endEvent {
		if len(s.running) == 0 {
			s.peaks = append(s.peaks, 0)
		}
		id := len(s.peaks) - 1

		a.Index = s.firstFree()
		a.MaxIndex = a.Index
		s.running[a] = struct{}{}
		s.occupied[a.Index] = struct{}{}
		s.cluster[a] = id
		s.peaks[id] = max(s.peaks[id], a.Index)
	} else {
		delete(s.running, a)
		delete(s.occupied, a.Index)
	}

	for r := range s.running {
		r.MaxIndex = max(r.MaxIndex, a.Index)
	}
	for r := range s.running {
		a.MaxIndex = max(a.MaxIndex, r.MaxIndex)
	}

	if ev.kind == instantEvent {
		delete(s.running, a)
		delete(s.occupied, a.Index)
	}
}

// firstFree returns the lowest lane not in use. One of 0..len(occupied)
// is always free.
func (s *sweep[T]) firstFree() int {
	for i := 0; i <= len(s.occupied); i++ {
		if _, taken := s.occupied[i]; !taken {
			return i
		}
	}
	return len(s.occupied)
}

func (s *sweep[T]) spanClusters() {
	for a, id := range s.cluster {
		a.MaxIndex = max(a.MaxIndex, s.peaks[id])
	}
}
