package layout

// Summary describes a laid-out set of allocations.
type Summary struct {
	// LaneCount is the number of lanes in use: the highest Index plus one,
	// or zero for no allocations.
	LaneCount int

	// Peak is the largest number of allocations active at one instant,
	// counted in the same sweep order Assign uses.
	Peak int
}

// Stats summarizes allocations that have already been through Assign.
// For greedy assignment LaneCount always equals Peak.
func Stats[T any](allocs []*Allocation[T], compare func(a, b T) int) (Summary, error) {
	if compare == nil {
		return Summary{}, invalidInput(-1, "comparator is required")
	}
	if err := validate(allocs, compare); err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, a := range allocs {
		sum.LaneCount = max(sum.LaneCount, a.Index+1)
	}

	active := 0
	for _, ev := range sortedEvents(allocs, compare) {
		switch ev.kind {
		case startEvent:
			active++
			sum.Peak = max(sum.Peak, active)
		case instantEvent:
			sum.Peak = max(sum.Peak, active+1)
		default:
			active--
		}
	}
	return sum, nil
}
