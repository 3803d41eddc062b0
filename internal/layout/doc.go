// Package layout assigns lanes to time-bounded allocations.
//
// Given allocations with a start and an end, Assign gives each one a lane
// (Index) such that allocations whose [start, end) intervals overlap never
// share a lane. Lanes are reused greedily, lowest free lane first, which
// uses the minimum number of lanes for any set of intervals.
//
// Every allocation also records MaxIndex, the highest lane reached by the
// allocations it runs alongside. Renderers divide a row or column by
// MaxIndex+1 to size each lane.
//
// # Sweep order
//
// Start and end events are swept in timestamp order. At equal timestamps
// end events come first, so an allocation ending at t frees its lane for
// one starting at t. A zero-length allocation is swept as a single instant
// between the ends and the starts at its timestamp: it takes the lowest
// lane free of the allocations running across t and releases it at once,
// so allocations starting at t may reuse that lane.
//
// # Ownership
//
// Allocations belong to the caller. Assign writes Index and MaxIndex in
// place and returns the slice it was given. It keeps no state between
// calls and must not be run concurrently over the same slice.
package layout
