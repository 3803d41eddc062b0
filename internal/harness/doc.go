// Package harness runs booking scenarios against a fresh catalogue and
// checks the outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	fixture: lab.yaml            # relative to the scenario file
//	flow:
//	  - action: reserve
//	    user: alice
//	    reservation:
//	      reason: Planning
//	      start: 2024-05-06T09:00:00Z
//	      end: 2024-05-06T10:00:00Z
//	      reservables: [room-a]
//	    expect:
//	      case: ok
//	  - action: cancel
//	    user: bob
//	    id: res-1
//	    expect:
//	      case: not_owner
//	assertions:
//	  - type: trace_count
//	    action: reserve
//	    count: 1
//	  - type: reservations
//	    filter: ["owners=alice"]
//	    count: 2
//	  - type: lanes
//	    set: lab
//	    reservable_type: room
//	    start: 2024-05-06T00:00:00Z
//	    reservable: room-a
//	    lanes: 1
//
// Flow actions are reserve, update, cancel and prune. Each step is
// recorded as an invocation followed by a completion whose case names
// the outcome: ok, unauthenticated, denied, double_booking, not_owner,
// not_found, conflict or invalid.
//
// # Assertion Types
//
//   - trace_contains: an invocation of action, optionally by user
//   - trace_order: actions appear in the given order
//   - trace_count: action is invoked exactly count times
//   - reservations: reservations matching filter number count, or have
//     exactly the listed ids
//   - lanes: a time view row has the given number of lanes
//
// # Deterministic Testing
//
// Every scenario runs in an in-memory database with sequential
// reservation IDs (fx-N for fixture reservations, res-N for flow
// reservations) and a stepping clock, so traces can be compared against
// golden files.
package harness
