// Package timeview builds the reservation grid for one reservable type of
// a reservable set: a row per reservable, a column per time slot, and a
// bar per reservation placed in lanes so that overlapping reservations of
// the same row never share a lane.
package timeview
