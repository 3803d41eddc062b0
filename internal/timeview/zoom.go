package timeview

import (
	"fmt"
	"time"
)

// Zoom selects the window length and slot size of a view.
type Zoom string

const (
	// ZoomHour shows one day in one-hour slots.
	ZoomHour Zoom = "hour"
	// ZoomDay shows seven days in one-day slots.
	ZoomDay Zoom = "day"
	// ZoomWeek shows four weeks in one-week slots.
	ZoomWeek Zoom = "week"
)

// Zooms lists the zoom levels from finest to coarsest.
var Zooms = []Zoom{ZoomHour, ZoomDay, ZoomWeek}

// ParseZoom parses a zoom name. The empty string selects ZoomHour.
func ParseZoom(s string) (Zoom, error) {
	switch z := Zoom(s); z {
	case "":
		return ZoomHour, nil
	case ZoomHour, ZoomDay, ZoomWeek:
		return z, nil
	}
	return "", fmt.Errorf("unknown zoom %q (want hour, day or week)", s)
}

// windowDays is the window length in calendar days.
func (z Zoom) windowDays() int {
	switch z {
	case ZoomDay:
		return 7
	case ZoomWeek:
		return 28
	}
	return 1
}

// Align returns the start of the window containing t: local midnight, or
// the Monday of t's week for ZoomWeek.
func (z Zoom) Align(t time.Time) time.Time {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	if z == ZoomWeek {
		offset := (int(start.Weekday()) + 6) % 7
		start = start.AddDate(0, 0, -offset)
	}
	return start
}

// End returns the end of the window starting at start.
func (z Zoom) End(start time.Time) time.Time {
	return start.AddDate(0, 0, z.windowDays())
}

// Prev returns the start of the window before the one starting at start.
func (z Zoom) Prev(start time.Time) time.Time {
	return start.AddDate(0, 0, -z.windowDays())
}

func (z Zoom) slotEnd(t time.Time) time.Time {
	switch z {
	case ZoomDay:
		return t.AddDate(0, 0, 1)
	case ZoomWeek:
		return t.AddDate(0, 0, 7)
	}
	return t.Add(time.Hour)
}

func (z Zoom) labelLayout() string {
	switch z {
	case ZoomDay:
		return "Mon 02"
	case ZoomWeek:
		return "02 Jan"
	}
	return "15:04"
}

// Finer returns the next finer zoom, or "" for ZoomHour.
func (z Zoom) Finer() Zoom {
	switch z {
	case ZoomWeek:
		return ZoomDay
	case ZoomDay:
		return ZoomHour
	}
	return ""
}

// Coarser returns the next coarser zoom, or "" for ZoomWeek.
func (z Zoom) Coarser() Zoom {
	switch z {
	case ZoomHour:
		return ZoomDay
	case ZoomDay:
		return ZoomWeek
	}
	return ""
}

// Window is a view range at some zoom.
type Window struct {
	Zoom  Zoom      `json:"zoom"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Slot is one column of the grid.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

// Slots splits the window starting at start into columns.
func (z Zoom) Slots(start time.Time) []Slot {
	end := z.End(start)
	var slots []Slot
	for t := start; t.Before(end); {
		next := z.slotEnd(t)
		if next.After(end) {
			next = end
		}
		slots = append(slots, Slot{Start: t, End: next, Label: t.Format(z.labelLayout())})
		t = next
	}
	return slots
}

// ZoomIn lists the finer windows covering the window starting at start.
func (z Zoom) ZoomIn(start time.Time) []Window {
	finer := z.Finer()
	if finer == "" {
		return []Window{}
	}
	end := z.End(start)
	var out []Window
	for t := start; t.Before(end); t = finer.End(t) {
		out = append(out, Window{Zoom: finer, Start: t, End: finer.End(t)})
	}
	return out
}

// ZoomOut lists the coarser window containing start with its neighbours.
func (z Zoom) ZoomOut(start time.Time) []Window {
	coarser := z.Coarser()
	if coarser == "" {
		return []Window{}
	}
	mid := coarser.Align(start)
	out := make([]Window, 0, 3)
	for _, t := range []time.Time{coarser.Prev(mid), mid, coarser.End(mid)} {
		out = append(out, Window{Zoom: coarser, Start: t, End: coarser.End(t)})
	}
	return out
}
