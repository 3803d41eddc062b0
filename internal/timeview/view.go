package timeview

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/roach88/slotgrid/internal/filter"
	"github.com/roach88/slotgrid/internal/layout"
	"github.com/roach88/slotgrid/internal/model"
)

// ErrMissingStart is returned when a request has no start time.
var ErrMissingStart = errors.New("time view: start is required")

// Source is the storage a view is built from.
type Source interface {
	GetReservableSet(ctx context.Context, slug string) (model.ReservableSet, error)
	ListReservables(ctx context.Context, f *filter.Filter) ([]model.Reservable, error)
	ReservationsInWindow(ctx context.Context, reservables []string, from, to time.Time) ([]model.Reservation, error)
	UserSortOrder(ctx context.Context, user string) (model.SortOrder, bool, error)
}

// Request selects what a view shows.
type Request struct {
	Set      string
	Type     string
	Start    time.Time
	Zoom     Zoom
	User     string         // optional; selects a custom row order
	Location *time.Location // window alignment; UTC when nil
}

// CellState classifies a grid cell by how many reservations touch it.
type CellState string

const (
	CellEmpty  CellState = "empty"
	CellSingle CellState = "single"
	CellMulti  CellState = "multi"
)

// Cell is one slot of one row.
type Cell struct {
	Reservations []string  `json:"reservations"`
	State        CellState `json:"state"`
}

// Bar places a reservation inside its row. Left and Width are fractions
// of the window, Top and Height fractions of the row height.
type Bar struct {
	Reservation string    `json:"reservation"`
	Reason      string    `json:"reason"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Lane        int       `json:"lane"`
	Lanes       int       `json:"lanes"`
	Left        float64   `json:"left"`
	Width       float64   `json:"width"`
	Top         float64   `json:"top"`
	Height      float64   `json:"height"`
}

// Row is the grid line of one reservable.
type Row struct {
	Reservable string `json:"reservable"`
	Name       string `json:"name"`
	Lanes      int    `json:"lanes"`
	Bars       []Bar  `json:"bars"`
	Cells      []Cell `json:"cells"`
}

// View is a rendered time grid.
type View struct {
	Set     string    `json:"set"`
	Type    string    `json:"type"`
	Zoom    Zoom      `json:"zoom"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Prev    time.Time `json:"prev"`
	Next    time.Time `json:"next"`
	Slots   []Slot    `json:"slots"`
	Rows    []Row     `json:"rows"`
	ZoomIn  []Window  `json:"zoom_in"`
	ZoomOut []Window  `json:"zoom_out"`
}

// Build assembles the view for req.
func Build(ctx context.Context, src Source, req Request) (*View, error) {
	if req.Start.IsZero() {
		return nil, ErrMissingStart
	}
	zoom, err := ParseZoom(string(req.Zoom))
	if err != nil {
		return nil, err
	}
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}

	if _, err := src.GetReservableSet(ctx, req.Set); err != nil {
		return nil, err
	}

	f, err := filter.Parse(filter.ReservableSchema, url.Values{
		"reservableset_set__slug": {req.Set},
		"type":                    {req.Type},
	})
	if err != nil {
		return nil, err
	}
	reservables, err := src.ListReservables(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list reservables: %w", err)
	}

	order, _, err := src.UserSortOrder(ctx, req.User)
	if err != nil {
		return nil, fmt.Errorf("load sort order: %w", err)
	}
	SortRows(reservables, order.Order)

	start := zoom.Align(req.Start.In(loc))
	end := zoom.End(start)

	slugs := make([]string, len(reservables))
	for i, r := range reservables {
		slugs[i] = r.Slug
	}
	reservations, err := src.ReservationsInWindow(ctx, slugs, start, end)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	v := &View{
		Set:     req.Set,
		Type:    req.Type,
		Zoom:    zoom,
		Start:   start,
		End:     end,
		Prev:    zoom.Prev(start),
		Next:    end,
		Slots:   zoom.Slots(start),
		Rows:    make([]Row, 0, len(reservables)),
		ZoomIn:  zoom.ZoomIn(start),
		ZoomOut: zoom.ZoomOut(start),
	}
	for _, r := range reservables {
		row, err := buildRow(r, reservations, v)
		if err != nil {
			return nil, err
		}
		v.Rows = append(v.Rows, row)
	}
	return v, nil
}

// SortRows orders reservables by a custom order: listed slugs first in
// list order, the rest after them by slug.
func SortRows(reservables []model.Reservable, order []string) {
	rank := make(map[string]int, len(order))
	for i, slug := range order {
		if _, dup := rank[slug]; !dup {
			rank[slug] = i
		}
	}
	slices.SortStableFunc(reservables, func(a, b model.Reservable) int {
		ra, aok := rank[a.Slug]
		rb, bok := rank[b.Slug]
		switch {
		case aok && bok:
			return ra - rb
		case aok:
			return -1
		case bok:
			return 1
		}
		return strings.Compare(a.Slug, b.Slug)
	})
}

func buildRow(r model.Reservable, all []model.Reservation, v *View) (Row, error) {
	var mine []model.Reservation
	for _, res := range all {
		if slices.Contains(res.Reservables, r.Slug) {
			mine = append(mine, res)
		}
	}

	allocs := make([]*layout.Allocation[time.Time], len(mine))
	for i, res := range mine {
		allocs[i] = &layout.Allocation[time.Time]{Start: res.Start, End: res.End}
	}
	if _, err := layout.AssignTimes(allocs, layout.WithClusterSpan()); err != nil {
		return Row{}, fmt.Errorf("lay out %s: %w", r.Slug, err)
	}

	row := Row{
		Reservable: r.Slug,
		Name:       r.Name,
		Lanes:      0,
		Bars:       make([]Bar, 0, len(mine)),
		Cells:      make([]Cell, 0, len(v.Slots)),
	}

	span := v.End.Sub(v.Start).Seconds()
	for i, res := range mine {
		a := allocs[i]
		lanes := a.MaxIndex + 1
		row.Lanes = max(row.Lanes, lanes)

		left := fraction(res.Start.Sub(v.Start).Seconds(), span)
		right := fraction(res.End.Sub(v.Start).Seconds(), span)
		row.Bars = append(row.Bars, Bar{
			Reservation: res.ID,
			Reason:      res.Reason,
			Start:       res.Start,
			End:         res.End,
			Lane:        a.Index,
			Lanes:       lanes,
			Left:        left,
			Width:       right - left,
			Top:         float64(a.Index) / float64(lanes),
			Height:      1 / float64(lanes),
		})
	}

	for _, slot := range v.Slots {
		cell := Cell{Reservations: []string{}}
		for _, res := range mine {
			if res.OverlapsWindow(slot.Start, slot.End) {
				cell.Reservations = append(cell.Reservations, res.ID)
			}
		}
		switch len(cell.Reservations) {
		case 0:
			cell.State = CellEmpty
		case 1:
			cell.State = CellSingle
		default:
			cell.State = CellMulti
		}
		row.Cells = append(row.Cells, cell)
	}
	return row, nil
}

// fraction returns x/span clamped to [0, 1].
func fraction(x, span float64) float64 {
	return min(max(x/span, 0), 1)
}
