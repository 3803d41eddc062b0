package api

import (
	"context"
	"net/http"
	"slices"

	"github.com/danielgtaylor/huma/v2"

	"github.com/roach88/slotgrid/internal/access"
	"github.com/roach88/slotgrid/internal/filter"
	"github.com/roach88/slotgrid/internal/model"
	"github.com/roach88/slotgrid/internal/timeview"
)

type TimeViewInput struct {
	Set   string `path:"set"`
	Type  string `path:"type"`
	Start string `query:"start" doc:"Window start; defaults to now"`
	Zoom  string `query:"zoom"`
	User  string `header:"X-User" doc:"Selects the user's row order"`
}

type TimeViewOutput struct {
	Body *timeview.View
}

var OperationTimeView = Operation[TimeViewInput, TimeViewOutput]{
	Huma: huma.Operation{
		OperationID: "time-view",
		Summary:     "Slot grid of a set's reservables of one type",
		Tags:        []string{"timeview"},
		Path:        "/sets/{set}/types/{type}/time_view",
		Method:      http.MethodGet,
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	},
	Handler: func(api *API, ctx context.Context, input *TimeViewInput) (*TimeViewOutput, error) {
		start := api.Now()
		if input.Start != "" {
			t, err := filter.ParseTime(input.Start)
			if err != nil {
				return nil, &badRequest{msg: "start: " + err.Error()}
			}
			start = t
		}

		zoom := api.Zoom
		if input.Zoom != "" {
			z, err := timeview.ParseZoom(input.Zoom)
			if err != nil {
				return nil, &badRequest{msg: err.Error()}
			}
			zoom = z
		}

		view, err := timeview.Build(ctx, api.Store, timeview.Request{
			Set:      input.Set,
			Type:     input.Type,
			Start:    start,
			Zoom:     zoom,
			User:     input.User,
			Location: api.Location,
		})
		if err != nil {
			return nil, err
		}
		return &TimeViewOutput{Body: view}, nil
	},
}

type MyReservationsInput struct {
	Set  string `path:"set"`
	Type string `path:"type"`
	User string `header:"X-User"`
}

var OperationMyReservations = Operation[MyReservationsInput, ReservationListOutput]{
	Huma: huma.Operation{
		OperationID: "my-reservations",
		Summary:     "Reservations owned by the caller in a set and type",
		Tags:        []string{"timeview", "reservations"},
		Path:        "/sets/{set}/types/{type}/my_reservations",
		Method:      http.MethodGet,
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	},
	Handler: func(api *API, ctx context.Context, input *MyReservationsInput) (*ReservationListOutput, error) {
		if input.User == "" {
			return nil, access.ErrUnauthenticated
		}
		set, err := api.Store.GetReservableSet(ctx, input.Set)
		if err != nil {
			return nil, err
		}
		f, err := filter.ParsePairs(filter.ReservableSchema, []string{
			"reservableset_set__slug=" + set.Slug,
			"type=" + input.Type,
		})
		if err != nil {
			return nil, err
		}
		reservables, err := api.Store.ListReservables(ctx, f)
		if err != nil {
			return nil, err
		}

		owned, err := api.Store.OwnedBy(ctx, input.User)
		if err != nil {
			return nil, err
		}
		out := []model.Reservation{}
		for _, r := range owned {
			if slices.ContainsFunc(reservables, func(v model.Reservable) bool {
				return slices.Contains(r.Reservables, v.Slug)
			}) {
				out = append(out, r)
			}
		}
		return &ReservationListOutput{Body: out}, nil
	},
}
