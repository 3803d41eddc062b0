package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/roach88/slotgrid/internal/filter"
	"github.com/roach88/slotgrid/internal/model"
)

type ReservationListOutput struct {
	Body []model.Reservation
}

var OperationReservationList = Operation[QueryInput, ReservationListOutput]{
	Huma: huma.Operation{
		OperationID: "reservation-list",
		Summary:     "List reservations",
		Tags:        []string{"reservations"},
		Path:        "/reservations",
		Method:      http.MethodGet,
		Errors:      []int{http.StatusBadRequest},
	},
	Handler: func(api *API, ctx context.Context, input *QueryInput) (*ReservationListOutput, error) {
		f, err := input.filter(filter.ReservationSchema)
		if err != nil {
			return nil, err
		}
		list, err := api.Store.ListReservations(ctx, f)
		if err != nil {
			return nil, err
		}
		return &ReservationListOutput{Body: list}, nil
	},
}

type ReservationFetchInput struct {
	ID string `path:"id"`
}

type ReservationOutput struct {
	Body model.Reservation
}

var OperationReservationFetch = Operation[ReservationFetchInput, ReservationOutput]{
	Huma: huma.Operation{
		OperationID: "reservation-fetch",
		Summary:     "Fetch a reservation",
		Tags:        []string{"reservations"},
		Path:        "/reservations/{id}",
		Method:      http.MethodGet,
		Errors:      []int{http.StatusNotFound},
	},
	Handler: func(api *API, ctx context.Context, input *ReservationFetchInput) (*ReservationOutput, error) {
		r, err := api.Store.GetReservation(ctx, input.ID)
		if err != nil {
			return nil, err
		}
		return &ReservationOutput{Body: r}, nil
	},
}

// ReservationBody is the writable part of a reservation.
type ReservationBody struct {
	Reason       string               `json:"reason"`
	Start        time.Time            `json:"start"`
	End          time.Time            `json:"end"`
	Owners       []string             `json:"owners,omitempty" required:"false"`
	Reservables  []string             `json:"reservables"`
	Requirements []model.NRequirement `json:"requirements,omitempty" required:"false"`
}

func (b ReservationBody) reservation(id string) model.Reservation {
	return model.Reservation{
		ID:           id,
		Reason:       b.Reason,
		Start:        b.Start,
		End:          b.End,
		Owners:       b.Owners,
		Reservables:  b.Reservables,
		Requirements: b.Requirements,
	}
}

type ReservationCreateInput struct {
	User string `header:"X-User"`
	Body ReservationBody
}

var OperationReservationCreate = Operation[ReservationCreateInput, ReservationOutput]{
	Huma: huma.Operation{
		OperationID:   "reservation-create",
		Summary:       "Create a reservation",
		Tags:          []string{"reservations"},
		Path:          "/reservations",
		Method:        http.MethodPost,
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	},
	Handler: func(api *API, ctx context.Context, input *ReservationCreateInput) (*ReservationOutput, error) {
		r, err := api.Booking.Create(ctx, input.User, input.Body.reservation(""))
		if err != nil {
			return nil, err
		}
		return &ReservationOutput{Body: r}, nil
	},
}

type ReservationUpdateInput struct {
	ID   string `path:"id"`
	User string `header:"X-User"`
	Body ReservationBody
}

var OperationReservationUpdate = Operation[ReservationUpdateInput, ReservationOutput]{
	Huma: huma.Operation{
		OperationID: "reservation-update",
		Summary:     "Replace a reservation",
		Tags:        []string{"reservations"},
		Path:        "/reservations/{id}",
		Method:      http.MethodPut,
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	},
	Handler: func(api *API, ctx context.Context, input *ReservationUpdateInput) (*ReservationOutput, error) {
		r, err := api.Booking.Update(ctx, input.User, input.Body.reservation(input.ID))
		if err != nil {
			return nil, err
		}
		return &ReservationOutput{Body: r}, nil
	},
}

type ReservationDeleteInput struct {
	ID   string `path:"id"`
	User string `header:"X-User"`
}

type ReservationDeleteOutput struct{}

var OperationReservationDelete = Operation[ReservationDeleteInput, ReservationDeleteOutput]{
	Huma: huma.Operation{
		OperationID:   "reservation-delete",
		Summary:       "Cancel a reservation",
		Tags:          []string{"reservations"},
		Path:          "/reservations/{id}",
		Method:        http.MethodDelete,
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	},
	Handler: func(api *API, ctx context.Context, input *ReservationDeleteInput) (*ReservationDeleteOutput, error) {
		if err := api.Booking.Cancel(ctx, input.User, input.ID); err != nil {
			return nil, err
		}
		return &ReservationDeleteOutput{}, nil
	},
}
