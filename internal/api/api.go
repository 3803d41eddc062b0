// Package api serves the reservation catalogue over HTTP as JSON.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/roach88/slotgrid/internal/booking"
	"github.com/roach88/slotgrid/internal/filter"
	"github.com/roach88/slotgrid/internal/model"
	"github.com/roach88/slotgrid/internal/timeview"
)

// Store is the storage the API reads from.
type Store interface {
	timeview.Source
	ListResources(ctx context.Context, f *filter.Filter) ([]model.Resource, error)
	ListReservableSets(ctx context.Context, f *filter.Filter) ([]model.ReservableSet, error)
	ListReservableTypes(ctx context.Context, set string) ([]string, error)
	ListReservations(ctx context.Context, f *filter.Filter) ([]model.Reservation, error)
	GetReservation(ctx context.Context, id string) (model.Reservation, error)
	OwnedBy(ctx context.Context, user string) ([]model.Reservation, error)
}

// API holds the handler dependencies.
type API struct {
	Store    Store
	Booking  *booking.Service
	Logger   *slog.Logger
	Metrics  *Metrics
	Location *time.Location // time view alignment; UTC when nil
	Zoom     timeview.Zoom  // default time view zoom
	Now      func() time.Time

	// ShutdownTimeout bounds graceful shutdown in Run. Zero means 5s.
	ShutdownTimeout time.Duration
}

// Run serves the API on addr until ctx is cancelled.
func (api *API) Run(ctx context.Context, addr string) error {
	server := http.Server{Addr: addr, Handler: api.Handler()}

	errc := make(chan error, 1)

	go func() {
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		api.Logger.Info("http server shutdown")
		errc <- err
	}()

	api.Logger.Info("http server listening", "addr", addr)

	// Block until the server fails or ctx is cancelled. On cancellation
	// shut the server down, gracefully if possible.
	select {
	case <-ctx.Done():
		timeout := api.ShutdownTimeout
		if timeout == 0 {
			timeout = 5 * time.Second
		}
		sdc, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := server.Shutdown(sdc); err != nil &&
			!errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded) {

			server.Close()
			return fmt.Errorf("running api: shutting down http server: %w", err)
		}
		if err := <-errc; err != nil {
			return fmt.Errorf("running api: serving http: %w", err)
		}
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("running api: serving http: %w", err)
		}
	}
	return nil
}

// Handler returns the API routes plus /metrics.
func (api *API) Handler() http.Handler {
	if api.Logger == nil {
		api.Logger = slog.Default()
	}
	if api.Metrics == nil {
		api.Metrics = NewMetrics()
	}
	if api.Now == nil {
		api.Now = time.Now
	}

	var mux http.ServeMux
	config := huma.DefaultConfig("slotgrid", "v0.1.0")
	registry := Registry{API: api, Huma: humago.New(&mux, config)}
	OperationResourceList.Register(&registry)
	OperationReservableList.Register(&registry)
	OperationSetList.Register(&registry)
	OperationSetTypeList.Register(&registry)
	OperationSetTypeReservables.Register(&registry)
	OperationReservationList.Register(&registry)
	OperationReservationFetch.Register(&registry)
	OperationReservationCreate.Register(&registry)
	OperationReservationUpdate.Register(&registry)
	OperationReservationDelete.Register(&registry)
	OperationTimeView.Register(&registry)
	OperationMyReservations.Register(&registry)
	OperationLayout.Register(&registry)
	mux.Handle("GET /metrics", api.Metrics.Handler())
	return &mux
}

// Registry binds operations to an API instance.
type Registry struct {
	API  *API
	Huma huma.API
}

// Operation is a huma operation with a handler taking the API.
type Operation[I, O any] struct {
	Huma    huma.Operation
	Handler func(api *API, ctx context.Context, input *I) (*O, error)
}

// Register adds op to r. Handler errors are translated to HTTP errors and
// every call is counted.
func (op Operation[I, O]) Register(r *Registry) {
	huma.Register(r.Huma, op.Huma, func(ctx context.Context, i *I) (*O, error) {
		out, err := op.Handler(r.API, ctx, i)
		if err != nil {
			herr := r.API.httpError(op.Huma.OperationID, err)
			r.API.Metrics.observeRequest(op.Huma.OperationID, herr.GetStatus())
			return nil, herr
		}
		status := op.Huma.DefaultStatus
		if status == 0 {
			status = http.StatusOK
		}
		r.API.Metrics.observeRequest(op.Huma.OperationID, status)
		return out, nil
	})
}
