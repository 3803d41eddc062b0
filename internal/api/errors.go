package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/roach88/slotgrid/internal/access"
	"github.com/roach88/slotgrid/internal/filter"
	"github.com/roach88/slotgrid/internal/layout"
	"github.com/roach88/slotgrid/internal/model"
	"github.com/roach88/slotgrid/internal/store"
	"github.com/roach88/slotgrid/internal/timeview"
)

// httpError maps domain errors to HTTP statuses. Unknown errors are
// logged and reported as 500 without detail.
func (api *API) httpError(operation string, err error) huma.StatusError {
	var (
		denied     *access.DeniedError
		invalid    *model.ValidationError
		paramErr   *filter.ParamError
		valueErr   *filter.ValueError
		layoutErr  *layout.Error
		requestErr *badRequest
		statusErr  huma.StatusError
	)

	switch {
	case errors.As(err, &statusErr):
		return statusErr
	case errors.Is(err, store.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, store.ErrConflict):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, access.ErrUnauthenticated):
		return huma.Error401Unauthorized(err.Error())
	case errors.As(err, &denied):
		return huma.Error403Forbidden(denied.Error())
	case errors.As(err, &invalid):
		return huma.Error422UnprocessableEntity(invalid.Error())
	case errors.As(err, &layoutErr):
		return huma.Error422UnprocessableEntity(layoutErr.Error())
	case errors.As(err, &paramErr), errors.As(err, &valueErr), errors.As(err, &requestErr),
		errors.Is(err, timeview.ErrMissingStart):
		return huma.Error400BadRequest(err.Error())
	}

	api.Logger.Error("request failed", "operation", operation, "err", err)
	return huma.Error500InternalServerError("internal error")
}

// badRequest marks malformed input detected by a handler.
type badRequest struct {
	msg string
}

func (e *badRequest) Error() string { return e.msg }
