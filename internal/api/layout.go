package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/roach88/slotgrid/internal/fixture"
	"github.com/roach88/slotgrid/internal/layout"
)

type LayoutInput struct {
	Body fixture.LayoutInput
}

type LayoutOutput struct {
	Body []fixture.LayoutResult
}

var OperationLayout = Operation[LayoutInput, LayoutOutput]{
	Huma: huma.Operation{
		OperationID: "layout",
		Summary:     "Assign lanes to a list of allocations",
		Tags:        []string{"layout"},
		Path:        "/layout",
		Method:      http.MethodPost,
		Errors:      []int{http.StatusUnprocessableEntity},
	},
	Handler: func(api *API, ctx context.Context, input *LayoutInput) (*LayoutOutput, error) {
		began := time.Now()
		results, err := input.Body.Assign()
		var layoutErr *layout.Error
		if err != nil && !errors.As(err, &layoutErr) {
			return nil, &badRequest{msg: err.Error()}
		}
		if err != nil {
			return nil, err
		}
		api.Metrics.observeLayout(len(results), time.Since(began))
		return &LayoutOutput{Body: results}, nil
	},
}
