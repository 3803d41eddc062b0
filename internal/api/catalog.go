package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	"github.com/roach88/slotgrid/internal/filter"
	"github.com/roach88/slotgrid/internal/model"
)

// QueryInput captures the raw query string for strict filter parsing.
// Filter parameters are open ended so they are not declared to huma.
type QueryInput struct {
	params url.Values
}

// Resolve implements huma.Resolver.
func (i *QueryInput) Resolve(ctx huma.Context) []error {
	u := ctx.URL()
	i.params = u.Query()
	return nil
}

func (i *QueryInput) filter(schema filter.Schema) (*filter.Filter, error) {
	return filter.Parse(schema, i.params)
}

type ResourceListOutput struct {
	Body []model.Resource
}

var OperationResourceList = Operation[QueryInput, ResourceListOutput]{
	Huma: huma.Operation{
		OperationID: "resource-list",
		Summary:     "List resources",
		Tags:        []string{"catalogue"},
		Path:        "/resources",
		Method:      http.MethodGet,
		Errors:      []int{http.StatusBadRequest},
	},
	Handler: func(api *API, ctx context.Context, input *QueryInput) (*ResourceListOutput, error) {
		f, err := input.filter(filter.ResourceSchema)
		if err != nil {
			return nil, err
		}
		list, err := api.Store.ListResources(ctx, f)
		if err != nil {
			return nil, err
		}
		return &ResourceListOutput{Body: list}, nil
	},
}

type ReservableListOutput struct {
	Body []model.Reservable
}

var OperationReservableList = Operation[QueryInput, ReservableListOutput]{
	Huma: huma.Operation{
		OperationID: "reservable-list",
		Summary:     "List reservables",
		Tags:        []string{"catalogue"},
		Path:        "/reservables",
		Method:      http.MethodGet,
		Errors:      []int{http.StatusBadRequest},
	},
	Handler: func(api *API, ctx context.Context, input *QueryInput) (*ReservableListOutput, error) {
		f, err := input.filter(filter.ReservableSchema)
		if err != nil {
			return nil, err
		}
		list, err := api.Store.ListReservables(ctx, f)
		if err != nil {
			return nil, err
		}
		return &ReservableListOutput{Body: list}, nil
	},
}

type SetListOutput struct {
	Body []model.ReservableSet
}

var OperationSetList = Operation[QueryInput, SetListOutput]{
	Huma: huma.Operation{
		OperationID: "set-list",
		Summary:     "List reservable sets",
		Tags:        []string{"catalogue"},
		Path:        "/sets",
		Method:      http.MethodGet,
		Errors:      []int{http.StatusBadRequest},
	},
	Handler: func(api *API, ctx context.Context, input *QueryInput) (*SetListOutput, error) {
		f, err := input.filter(filter.SetSchema)
		if err != nil {
			return nil, err
		}
		list, err := api.Store.ListReservableSets(ctx, f)
		if err != nil {
			return nil, err
		}
		return &SetListOutput{Body: list}, nil
	},
}

type SetPathInput struct {
	Set string `path:"set"`
}

type SetTypeListOutput struct {
	Body []string
}

var OperationSetTypeList = Operation[SetPathInput, SetTypeListOutput]{
	Huma: huma.Operation{
		OperationID: "set-type-list",
		Summary:     "Reservable types present in a set",
		Tags:        []string{"catalogue"},
		Path:        "/sets/{set}/types",
		Method:      http.MethodGet,
		Errors:      []int{http.StatusNotFound},
	},
	Handler: func(api *API, ctx context.Context, input *SetPathInput) (*SetTypeListOutput, error) {
		types, err := api.Store.ListReservableTypes(ctx, input.Set)
		if err != nil {
			return nil, err
		}
		return &SetTypeListOutput{Body: types}, nil
	},
}

type SetTypePathInput struct {
	Set  string `path:"set"`
	Type string `path:"type"`
}

var OperationSetTypeReservables = Operation[SetTypePathInput, ReservableListOutput]{
	Huma: huma.Operation{
		OperationID: "set-type-reservables",
		Summary:     "Reservables of one type in a set",
		Tags:        []string{"catalogue"},
		Path:        "/sets/{set}/types/{type}/reservables",
		Method:      http.MethodGet,
		Errors:      []int{http.StatusNotFound},
	},
	Handler: func(api *API, ctx context.Context, input *SetTypePathInput) (*ReservableListOutput, error) {
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
		list, err := api.Store.ListReservables(ctx, f)
		if err != nil {
			return nil, err
		}
		return &ReservableListOutput{Body: list}, nil
	},
}
