// Package fixture loads a reservation catalogue from YAML.
//
// A document is checked against an embedded CUE schema first, so that
// errors name the offending path, and then decoded strictly with
// yaml.v3. Unknown keys are rejected by both steps.
package fixture

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/slotgrid/internal/model"
)

//go:embed schema.cue
var schemaCUE string

// Fixture is a decoded catalogue document.
type Fixture struct {
	Resources    []model.Resource      `yaml:"resources"`
	Reservables  []model.Reservable    `yaml:"reservables"`
	Sets         []model.ReservableSet `yaml:"sets"`
	Reservations []model.Reservation   `yaml:"reservations"`
	Grants       []model.Grant         `yaml:"grants"`
	SortOrders   []model.SortOrder     `yaml:"sort_orders"`
	Profiles     []model.UserProfile   `yaml:"profiles"`
}

// SchemaError reports a document that does not match the schema.
type SchemaError struct {
	Details string
}

func (e *SchemaError) Error() string {
	return "fixture does not match schema:\n" + e.Details
}

// Decode reads and validates a fixture document.
func Decode(r io.Reader) (*Fixture, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	if err := validate(data); err != nil {
		return nil, err
	}

	var fx Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fx); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &fx, nil
}

// validate unifies the document with #Fixture.
func validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc == nil {
		return nil
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile fixture schema: %w", err)
	}

	value := schema.LookupPath(cue.ParsePath("#Fixture")).Unify(ctx.Encode(doc))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return &SchemaError{Details: cueerrors.Details(err, nil)}
	}
	return nil
}

// Target is the store a fixture is applied to.
type Target interface {
	PutResource(ctx context.Context, res *model.Resource) error
	PutReservable(ctx context.Context, r *model.Reservable) error
	PutReservableSet(ctx context.Context, set *model.ReservableSet) error
	CreateReservation(ctx context.Context, r *model.Reservation) error
	Grant(ctx context.Context, g model.Grant) error
	PutSortOrder(ctx context.Context, o model.SortOrder) error
	SetUserSortOrder(ctx context.Context, p model.UserProfile) error
}

// Summary counts what Apply stored.
type Summary struct {
	Resources    int `json:"resources"`
	Reservables  int `json:"reservables"`
	Sets         int `json:"sets"`
	Reservations int `json:"reservations"`
	Grants       int `json:"grants"`
	SortOrders   int `json:"sort_orders"`
	Profiles     int `json:"profiles"`
}

// Apply stores the fixture in dependency order. Missing slugs are derived
// from names and missing reservation IDs come from ids. Reservations are
// stored without access checks.
func Apply(ctx context.Context, t Target, fx *Fixture, ids model.IDGenerator, now time.Time) (Summary, error) {
	var sum Summary

	for i := range fx.Resources {
		res := &fx.Resources[i]
		res.Name = model.NormalizeName(res.Name)
		if res.Slug == "" {
			res.Slug = model.Slugify(res.Name)
		}
		if err := t.PutResource(ctx, res); err != nil {
			return sum, err
		}
		sum.Resources++
	}

	for i := range fx.Reservables {
		r := &fx.Reservables[i]
		r.Name = model.NormalizeName(r.Name)
		if r.Slug == "" {
			r.Slug = model.Slugify(r.Name)
		}
		if err := t.PutReservable(ctx, r); err != nil {
			return sum, err
		}
		sum.Reservables++
	}

	for i := range fx.Sets {
		set := &fx.Sets[i]
		set.Name = model.NormalizeName(set.Name)
		if set.Slug == "" {
			set.Slug = model.Slugify(set.Name)
		}
		if err := t.PutReservableSet(ctx, set); err != nil {
			return sum, err
		}
		sum.Sets++
	}

	for _, g := range fx.Grants {
		if err := t.Grant(ctx, g); err != nil {
			return sum, err
		}
		sum.Grants++
	}

	for _, o := range fx.SortOrders {
		if err := t.PutSortOrder(ctx, o); err != nil {
			return sum, err
		}
		sum.SortOrders++
	}

	for _, p := range fx.Profiles {
		if err := t.SetUserSortOrder(ctx, p); err != nil {
			return sum, err
		}
		sum.Profiles++
	}

	for i := range fx.Reservations {
		r := &fx.Reservations[i]
		r.Normalize()
		if err := r.Validate(); err != nil {
			return sum, fmt.Errorf("reservation %d: %w", i, err)
		}
		if r.ID == "" {
			r.ID = ids.Generate()
		}
		r.CreatedAt = now
		if err := t.CreateReservation(ctx, r); err != nil {
			return sum, err
		}
		sum.Reservations++
	}

	return sum, nil
}
