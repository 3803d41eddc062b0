// Package access decides who may create, change or cancel reservations.
//
// Reads are open to everyone. Writes need an authenticated user holding
// per-reservable permissions:
//
//   - create: reserve on every reservable, plus double_reserve on each
//     shared reservable that already has an overlapping reservation
//   - modify/delete: manage_reservations on every reservable allows
//     anything; otherwise the user must own the reservation and pass the
//     create checks for the new state
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/slotgrid/internal/model"
)

// ErrUnauthenticated is returned for writes by anonymous users.
var ErrUnauthenticated = errors.New("authentication required")

// Denial reasons.
const (
	ReasonInsufficient  = "insufficient privileges"
	ReasonDoubleBooking = "double booking not allowed"
	ReasonNotOwner      = "not an owner"
)

// DeniedError reports a refused write.
type DeniedError struct {
	Reason     string
	Reservable string // empty when the denial is not tied to one reservable
}

func (e *DeniedError) Error() string {
	if e.Reservable != "" {
		return fmt.Sprintf("permission denied: %s (%s)", e.Reason, e.Reservable)
	}
	return "permission denied: " + e.Reason
}

// IsDenied reports whether err is a *DeniedError.
func IsDenied(err error) bool {
	var de *DeniedError
	return errors.As(err, &de)
}

// Source is what the checker needs from storage.
type Source interface {
	HasPermission(ctx context.Context, user, reservable string, perm model.Permission) (bool, error)
	OverlappingReservations(ctx context.Context, r *model.Reservation, reservables []string) ([]model.Reservation, error)
}

// Checker evaluates permissions against a Source.
type Checker struct {
	src Source
}

// NewChecker returns a Checker reading grants and reservations from src.
func NewChecker(src Source) *Checker {
	return &Checker{src: src}
}

// CanRead always allows.
func (c *Checker) CanRead(context.Context, string) error {
	return nil
}

// CanCreate checks that user may store r as a new reservation.
func (c *Checker) CanCreate(ctx context.Context, user string, r *model.Reservation) error {
	if user == "" {
		return ErrUnauthenticated
	}
	if err := c.requireAll(ctx, user, r.Reservables, model.PermReserve); err != nil {
		return err
	}
	return c.checkOverlaps(ctx, user, r)
}

// CanModify checks that user may replace existing with modified. A nil
// modified checks the existing state, which is what deletion needs.
func (c *Checker) CanModify(ctx context.Context, user string, existing, modified *model.Reservation) error {
	if user == "" {
		return ErrUnauthenticated
	}
	if modified == nil {
		modified = existing
	}

	manage, err := c.holdsAll(ctx, user, modified.Reservables, model.PermManage)
	if err != nil {
		return err
	}
	if manage {
		return nil
	}

	if !existing.OwnedBy(user) {
		return &DeniedError{Reason: ReasonNotOwner}
	}
	if err := c.requireAll(ctx, user, modified.Reservables, model.PermReserve); err != nil {
		return err
	}
	return c.checkOverlaps(ctx, user, modified)
}

// CanDelete checks that user may cancel existing.
func (c *Checker) CanDelete(ctx context.Context, user string, existing *model.Reservation) error {
	return c.CanModify(ctx, user, existing, nil)
}

func (c *Checker) requireAll(ctx context.Context, user string, reservables []string, perm model.Permission) error {
	for _, slug := range reservables {
		ok, err := c.src.HasPermission(ctx, user, slug, perm)
		if err != nil {
			return fmt.Errorf("check %s: %w", perm, err)
		}
		if !ok {
			return &DeniedError{Reason: ReasonInsufficient, Reservable: slug}
		}
	}
	return nil
}

func (c *Checker) holdsAll(ctx context.Context, user string, reservables []string, perm model.Permission) (bool, error) {
	for _, slug := range reservables {
		ok, err := c.src.HasPermission(ctx, user, slug, perm)
		if err != nil {
			return false, fmt.Errorf("check %s: %w", perm, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// checkOverlaps requires double_reserve on every reservable r shares with
// an overlapping reservation.
func (c *Checker) checkOverlaps(ctx context.Context, user string, r *model.Reservation) error {
	overlapping, err := c.src.OverlappingReservations(ctx, r, r.Reservables)
	if err != nil {
		return fmt.Errorf("find overlapping reservations: %w", err)
	}

	wanted := make(map[string]bool, len(r.Reservables))
	for _, slug := range r.Reservables {
		wanted[slug] = true
	}

	checked := map[string]bool{}
	for _, other := range overlapping {
		for _, slug := range other.Reservables {
			if !wanted[slug] || checked[slug] {
				continue
			}
			checked[slug] = true

			ok, err := c.src.HasPermission(ctx, user, slug, model.PermDoubleReserve)
			if err != nil {
				return fmt.Errorf("check %s: %w", model.PermDoubleReserve, err)
			}
			if !ok {
				return &DeniedError{Reason: ReasonDoubleBooking, Reservable: slug}
			}
		}
	}
	return nil
}
