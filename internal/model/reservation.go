package model

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"golang.org/x/text/unicode/norm"
)

// ValidationError reports a field that fails validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the reservation before it is stored.
func (r *Reservation) Validate() error {
	if strings.TrimSpace(r.Reason) == "" {
		return &ValidationError{Field: "reason", Message: "reason is required"}
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return &ValidationError{Field: "start", Message: "start and end are required"}
	}
	if !r.Start.Before(r.End) {
		return &ValidationError{Field: "start", Message: "start must be before the end"}
	}
	if len(r.Reservables) == 0 {
		return &ValidationError{Field: "reservables", Message: "at least one reservable is required"}
	}
	for _, req := range r.Requirements {
		if req.N < 0 {
			return &ValidationError{Field: "requirements", Message: fmt.Sprintf("negative amount of %s", req.Resource)}
		}
	}
	return nil
}

// Overlaps reports whether r and other share an instant. Reservations
// that only touch, one ending when the other starts, do not overlap.
func (r *Reservation) Overlaps(other *Reservation) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// OverlapsWindow reports whether r is active at some instant of [from, to).
func (r *Reservation) OverlapsWindow(from, to time.Time) bool {
	return r.Start.Before(to) && from.Before(r.End)
}

// SharesReservable reports whether r and other book a common reservable.
func (r *Reservation) SharesReservable(other *Reservation) bool {
	for _, s := range r.Reservables {
		if slices.Contains(other.Reservables, s) {
			return true
		}
	}
	return false
}

// OwnedBy reports whether user is one of the owners.
func (r *Reservation) OwnedBy(user string) bool {
	return slices.Contains(r.Owners, user)
}

// Normalize puts free-text fields in NFC form, truncates the bounds to the
// millisecond precision they are stored at and sorts the owner and
// reservable lists so stored reservations compare equal.
func (r *Reservation) Normalize() {
	r.Reason = NormalizeName(r.Reason)
	r.Start = r.Start.Truncate(time.Millisecond)
	r.End = r.End.Truncate(time.Millisecond)
	slices.Sort(r.Owners)
	r.Owners = slices.Compact(r.Owners)
	slices.Sort(r.Reservables)
	r.Reservables = slices.Compact(r.Reservables)
}

// NormalizeName trims s and converts it to Unicode NFC.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Slugify derives a URL slug from a display name.
func Slugify(name string) string {
	return slug.Make(name)
}

// ValidSlug reports whether s can be used as a slug.
func ValidSlug(s string) bool {
	return slug.IsSlug(s)
}
