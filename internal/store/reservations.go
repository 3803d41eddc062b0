package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/slotgrid/internal/filter"
	"github.com/roach88/slotgrid/internal/model"
)

const reservationColumns = `r.id, r.reason, r.start_ms, r.end_ms, r.created_ms`

// CreateReservation stores a new reservation with its owners, reservables
// and requirements. Returns ErrConflict if the ID is taken and ErrNotFound
// if a referenced reservable or resource does not exist.
func (s *Store) CreateReservation(ctx context.Context, r *model.Reservation) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reservations (id, reason, start_ms, end_ms, created_ms)
			VALUES (?, ?, ?, ?, ?)
		`, r.ID, r.Reason, r.Start.UnixMilli(), r.End.UnixMilli(), r.CreatedAt.UnixMilli())
		if isConstraint(err) {
			return fmt.Errorf("reservation %s: %w", r.ID, ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}
		return writeReservationLinks(ctx, tx, r)
	})
}

// UpdateReservation replaces a stored reservation's fields and links.
// CreatedAt is left unchanged.
func (s *Store) UpdateReservation(ctx context.Context, r *model.Reservation) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE reservations SET reason = ?, start_ms = ?, end_ms = ? WHERE id = ?
		`, r.Reason, r.Start.UnixMilli(), r.End.UnixMilli(), r.ID)
		if err != nil {
			return fmt.Errorf("update reservation: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("reservation %s: %w", r.ID, ErrNotFound)
		}

		for _, table := range []string{"reservation_owners", "reservation_reservables", "reservation_requirements"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE reservation_id = ?`, r.ID); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return writeReservationLinks(ctx, tx, r)
	})
}

func writeReservationLinks(ctx context.Context, tx *sql.Tx, r *model.Reservation) error {
	for _, owner := range r.Owners {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO reservation_owners (reservation_id, username) VALUES (?, ?)
		`, r.ID, owner); err != nil {
			return fmt.Errorf("add owner %s: %w", owner, err)
		}
	}

	for _, slug := range r.Reservables {
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO reservation_reservables (reservation_id, reservable_id)
			SELECT ?, id FROM reservables WHERE slug = ?
		`, r.ID, slug)
		if err != nil {
			return fmt.Errorf("add reservable %s: %w", slug, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			if err := reservableExists(ctx, tx, slug); err != nil {
				return err
			}
		}
	}

	for _, req := range r.Requirements {
		res, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO reservation_requirements (reservation_id, resource_id, n)
			SELECT ?, id, ? FROM resources WHERE slug = ?
		`, r.ID, req.N, req.Resource)
		if err != nil {
			return fmt.Errorf("add requirement %s: %w", req.Resource, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("resource %s: %w", req.Resource, ErrNotFound)
		}
	}
	return nil
}

// DeleteReservation removes a reservation.
func (s *Store) DeleteReservation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reservation %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("reservation %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetReservation returns the reservation with the given ID.
func (s *Store) GetReservation(ctx context.Context, id string) (model.Reservation, error) {
	list, err := s.queryReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations r WHERE r.id = ?`, id)
	if err != nil {
		return model.Reservation{}, err
	}
	if len(list) == 0 {
		return model.Reservation{}, fmt.Errorf("reservation %s: %w", id, ErrNotFound)
	}
	return list[0], nil
}

// ListReservations returns reservations matching f (nil for all), ordered
// by start time.
func (s *Store) ListReservations(ctx context.Context, f *filter.Filter) ([]model.Reservation, error) {
	where, args, tail, err := filter.Compile(f)
	if err != nil {
		return nil, err
	}
	return s.queryReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations r WHERE `+where+tail, args...)
}

// OwnedBy returns the reservations (co)owned by user.
func (s *Store) OwnedBy(ctx context.Context, user string) ([]model.Reservation, error) {
	f, err := filter.Parse(filter.ReservationSchema, url.Values{"owners": {user}})
	if err != nil {
		return nil, err
	}
	return s.ListReservations(ctx, f)
}

// ReservationsInWindow returns reservations active at some instant of
// [from, to) that use at least one of the given reservables.
func (s *Store) ReservationsInWindow(ctx context.Context, reservables []string, from, to time.Time) ([]model.Reservation, error) {
	if len(reservables) == 0 {
		return []model.Reservation{}, nil
	}

	args := []any{to.UnixMilli(), from.UnixMilli()}
	for _, slug := range reservables {
		args = append(args, slug)
	}
	return s.queryReservations(ctx, `
		SELECT `+reservationColumns+` FROM reservations r
		WHERE r.start_ms < ? AND r.end_ms > ?
		AND EXISTS (
			SELECT 1 FROM reservation_reservables rr
			JOIN reservables rv ON rv.id = rr.reservable_id
			WHERE rr.reservation_id = r.id AND rv.slug IN (`+placeholders(len(reservables))+`)
		)
		ORDER BY `+filter.ReservationSchema.Order, args...)
}

// OverlappingReservations returns reservations other than r that overlap
// it in time and use at least one of reservables. When reservables is
// empty, r.Reservables is used.
func (s *Store) OverlappingReservations(ctx context.Context, r *model.Reservation, reservables []string) ([]model.Reservation, error) {
	if len(reservables) == 0 {
		reservables = r.Reservables
	}
	found, err := s.ReservationsInWindow(ctx, reservables, r.Start, r.End)
	if err != nil {
		return nil, err
	}

	out := found[:0]
	for _, other := range found {
		if other.ID != r.ID {
			out = append(out, other)
		}
	}
	return out, nil
}

// Prune deletes reservations left without any reservable and returns how
// many were removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM reservations
		WHERE NOT EXISTS (SELECT 1 FROM reservation_reservables rr WHERE rr.reservation_id = reservations.id)
	`)
	if err != nil {
		return 0, fmt.Errorf("prune reservations: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) queryReservations(ctx context.Context, query string, args ...any) ([]model.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}

	list := []model.Reservation{}
	for rows.Next() {
		var r model.Reservation
		var startMS, endMS, createdMS int64
		if err := rows.Scan(&r.ID, &r.Reason, &startMS, &endMS, &createdMS); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		r.Start = fromMillis(startMS)
		r.End = fromMillis(endMS)
		r.CreatedAt = fromMillis(createdMS)
		list = append(list, r)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate reservations: %w", err)
	}

	for i := range list {
		if err := s.loadReservationLinks(ctx, &list[i]); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (s *Store) loadReservationLinks(ctx context.Context, r *model.Reservation) error {
	var err error
	r.Owners, err = s.strings(ctx, `
		SELECT username FROM reservation_owners WHERE reservation_id = ?
		ORDER BY username COLLATE BINARY ASC
	`, r.ID)
	if err != nil {
		return fmt.Errorf("load owners of %s: %w", r.ID, err)
	}

	r.Reservables, err = s.strings(ctx, `
		SELECT rv.slug FROM reservation_reservables rr
		JOIN reservables rv ON rv.id = rr.reservable_id
		WHERE rr.reservation_id = ?
		ORDER BY rv.slug COLLATE BINARY ASC
	`, r.ID)
	if err != nil {
		return fmt.Errorf("load reservables of %s: %w", r.ID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.slug, q.n FROM reservation_requirements q
		JOIN resources s ON s.id = q.resource_id
		WHERE q.reservation_id = ?
		ORDER BY s.slug COLLATE BINARY ASC
	`, r.ID)
	if err != nil {
		return fmt.Errorf("load requirements of %s: %w", r.ID, err)
	}
	defer rows.Close()

	r.Requirements = []model.NRequirement{}
	for rows.Next() {
		var req model.NRequirement
		if err := rows.Scan(&req.Resource, &req.N); err != nil {
			return fmt.Errorf("scan requirement: %w", err)
		}
		r.Requirements = append(r.Requirements, req)
	}
	return rows.Err()
}

// strings runs a single-column query.
func (s *Store) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
