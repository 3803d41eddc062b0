package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/slotgrid/internal/filter"
	"github.com/roach88/slotgrid/internal/model"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PutResource inserts a resource or updates the one with the same slug.
// res.ID is set to the stored row's ID.
func (s *Store) PutResource(ctx context.Context, res *model.Resource) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO resources (slug, type, name) VALUES (?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET type = excluded.type, name = excluded.name
		RETURNING id
	`, res.Slug, res.Type, res.Name).Scan(&res.ID)
	if err != nil {
		return fmt.Errorf("put resource %s: %w", res.Slug, err)
	}
	return nil
}

// GetResource returns the resource with the given slug.
func (s *Store) GetResource(ctx context.Context, slug string) (model.Resource, error) {
	var res model.Resource
	err := s.db.QueryRowContext(ctx,
		`SELECT id, slug, type, name FROM resources WHERE slug = ?`, slug,
	).Scan(&res.ID, &res.Slug, &res.Type, &res.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return res, fmt.Errorf("resource %s: %w", slug, ErrNotFound)
	}
	if err != nil {
		return res, fmt.Errorf("get resource %s: %w", slug, err)
	}
	return res, nil
}

// ListResources returns resources matching f (nil for all).
func (s *Store) ListResources(ctx context.Context, f *filter.Filter) ([]model.Resource, error) {
	where, args, tail, err := filter.Compile(f)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.slug, s.type, s.name FROM resources s WHERE `+where+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("query resources: %w", err)
	}
	defer rows.Close()

	resources := []model.Resource{}
	for rows.Next() {
		var res model.Resource
		if err := rows.Scan(&res.ID, &res.Slug, &res.Type, &res.Name); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resources: %w", err)
	}
	return resources, nil
}

// PutReservable inserts or updates a reservable and replaces its resource
// counts. Every referenced resource must exist.
func (s *Store) PutReservable(ctx context.Context, r *model.Reservable) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO reservables (slug, type, name) VALUES (?, ?, ?)
			ON CONFLICT(slug) DO UPDATE SET type = excluded.type, name = excluded.name
			RETURNING id
		`, r.Slug, r.Type, r.Name).Scan(&r.ID)
		if err != nil {
			return fmt.Errorf("put reservable %s: %w", r.Slug, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM nresources WHERE reservable_id = ?`, r.ID); err != nil {
			return fmt.Errorf("clear resources of %s: %w", r.Slug, err)
		}
		for _, nr := range r.Resources {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO nresources (reservable_id, resource_id, n)
				SELECT ?, id, ? FROM resources WHERE slug = ?
			`, r.ID, nr.N, nr.Resource)
			if err != nil {
				return fmt.Errorf("put resource %s of %s: %w", nr.Resource, r.Slug, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("resource %s of %s: %w", nr.Resource, r.Slug, ErrNotFound)
			}
		}
		return nil
	})
}

// GetReservable returns the reservable with the given slug.
func (s *Store) GetReservable(ctx context.Context, slug string) (model.Reservable, error) {
	var r model.Reservable
	err := s.db.QueryRowContext(ctx,
		`SELECT id, slug, type, name FROM reservables WHERE slug = ?`, slug,
	).Scan(&r.ID, &r.Slug, &r.Type, &r.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("reservable %s: %w", slug, ErrNotFound)
	}
	if err != nil {
		return r, fmt.Errorf("get reservable %s: %w", slug, err)
	}

	r.Resources, err = s.reservableResources(ctx, r.ID)
	return r, err
}

// ListReservables returns reservables matching f (nil for all).
func (s *Store) ListReservables(ctx context.Context, f *filter.Filter) ([]model.Reservable, error) {
	where, args, tail, err := filter.Compile(f)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT v.id, v.slug, v.type, v.name FROM reservables v WHERE `+where+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservables: %w", err)
	}

	reservables := []model.Reservable{}
	for rows.Next() {
		var r model.Reservable
		if err := rows.Scan(&r.ID, &r.Slug, &r.Type, &r.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan reservable: %w", err)
		}
		reservables = append(reservables, r)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate reservables: %w", err)
	}

	// The single connection is free again once rows is closed.
	for i := range reservables {
		reservables[i].Resources, err = s.reservableResources(ctx, reservables[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return reservables, nil
}

// DeleteReservable removes a reservable. Reservations keep existing
// without it; see Prune.
func (s *Store) DeleteReservable(ctx context.Context, slug string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reservables WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("delete reservable %s: %w", slug, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("reservable %s: %w", slug, ErrNotFound)
	}
	return nil
}

func (s *Store) reservableResources(ctx context.Context, id int64) ([]model.NResources, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.slug, nr.n FROM nresources nr
		JOIN resources s ON s.id = nr.resource_id
		WHERE nr.reservable_id = ?
		ORDER BY s.slug COLLATE BINARY ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query nresources: %w", err)
	}
	defer rows.Close()

	out := []model.NResources{}
	for rows.Next() {
		var nr model.NResources
		if err := rows.Scan(&nr.Resource, &nr.N); err != nil {
			return nil, fmt.Errorf("scan nresources: %w", err)
		}
		out = append(out, nr)
	}
	return out, rows.Err()
}

// PutReservableSet inserts or updates a set and replaces its members.
// Every member must exist.
func (s *Store) PutReservableSet(ctx context.Context, set *model.ReservableSet) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO reservable_sets (slug, name) VALUES (?, ?)
			ON CONFLICT(slug) DO UPDATE SET name = excluded.name
			RETURNING id
		`, set.Slug, set.Name).Scan(&set.ID)
		if err != nil {
			return fmt.Errorf("put set %s: %w", set.Slug, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM reservable_set_members WHERE set_id = ?`, set.ID); err != nil {
			return fmt.Errorf("clear members of %s: %w", set.Slug, err)
		}
		for _, slug := range set.Reservables {
			res, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO reservable_set_members (set_id, reservable_id)
				SELECT ?, id FROM reservables WHERE slug = ?
			`, set.ID, slug)
			if err != nil {
				return fmt.Errorf("add %s to %s: %w", slug, set.Slug, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				if err := reservableExists(ctx, tx, slug); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func reservableExists(ctx context.Context, q queryer, slug string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM reservables WHERE slug = ?`, slug).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reservable %s: %w", slug, ErrNotFound)
	}
	return err
}

// GetReservableSet returns the set with the given slug and its members.
func (s *Store) GetReservableSet(ctx context.Context, slug string) (model.ReservableSet, error) {
	var set model.ReservableSet
	err := s.db.QueryRowContext(ctx,
		`SELECT id, slug, name FROM reservable_sets WHERE slug = ?`, slug,
	).Scan(&set.ID, &set.Slug, &set.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return set, fmt.Errorf("reservable set %s: %w", slug, ErrNotFound)
	}
	if err != nil {
		return set, fmt.Errorf("get reservable set %s: %w", slug, err)
	}

	set.Reservables, err = s.setMembers(ctx, set.ID)
	return set, err
}

// ListReservableSets returns sets matching f (nil for all).
func (s *Store) ListReservableSets(ctx context.Context, f *filter.Filter) ([]model.ReservableSet, error) {
	where, args, tail, err := filter.Compile(f)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.slug, t.name FROM reservable_sets t WHERE `+where+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("query sets: %w", err)
	}

	sets := []model.ReservableSet{}
	for rows.Next() {
		var set model.ReservableSet
		if err := rows.Scan(&set.ID, &set.Slug, &set.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan set: %w", err)
		}
		sets = append(sets, set)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate sets: %w", err)
	}

	for i := range sets {
		if sets[i].Reservables, err = s.setMembers(ctx, sets[i].ID); err != nil {
			return nil, err
		}
	}
	return sets, nil
}

// ListReservableTypes returns the distinct reservable types in a set.
func (s *Store) ListReservableTypes(ctx context.Context, setSlug string) ([]string, error) {
	if _, err := s.GetReservableSet(ctx, setSlug); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT v.type FROM reservables v
		JOIN reservable_set_members m ON m.reservable_id = v.id
		JOIN reservable_sets t ON t.id = m.set_id
		WHERE t.slug = ?
		ORDER BY v.type COLLATE BINARY ASC
	`, setSlug)
	if err != nil {
		return nil, fmt.Errorf("query types: %w", err)
	}
	defer rows.Close()

	types := []string{}
	for rows.Next() {
		var typ string
		if err := rows.Scan(&typ); err != nil {
			return nil, fmt.Errorf("scan type: %w", err)
		}
		types = append(types, typ)
	}
	return types, rows.Err()
}

func (s *Store) setMembers(ctx context.Context, setID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.slug FROM reservable_set_members m
		JOIN reservables v ON v.id = m.reservable_id
		WHERE m.set_id = ?
		ORDER BY v.slug COLLATE BINARY ASC
	`, setID)
	if err != nil {
		return nil, fmt.Errorf("query set members: %w", err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("scan set member: %w", err)
		}
		members = append(members, slug)
	}
	return members, rows.Err()
}
