package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/slotgrid/internal/model"
)

// PutSortOrder creates or replaces a named sort order.
func (s *Store) PutSortOrder(ctx context.Context, o model.SortOrder) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO sort_orders (name) VALUES (?)`, o.Name); err != nil {
			return fmt.Errorf("put sort order %s: %w", o.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sort_order_entries WHERE sort_order = ?`, o.Name); err != nil {
			return fmt.Errorf("clear sort order %s: %w", o.Name, err)
		}
		for i, slug := range o.Order {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO sort_order_entries (sort_order, position, reservable_slug) VALUES (?, ?, ?)
			`, o.Name, i, slug); err != nil {
				return fmt.Errorf("add %s to sort order %s: %w", slug, o.Name, err)
			}
		}
		return nil
	})
}

// GetSortOrder returns a named sort order.
func (s *Store) GetSortOrder(ctx context.Context, name string) (model.SortOrder, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sort_orders WHERE name = ?)`, name).Scan(&exists); err != nil {
		return model.SortOrder{}, fmt.Errorf("get sort order %s: %w", name, err)
	}
	if exists == 0 {
		return model.SortOrder{}, fmt.Errorf("sort order %s: %w", name, ErrNotFound)
	}

	order, err := s.strings(ctx, `
		SELECT reservable_slug FROM sort_order_entries WHERE sort_order = ? ORDER BY position
	`, name)
	if err != nil {
		return model.SortOrder{}, fmt.Errorf("load sort order %s: %w", name, err)
	}
	return model.SortOrder{Name: name, Order: order}, nil
}

// SetUserSortOrder links user to an existing sort order.
func (s *Store) SetUserSortOrder(ctx context.Context, p model.UserProfile) error {
	if _, err := s.GetSortOrder(ctx, p.SortOrder); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (username, sort_order) VALUES (?, ?)
		ON CONFLICT(username) DO UPDATE SET sort_order = excluded.sort_order
	`, p.User, p.SortOrder)
	if err != nil {
		return fmt.Errorf("set sort order for %s: %w", p.User, err)
	}
	return nil
}

// UserSortOrder returns the sort order user browses with. The boolean is
// false when the user has none.
func (s *Store) UserSortOrder(ctx context.Context, user string) (model.SortOrder, bool, error) {
	if user == "" {
		return model.SortOrder{}, false, nil
	}

	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT sort_order FROM user_profiles WHERE username = ?`, user).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SortOrder{}, false, nil
	}
	if err != nil {
		return model.SortOrder{}, false, fmt.Errorf("get profile of %s: %w", user, err)
	}

	o, err := s.GetSortOrder(ctx, name)
	if err != nil {
		return model.SortOrder{}, false, err
	}
	return o, true, nil
}
