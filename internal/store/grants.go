package store

import (
	"context"
	"fmt"

	"github.com/roach88/slotgrid/internal/model"
)

// Grant gives a user a permission on a reservable. Granting twice is a
// no-op.
func (s *Store) Grant(ctx context.Context, g model.Grant) error {
	if !g.Permission.Valid() {
		return fmt.Errorf("unknown permission %q", g.Permission)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO grants (username, reservable_id, permission)
		SELECT ?, id, ? FROM reservables WHERE slug = ?
	`, g.User, string(g.Permission), g.Reservable)
	if err != nil {
		return fmt.Errorf("grant %s on %s: %w", g.Permission, g.Reservable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return reservableExists(ctx, s.db, g.Reservable)
	}
	return nil
}

// Revoke removes a permission. Revoking a permission that was never
// granted is a no-op.
func (s *Store) Revoke(ctx context.Context, g model.Grant) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM grants
		WHERE username = ? AND permission = ?
		AND reservable_id = (SELECT id FROM reservables WHERE slug = ?)
	`, g.User, string(g.Permission), g.Reservable)
	if err != nil {
		return fmt.Errorf("revoke %s on %s: %w", g.Permission, g.Reservable, err)
	}
	return nil
}

// HasPermission reports whether user holds perm on the reservable.
func (s *Store) HasPermission(ctx context.Context, user, reservable string, perm model.Permission) (bool, error) {
	var found int
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM grants g JOIN reservables rv ON rv.id = g.reservable_id
			WHERE g.username = ? AND rv.slug = ? AND g.permission = ?
		)
	`, user, reservable, string(perm)).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check %s on %s: %w", perm, reservable, err)
	}
	return found == 1, nil
}

// Grants lists the permissions held by user, ordered by reservable.
func (s *Store) Grants(ctx context.Context, user string) ([]model.Grant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rv.slug, g.permission FROM grants g
		JOIN reservables rv ON rv.id = g.reservable_id
		WHERE g.username = ?
		ORDER BY rv.slug COLLATE BINARY ASC, g.permission ASC
	`, user)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	out := []model.Grant{}
	for rows.Next() {
		g := model.Grant{User: user}
		var perm string
		if err := rows.Scan(&g.Reservable, &perm); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		g.Permission = model.Permission(perm)
		out = append(out, g)
	}
	return out, rows.Err()
}
