// Package booking creates, changes and cancels reservations on behalf of a
// user, applying validation and access checks before touching the store.
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/slotgrid/internal/access"
	"github.com/roach88/slotgrid/internal/model"
)

// Store is the persistence the service writes through.
type Store interface {
	access.Source
	CreateReservation(ctx context.Context, r *model.Reservation) error
	UpdateReservation(ctx context.Context, r *model.Reservation) error
	DeleteReservation(ctx context.Context, id string) error
	GetReservation(ctx context.Context, id string) (model.Reservation, error)
}

// Service applies reservation writes.
type Service struct {
	store   Store
	checker *access.Checker
	ids     model.IDGenerator
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator replaces the default UUIDv7 generator.
func WithIDGenerator(g model.IDGenerator) Option {
	return func(s *Service) { s.ids = g }
}

// WithClock replaces time.Now for CreatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New returns a Service writing to store.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		checker: access.NewChecker(store),
		ids:     model.UUIDv7Generator{},
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores r as a new reservation made by user. When r has no owners
// the user becomes the only owner. Returns the stored reservation.
func (s *Service) Create(ctx context.Context, user string, r model.Reservation) (model.Reservation, error) {
	if len(r.Owners) == 0 && user != "" {
		r.Owners = []string{user}
	}
	r.Normalize()
	if err := r.Validate(); err != nil {
		return model.Reservation{}, err
	}
	if err := s.checker.CanCreate(ctx, user, &r); err != nil {
		s.logger.Debug("create refused", "user", user, "error", err)
		return model.Reservation{}, err
	}

	r.ID = s.ids.Generate()
	r.CreatedAt = s.now().UTC().Truncate(time.Millisecond)
	if err := s.store.CreateReservation(ctx, &r); err != nil {
		return model.Reservation{}, fmt.Errorf("create reservation: %w", err)
	}

	s.logger.Info("reservation created", "id", r.ID, "user", user, "reservables", r.Reservables)
	return s.store.GetReservation(ctx, r.ID)
}

// Update replaces the reservation with r.ID by r.
func (s *Service) Update(ctx context.Context, user string, r model.Reservation) (model.Reservation, error) {
	existing, err := s.store.GetReservation(ctx, r.ID)
	if err != nil {
		return model.Reservation{}, err
	}
	if len(r.Owners) == 0 {
		r.Owners = existing.Owners
	}
	r.Normalize()
	if err := r.Validate(); err != nil {
		return model.Reservation{}, err
	}
	if err := s.checker.CanModify(ctx, user, &existing, &r); err != nil {
		s.logger.Debug("update refused", "id", r.ID, "user", user, "error", err)
		return model.Reservation{}, err
	}

	if err := s.store.UpdateReservation(ctx, &r); err != nil {
		return model.Reservation{}, fmt.Errorf("update reservation: %w", err)
	}

	s.logger.Info("reservation updated", "id", r.ID, "user", user)
	return s.store.GetReservation(ctx, r.ID)
}

// Cancel deletes the reservation with the given ID.
func (s *Service) Cancel(ctx context.Context, user, id string) error {
	existing, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checker.CanDelete(ctx, user, &existing); err != nil {
		s.logger.Debug("cancel refused", "id", id, "user", user, "error", err)
		return err
	}
	if err := s.store.DeleteReservation(ctx, id); err != nil {
		return fmt.Errorf("cancel reservation: %w", err)
	}

	s.logger.Info("reservation cancelled", "id", id, "user", user)
	return nil
}
