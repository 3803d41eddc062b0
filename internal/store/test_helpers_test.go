package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/slotgrid/internal/model"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedCatalog stores two rooms and a car, each with a projector count,
// grouped in the "lab" set.
func seedCatalog(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.PutResource(ctx, &model.Resource{Slug: "projector", Type: "av", Name: "Projector"}))
	require.NoError(t, s.PutResource(ctx, &model.Resource{Slug: "seat", Type: "furniture", Name: "Seat"}))

	for _, r := range []model.Reservable{
		{Slug: "room-a", Type: "room", Name: "Room A", Resources: []model.NResources{{Resource: "projector", N: 1}, {Resource: "seat", N: 8}}},
		{Slug: "room-b", Type: "room", Name: "Room B", Resources: []model.NResources{{Resource: "seat", N: 4}}},
		{Slug: "van", Type: "car", Name: "Van"},
	} {
		r := r
		require.NoError(t, s.PutReservable(ctx, &r))
	}

	require.NoError(t, s.PutReservableSet(ctx, &model.ReservableSet{
		Slug: "lab", Name: "Lab", Reservables: []string{"room-a", "room-b", "van"},
	}))
}

// at returns 2024-05-06 at the given hour and minute, UTC.
func at(hour, minute int) time.Time {
	return time.Date(2024, 5, 6, hour, minute, 0, 0, time.UTC)
}

func testReservation(id string, start, end time.Time, owner string, reservables ...string) *model.Reservation {
	return &model.Reservation{
		ID:           id,
		Reason:       "meeting " + id,
		Start:        start,
		End:          end,
		Owners:       []string{owner},
		Reservables:  reservables,
		Requirements: []model.NRequirement{},
		CreatedAt:    at(0, 0),
	}
}
