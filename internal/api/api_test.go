package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotgrid/internal/booking"
	"github.com/roach88/slotgrid/internal/fixture"
	"github.com/roach88/slotgrid/internal/model"
	"github.com/roach88/slotgrid/internal/store"
	"github.com/roach88/slotgrid/internal/testutil"
	"github.com/roach88/slotgrid/internal/timeview"
)

var day = time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.PutResource(ctx, &model.Resource{Slug: "projector", Type: "av", Name: "Projector"}))
	for _, r := range []model.Reservable{
		{Slug: "room-a", Type: "room", Name: "Room A", Resources: []model.NResources{{Resource: "projector", N: 1}}},
		{Slug: "room-b", Type: "room", Name: "Room B"},
		{Slug: "van", Type: "car", Name: "Van"},
	} {
		r := r
		require.NoError(t, s.PutReservable(ctx, &r))
		for _, user := range []string{"alice", "bob"} {
			require.NoError(t, s.Grant(ctx, model.Grant{User: user, Reservable: r.Slug, Permission: model.PermReserve}))
		}
	}
	require.NoError(t, s.PutReservableSet(ctx, &model.ReservableSet{
		Slug: "lab", Name: "Lab", Reservables: []string{"room-a", "room-b", "van"},
	}))

	api := &API{
		Store: s,
		Booking: booking.New(s,
			booking.WithIDGenerator(model.NewSequentialGenerator("res")),
			booking.WithClock(testutil.NewStepClock(day, time.Second).Now),
		),
		Zoom: timeview.ZoomHour,
		Now:  func() time.Time { return day.Add(9 * time.Hour) },
	}
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return srv, s
}

func do(t *testing.T, srv *httptest.Server, method, path, user string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User", user)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func booking9to10(reservables ...string) ReservationBody {
	return ReservationBody{
		Reason:      "stand-up",
		Start:       day.Add(9 * time.Hour),
		End:         day.Add(10 * time.Hour),
		Reservables: reservables,
	}
}

func TestCatalogueLists(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := do(t, srv, http.MethodGet, "/resources", "", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Len(t, decode[[]model.Resource](t, body), 1)

	status, body = do(t, srv, http.MethodGet, "/reservables?type=room&ordering=-slug", "", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	got := decode[[]model.Reservable](t, body)
	require.Len(t, got, 2)
	assert.Equal(t, "room-b", got[0].Slug)

	status, body = do(t, srv, http.MethodGet, "/sets", "", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	sets := decode[[]model.ReservableSet](t, body)
	require.Len(t, sets, 1)
	assert.Equal(t, []string{"room-a", "room-b", "van"}, sets[0].Reservables)
}

func TestSetTypes(t *testing.T) {
	srv, s := newTestServer(t)
	require.NoError(t, s.PutReservableSet(context.Background(), &model.ReservableSet{Slug: "empty", Name: "Empty"}))

	status, body := do(t, srv, http.MethodGet, "/sets/lab/types", "", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, []string{"car", "room"}, decode[[]string](t, body))

	status, body = do(t, srv, http.MethodGet, "/sets/empty/types", "", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Empty(t, decode[[]string](t, body))

	status, _ = do(t, srv, http.MethodGet, "/sets/nowhere/types", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSetTypeReservables(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := do(t, srv, http.MethodGet, "/sets/lab/types/room/reservables", "", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	got := decode[[]model.Reservable](t, body)
	require.Len(t, got, 2)
	assert.Equal(t, "room-a", got[0].Slug)
	assert.Equal(t, "room-b", got[1].Slug)

	status, body = do(t, srv, http.MethodGet, "/sets/lab/types/boat/reservables", "", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Empty(t, decode[[]model.Reservable](t, body))

	status, _ = do(t, srv, http.MethodGet, "/sets/nowhere/types/room/reservables", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUnknownFilterIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := do(t, srv, http.MethodGet, "/reservables?colour=red", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "colour")

	status, _ = do(t, srv, http.MethodGet, "/reservations?start__gte=yesterday", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestReservationLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/reservations", "alice", booking9to10("room-a"))
	require.Equal(t, http.StatusCreated, status, string(body))
	created := decode[model.Reservation](t, body)
	assert.Equal(t, "res-1", created.ID)
	assert.Equal(t, []string{"alice"}, created.Owners)

	status, body = do(t, srv, http.MethodGet, "/reservations/res-1", "", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, "stand-up", decode[model.Reservation](t, body).Reason)

	status, body = do(t, srv, http.MethodGet, "/reservations?owners=alice", "", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Len(t, decode[[]model.Reservation](t, body), 1)

	update := booking9to10("room-a")
	update.Reason = "retro"
	status, body = do(t, srv, http.MethodPut, "/reservations/res-1", "alice", update)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, "retro", decode[model.Reservation](t, body).Reason)

	status, _ = do(t, srv, http.MethodDelete, "/reservations/res-1", "bob", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = do(t, srv, http.MethodDelete, "/reservations/res-1", "alice", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = do(t, srv, http.MethodGet, "/reservations/res-1", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreateRejections(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/reservations", "alice", booking9to10("room-a"))
	require.Equal(t, http.StatusCreated, status, string(body))

	tests := []struct {
		name   string
		user   string
		body   ReservationBody
		status int
	}{
		{"anonymous", "", booking9to10("room-b"), http.StatusUnauthorized},
		{"double booking", "bob", booking9to10("room-a"), http.StatusForbidden},
		{"no reserve grant", "carol", booking9to10("room-b"), http.StatusForbidden},
		{"unknown reservable", "alice", booking9to10("attic"), http.StatusNotFound},
		{"empty interval", "alice", ReservationBody{
			Reason: "x", Start: day, End: day, Reservables: []string{"room-b"},
		}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, srv, http.MethodPost, "/reservations", tt.user, tt.body)
			assert.Equal(t, tt.status, status, string(body))
		})
	}
}

func TestTimeView(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/reservations", "alice", booking9to10("room-a", "room-b"))
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = do(t, srv, http.MethodGet, "/sets/lab/types/room/time_view?start=2024-05-06T13:00:00Z", "", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	view := decode[timeview.View](t, body)
	assert.Equal(t, timeview.ZoomHour, view.Zoom)
	assert.True(t, view.Start.Equal(day))
	require.Len(t, view.Rows, 2)
	for _, row := range view.Rows {
		require.Len(t, row.Bars, 1)
		assert.Equal(t, "res-1", row.Bars[0].Reservation)
		assert.Equal(t, timeview.CellSingle, row.Cells[9].State)
	}

	// Without start the window holds the current time.
	status, body = do(t, srv, http.MethodGet, "/sets/lab/types/car/time_view?zoom=day", "", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	view = decode[timeview.View](t, body)
	assert.Equal(t, timeview.ZoomDay, view.Zoom)
	assert.Len(t, view.Rows, 1)

	status, _ = do(t, srv, http.MethodGet, "/sets/lab/types/room/time_view?zoom=month", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, srv, http.MethodGet, "/sets/lab/types/room/time_view?start=soon", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, srv, http.MethodGet, "/sets/attic/types/room/time_view", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMyReservations(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, create := range []struct {
		user        string
		reservables []string
	}{
		{"alice", []string{"room-a"}},
		{"alice", []string{"van"}},
		{"bob", []string{"room-b"}},
	} {
		status, body := do(t, srv, http.MethodPost, "/reservations", create.user, booking9to10(create.reservables...))
		require.Equal(t, http.StatusCreated, status, string(body))
	}

	status, body := do(t, srv, http.MethodGet, "/sets/lab/types/room/my_reservations", "alice", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	mine := decode[[]model.Reservation](t, body)
	require.Len(t, mine, 1)
	assert.Equal(t, []string{"room-a"}, mine[0].Reservables)

	status, _ = do(t, srv, http.MethodGet, "/sets/lab/types/room/my_reservations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLayoutAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/layout", "", fixture.LayoutInput{
		Allocations: []fixture.LayoutItem{
			{Name: "a", Start: "0", End: "10"},
			{Name: "b", Start: "5", End: "15"},
			{Name: "c", Start: "10", End: "20"},
		},
	})
	require.Equal(t, http.StatusOK, status, string(body))
	got := decode[[]fixture.LayoutResult](t, body)
	require.Len(t, got, 3)
	assert.Equal(t, []int{0, 1, 0}, []int{got[0].Index, got[1].Index, got[2].Index})
	assert.Equal(t, []int{1, 1, 1}, []int{got[0].MaxIndex, got[1].MaxIndex, got[2].MaxIndex})

	status, body = do(t, srv, http.MethodPost, "/layout", "", fixture.LayoutInput{
		Allocations: []fixture.LayoutItem{{Name: "bad", Start: "9", End: "1"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status, string(body))

	status, body = do(t, srv, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `slotgrid_api_requests_total{operation="layout",status="200"} 1`)
	assert.Contains(t, string(body), `slotgrid_api_requests_total{operation="layout",status="422"} 1`)
	assert.Contains(t, string(body), "slotgrid_layout_allocations_total 3")
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "run.db"))
	require.NoError(t, err)
	defer s.Close()

	api := &API{Store: s, Booking: booking.New(s), ShutdownTimeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- api.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunFailsWhenAddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s, err := store.Open(filepath.Join(t.TempDir(), "run.db"))
	require.NoError(t, err)
	defer s.Close()

	api := &API{Store: s, Booking: booking.New(s), ShutdownTimeout: time.Second}

	done := make(chan error, 1)
	go func() { done <- api.Run(context.Background(), ln.Addr().String()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "serving http")
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return when the address was taken")
	}
}
