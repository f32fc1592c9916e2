package handler

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinepiu-booking/internal/booking"
	"github.com/iliyamo/cinepiu-booking/internal/middleware"
	"github.com/iliyamo/cinepiu-booking/internal/model"
	"github.com/iliyamo/cinepiu-booking/internal/repository"
)

// newCtx builds an echo context for a handler call. params alternate
// name, value.
func newCtx(method, target, body string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c, rec
}

func signIn(c echo.Context, uid uint64, role model.Role) {
	c.Set(middleware.UserIDKey, uid)
	c.Set(middleware.RoleKey, role)
}


type fakeUsers struct {
	mu      sync.Mutex
	byID    map[uint64]model.User
	created []repository.NewUser
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{byID: map[uint64]model.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, in repository.NewUser, _ int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == in.Email {
			return 0, repository.ErrEmailExists
		}
	}
	f.created = append(f.created, in)
	id := uint64(len(f.byID) + 100)
	f.byID[id] = model.User{ID: id, Email: in.Email, Role: in.Role, Phone: in.Phone, IsActive: true}
	return id, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

type fakeTokens struct {
	mu      sync.Mutex
	live    map[string]uint64
	revoked []string
	allFor  []uint64
}

func newFakeTokens() *fakeTokens { return &fakeTokens{live: map[string]uint64{}} }

func (f *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live[hash] = userID
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string, _ time.Time) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.live[hash]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return id, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.live, hash)
	f.revoked = append(f.revoked, hash)
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allFor = append(f.allFor, userID)
	return nil
}

// fakeBooker records the last call and returns canned results.
type fakeBooker struct {
	req      booking.Request
	conf     *booking.Confirmation
	detail   model.ReservationDetail
	err      error
	lastOp   string
	lastBy   model.Principal
	cutoffAt time.Time
}

func (f *fakeBooker) Book(_ context.Context, req booking.Request) (*booking.Confirmation, error) {
	f.req = req
	f.lastOp = "book"
	return f.conf, f.err
}

func (f *fakeBooker) op(name string, id uint64, p model.Principal) (model.ReservationDetail, error) {
	f.lastOp = name
	f.lastBy = p
	if f.err != nil {
		return model.ReservationDetail{}, f.err
	}
	d := f.detail
	d.ID = id
	return d, nil
}

func (f *fakeBooker) Cancel(_ context.Context, id uint64, p model.Principal) (model.ReservationDetail, error) {
	return f.op("cancel", id, p)
}

func (f *fakeBooker) CancelAsStaff(_ context.Context, id uint64, p model.Principal) (model.ReservationDetail, error) {
	return f.op("staff_cancel", id, p)
}

func (f *fakeBooker) MarkPaid(_ context.Context, id uint64, p model.Principal) (model.ReservationDetail, error) {
	return f.op("pay", id, p)
}

// Cancellable treats reservations starting after cutoffAt as cancellable.
func (f *fakeBooker) Cancellable(d model.ReservationDetail) bool {
	return d.Active() && d.StartsAt.After(f.cutoffAt)
}

type fakeReservations struct {
	byUser   []model.ReservationDetail
	byMovie  []model.ReservationDetail
	gotFrom  time.Time
	gotUser  uint64
	occupied map[uint64]bool
}

func (f *fakeReservations) ListByUser(_ context.Context, userID uint64) ([]model.ReservationDetail, error) {
	f.gotUser = userID
	return f.byUser, nil
}

func (f *fakeReservations) ListByMovie(_ context.Context, _ uint64, from time.Time) ([]model.ReservationDetail, error) {
	f.gotFrom = from
	return f.byMovie, nil
}

func (f *fakeReservations) OccupiedSeatIDs(context.Context, uint64) (map[uint64]bool, error) {
	if f.occupied == nil {
		return map[uint64]bool{}, nil
	}
	return f.occupied, nil
}

type fakeMovies struct {
	movies    map[uint64]model.Movie
	searched  string
	listErr   error
	searchHit int
}

func (f *fakeMovies) GetByID(_ context.Context, id uint64) (model.Movie, error) {
	m, ok := f.movies[id]
	if !ok {
		return model.Movie{}, repository.ErrNotFound
	}
	return m, nil
}

func (f *fakeMovies) HasFutureShowtime(context.Context, uint64, time.Time) (bool, error) {
	return false, nil
}

func (f *fakeMovies) all() []model.Movie {
	out := make([]model.Movie, 0, len(f.movies))
	for _, m := range f.movies {
		out = append(out, m)
	}
	return out
}

func (f *fakeMovies) ListInProgramming(context.Context, time.Time, time.Time) ([]model.Movie, error) {
	return f.all(), f.listErr
}

func (f *fakeMovies) ListFestival(context.Context, time.Time) ([]model.Movie, error) {
	return f.all(), f.listErr
}

func (f *fakeMovies) ListUpcoming(context.Context, time.Time) ([]model.Movie, error) {
	return f.all(), f.listErr
}

func (f *fakeMovies) SearchByTitle(_ context.Context, q string, _ int) ([]model.Movie, error) {
	f.searched = q
	f.searchHit++
	return f.all(), nil
}

type fakeShowtimes struct {
	details map[uint64]model.ShowtimeDetail
	byMovie []model.ShowtimeDetail
}

func (f *fakeShowtimes) GetDetail(_ context.Context, id uint64) (model.ShowtimeDetail, error) {
	d, ok := f.details[id]
	if !ok {
		return model.ShowtimeDetail{}, repository.ErrNotFound
	}
	return d, nil
}

func (f *fakeShowtimes) ListUpcomingByMovie(context.Context, uint64, time.Time) ([]model.ShowtimeDetail, error) {
	return f.byMovie, nil
}

type fakeSeats struct{ seats []model.Seat }

func (f *fakeSeats) ListByRoom(context.Context, uint64) ([]model.Seat, error) {
	out := make([]model.Seat, len(f.seats))
	copy(out, f.seats)
	return out, nil
}

type fakePurger struct{ n int }

func (f *fakePurger) Purge(context.Context) error {
	f.n++
	return nil
}

type fakeRooms struct {
	rooms   []model.Room
	created []model.Seat
	dupName string
}

func (f *fakeRooms) List(context.Context) ([]model.Room, error) { return f.rooms, nil }

func (f *fakeRooms) Create(_ context.Context, name string, seats []model.Seat) (uint64, error) {
	if name == f.dupName {
		return 0, repository.ErrDuplicate
	}
	f.created = seats
	return 9, nil
}

// fakeProgrammer records the arguments of the last showtime call.
type fakeProgrammer struct {
	movieIn  model.MovieInput
	roomID   uint64
	startsAt time.Time
	err      error
}

func (f *fakeProgrammer) CreateMovie(_ context.Context, in model.MovieInput) (model.Movie, error) {
	f.movieIn = in
	if f.err != nil {
		return model.Movie{}, f.err
	}
	return model.NewMovie(in)
}

func (f *fakeProgrammer) UpdateMovie(_ context.Context, id uint64, in model.MovieInput) (model.Movie, error) {
	f.movieIn = in
	return model.Movie{ID: id, Title: in.Title}, f.err
}

func (f *fakeProgrammer) DeleteMovie(context.Context, uint64) error { return f.err }

func (f *fakeProgrammer) CreateShowtime(_ context.Context, movieID, roomID uint64, startsAt time.Time) (model.Showtime, error) {
	f.roomID, f.startsAt = roomID, startsAt
	if f.err != nil {
		return model.Showtime{}, f.err
	}
	return model.Showtime{ID: 1, MovieID: movieID, RoomID: roomID, StartsAt: startsAt}, nil
}

func (f *fakeProgrammer) UpdateShowtime(_ context.Context, id, roomID uint64, startsAt time.Time) (model.Showtime, error) {
	f.roomID, f.startsAt = roomID, startsAt
	return model.Showtime{ID: id, RoomID: roomID, StartsAt: startsAt}, f.err
}

func (f *fakeProgrammer) DeleteShowtime(context.Context, uint64) error { return f.err }

func (f *fakeProgrammer) RoomSchedule(_ context.Context, roomID uint64) (model.Room, []model.ShowtimeDetail, error) {
	if f.err != nil {
		return model.Room{}, nil, f.err
	}
	return model.Room{ID: roomID, Name: "Sala 1"}, nil, nil
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

var errBoom = errors.New("boom")
