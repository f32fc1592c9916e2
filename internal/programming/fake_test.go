package programming

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/cinepiu-booking/internal/model"
	"github.com/iliyamo/cinepiu-booking/internal/repository"
	"github.com/iliyamo/cinepiu-booking/internal/schedule"
)

// fakeStore keeps everything in maps; one mutex plays the room locks.
type fakeStore struct {
	mu        sync.Mutex
	movies    map[uint64]model.Movie
	rooms     map[uint64]model.Room
	showtimes map[uint64]model.Showtime
	active    map[uint64]int // active reservations per showtime
	nextID    uint64
	locked    []uint64
	movieLock []bool // exclusive flag of each LockMovie call in the last tx
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		movies:    map[uint64]model.Movie{},
		rooms:     map[uint64]model.Room{1: {ID: 1, Name: "Sala 1"}, 2: {ID: 2, Name: "Sala 2"}},
		showtimes: map[uint64]model.Showtime{},
		active:    map[uint64]int{},
		nextID:    100,
	}
}

func (f *fakeStore) id() uint64 { f.nextID++; return f.nextID }

func (f *fakeStore) Movie(_ context.Context, id uint64) (model.Movie, error) {
	m, ok := f.movies[id]
	if !ok {
		return model.Movie{}, repository.ErrNotFound
	}
	return m, nil
}

func (f *fakeStore) InsertMovie(_ context.Context, m *model.Movie) error {
	m.ID = f.id()
	f.movies[m.ID] = *m
	return nil
}

func (f *fakeStore) DeleteMovie(_ context.Context, id uint64) error {
	for _, s := range f.showtimes {
		if s.MovieID == id {
			return repository.ErrConflict
		}
	}
	delete(f.movies, id)
	return nil
}

func (f *fakeStore) CountShowtimes(_ context.Context, movieID uint64) (int, error) {
	n := 0
	for _, s := range f.showtimes {
		if s.MovieID == movieID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Room(_ context.Context, id uint64) (model.Room, error) {
	r, ok := f.rooms[id]
	if !ok {
		return model.Room{}, repository.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) UpcomingByRoom(_ context.Context, roomID uint64, from time.Time, limit int) ([]model.ShowtimeDetail, error) {
	var out []model.ShowtimeDetail
	for _, s := range f.showtimes {
		if s.RoomID == roomID && !s.StartsAt.Before(from) {
			out = append(out, model.ShowtimeDetail{Showtime: s, Movie: f.movies[s.MovieID], RoomName: f.rooms[roomID].Name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = nil
	f.movieLock = nil
	showtimes := maps.Clone(f.showtimes)
	movies := maps.Clone(f.movies)
	if err := fn(ctx, fakeTx{f}); err != nil {
		f.showtimes = showtimes
		f.movies = movies
		return err
	}
	return nil
}

type fakeTx struct{ f *fakeStore }

func (t fakeTx) LockMovie(_ context.Context, id uint64, exclusive bool) (model.Movie, error) {
	m, ok := t.f.movies[id]
	if !ok {
		return model.Movie{}, repository.ErrNotFound
	}
	t.f.movieLock = append(t.f.movieLock, exclusive)
	return m, nil
}

func (t fakeTx) UpdateMovie(_ context.Context, m model.Movie) error {
	t.f.movies[m.ID] = m
	return nil
}

func (t fakeTx) FirstShowtimeStart(_ context.Context, movieID uint64) (*time.Time, error) {
	var first *time.Time
	for _, s := range t.f.showtimes {
		if s.MovieID == movieID && (first == nil || s.StartsAt.Before(*first)) {
			st := s.StartsAt
			first = &st
		}
	}
	return first, nil
}

func (t fakeTx) MovieShowtimesFrom(_ context.Context, movieID uint64, from time.Time) ([]model.Showtime, error) {
	var out []model.Showtime
	for _, s := range t.f.showtimes {
		if s.MovieID == movieID && !s.StartsAt.Before(from) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (t fakeTx) LockRoom(_ context.Context, roomID uint64) error {
	if _, ok := t.f.rooms[roomID]; !ok {
		return repository.ErrNotFound
	}
	t.f.locked = append(t.f.locked, roomID)
	return nil
}

func (t fakeTx) LockShowtime(_ context.Context, id uint64) (model.Showtime, error) {
	s, ok := t.f.showtimes[id]
	if !ok {
		return model.Showtime{}, repository.ErrNotFound
	}
	return s, nil
}

func (t fakeTx) SlotsInWindow(_ context.Context, roomID uint64, from, to time.Time) ([]schedule.Slot, error) {
	var out []schedule.Slot
	for _, s := range t.f.showtimes {
		if s.RoomID == roomID && !s.StartsAt.Before(from) && s.StartsAt.Before(to) {
			m := t.f.movies[s.MovieID]
			out = append(out, schedule.Slot{ShowtimeID: s.ID, Title: m.Title, RuntimeMin: m.RuntimeMin, StartsAt: s.StartsAt})
		}
	}
	return out, nil
}

func (t fakeTx) clash(s model.Showtime) bool {
	for _, o := range t.f.showtimes {
		if o.ID != s.ID && o.RoomID == s.RoomID && o.StartsAt.Equal(s.StartsAt) {
			return true
		}
	}
	return false
}

func (t fakeTx) InsertShowtime(_ context.Context, s *model.Showtime) error {
	if t.clash(*s) {
		return repository.ErrDuplicate
	}
	s.ID = t.f.id()
	t.f.showtimes[s.ID] = *s
	return nil
}

func (t fakeTx) UpdateShowtime(_ context.Context, s model.Showtime) error {
	if t.clash(s) {
		return repository.ErrDuplicate
	}
	t.f.showtimes[s.ID] = s
	return nil
}

func (t fakeTx) DeleteShowtime(_ context.Context, id uint64) error {
	delete(t.f.showtimes, id)
	delete(t.f.active, id)
	return nil
}

func (t fakeTx) CountActiveReservations(_ context.Context, showtimeID uint64) (int, error) {
	return t.f.active[showtimeID], nil
}
