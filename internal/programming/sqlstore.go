package programming

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/cinepiu-booking/internal/model"
	"github.com/iliyamo/cinepiu-booking/internal/repository"
	"github.com/iliyamo/cinepiu-booking/internal/schedule"
)

// SQLStore is the MySQL-backed Store.
type SQLStore struct {
	db           *sql.DB
	movies       *repository.MovieRepo
	rooms        *repository.RoomRepo
	showtimes    *repository.ShowtimeRepo
	reservations *repository.ReservationRepo
}

func NewSQLStore(db *sql.DB, movies *repository.MovieRepo, rooms *repository.RoomRepo,
	showtimes *repository.ShowtimeRepo, reservations *repository.ReservationRepo) *SQLStore {
	return &SQLStore{db: db, movies: movies, rooms: rooms, showtimes: showtimes, reservations: reservations}
}

func (s *SQLStore) Movie(ctx context.Context, id uint64) (model.Movie, error) {
	return s.movies.GetByID(ctx, id)
}

func (s *SQLStore) InsertMovie(ctx context.Context, m *model.Movie) error {
	return s.movies.Create(ctx, m)
}

func (s *SQLStore) DeleteMovie(ctx context.Context, id uint64) error {
	return s.movies.Delete(ctx, id)
}

func (s *SQLStore) CountShowtimes(ctx context.Context, movieID uint64) (int, error) {
	return s.movies.CountShowtimes(ctx, movieID)
}

func (s *SQLStore) Room(ctx context.Context, id uint64) (model.Room, error) {
	return s.rooms.GetByID(ctx, id)
}

func (s *SQLStore) UpcomingByRoom(ctx context.Context, roomID uint64, from time.Time, limit int) ([]model.ShowtimeDetail, error) {
	return s.showtimes.ListUpcomingByRoom(ctx, roomID, from, limit)
}

func (s *SQLStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return repository.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(ctx, &sqlTx{tx: tx, s: s})
	})
}

type sqlTx struct {
	tx *sql.Tx
	s  *SQLStore
}

func (t *sqlTx) LockMovie(ctx context.Context, id uint64, exclusive bool) (model.Movie, error) {
	return t.s.movies.LockTx(ctx, t.tx, id, exclusive)
}

func (t *sqlTx) UpdateMovie(ctx context.Context, m model.Movie) error {
	return t.s.movies.UpdateTx(ctx, t.tx, m)
}

func (t *sqlTx) FirstShowtimeStart(ctx context.Context, movieID uint64) (*time.Time, error) {
	return t.s.movies.FirstShowtimeStartTx(ctx, t.tx, movieID)
}

func (t *sqlTx) MovieShowtimesFrom(ctx context.Context, movieID uint64, from time.Time) ([]model.Showtime, error) {
	return t.s.showtimes.ListByMovieFromTx(ctx, t.tx, movieID, from)
}

func (t *sqlTx) LockRoom(ctx context.Context, roomID uint64) error {
	return t.s.rooms.LockTx(ctx, t.tx, roomID)
}

func (t *sqlTx) LockShowtime(ctx context.Context, id uint64) (model.Showtime, error) {
	return t.s.showtimes.LockTx(ctx, t.tx, id)
}

func (t *sqlTx) SlotsInWindow(ctx context.Context, roomID uint64, from, to time.Time) ([]schedule.Slot, error) {
	return t.s.showtimes.SlotsInWindowTx(ctx, t.tx, roomID, from, to)
}

func (t *sqlTx) InsertShowtime(ctx context.Context, st *model.Showtime) error {
	return t.s.showtimes.CreateTx(ctx, t.tx, st)
}

func (t *sqlTx) UpdateShowtime(ctx context.Context, st model.Showtime) error {
	return t.s.showtimes.UpdateTx(ctx, t.tx, st)
}

func (t *sqlTx) DeleteShowtime(ctx context.Context, id uint64) error {
	return t.s.showtimes.DeleteTx(ctx, t.tx, id)
}

func (t *sqlTx) CountActiveReservations(ctx context.Context, showtimeID uint64) (int, error) {
	return t.s.reservations.CountActiveTx(ctx, t.tx, showtimeID)
}
