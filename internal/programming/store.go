package programming

import (
	"context"
	"time"

	"github.com/iliyamo/cinepiu-booking/internal/model"
	"github.com/iliyamo/cinepiu-booking/internal/schedule"
)

// Store is the persistence the programming service needs. Missing rows are
// reported as repository.ErrNotFound.
type Store interface {
	Movie(ctx context.Context, id uint64) (model.Movie, error)
	InsertMovie(ctx context.Context, m *model.Movie) error
	// DeleteMovie returns repository.ErrConflict when showtimes still
	// reference the movie.
	DeleteMovie(ctx context.Context, id uint64) error
	CountShowtimes(ctx context.Context, movieID uint64) (int, error)
	Room(ctx context.Context, id uint64) (model.Room, error)
	UpcomingByRoom(ctx context.Context, roomID uint64, from time.Time, limit int) ([]model.ShowtimeDetail, error)
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the unit of work for movie edits and showtime writes. Locks are
// taken movie first, then rooms in ascending id order. The room row lock
// serialises every placement decision for that room.
type Tx interface {
	// LockMovie loads the movie under an exclusive lock (movie edits) or a
	// shared one (showtime writes).
	LockMovie(ctx context.Context, id uint64, exclusive bool) (model.Movie, error)
	UpdateMovie(ctx context.Context, m model.Movie) error
	FirstShowtimeStart(ctx context.Context, movieID uint64) (*time.Time, error)
	// MovieShowtimesFrom returns the movie's showtimes starting at or after from.
	MovieShowtimesFrom(ctx context.Context, movieID uint64, from time.Time) ([]model.Showtime, error)
	LockRoom(ctx context.Context, roomID uint64) error
	LockShowtime(ctx context.Context, id uint64) (model.Showtime, error)
	// SlotsInWindow returns the room's showtimes starting in [from, to).
	SlotsInWindow(ctx context.Context, roomID uint64, from, to time.Time) ([]schedule.Slot, error)
	// InsertShowtime and UpdateShowtime return repository.ErrDuplicate when
	// the room already has a showtime at that instant.
	InsertShowtime(ctx context.Context, s *model.Showtime) error
	UpdateShowtime(ctx context.Context, s model.Showtime) error
	DeleteShowtime(ctx context.Context, id uint64) error
	CountActiveReservations(ctx context.Context, showtimeID uint64) (int, error)
}
