// Package programming manages the movie catalogue and the room timelines:
// every showtime write goes through the placement rules while holding the
// room lock.
package programming

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinepiu-booking/internal/apperr"
	"github.com/iliyamo/cinepiu-booking/internal/model"
	"github.com/iliyamo/cinepiu-booking/internal/repository"
	"github.com/iliyamo/cinepiu-booking/internal/schedule"
)

// placementLookback bounds how far back the room timeline is read when
// looking for the showtime that precedes a candidate: the longest screening
// a movie may have plus cleaning.
const placementLookback = time.Duration(model.MaxRuntimeMin)*time.Minute + schedule.Buffer

// ScheduleLimit caps the room schedule listing.
const ScheduleLimit = 50

// Service implements catalogue and schedule management.
type Service struct {
	store Store
	now   func() time.Time
	loc   *time.Location
	log   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now, loc: time.UTC, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateMovie stores a new movie with its release dates defaulted.
func (s *Service) CreateMovie(ctx context.Context, in model.MovieInput) (model.Movie, error) {
	m, err := model.NewMovie(in)
	if err != nil {
		return model.Movie{}, err
	}
	if err := s.store.InsertMovie(ctx, &m); err != nil {
		return model.Movie{}, fmt.Errorf("insert movie: %w", err)
	}
	s.log.Info("movie created", zap.Uint64("movie_id", m.ID), zap.String("title", m.Title))
	return m, nil
}

// UpdateMovie edits a movie under its row lock. The local release may not
// move past a day on which the movie is already scheduled, and a longer
// runtime must still fit every remaining showtime in its room.
func (s *Service) UpdateMovie(ctx context.Context, id uint64, in model.MovieInput) (model.Movie, error) {
	var out model.Movie
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := lockMovie(ctx, tx, id, true)
		if err != nil {
			return err
		}
		m, err := cur.Revise(in)
		if err != nil {
			return err
		}
		if m.LocalRelease.After(cur.LocalRelease) {
			first, err := tx.FirstShowtimeStart(ctx, id)
			if err != nil {
				return fmt.Errorf("first showtime: %w", err)
			}
			if first != nil && model.DateOf(*first, s.loc).Before(m.LocalRelease) {
				return apperr.Validation("local_release", apperr.ReasonBeforeLocalRelease,
					fmt.Sprintf("the movie is already scheduled on %s", model.DateOf(*first, s.loc).Format(model.DateLayout)))
			}
		}
		if m.RuntimeMin > cur.RuntimeMin {
			if err := s.refit(ctx, tx, m); err != nil {
				return err
			}
		}
		if err := tx.UpdateMovie(ctx, m); err != nil {
			return fmt.Errorf("update movie: %w", err)
		}
		out = m
		return nil
	})
	if err != nil {
		return model.Movie{}, err
	}
	s.log.Info("movie updated", zap.Uint64("movie_id", id), zap.Int("runtime_min", out.RuntimeMin))
	return out, nil
}

// refit checks that the movie's showtimes still running or ahead fit their
// rooms with the runtime m carries. Conflicts are reported on runtime_min.
func (s *Service) refit(ctx context.Context, tx Tx, m model.Movie) error {
	from := s.now().UTC().Add(-(m.Runtime() + schedule.Buffer))
	list, err := tx.MovieShowtimesFrom(ctx, m.ID, from)
	if err != nil {
		return fmt.Errorf("list showtimes: %w", err)
	}
	rooms := make([]uint64, 0, len(list))
	for _, st := range list {
		rooms = append(rooms, st.RoomID)
	}
	if err := lockRooms(ctx, tx, rooms...); err != nil {
		return err
	}
	for _, st := range list {
		err := s.place(ctx, tx, schedule.Candidate{ShowtimeID: st.ID, StartsAt: st.StartsAt}, m, st.RoomID)
		if e, ok := apperr.As(err); ok && e.Kind == apperr.KindValidation {
			out := apperr.Validation("runtime_min", e.Reason,
				fmt.Sprintf("the showtime of %s would no longer fit: %s",
					st.StartsAt.In(s.loc).Format("2006-01-02 15:04"), e.Message))
			out.Conflict = e.Conflict
			return out
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteMovie removes a movie that has never been scheduled.
func (s *Service) DeleteMovie(ctx context.Context, id uint64) error {
	if _, err := s.movie(ctx, id); err != nil {
		return err
	}
	n, err := s.store.CountShowtimes(ctx, id)
	if err != nil {
		return fmt.Errorf("count showtimes: %w", err)
	}
	if n > 0 {
		return hasShowtimes(n)
	}
	if err := s.store.DeleteMovie(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return apperr.NotFound("movie")
		case errors.Is(err, repository.ErrConflict):
			return hasShowtimes(1)
		}
		return fmt.Errorf("delete movie: %w", err)
	}
	s.log.Info("movie deleted", zap.Uint64("movie_id", id))
	return nil
}

func hasShowtimes(n int) error {
	return apperr.State(apperr.ReasonMovieHasShowtimes,
		fmt.Sprintf("the movie has %d showtime(s), delete them first", n))
}

// CreateShowtime places a new showtime of movieID in roomID.
func (s *Service) CreateShowtime(ctx context.Context, movieID, roomID uint64, startsAt time.Time) (model.Showtime, error) {
	if startsAt.IsZero() {
		return model.Showtime{}, apperr.Validation("starts_at", apperr.ReasonInvalidInput, "start time is required")
	}
	st := model.Showtime{MovieID: movieID, RoomID: roomID, StartsAt: startsAt.UTC()}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		movie, err := lockMovie(ctx, tx, movieID, false)
		if err != nil {
			return err
		}
		if err := lockRooms(ctx, tx, roomID); err != nil {
			return err
		}
		if err := s.place(ctx, tx, schedule.Candidate{StartsAt: st.StartsAt}, movie, roomID); err != nil {
			return err
		}
		if err := tx.InsertShowtime(ctx, &st); err != nil {
			return slotError(err)
		}
		return nil
	})
	if err != nil {
		return model.Showtime{}, err
	}
	s.log.Info("showtime created",
		zap.Uint64("showtime_id", st.ID),
		zap.Uint64("room_id", roomID),
		zap.Time("starts_at", st.StartsAt))
	return st, nil
}

// UpdateShowtime moves a showtime to another start and/or room. A zero
// roomID or startsAt keeps the current value. Showtimes with active
// reservations cannot change room, since the seats belong to the room.
func (s *Service) UpdateShowtime(ctx context.Context, id, roomID uint64, startsAt time.Time) (model.Showtime, error) {
	var out model.Showtime
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := tx.LockShowtime(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("showtime")
			}
			return fmt.Errorf("lock showtime: %w", err)
		}
		movie, err := lockMovie(ctx, tx, cur.MovieID, false)
		if err != nil {
			return err
		}
		next := cur
		if roomID != 0 {
			next.RoomID = roomID
		}
		if !startsAt.IsZero() {
			next.StartsAt = startsAt.UTC()
		}
		if next.RoomID != cur.RoomID {
			n, err := tx.CountActiveReservations(ctx, id)
			if err != nil {
				return fmt.Errorf("count reservations: %w", err)
			}
			if n > 0 {
				return apperr.State(apperr.ReasonHasFutureReservations,
					"the showtime has reservations and cannot change room")
			}
			if err := lockRooms(ctx, tx, cur.RoomID, next.RoomID); err != nil {
				return err
			}
		} else if err := lockRooms(ctx, tx, next.RoomID); err != nil {
			return err
		}
		if err := s.place(ctx, tx, schedule.Candidate{ShowtimeID: id, StartsAt: next.StartsAt}, movie, next.RoomID); err != nil {
			return err
		}
		if err := tx.UpdateShowtime(ctx, next); err != nil {
			return slotError(err)
		}
		out = next
		return nil
	})
	if err != nil {
		return model.Showtime{}, err
	}
	s.log.Info("showtime moved",
		zap.Uint64("showtime_id", id),
		zap.Uint64("room_id", out.RoomID),
		zap.Time("starts_at", out.StartsAt))
	return out, nil
}

// DeleteShowtime removes a showtime and, through the cascade, its
// reservations. A future showtime that still has active reservations is
// kept.
func (s *Service) DeleteShowtime(ctx context.Context, id uint64) error {
	now := s.now().UTC()
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := tx.LockShowtime(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("showtime")
			}
			return fmt.Errorf("lock showtime: %w", err)
		}
		if !cur.StartsAt.Before(now) {
			n, err := tx.CountActiveReservations(ctx, id)
			if err != nil {
				return fmt.Errorf("count reservations: %w", err)
			}
			if n > 0 {
				return apperr.State(apperr.ReasonHasFutureReservations,
					fmt.Sprintf("the showtime has %d active reservation(s)", n))
			}
		}
		return tx.DeleteShowtime(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("showtime deleted", zap.Uint64("showtime_id", id))
	return nil
}

// RoomSchedule returns the room and its next ScheduleLimit showtimes.
func (s *Service) RoomSchedule(ctx context.Context, roomID uint64) (model.Room, []model.ShowtimeDetail, error) {
	room, err := s.store.Room(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Room{}, nil, apperr.NotFound("room")
		}
		return model.Room{}, nil, err
	}
	list, err := s.store.UpcomingByRoom(ctx, roomID, s.now().UTC(), ScheduleLimit)
	if err != nil {
		return model.Room{}, nil, err
	}
	return room, list, nil
}

// place reads the room timeline around the candidate and applies the
// placement rules. The caller holds the room lock.
func (s *Service) place(ctx context.Context, tx Tx, c schedule.Candidate, movie model.Movie, roomID uint64) error {
	span := schedule.OccupiedInterval(movie.Runtime(), c.StartsAt)
	slots, err := tx.SlotsInWindow(ctx, roomID, c.StartsAt.Add(-placementLookback), span.End)
	if err != nil {
		return fmt.Errorf("load room timeline: %w", err)
	}
	return schedule.ValidatePlacement(c, movie, slots, s.loc)
}

func (s *Service) movie(ctx context.Context, id uint64) (model.Movie, error) {
	m, err := s.store.Movie(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Movie{}, apperr.NotFound("movie")
		}
		return model.Movie{}, fmt.Errorf("load movie: %w", err)
	}
	return m, nil
}

func lockMovie(ctx context.Context, tx Tx, id uint64, exclusive bool) (model.Movie, error) {
	m, err := tx.LockMovie(ctx, id, exclusive)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Movie{}, apperr.NotFound("movie")
		}
		return model.Movie{}, fmt.Errorf("lock movie: %w", err)
	}
	return m, nil
}

// lockRooms locks the given rooms once each, in ascending id order.
func lockRooms(ctx context.Context, tx Tx, ids ...uint64) error {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	for _, id := range slices.Compact(ids) {
		if err := tx.LockRoom(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("room")
			}
			return fmt.Errorf("lock room: %w", err)
		}
	}
	return nil
}

func slotError(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperr.Validation("starts_at", apperr.ReasonSlotTaken, "the room already has a showtime at that time")
	}
	return fmt.Errorf("save showtime: %w", err)
}
