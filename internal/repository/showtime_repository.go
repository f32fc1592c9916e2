// Package repository contains data access logic. This file covers
// showtimes: a screening of one movie in one room at one instant.
// starts_at is stored as a UTC DATETIME; (room_id, starts_at) is unique.
package repository

import (
	"context"      // context for controlling query lifetime
	"database/sql" // sql provides DB abstraction
	"errors"
	"time"

	"github.com/iliyamo/cinepiu-booking/internal/model"
	"github.com/iliyamo/cinepiu-booking/internal/schedule"
)

// ShowtimeRepo manages persistence for showtimes.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo {
	return &ShowtimeRepo{db: db}
}

// DB exposes the underlying sql.DB so callers can begin transactions that
// span repositories.
func (r *ShowtimeRepo) DB() *sql.DB { return r.db }

const showtimeDetailSelect = `SELECT s.id, s.movie_id, s.room_id, s.starts_at, s.created_at,
	` + movieColumns + `, rm.name
	FROM showtimes s
	JOIN movies m ON m.id = s.movie_id
	JOIN rooms rm ON rm.id = s.room_id`

func scanShowtimeDetail(s rowScanner, d *model.ShowtimeDetail) error {
	m := &d.Movie
	return s.Scan(&d.ID, &d.MovieID, &d.RoomID, &d.StartsAt, &d.CreatedAt,
		&m.ID, &m.Title, &m.Director, &m.Genre, &m.Description, &m.RuntimeMin,
		&m.ReleaseDate, &m.LocalRelease, &m.ProgrammingStart, &m.Festival, &m.CreatedAt, &m.UpdatedAt,
		&d.RoomName)
}

// GetDetail loads a showtime with its movie and room name. It returns
// ErrNotFound if there is no matching row.
func (r *ShowtimeRepo) GetDetail(ctx context.Context, id uint64) (model.ShowtimeDetail, error) {
	return getShowtimeDetail(ctx, r.db, id)
}

// GetDetailTx is GetDetail inside tx.
func (r *ShowtimeRepo) GetDetailTx(ctx context.Context, tx *sql.Tx, id uint64) (model.ShowtimeDetail, error) {
	return getShowtimeDetail(ctx, tx, id)
}

func getShowtimeDetail(ctx context.Context, q queryer, id uint64) (model.ShowtimeDetail, error) {
	var d model.ShowtimeDetail
	err := scanShowtimeDetail(q.QueryRowContext(ctx, showtimeDetailSelect+` WHERE s.id = ?`, id), &d)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ShowtimeDetail{}, ErrNotFound
	}
	return d, err
}

// CreateTx inserts a showtime inside tx and sets its ID. A second showtime
// at the same instant in the same room yields ErrDuplicate.
func (r *ShowtimeRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Showtime) error {
	const q = `INSERT INTO showtimes (movie_id, room_id, starts_at) VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, s.MovieID, s.RoomID, s.StartsAt.UTC())
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// UpdateTx moves a showtime to a new room and/or start.
func (r *ShowtimeRepo) UpdateTx(ctx context.Context, tx *sql.Tx, s model.Showtime) error {
	const q = `UPDATE showtimes SET room_id = ?, starts_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q, s.RoomID, s.StartsAt.UTC(), s.ID); err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// LockTx loads and row-locks a showtime.
func (r *ShowtimeRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Showtime, error) {
	var s model.Showtime
	err := tx.QueryRowContext(ctx,
		`SELECT id, movie_id, room_id, starts_at, created_at FROM showtimes WHERE id = ? FOR UPDATE`, id).
		Scan(&s.ID, &s.MovieID, &s.RoomID, &s.StartsAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Showtime{}, ErrNotFound
	}
	return s, err
}

// DeleteTx removes a showtime; its reservations go with it (ON DELETE CASCADE).
func (r *ShowtimeRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM showtimes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByMovieFromTx returns the movie's showtimes starting at or after
// from, earliest first.
func (r *ShowtimeRepo) ListByMovieFromTx(ctx context.Context, tx *sql.Tx, movieID uint64, from time.Time) ([]model.Showtime, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, movie_id, room_id, starts_at, created_at FROM showtimes
		 WHERE movie_id = ? AND starts_at >= ? ORDER BY starts_at`, movieID, from.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Showtime, 0)
	for rows.Next() {
		var s model.Showtime
		if err := rows.Scan(&s.ID, &s.MovieID, &s.RoomID, &s.StartsAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SlotsInWindowTx returns the room's showtimes starting in [from, to) with
// the title and runtime needed for placement checks. The caller holds the
// room lock.
func (r *ShowtimeRepo) SlotsInWindowTx(ctx context.Context, tx *sql.Tx, roomID uint64, from, to time.Time) ([]schedule.Slot, error) {
	const q = `SELECT s.id, m.title, m.runtime_min, s.starts_at
	           FROM showtimes s
	           JOIN movies m ON m.id = s.movie_id
	           WHERE s.room_id = ? AND s.starts_at >= ? AND s.starts_at < ?
	           ORDER BY s.starts_at`
	rows, err := tx.QueryContext(ctx, q, roomID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]schedule.Slot, 0)
	for rows.Next() {
		var sl schedule.Slot
		if err := rows.Scan(&sl.ShowtimeID, &sl.Title, &sl.RuntimeMin, &sl.StartsAt); err != nil {
			return nil, err
		}
		out = append(out, sl)
	}
	return out, rows.Err()
}

// ListUpcomingByRoom returns at most limit showtimes of the room starting
// at or after from, earliest first.
func (r *ShowtimeRepo) ListUpcomingByRoom(ctx context.Context, roomID uint64, from time.Time, limit int) ([]model.ShowtimeDetail, error) {
	return r.listDetails(ctx, showtimeDetailSelect+`
		WHERE s.room_id = ? AND s.starts_at >= ?
		ORDER BY s.starts_at
		LIMIT ?`, roomID, from.UTC(), limit)
}

// ListUpcomingByMovie returns the movie's showtimes starting at or after from.
func (r *ShowtimeRepo) ListUpcomingByMovie(ctx context.Context, movieID uint64, from time.Time) ([]model.ShowtimeDetail, error) {
	return r.listDetails(ctx, showtimeDetailSelect+`
		WHERE s.movie_id = ? AND s.starts_at >= ?
		ORDER BY s.starts_at`, movieID, from.UTC())
}

func (r *ShowtimeRepo) listDetails(ctx context.Context, q string, args ...any) ([]model.ShowtimeDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ShowtimeDetail, 0)
	for rows.Next() {
		var d model.ShowtimeDetail
		if err := scanShowtimeDetail(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
