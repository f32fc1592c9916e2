package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/cinepiu-booking/internal/model"
)

// MovieRepo manages persistence for movies.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo constructs a MovieRepo with the given DB handle.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

const movieColumns = `m.id, m.title, m.director, m.genre, m.description, m.runtime_min,
	m.release_date, m.local_release, m.programming_start, m.festival, m.created_at, m.updated_at`

func scanMovie(s rowScanner, m *model.Movie) error {
	return s.Scan(&m.ID, &m.Title, &m.Director, &m.Genre, &m.Description, &m.RuntimeMin,
		&m.ReleaseDate, &m.LocalRelease, &m.ProgrammingStart, &m.Festival, &m.CreatedAt, &m.UpdatedAt)
}

// Create inserts a movie built by model.NewMovie and sets its ID.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	const q = `INSERT INTO movies (title, director, genre, description, runtime_min, release_date, local_release, programming_start, festival)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, m.Title, m.Director, m.Genre, m.Description, m.RuntimeMin,
		m.ReleaseDate, m.LocalRelease, m.ProgrammingStart, m.Festival)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// UpdateTx overwrites every editable column of the movie. The caller holds
// the row lock taken by LockTx.
func (r *MovieRepo) UpdateTx(ctx context.Context, tx *sql.Tx, m model.Movie) error {
	const q = `UPDATE movies SET title = ?, director = ?, genre = ?, description = ?, runtime_min = ?,
	           release_date = ?, local_release = ?, programming_start = ?, festival = ?
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, m.Title, m.Director, m.Genre, m.Description, m.RuntimeMin,
		m.ReleaseDate, m.LocalRelease, m.ProgrammingStart, m.Festival, m.ID)
	return err
}

// LockTx loads a movie and locks its row. Movie edits take the exclusive
// lock; showtime writes take the shared one, so they see a stable runtime
// and local release while still running side by side.
func (r *MovieRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64, exclusive bool) (model.Movie, error) {
	lock := ` LOCK IN SHARE MODE`
	if exclusive {
		lock = ` FOR UPDATE`
	}
	var m model.Movie
	err := scanMovie(tx.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies m WHERE m.id = ?`+lock, id), &m)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Movie{}, ErrNotFound
	}
	return m, err
}

// GetByID returns ErrNotFound when no movie has that id.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (model.Movie, error) {
	var m model.Movie
	err := scanMovie(r.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies m WHERE m.id = ?`, id), &m)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Movie{}, ErrNotFound
	}
	return m, err
}

// Delete removes a movie. Showtimes reference movies with ON DELETE
// RESTRICT; a movie that still has showtimes yields ErrConflict.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		if isReferenced(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountShowtimes counts all showtimes of the movie, past ones included.
func (r *MovieRepo) CountShowtimes(ctx context.Context, id uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM showtimes WHERE movie_id = ?`, id).Scan(&n)
	return n, err
}

// FirstShowtimeStartTx returns the earliest start among the movie's
// showtimes, or nil when it has none.
func (r *MovieRepo) FirstShowtimeStartTx(ctx context.Context, tx *sql.Tx, id uint64) (*time.Time, error) {
	var first sql.NullTime
	if err := tx.QueryRowContext(ctx,
		`SELECT MIN(starts_at) FROM showtimes WHERE movie_id = ?`, id).Scan(&first); err != nil {
		return nil, err
	}
	if !first.Valid {
		return nil, nil
	}
	t := first.Time.UTC()
	return &t, nil
}

// HasFutureShowtime reports whether the movie is scheduled at or after now.
func (r *MovieRepo) HasFutureShowtime(ctx context.Context, id uint64, now time.Time) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM showtimes WHERE movie_id = ? AND starts_at >= ? LIMIT 1`, id, now).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// ListInProgramming returns regular movies whose programming has started
// (on the given calendar day) and that still have a showtime ahead.
func (r *MovieRepo) ListInProgramming(ctx context.Context, today, now time.Time) ([]model.Movie, error) {
	const q = `SELECT ` + movieColumns + `
	           FROM movies m
	           WHERE m.festival = 0 AND m.programming_start <= ?
	             AND EXISTS (SELECT 1 FROM showtimes s WHERE s.movie_id = m.id AND s.starts_at >= ?)
	           ORDER BY m.title`
	return r.list(ctx, q, today, now)
}

// ListFestival returns festival movies that still have a showtime ahead.
func (r *MovieRepo) ListFestival(ctx context.Context, now time.Time) ([]model.Movie, error) {
	const q = `SELECT ` + movieColumns + `
	           FROM movies m
	           WHERE m.festival = 1
	             AND EXISTS (SELECT 1 FROM showtimes s WHERE s.movie_id = m.id AND s.starts_at >= ?)
	           ORDER BY m.title`
	return r.list(ctx, q, now)
}

// ListUpcoming returns regular movies whose programming starts after today.
func (r *MovieRepo) ListUpcoming(ctx context.Context, today time.Time) ([]model.Movie, error) {
	const q = `SELECT ` + movieColumns + `
	           FROM movies m
	           WHERE m.festival = 0 AND m.programming_start > ?
	           ORDER BY m.programming_start, m.title`
	return r.list(ctx, q, today)
}

// SearchByTitle returns up to limit movies whose title contains q,
// case-insensitively.
func (r *MovieRepo) SearchByTitle(ctx context.Context, q string, limit int) ([]model.Movie, error) {
	const sqlQ = `SELECT ` + movieColumns + `
	              FROM movies m
	              WHERE LOWER(m.title) LIKE ? ESCAPE '\\'
	              ORDER BY m.title
	              LIMIT ?`
	return r.list(ctx, sqlQ, "%"+escapeLike(strings.ToLower(q))+"%", limit)
}

func (r *MovieRepo) list(ctx context.Context, q string, args ...any) ([]model.Movie, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Movie, 0)
	for rows.Next() {
		var m model.Movie
		if err := scanMovie(rows, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
