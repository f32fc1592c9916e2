package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/cinepiu-booking/internal/model"
)

// ReservationRepo persists reservations. Each row holds one seat for one
// showtime. The table carries a generated column active_seat_id that equals
// seat_id unless the reservation is cancelled, with a unique key on
// (showtime_id, active_seat_id): MySQL enforces at most one non-cancelled
// reservation per seat and showtime, and cancelled rows never collide.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationDetailSelect = `SELECT r.id, r.showtime_id, r.seat_id, r.price_cents, r.user_id,
	r.walk_in_name, r.walk_in_phone, r.status, r.created_at, r.updated_at,
	m.id, m.title, rm.id, rm.name, s.starts_at, se.row_label, se.seat_number
	FROM reservations r
	JOIN showtimes s ON s.id = r.showtime_id
	JOIN movies m ON m.id = s.movie_id
	JOIN rooms rm ON rm.id = s.room_id
	JOIN seats se ON se.id = r.seat_id`

func scanReservationDetail(s rowScanner, d *model.ReservationDetail) error {
	var userID sql.NullInt64
	var status string
	if err := s.Scan(&d.ID, &d.ShowtimeID, &d.SeatID, &d.PriceCents, &userID,
		&d.WalkInName, &d.WalkInPhone, &status, &d.CreatedAt, &d.UpdatedAt,
		&d.MovieID, &d.MovieTitle, &d.RoomID, &d.RoomName, &d.StartsAt, &d.RowLabel, &d.SeatNumber); err != nil {
		return err
	}
	d.Status = model.ReservationStatus(status)
	if userID.Valid {
		uid := uint64(userID.Int64)
		d.UserID = &uid
	}
	return nil
}

// CreateBatchTx inserts the reservations one by one inside tx and returns
// them with IDs set. The first unique-key violation aborts with
// ErrDuplicate; the caller rolls back so nothing of the batch survives.
func (r *ReservationRepo) CreateBatchTx(ctx context.Context, tx *sql.Tx, rs []model.Reservation) ([]model.Reservation, error) {
	const q = `INSERT INTO reservations (showtime_id, seat_id, price_cents, user_id, walk_in_name, walk_in_phone, status, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	out := make([]model.Reservation, 0, len(rs))
	for _, res := range rs {
		var userID any
		if res.UserID != nil {
			userID = *res.UserID
		}
		result, err := tx.ExecContext(ctx, q, res.ShowtimeID, res.SeatID, res.PriceCents, userID,
			res.WalkInName, res.WalkInPhone, string(res.Status), res.CreatedAt.UTC())
		if err != nil {
			if isDuplicate(err) {
				return nil, ErrDuplicate
			}
			return nil, err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, err
		}
		res.ID = uint64(id)
		res.UpdatedAt = res.CreatedAt
		out = append(out, res)
	}
	return out, nil
}

// CountActiveForUserTx counts the user's non-cancelled reservations for the
// showtime, locking them so a concurrent booking by the same user waits.
func (r *ReservationRepo) CountActiveForUserTx(ctx context.Context, tx *sql.Tx, showtimeID, userID uint64) (int, error) {
	const q = `SELECT id FROM reservations
	           WHERE showtime_id = ? AND user_id = ? AND status <> 'CANCELLED'
	           FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, showtimeID, userID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		n++
	}
	return n, rows.Err()
}

// CountActiveTx counts the showtime's non-cancelled reservations.
func (r *ReservationRepo) CountActiveTx(ctx context.Context, tx *sql.Tx, showtimeID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE showtime_id = ? AND status <> 'CANCELLED'`, showtimeID).Scan(&n)
	return n, err
}

// GetDetailForUpdateTx loads one reservation with its context and locks the
// reservation row.
func (r *ReservationRepo) GetDetailForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.ReservationDetail, error) {
	var d model.ReservationDetail
	err := scanReservationDetail(tx.QueryRowContext(ctx, reservationDetailSelect+` WHERE r.id = ? FOR UPDATE OF r`, id), &d)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ReservationDetail{}, ErrNotFound
	}
	return d, err
}

// SetStatusTx changes the reservation's status.
func (r *ReservationRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.ReservationStatus) error {
	res, err := tx.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// OccupiedSeatIDs returns the seats held by a non-cancelled reservation for
// the showtime.
func (r *ReservationRepo) OccupiedSeatIDs(ctx context.Context, showtimeID uint64) (map[uint64]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seat_id FROM reservations WHERE showtime_id = ? AND status <> 'CANCELLED'`, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64]bool)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// ListByUser returns the user's reservations, newest showtime first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.ReservationDetail, error) {
	return r.listDetails(ctx, reservationDetailSelect+`
		WHERE r.user_id = ?
		ORDER BY s.starts_at DESC, BINARY se.row_label, BINARY se.seat_number`, userID)
}

// ListByMovie returns every reservation for the movie's showtimes starting
// at or after from, ordered by showtime then seat, for the box office view.
func (r *ReservationRepo) ListByMovie(ctx context.Context, movieID uint64, from time.Time) ([]model.ReservationDetail, error) {
	return r.listDetails(ctx, reservationDetailSelect+`
		WHERE m.id = ? AND s.starts_at >= ?
		ORDER BY s.starts_at, s.id, BINARY se.row_label, BINARY se.seat_number`, movieID, from.UTC())
}

func (r *ReservationRepo) listDetails(ctx context.Context, q string, args ...any) ([]model.ReservationDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ReservationDetail, 0)
	for rows.Next() {
		var d model.ReservationDetail
		if err := scanReservationDetail(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
