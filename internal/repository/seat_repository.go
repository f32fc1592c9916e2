package repository // repository defines data access for seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives

	"github.com/iliyamo/cinepiu-booking/internal/model"
)

// SeatRepo provides methods to work with seats in the database.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// ListByRoom retrieves all seats of a room ordered by row label then seat
// number. Both columns are compared as binary strings so "10" sorts before
// "2", matching how the seats were seeded.
func (r *SeatRepo) ListByRoom(ctx context.Context, roomID uint64) ([]model.Seat, error) {
	const q = `SELECT id, room_id, row_label, seat_number
	           FROM seats
	           WHERE room_id = ?
	           ORDER BY BINARY row_label, BINARY seat_number`
	rows, err := r.db.QueryContext(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSeats(rows)
}

// LockByIDsTx returns the seats among ids that belong to roomID and locks
// them FOR UPDATE until tx ends. Concurrent claims on the same seats queue
// up on these locks. Rows are locked in id order.
func (r *SeatRepo) LockByIDsTx(ctx context.Context, tx *sql.Tx, roomID uint64, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return []model.Seat{}, nil
	}
	q := `SELECT id, room_id, row_label, seat_number
	      FROM seats
	      WHERE room_id = ? AND id IN (` + placeholders(len(ids)) + `)
	      ORDER BY id
	      FOR UPDATE`
	args := append([]any{roomID}, uint64Args(ids)...)
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSeats(rows)
}

func scanSeats(rows *sql.Rows) ([]model.Seat, error) {
	out := make([]model.Seat, 0)
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.RoomID, &s.RowLabel, &s.SeatNumber); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
