package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/cinepiu-booking/internal/model"
)

// RoomRepo persists screening rooms. A room is created together with its
// seats and neither changes afterwards.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// GetByID returns ErrNotFound when the room does not exist.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (model.Room, error) {
	var rm model.Room
	err := r.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM rooms WHERE id = ?`, id).
		Scan(&rm.ID, &rm.Name, &rm.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Room{}, ErrNotFound
	}
	return rm, err
}

// List returns all rooms ordered by name.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM rooms ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Room, 0)
	for rows.Next() {
		var rm model.Room
		if err := rows.Scan(&rm.ID, &rm.Name, &rm.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

// LockTx takes a row lock on the room. Every showtime write for a room
// holds this lock while it reads and changes the room's timeline.
func (r *RoomRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	var got uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM rooms WHERE id = ? FOR UPDATE`, id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Create inserts the room and its seats in one transaction and returns the
// room ID. A duplicate room name yields ErrDuplicate.
func (r *RoomRepo) Create(ctx context.Context, name string, seats []model.Seat) (uint64, error) {
	var id uint64
	err := WithinTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO rooms (name) VALUES (?)`, name)
		if err != nil {
			if isDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}
		lastID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		id = uint64(lastID)
		return insertSeatsTx(ctx, tx, id, seats)
	})
	return id, err
}

// seatBatch bounds the rows per INSERT statement.
const seatBatch = 500

func insertSeatsTx(ctx context.Context, tx *sql.Tx, roomID uint64, seats []model.Seat) error {
	for start := 0; start < len(seats); start += seatBatch {
		end := min(start+seatBatch, len(seats))
		var b strings.Builder
		b.WriteString(`INSERT INTO seats (room_id, row_label, seat_number) VALUES `)
		args := make([]any, 0, 3*(end-start))
		for i, s := range seats[start:end] {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString("(?, ?, ?)")
			args = append(args, roomID, s.RowLabel, s.SeatNumber)
		}
		if _, err := tx.ExecContext(ctx, b.String(), args...); err != nil {
			if isDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}
	}
	return nil
}
