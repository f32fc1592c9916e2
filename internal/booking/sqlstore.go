package booking

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinepiu-booking/internal/model"
	"github.com/iliyamo/cinepiu-booking/internal/repository"
)

// SQLStore is the MySQL-backed Store.
type SQLStore struct {
	db           *sql.DB
	seats        *repository.SeatRepo
	showtimes    *repository.ShowtimeRepo
	reservations *repository.ReservationRepo
}

// NewSQLStore wires a Store over the given repositories.
func NewSQLStore(db *sql.DB, seats *repository.SeatRepo, showtimes *repository.ShowtimeRepo, reservations *repository.ReservationRepo) *SQLStore {
	return &SQLStore{db: db, seats: seats, showtimes: showtimes, reservations: reservations}
}

func (s *SQLStore) ShowtimeDetail(ctx context.Context, showtimeID uint64) (model.ShowtimeDetail, error) {
	return s.showtimes.GetDetail(ctx, showtimeID)
}

func (s *SQLStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return repository.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(ctx, &sqlTx{tx: tx, store: s})
	})
}

type sqlTx struct {
	tx    *sql.Tx
	store *SQLStore
}

func (t *sqlTx) LockSeats(ctx context.Context, roomID uint64, seatIDs []uint64) ([]model.Seat, error) {
	return t.store.seats.LockByIDsTx(ctx, t.tx, roomID, seatIDs)
}

func (t *sqlTx) CountActiveForUser(ctx context.Context, showtimeID, userID uint64) (int, error) {
	return t.store.reservations.CountActiveForUserTx(ctx, t.tx, showtimeID, userID)
}

func (t *sqlTx) InsertReservations(ctx context.Context, rs []model.Reservation) ([]model.Reservation, error) {
	return t.store.reservations.CreateBatchTx(ctx, t.tx, rs)
}

func (t *sqlTx) LockReservation(ctx context.Context, id uint64) (model.ReservationDetail, error) {
	return t.store.reservations.GetDetailForUpdateTx(ctx, t.tx, id)
}

func (t *sqlTx) SetReservationStatus(ctx context.Context, id uint64, status model.ReservationStatus) error {
	return t.store.reservations.SetStatusTx(ctx, t.tx, id, status)
}
