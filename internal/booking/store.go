package booking

import (
	"context"

	"github.com/iliyamo/cinepiu-booking/internal/model"
)

// Store is the persistence the engine needs. Lookups outside a unit of work
// return repository.ErrNotFound for missing rows.
type Store interface {
	ShowtimeDetail(ctx context.Context, showtimeID uint64) (model.ShowtimeDetail, error)
	// WithinTx runs fn in a single transaction, committing when fn returns
	// nil and rolling back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the unit of work a booking or cancellation runs in. Locks are
// always taken in the same order: seat rows first, then the requester's
// reservations for the showtime.
type Tx interface {
	// LockSeats returns the requested seats that belong to the room and
	// holds a row lock on each until the unit of work ends.
	LockSeats(ctx context.Context, roomID uint64, seatIDs []uint64) ([]model.Seat, error)
	// CountActiveForUser counts and locks the user's non-cancelled
	// reservations for the showtime.
	CountActiveForUser(ctx context.Context, showtimeID, userID uint64) (int, error)
	// InsertReservations inserts all rows or none. A seat already held by a
	// non-cancelled reservation yields repository.ErrDuplicate.
	InsertReservations(ctx context.Context, rs []model.Reservation) ([]model.Reservation, error)
	// LockReservation loads a reservation with its showtime data for update.
	LockReservation(ctx context.Context, id uint64) (model.ReservationDetail, error)
	SetReservationStatus(ctx context.Context, id uint64, status model.ReservationStatus) error
}

// Publisher receives booking outcomes after commit. Implementations must not
// block the request for long; failures are only logged.
type Publisher interface {
	ReservationsCreated(ctx context.Context, c Confirmation) error
	ReservationStatusChanged(ctx context.Context, d model.ReservationDetail, by model.Principal) error
}
