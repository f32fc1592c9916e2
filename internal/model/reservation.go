package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusReserved  ReservationStatus = "RESERVED"
	StatusPaid      ReservationStatus = "PAID"
	StatusCancelled ReservationStatus = "CANCELLED"
)

// Reservation holds one seat for one showtime. Customer reservations carry
// UserID; walk-in reservations made by staff carry a name and/or phone
// instead.
//
// Fields:
//
//	ID          – reservations.id
//	ShowtimeID  – reservations.showtime_id
//	SeatID      – reservations.seat_id
//	PriceCents  – reservations.price_cents
//	UserID      – reservations.user_id (nullable)
//	WalkInName  – reservations.walk_in_name
//	WalkInPhone – reservations.walk_in_phone
//	Status      – reservations.status
type Reservation struct {
	ID          uint64            `json:"id"`
	ShowtimeID  uint64            `json:"showtime_id"`
	SeatID      uint64            `json:"seat_id"`
	PriceCents  uint32            `json:"price_cents"`
	UserID      *uint64           `json:"user_id,omitempty"`
	WalkInName  string            `json:"walk_in_name,omitempty"`
	WalkInPhone string            `json:"walk_in_phone,omitempty"`
	Status      ReservationStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"-"`
}

// Active reports whether the reservation still holds its seat.
func (r Reservation) Active() bool { return r.Status != StatusCancelled }

// OwnedBy reports whether the reservation belongs to the given user.
func (r Reservation) OwnedBy(userID uint64) bool { return r.UserID != nil && *r.UserID == userID }

// ReservationDetail joins a reservation with the showtime, movie and seat it
// refers to. It is what listings and the cancellation checks work with.
type ReservationDetail struct {
	Reservation
	MovieID    uint64    `json:"movie_id"`
	MovieTitle string    `json:"movie_title"`
	RoomID     uint64    `json:"room_id"`
	RoomName   string    `json:"room_name"`
	StartsAt   time.Time `json:"starts_at"`
	RowLabel   string    `json:"row"`
	SeatNumber string    `json:"number"`
}

// SeatLabel is the row label followed by the seat number.
func (d ReservationDetail) SeatLabel() string { return d.RowLabel + d.SeatNumber }
