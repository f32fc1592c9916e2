// Package queue defines the reservation audit events carried over RabbitMQ
// and the consumer that writes them to the booking log.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinepiu-booking/internal/booking"
	"github.com/iliyamo/cinepiu-booking/internal/model"
)

// QueueName is the durable queue both event types are published to. The
// AMQP message type tells them apart.
const QueueName = "booking.events"

const (
	TypeReservationsCreated      = "reservations.created"
	TypeReservationStatusChanged = "reservation.status_changed"
)

// ReservationsCreatedEvent describes one accepted booking batch.
type ReservationsCreatedEvent struct {
	EventID        string    `json:"event_id"`
	ShowtimeID     uint64    `json:"showtime_id"`
	MovieTitle     string    `json:"movie_title"`
	RoomName       string    `json:"room_name"`
	StartsAt       time.Time `json:"starts_at"`
	ReservationIDs []uint64  `json:"reservation_ids"`
	Seats          []string  `json:"seats"`
	UserID         uint64    `json:"user_id,omitempty"` // customer bookings
	WalkInName     string    `json:"walk_in_name,omitempty"`
	WalkInPhone    string    `json:"walk_in_phone,omitempty"`
	BookedBy       uint64    `json:"booked_by"`
	BookedByRole   string    `json:"booked_by_role"`
	UnitPriceCents uint32    `json:"unit_price_cents"`
	TotalCents     uint32    `json:"total_cents"`
	BookedAt       time.Time `json:"booked_at"`
}

// ReservationStatusChangedEvent records a cancellation or payment.
type ReservationStatusChangedEvent struct {
	EventID       string    `json:"event_id"`
	ReservationID uint64    `json:"reservation_id"`
	ShowtimeID    uint64    `json:"showtime_id"`
	MovieTitle    string    `json:"movie_title"`
	StartsAt      time.Time `json:"starts_at"`
	Seat          string    `json:"seat"`
	Status        string    `json:"status"`
	ChangedBy     uint64    `json:"changed_by"`
	ChangedByRole string    `json:"changed_by_role"`
	ChangedAt     time.Time `json:"changed_at"`
}

// NewReservationsCreated builds the event for a confirmation.
func NewReservationsCreated(c booking.Confirmation) ReservationsCreatedEvent {
	ev := ReservationsCreatedEvent{
		EventID:        uuid.NewString(),
		ShowtimeID:     c.Showtime.ID,
		MovieTitle:     c.Showtime.Movie.Title,
		RoomName:       c.Showtime.RoomName,
		StartsAt:       c.Showtime.StartsAt,
		ReservationIDs: make([]uint64, 0, len(c.Reservations)),
		Seats:          make([]string, 0, len(c.Seats)),
		BookedBy:       c.BookedBy.UserID,
		BookedByRole:   c.BookedBy.Role.String(),
		UnitPriceCents: c.UnitPriceCents,
		TotalCents:     c.TotalCents,
		BookedAt:       c.BookedAt,
	}
	for _, r := range c.Reservations {
		ev.ReservationIDs = append(ev.ReservationIDs, r.ID)
	}
	for _, s := range c.Seats {
		ev.Seats = append(ev.Seats, s.Label())
	}
	if len(c.Reservations) > 0 {
		first := c.Reservations[0]
		if first.UserID != nil {
			ev.UserID = *first.UserID
		}
		ev.WalkInName = first.WalkInName
		ev.WalkInPhone = first.WalkInPhone
	}
	return ev
}

// NewReservationStatusChanged builds the event for a status transition.
func NewReservationStatusChanged(d model.ReservationDetail, by model.Principal, at time.Time) ReservationStatusChangedEvent {
	return ReservationStatusChangedEvent{
		EventID:       uuid.NewString(),
		ReservationID: d.ID,
		ShowtimeID:    d.ShowtimeID,
		MovieTitle:    d.MovieTitle,
		StartsAt:      d.StartsAt,
		Seat:          d.SeatLabel(),
		Status:        string(d.Status),
		ChangedBy:     by.UserID,
		ChangedByRole: by.Role.String(),
		ChangedAt:     at,
	}
}
