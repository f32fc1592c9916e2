package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/cinepiu-booking/internal/apperr"
)

// Room is a screening room. Its seats are fixed once created.
type Room struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"-"`
}

// Layout limits for a generated room.
const (
	MaxRows        = 52
	MaxSeatsPerRow = 60
)

// RoomLayout describes a rectangular room: Rows rows labelled A, B, ...
// each holding SeatsPerRow seats numbered from 1.
type RoomLayout struct {
	Name        string `json:"name"`
	Rows        int    `json:"rows"`
	SeatsPerRow int    `json:"seats_per_row"`
}

// Validate checks the name and the layout bounds.
func (l RoomLayout) Validate() error {
	switch {
	case strings.TrimSpace(l.Name) == "":
		return apperr.Validation("name", apperr.ReasonInvalidInput, "room name is required")
	case l.Rows < 1 || l.Rows > MaxRows:
		return apperr.Validation("rows", apperr.ReasonInvalidInput, "rows must be between 1 and "+strconv.Itoa(MaxRows))
	case l.SeatsPerRow < 1 || l.SeatsPerRow > MaxSeatsPerRow:
		return apperr.Validation("seats_per_row", apperr.ReasonInvalidInput, "seats per row must be between 1 and "+strconv.Itoa(MaxSeatsPerRow))
	}
	return nil
}

// Seats generates the layout's seats, without IDs.
func (l RoomLayout) Seats() []Seat {
	out := make([]Seat, 0, l.Rows*l.SeatsPerRow)
	for r := 0; r < l.Rows; r++ {
		label := RowLabel(r)
		for n := 1; n <= l.SeatsPerRow; n++ {
			out = append(out, Seat{RowLabel: label, SeatNumber: strconv.Itoa(n)})
		}
	}
	return out
}

// RowLabel converts a zero-based index to A, B, ..., Z, AA, AB, ...
func RowLabel(i int) string {
	if i < 0 {
		return ""
	}
	var res []byte
	for {
		res = append([]byte{byte('A' + i%26)}, res...)
		i = i/26 - 1
		if i < 0 {
			return string(res)
		}
	}
}
