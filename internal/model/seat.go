package model

// Seat is a physical seat in a room. Row and number are opaque strings and
// are ordered literally ("10" sorts before "2").
//
// Fields:
//
//	ID         – seats.id
//	RoomID     – seats.room_id
//	RowLabel   – seats.row_label
//	SeatNumber – seats.seat_number
type Seat struct {
	ID         uint64 `json:"id"`
	RoomID     uint64 `json:"room_id"`
	RowLabel   string `json:"row"`
	SeatNumber string `json:"number"`
}

// Label is the row label followed by the seat number, e.g. "F12".
func (s Seat) Label() string { return s.RowLabel + s.SeatNumber }
