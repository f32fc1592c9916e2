package booking

import (
	"sort"

	"github.com/iliyamo/cinepiu-booking/internal/model"
)

// SeatView is one seat as rendered on the seat map.
type SeatView struct {
	ID       uint64 `json:"id"`
	Label    string `json:"label"`
	Number   string `json:"number"`
	Occupied bool   `json:"occupied"`
}

// SeatRow groups the seats sharing a row label.
type SeatRow struct {
	Row   string     `json:"row"`
	Seats []SeatView `json:"seats"`
}

// SortSeats orders seats by row label then seat number, both compared as
// plain strings.
func SortSeats(seats []model.Seat) {
	sort.SliceStable(seats, func(i, j int) bool {
		if seats[i].RowLabel != seats[j].RowLabel {
			return seats[i].RowLabel < seats[j].RowLabel
		}
		return seats[i].SeatNumber < seats[j].SeatNumber
	})
}

// BuildSeatMap groups the room's seats by row and flags the occupied ones.
// The input slice is sorted in place.
func BuildSeatMap(seats []model.Seat, occupied map[uint64]bool) []SeatRow {
	SortSeats(seats)
	rows := make([]SeatRow, 0)
	for _, s := range seats {
		if len(rows) == 0 || rows[len(rows)-1].Row != s.RowLabel {
			rows = append(rows, SeatRow{Row: s.RowLabel})
		}
		last := &rows[len(rows)-1]
		last.Seats = append(last.Seats, SeatView{
			ID:       s.ID,
			Label:    s.Label(),
			Number:   s.SeatNumber,
			Occupied: occupied[s.ID],
		})
	}
	return rows
}
