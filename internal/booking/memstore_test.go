package booking

import (
	"context"
	"sync"

	"github.com/iliyamo/cinepiu-booking/internal/model"
	"github.com/iliyamo/cinepiu-booking/internal/repository"
)

// memStore is an in-memory Store. One mutex stands in for the row locks, so
// units of work are fully serialised like competing seat locks would be.
type memStore struct {
	mu           sync.Mutex
	showtimes    map[uint64]model.ShowtimeDetail
	seats        map[uint64]model.Seat
	reservations []model.Reservation
	nextID       uint64
	txCount      int
}

func newMemStore() *memStore {
	return &memStore{
		showtimes: map[uint64]model.ShowtimeDetail{},
		seats:     map[uint64]model.Seat{},
	}
}

func (m *memStore) addSeat(id, room uint64, row, num string) {
	m.seats[id] = model.Seat{ID: id, RoomID: room, RowLabel: row, SeatNumber: num}
}

func (m *memStore) active(showtimeID, seatID uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.reservations {
		if r.ShowtimeID == showtimeID && r.SeatID == seatID && r.Active() {
			n++
		}
	}
	return n
}

func (m *memStore) ShowtimeDetail(_ context.Context, id uint64) (model.ShowtimeDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.showtimes[id]
	if !ok {
		return model.ShowtimeDetail{}, repository.ErrNotFound
	}
	return st, nil
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++
	tx := &memTx{m: m, status: map[uint64]model.ReservationStatus{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.reservations = append(m.reservations, tx.staged...)
	for i := range m.reservations {
		if s, ok := tx.status[m.reservations[i].ID]; ok {
			m.reservations[i].Status = s
		}
	}
	return nil
}

type memTx struct {
	m      *memStore
	staged []model.Reservation
	status map[uint64]model.ReservationStatus
}

func (t *memTx) LockSeats(_ context.Context, roomID uint64, ids []uint64) ([]model.Seat, error) {
	var out []model.Seat
	for _, id := range ids {
		if s, ok := t.m.seats[id]; ok && s.RoomID == roomID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (t *memTx) CountActiveForUser(_ context.Context, showtimeID, userID uint64) (int, error) {
	n := 0
	for _, r := range t.m.reservations {
		if r.ShowtimeID == showtimeID && r.OwnedBy(userID) && r.Active() {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertReservations(_ context.Context, rs []model.Reservation) ([]model.Reservation, error) {
	taken := map[uint64]bool{}
	for _, r := range t.m.reservations {
		if r.Active() {
			taken[r.ShowtimeID<<32|r.SeatID] = true
		}
	}
	out := make([]model.Reservation, 0, len(rs))
	next := t.m.nextID
	for _, r := range rs {
		key := r.ShowtimeID<<32 | r.SeatID
		if taken[key] {
			return nil, repository.ErrDuplicate
		}
		taken[key] = true
		next++
		r.ID = next
		out = append(out, r)
	}
	t.m.nextID = next
	t.staged = append(t.staged, out...)
	return out, nil
}

func (t *memTx) LockReservation(_ context.Context, id uint64) (model.ReservationDetail, error) {
	for _, r := range t.m.reservations {
		if r.ID != id {
			continue
		}
		st := t.m.showtimes[r.ShowtimeID]
		seat := t.m.seats[r.SeatID]
		return model.ReservationDetail{
			Reservation: r,
			MovieID:     st.MovieID,
			MovieTitle:  st.Movie.Title,
			RoomID:      st.RoomID,
			StartsAt:    st.StartsAt,
			RowLabel:    seat.RowLabel,
			SeatNumber:  seat.SeatNumber,
		}, nil
	}
	return model.ReservationDetail{}, repository.ErrNotFound
}

func (t *memTx) SetReservationStatus(_ context.Context, id uint64, s model.ReservationStatus) error {
	t.status[id] = s
	return nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	created []Confirmation
	changed []model.ReservationDetail
}

func (p *recordingPublisher) ReservationsCreated(_ context.Context, c Confirmation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, c)
	return nil
}

func (p *recordingPublisher) ReservationStatusChanged(_ context.Context, d model.ReservationDetail, _ model.Principal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, d)
	return nil
}
