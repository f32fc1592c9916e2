// Package booking implements the reservation transaction engine: turning a
// batch of seat claims for one showtime into reservations atomically, and
// the cancellation and payment transitions that follow.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinepiu-booking/internal/apperr"
	"github.com/iliyamo/cinepiu-booking/internal/model"
	"github.com/iliyamo/cinepiu-booking/internal/repository"
	"github.com/iliyamo/cinepiu-booking/internal/schedule"
)

// DefaultSeatCap is the number of active reservations a customer may hold
// for one showtime.
const DefaultSeatCap = 2

// DefaultCancelCutoff is how long before the start customers lose the right
// to cancel.
const DefaultCancelCutoff = time.Hour

// Request is a batch of seat claims for one showtime.
type Request struct {
	ShowtimeID  uint64
	SeatIDs     []uint64
	Principal   model.Principal
	WalkInName  string
	WalkInPhone string
}

// Confirmation describes an accepted batch.
type Confirmation struct {
	Showtime       model.ShowtimeDetail
	Reservations   []model.Reservation
	Seats          []model.Seat
	UnitPriceCents uint32
	TotalCents     uint32
	BookedBy       model.Principal
	BookedAt       time.Time
}

// Engine runs bookings and reservation state changes.
type Engine struct {
	store     Store
	now       func() time.Time
	loc       *time.Location
	pricing   Pricing
	seatCap   int
	cutoff    time.Duration
	publisher Publisher
	log       *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithLocation(loc *time.Location) Option { return func(e *Engine) { e.loc = loc } }

func WithPricing(p Pricing) Option { return func(e *Engine) { e.pricing = p } }

func WithSeatCap(n int) Option { return func(e *Engine) { e.seatCap = n } }

func WithCancelCutoff(d time.Duration) Option { return func(e *Engine) { e.cutoff = d } }

func WithPublisher(p Publisher) Option { return func(e *Engine) { e.publisher = p } }

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.log = l } }

// NewEngine builds an engine over store. Defaults: wall clock, UTC calendar,
// DefaultPricing, DefaultSeatCap, DefaultCancelCutoff, no publisher.
func NewEngine(store Store, opts ...Option) *Engine {
	if store == nil {
		panic("nil store passed to NewEngine")
	}
	e := &Engine{
		store:   store,
		now:     time.Now,
		loc:     time.UTC,
		pricing: DefaultPricing(),
		seatCap: DefaultSeatCap,
		cutoff:  DefaultCancelCutoff,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Book accepts or rejects the whole batch. Checks run in a fixed order and
// the first failing one is reported; nothing is written unless every check
// passes and the insert commits.
func (e *Engine) Book(ctx context.Context, req Request) (*Confirmation, error) {
	now := e.now().UTC()
	p := req.Principal

	st, err := e.store.ShowtimeDetail(ctx, req.ShowtimeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("showtime")
		}
		return nil, fmt.Errorf("load showtime: %w", err)
	}

	if st.StartsAt.Before(now) {
		return nil, apperr.Rejected(apperr.ReasonShowtimePast, "the showtime has already started")
	}
	if !schedule.InProgramming(st.Movie, now, e.loc) {
		return nil, apperr.Rejected(apperr.ReasonNotInProgramming, "the movie is not yet in programming")
	}
	if len(req.SeatIDs) == 0 {
		return nil, apperr.Rejected(apperr.ReasonNoSeats, "select at least one seat")
	}
	if err := checkSeatIDs(req.SeatIDs); err != nil {
		return nil, err
	}
	price := e.pricing.UnitPrice(p)

	name := strings.TrimSpace(req.WalkInName)
	phone := strings.TrimSpace(req.WalkInPhone)
	if p.Staff() && name == "" && phone == "" {
		return nil, apperr.Rejected(apperr.ReasonWalkInRequired, "enter the customer's name or phone number")
	}

	var created []model.Reservation
	var seats []model.Seat
	err = e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		seats, err = tx.LockSeats(ctx, st.RoomID, req.SeatIDs)
		if err != nil {
			return fmt.Errorf("lock seats: %w", err)
		}
		if !p.Staff() {
			held, err := tx.CountActiveForUser(ctx, st.ID, p.UserID)
			if err != nil {
				return fmt.Errorf("count reservations: %w", err)
			}
			if held+len(req.SeatIDs) > e.seatCap {
				return apperr.Rejected(apperr.ReasonSeatCap,
					fmt.Sprintf("at most %d seats per showtime, you already hold %d", e.seatCap, held))
			}
		}
		if len(seats) != len(req.SeatIDs) {
			return apperr.Rejected(apperr.ReasonInvalidSeat, "one or more seats do not exist in this room")
		}

		rows := make([]model.Reservation, 0, len(seats))
		for _, s := range seats {
			r := model.Reservation{
				ShowtimeID: st.ID,
				SeatID:     s.ID,
				PriceCents: price,
				Status:     model.StatusReserved,
				CreatedAt:  now,
			}
			if p.Staff() {
				r.WalkInName = name
				r.WalkInPhone = phone
			} else {
				uid := p.UserID
				r.UserID = &uid
			}
			rows = append(rows, r)
		}
		created, err = tx.InsertReservations(ctx, rows)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.ConflictErr(apperr.ReasonSeatTaken, "some seats were just taken, please retry")
			}
			return fmt.Errorf("insert reservations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	conf := &Confirmation{
		Showtime:       st,
		Reservations:   created,
		Seats:          seats,
		UnitPriceCents: price,
		TotalCents:     price * uint32(len(created)),
		BookedBy:       p,
		BookedAt:       now,
	}
	e.log.Info("reservations created",
		zap.Uint64("showtime_id", st.ID),
		zap.Uint64("user_id", p.UserID),
		zap.String("role", p.Role.String()),
		zap.Int("seats", len(created)),
		zap.Uint32("total_cents", conf.TotalCents))
	if e.publisher != nil {
		if err := e.publisher.ReservationsCreated(ctx, *conf); err != nil {
			e.log.Warn("publish reservations created failed", zap.Error(err))
		}
	}
	return conf, nil
}

// checkSeatIDs rejects zero and repeated ids. Repeats are refused rather than
// collapsed so the caller learns the request was malformed.
func checkSeatIDs(ids []uint64) error {
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			return apperr.Rejected(apperr.ReasonInvalidSeat, "seat ids must be positive")
		}
		if _, dup := seen[id]; dup {
			return apperr.Rejected(apperr.ReasonDuplicateSeat, fmt.Sprintf("seat %d was requested more than once", id))
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Cancel lets a customer cancel one of their own reservations while
// now < start - cutoff.
func (e *Engine) Cancel(ctx context.Context, reservationID uint64, p model.Principal) (model.ReservationDetail, error) {
	now := e.now().UTC()
	return e.transition(ctx, reservationID, p, func(d model.ReservationDetail) error {
		if !d.OwnedBy(p.UserID) {
			// Someone else's reservation is reported as missing.
			return apperr.NotFound("reservation")
		}
		if !d.Active() {
			return apperr.State(apperr.ReasonAlreadyCancelled, "the reservation is already cancelled")
		}
		if !now.Before(d.StartsAt.Add(-e.cutoff)) {
			return apperr.State(apperr.ReasonCancelCutoff,
				fmt.Sprintf("reservations can no longer be cancelled less than %d minutes before the showtime", int(e.cutoff.Minutes())))
		}
		return nil
	}, model.StatusCancelled)
}

// CancelAsStaff cancels any reservation regardless of the cutoff.
func (e *Engine) CancelAsStaff(ctx context.Context, reservationID uint64, p model.Principal) (model.ReservationDetail, error) {
	if !p.Role.CanCancelAnyReservation() {
		return model.ReservationDetail{}, apperr.Forbidden("staff only")
	}
	return e.transition(ctx, reservationID, p, func(d model.ReservationDetail) error {
		if !d.Active() {
			return apperr.State(apperr.ReasonAlreadyCancelled, "the reservation is already cancelled")
		}
		return nil
	}, model.StatusCancelled)
}

// MarkPaid records payment at the box office.
func (e *Engine) MarkPaid(ctx context.Context, reservationID uint64, p model.Principal) (model.ReservationDetail, error) {
	if !p.Role.CanMarkPaid() {
		return model.ReservationDetail{}, apperr.Forbidden("staff only")
	}
	return e.transition(ctx, reservationID, p, func(d model.ReservationDetail) error {
		switch d.Status {
		case model.StatusCancelled:
			return apperr.State(apperr.ReasonAlreadyCancelled, "the reservation is cancelled")
		case model.StatusPaid:
			return apperr.State(apperr.ReasonAlreadyPaid, "the reservation is already paid")
		}
		return nil
	}, model.StatusPaid)
}

func (e *Engine) transition(ctx context.Context, id uint64, p model.Principal, check func(model.ReservationDetail) error, to model.ReservationStatus) (model.ReservationDetail, error) {
	var out model.ReservationDetail
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		d, err := tx.LockReservation(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("reservation")
			}
			return fmt.Errorf("lock reservation: %w", err)
		}
		if err := check(d); err != nil {
			return err
		}
		if err := tx.SetReservationStatus(ctx, id, to); err != nil {
			return fmt.Errorf("update reservation: %w", err)
		}
		d.Status = to
		out = d
		return nil
	})
	if err != nil {
		return model.ReservationDetail{}, err
	}
	e.log.Info("reservation status changed",
		zap.Uint64("reservation_id", id),
		zap.String("status", string(to)),
		zap.Uint64("by_user_id", p.UserID))
	if e.publisher != nil {
		if err := e.publisher.ReservationStatusChanged(ctx, out, p); err != nil {
			e.log.Warn("publish status change failed", zap.Error(err))
		}
	}
	return out, nil
}

// Cancellable reports whether the owner could still cancel d right now.
func (e *Engine) Cancellable(d model.ReservationDetail) bool {
	return d.Active() && e.now().UTC().Before(d.StartsAt.Add(-e.cutoff))
}
