package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinepiu-booking/internal/apperr"
	"github.com/iliyamo/cinepiu-booking/internal/booking"
	"github.com/iliyamo/cinepiu-booking/internal/middleware"
	"github.com/iliyamo/cinepiu-booking/internal/model"
	"github.com/iliyamo/cinepiu-booking/internal/repository"
)

// Booker is implemented by *booking.Engine.
type Booker interface {
	Book(ctx context.Context, req booking.Request) (*booking.Confirmation, error)
	Cancel(ctx context.Context, reservationID uint64, p model.Principal) (model.ReservationDetail, error)
	CancelAsStaff(ctx context.Context, reservationID uint64, p model.Principal) (model.ReservationDetail, error)
	MarkPaid(ctx context.Context, reservationID uint64, p model.Principal) (model.ReservationDetail, error)
	Cancellable(d model.ReservationDetail) bool
}

// ReservationLister is implemented by repository.ReservationRepo.
type ReservationLister interface {
	ListByUser(ctx context.Context, userID uint64) ([]model.ReservationDetail, error)
	ListByMovie(ctx context.Context, movieID uint64, from time.Time) ([]model.ReservationDetail, error)
}

// UserLoader resolves the caller's user row.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// MovieGetter loads a single movie.
type MovieGetter interface {
	GetByID(ctx context.Context, id uint64) (model.Movie, error)
}

// BookingHandler serves reservation endpoints for customers and staff.
type BookingHandler struct {
	Engine       Booker
	Users        UserLoader
	Reservations ReservationLister
	Movies       MovieGetter
	Loc          *time.Location
	Now          func() time.Time
}

func NewBookingHandler(engine Booker, users UserLoader, res ReservationLister, movies MovieGetter, loc *time.Location) *BookingHandler {
	return &BookingHandler{Engine: engine, Users: users, Reservations: res, Movies: movies, Loc: loc, Now: time.Now}
}

// seatIDList accepts either a JSON array of IDs or a comma-separated string
// such as "12,13".
type seatIDList []uint64

func (l *seatIDList) UnmarshalJSON(b []byte) error {
	var ids []uint64
	if err := json.Unmarshal(b, &ids); err == nil {
		*l = ids
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("seat_ids must be an array or a comma-separated string")
	}
	parsed, err := parseSeatIDs(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func parseSeatIDs(s string) ([]uint64, error) {
	out := make([]uint64, 0)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seat id %q", part)
		}
		out = append(out, id)
	}
	return out, nil
}

type bookReq struct {
	SeatIDs     seatIDList `json:"seat_ids"`
	WalkInName  string     `json:"walk_in_name" validate:"max=100"`
	WalkInPhone string     `json:"walk_in_phone" validate:"max=32"`
}

type bookResp struct {
	ShowtimeID     uint64    `json:"showtime_id"`
	MovieTitle     string    `json:"movie_title"`
	RoomName       string    `json:"room_name"`
	StartsAt       time.Time `json:"starts_at"`
	ReservationIDs []uint64  `json:"reservation_ids"`
	Seats          []string  `json:"seats"`
	UnitPriceCents uint32    `json:"unit_price_cents"`
	TotalCents     uint32    `json:"total_cents"`
	Status         string    `json:"status"`
}

// reservationView adds whether the owner may still cancel.
type reservationView struct {
	model.ReservationDetail
	CanCancel bool `json:"can_cancel"`
}

// principal builds the caller's identity: role from the token, member flag
// from the user row. Disabled or deleted accounts are treated as logged out.
func (h *BookingHandler) principal(ctx context.Context, c echo.Context) (model.Principal, bool, error) {
	uid, ok := middleware.UserID(c)
	if !ok {
		return model.Principal{}, false, nil
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Principal{}, false, nil
		}
		return model.Principal{}, false, err
	}
	if !u.IsActive {
		return model.Principal{}, false, nil
	}
	p := u.Principal()
	p.Role = middleware.Role(c)
	return p, true, nil
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// Book reserves the posted seats for the showtime in one all-or-nothing
// batch. Staff booking for a walk-in customer must send a name or phone.
func (h *BookingHandler) Book(c echo.Context) error {
	showtimeID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "seat_ids", "seat_ids must be an array or a comma-separated string of seat ids")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	p, ok, err := h.principal(ctx, c)
	if err != nil {
		return respondError(c, err)
	}
	if !ok {
		return unauthorized(c)
	}
	conf, err := h.Engine.Book(ctx, booking.Request{
		ShowtimeID:  showtimeID,
		SeatIDs:     req.SeatIDs,
		Principal:   p,
		WalkInName:  req.WalkInName,
		WalkInPhone: req.WalkInPhone,
	})
	if err != nil {
		return respondError(c, err)
	}

	resp := bookResp{
		ShowtimeID:     conf.Showtime.ID,
		MovieTitle:     conf.Showtime.Movie.Title,
		RoomName:       conf.Showtime.RoomName,
		StartsAt:       conf.Showtime.StartsAt,
		ReservationIDs: make([]uint64, 0, len(conf.Reservations)),
		Seats:          make([]string, 0, len(conf.Seats)),
		UnitPriceCents: conf.UnitPriceCents,
		TotalCents:     conf.TotalCents,
		Status:         string(model.StatusReserved),
	}
	for _, r := range conf.Reservations {
		resp.ReservationIDs = append(resp.ReservationIDs, r.ID)
	}
	for _, s := range conf.Seats {
		resp.Seats = append(resp.Seats, s.Label())
	}
	return c.JSON(http.StatusCreated, resp)
}

// MyReservations lists the caller's reservations, newest showtime first.
func (h *BookingHandler) MyReservations(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	list, err := h.Reservations.ListByUser(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": h.views(list)})
}

// UserReservations is the staff view of one customer's reservations.
// can_cancel tells whether the customer could still cancel them.
func (h *BookingHandler) UserReservations(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	list, err := h.Reservations.ListByUser(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":  echo.Map{"id": u.ID, "email": u.Email, "phone": u.Phone, "member": u.Member},
		"items": h.views(list),
	})
}

func (h *BookingHandler) views(list []model.ReservationDetail) []reservationView {
	out := make([]reservationView, 0, len(list))
	for _, d := range list {
		out = append(out, reservationView{ReservationDetail: d, CanCancel: h.Engine.Cancellable(d)})
	}
	return out
}

// Cancel cancels one of the caller's own reservations.
func (h *BookingHandler) Cancel(c echo.Context) error {
	return h.transition(c, h.Engine.Cancel)
}

// StaffCancel cancels any reservation, ignoring the customer cutoff.
func (h *BookingHandler) StaffCancel(c echo.Context) error {
	return h.transition(c, h.Engine.CancelAsStaff)
}

// MarkPaid records payment at the box office.
func (h *BookingHandler) MarkPaid(c echo.Context) error {
	return h.transition(c, h.Engine.MarkPaid)
}

func (h *BookingHandler) transition(c echo.Context, op func(context.Context, uint64, model.Principal) (model.ReservationDetail, error)) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	p, ok, err := h.principal(ctx, c)
	if err != nil {
		return respondError(c, err)
	}
	if !ok {
		return unauthorized(c)
	}
	d, err := op(ctx, id, p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// showtimeReservations is one showtime in the box office view.
type showtimeReservations struct {
	ShowtimeID   uint64                    `json:"showtime_id"`
	StartsAt     time.Time                 `json:"starts_at"`
	RoomName     string                    `json:"room_name"`
	Active       int                       `json:"active"`
	Reservations []model.ReservationDetail `json:"reservations"`
}

// MovieReservations lists the movie's reservations grouped by showtime,
// for showtimes starting on or after ?from=YYYY-MM-DD (default today).
func (h *BookingHandler) MovieReservations(c echo.Context) error {
	movieID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	from, err := h.fromParam(c.QueryParam("from"))
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()
	m, err := h.Movies.GetByID(ctx, movieID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, apperr.NotFound("movie"))
		}
		return respondError(c, err)
	}
	list, err := h.Reservations.ListByMovie(ctx, movieID, from)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"movie":     m,
		"from":      from,
		"showtimes": groupByShowtime(list),
	})
}

// fromParam returns the start of the given day, or of today, in the
// cinema's time zone.
func (h *BookingHandler) fromParam(raw string) (time.Time, error) {
	day := model.DateOf(h.Now(), h.Loc)
	if raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			return time.Time{}, apperr.Validation("from", apperr.ReasonInvalidInput, "from must be YYYY-MM-DD")
		}
		day = d
	}
	loc := h.Loc
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).UTC(), nil
}

// groupByShowtime relies on the list being ordered by showtime.
func groupByShowtime(list []model.ReservationDetail) []showtimeReservations {
	out := make([]showtimeReservations, 0)
	for _, d := range list {
		if len(out) == 0 || out[len(out)-1].ShowtimeID != d.ShowtimeID {
			out = append(out, showtimeReservations{
				ShowtimeID:   d.ShowtimeID,
				StartsAt:     d.StartsAt,
				RoomName:     d.RoomName,
				Reservations: make([]model.ReservationDetail, 0),
			})
		}
		g := &out[len(out)-1]
		g.Reservations = append(g.Reservations, d)
		if d.Active() {
			g.Active++
		}
	}
	return out
}
