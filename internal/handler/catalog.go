package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinepiu-booking/internal/apperr"
	"github.com/iliyamo/cinepiu-booking/internal/booking"
	"github.com/iliyamo/cinepiu-booking/internal/model"
	"github.com/iliyamo/cinepiu-booking/internal/repository"
	"github.com/iliyamo/cinepiu-booking/internal/schedule"
)

// Title search answers only queries of at least minSearchLen characters,
// with at most searchLimit suggestions.
const (
	minSearchLen = 2
	searchLimit  = 5
)

// MovieCatalog is implemented by repository.MovieRepo.
type MovieCatalog interface {
	GetByID(ctx context.Context, id uint64) (model.Movie, error)
	HasFutureShowtime(ctx context.Context, id uint64, now time.Time) (bool, error)
	ListInProgramming(ctx context.Context, today, now time.Time) ([]model.Movie, error)
	ListFestival(ctx context.Context, now time.Time) ([]model.Movie, error)
	ListUpcoming(ctx context.Context, today time.Time) ([]model.Movie, error)
	SearchByTitle(ctx context.Context, q string, limit int) ([]model.Movie, error)
}

// ShowtimeCatalog is implemented by repository.ShowtimeRepo.
type ShowtimeCatalog interface {
	GetDetail(ctx context.Context, id uint64) (model.ShowtimeDetail, error)
	ListUpcomingByMovie(ctx context.Context, movieID uint64, from time.Time) ([]model.ShowtimeDetail, error)
}

// SeatLister is implemented by repository.SeatRepo.
type SeatLister interface {
	ListByRoom(ctx context.Context, roomID uint64) ([]model.Seat, error)
}

// Occupancy is implemented by repository.ReservationRepo.
type Occupancy interface {
	OccupiedSeatIDs(ctx context.Context, showtimeID uint64) (map[uint64]bool, error)
}

// CatalogHandler serves the public, unauthenticated browsing endpoints.
type CatalogHandler struct {
	Movies    MovieCatalog
	Showtimes ShowtimeCatalog
	Seats     SeatLister
	Occupancy Occupancy
	Loc       *time.Location
	Now       func() time.Time
}

func NewCatalogHandler(m MovieCatalog, st ShowtimeCatalog, seats SeatLister, occ Occupancy, loc *time.Location) *CatalogHandler {
	return &CatalogHandler{Movies: m, Showtimes: st, Seats: seats, Occupancy: occ, Loc: loc, Now: time.Now}
}

// showtimeView is a showtime as listed to the public.
type showtimeView struct {
	ID         uint64    `json:"id"`
	MovieID    uint64    `json:"movie_id"`
	MovieTitle string    `json:"movie_title"`
	RoomID     uint64    `json:"room_id"`
	RoomName   string    `json:"room_name"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
}

func newShowtimeView(d model.ShowtimeDetail) showtimeView {
	return showtimeView{
		ID:         d.ID,
		MovieID:    d.MovieID,
		MovieTitle: d.Movie.Title,
		RoomID:     d.RoomID,
		RoomName:   d.RoomName,
		StartsAt:   d.StartsAt,
		EndsAt:     d.EndsAt(),
	}
}

func showtimeViews(list []model.ShowtimeDetail) []showtimeView {
	out := make([]showtimeView, 0, len(list))
	for _, d := range list {
		out = append(out, newShowtimeView(d))
	}
	return out
}

func (h *CatalogHandler) clock() (now, today time.Time) {
	now = h.Now().UTC()
	return now, model.DateOf(now, h.Loc)
}

// InProgramming lists regular movies that are bookable today.
func (h *CatalogHandler) InProgramming(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	now, today := h.clock()
	items, err := h.Movies.ListInProgramming(ctx, today, now)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Festival lists festival movies with showtimes ahead.
func (h *CatalogHandler) Festival(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	now, _ := h.clock()
	items, err := h.Movies.ListFestival(ctx, now)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Upcoming lists regular movies whose programming has not started.
func (h *CatalogHandler) Upcoming(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	_, today := h.clock()
	items, err := h.Movies.ListUpcoming(ctx, today)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Search suggests titles containing ?q=. Short queries get no suggestions.
func (h *CatalogHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if utf8.RuneCountInString(q) < minSearchLen {
		return c.JSON(http.StatusOK, echo.Map{"items": []model.Movie{}})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	items, err := h.Movies.SearchByTitle(ctx, q, searchLimit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Movie returns one movie, its availability class and its upcoming
// showtimes.
func (h *CatalogHandler) Movie(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	now, _ := h.clock()

	m, err := h.Movies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, apperr.NotFound("movie"))
		}
		return respondError(c, err)
	}
	list, err := h.Showtimes.ListUpcomingByMovie(ctx, id, now)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"movie":        m,
		"availability": schedule.Classify(m, now, len(list) > 0, h.Loc),
		"showtimes":    showtimeViews(list),
	})
}

// SeatMap returns the room's seats grouped by row with the occupied ones
// flagged. It always reads live data.
func (h *CatalogHandler) SeatMap(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	now, _ := h.clock()

	st, err := h.Showtimes.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, apperr.NotFound("showtime"))
		}
		return respondError(c, err)
	}
	seats, err := h.Seats.ListByRoom(ctx, st.RoomID)
	if err != nil {
		return respondError(c, err)
	}
	occupied, err := h.Occupancy.OccupiedSeatIDs(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	free := 0
	for _, s := range seats {
		if !occupied[s.ID] {
			free++
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"showtime":   newShowtimeView(st),
		"bookable":   !st.StartsAt.Before(now) && schedule.InProgramming(st.Movie, now, h.Loc),
		"free_seats": free,
		"rows":       booking.BuildSeatMap(seats, occupied),
	})
}
