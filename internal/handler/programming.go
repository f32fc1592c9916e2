package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinepiu-booking/internal/logger"
	"github.com/iliyamo/cinepiu-booking/internal/model"
)

// Programmer is implemented by *programming.Service.
type Programmer interface {
	CreateMovie(ctx context.Context, in model.MovieInput) (model.Movie, error)
	UpdateMovie(ctx context.Context, id uint64, in model.MovieInput) (model.Movie, error)
	DeleteMovie(ctx context.Context, id uint64) error
	CreateShowtime(ctx context.Context, movieID, roomID uint64, startsAt time.Time) (model.Showtime, error)
	UpdateShowtime(ctx context.Context, id, roomID uint64, startsAt time.Time) (model.Showtime, error)
	DeleteShowtime(ctx context.Context, id uint64) error
	RoomSchedule(ctx context.Context, roomID uint64) (model.Room, []model.ShowtimeDetail, error)
}

// Purger drops cached listings; *middleware.ResponseCache implements it.
type Purger interface {
	Purge(ctx context.Context) error
}

// ProgrammingHandler serves the catalogue and schedule management endpoints.
type ProgrammingHandler struct {
	Service Programmer
	Cache   Purger
	Loc     *time.Location
}

func NewProgrammingHandler(svc Programmer, cache Purger, loc *time.Location) *ProgrammingHandler {
	return &ProgrammingHandler{Service: svc, Cache: cache, Loc: loc}
}

// movieReq carries dates as YYYY-MM-DD. Omitted local_release and
// programming_start take their defaults on create and keep their stored
// value on update.
type movieReq struct {
	Title            string `json:"title" validate:"required,max=255"`
	Director         string `json:"director" validate:"max=255"`
	Genre            string `json:"genre" validate:"max=100"`
	Description      string `json:"description"`
	RuntimeMin       int    `json:"runtime_min" validate:"gt=0,lte=600"`
	ReleaseDate      string `json:"release_date" validate:"omitempty,datetime=2006-01-02"`
	LocalRelease     string `json:"local_release" validate:"omitempty,datetime=2006-01-02"`
	ProgrammingStart string `json:"programming_start" validate:"omitempty,datetime=2006-01-02"`
	Festival         bool   `json:"festival"`
}

func (r movieReq) input() (model.MovieInput, error) {
	in := model.MovieInput{
		Title:       r.Title,
		Director:    r.Director,
		Genre:       r.Genre,
		Description: r.Description,
		RuntimeMin:  r.RuntimeMin,
		Festival:    r.Festival,
	}
	var err error
	if in.ReleaseDate, err = optionalDate("release_date", r.ReleaseDate); err != nil {
		return in, err
	}
	if strings.TrimSpace(r.LocalRelease) != "" {
		d, err := optionalDate("local_release", r.LocalRelease)
		if err != nil {
			return in, err
		}
		in.LocalRelease = &d
	}
	if strings.TrimSpace(r.ProgrammingStart) != "" {
		d, err := optionalDate("programming_start", r.ProgrammingStart)
		if err != nil {
			return in, err
		}
		in.ProgrammingStart = &d
	}
	return in, nil
}

// showtimeReq is the body of a showtime move; zero fields keep their value.
type showtimeReq struct {
	RoomID   uint64 `json:"room_id"`
	StartsAt string `json:"starts_at"`
}

type newShowtimeReq struct {
	RoomID   uint64 `json:"room_id" validate:"required"`
	StartsAt string `json:"starts_at" validate:"required"`
}

// CreateMovie adds a movie to the catalogue.
func (h *ProgrammingHandler) CreateMovie(c echo.Context) error {
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}
	in, err := req.input()
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	m, err := h.Service.CreateMovie(ctx, in)
	if err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, m)
}

// UpdateMovie edits a movie.
func (h *ProgrammingHandler) UpdateMovie(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}
	in, err := req.input()
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	m, err := h.Service.UpdateMovie(ctx, id, in)
	if err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, m)
}

// DeleteMovie removes a movie without showtimes.
func (h *ProgrammingHandler) DeleteMovie(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Service.DeleteMovie(ctx, id); err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.NoContent(http.StatusNoContent)
}

// CreateShowtime schedules the movie in a room.
func (h *ProgrammingHandler) CreateShowtime(c echo.Context) error {
	movieID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req newShowtimeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}
	start, err := parseStart(req.StartsAt, h.Loc)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	st, err := h.Service.CreateShowtime(ctx, movieID, req.RoomID, start)
	if err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, st)
}

// UpdateShowtime moves a showtime. Omitted fields keep their value.
func (h *ProgrammingHandler) UpdateShowtime(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req showtimeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	var start time.Time
	if strings.TrimSpace(req.StartsAt) != "" {
		if start, err = parseStart(req.StartsAt, h.Loc); err != nil {
			return respondError(c, err)
		}
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	st, err := h.Service.UpdateShowtime(ctx, id, req.RoomID, start)
	if err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, st)
}

// DeleteShowtime removes a showtime.
func (h *ProgrammingHandler) DeleteShowtime(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Service.DeleteShowtime(ctx, id); err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.NoContent(http.StatusNoContent)
}

// RoomSchedule lists the room's next showtimes.
func (h *ProgrammingHandler) RoomSchedule(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	room, list, err := h.Service.RoomSchedule(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"room": room, "showtimes": showtimeViews(list)})
}

// purge is best effort; the write already committed.
func (h *ProgrammingHandler) purge(c echo.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Purge(c.Request().Context()); err != nil {
		logger.L().Warn("cache purge failed", zap.Error(err))
	}
}

// Start times are accepted as RFC 3339 or as wall-clock time in the
// cinema's zone.
var localStartLayouts = []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02T15:04:05"}

func parseStart(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, invalidField("starts_at", "starts_at is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localStartLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, invalidField("starts_at", "starts_at must be RFC 3339 or YYYY-MM-DDTHH:MM")
}

func optionalDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return time.Time{}, invalidField(field, field+" must be YYYY-MM-DD")
	}
	return d, nil
}
