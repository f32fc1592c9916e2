package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinepiu-booking/internal/logger"
	"github.com/iliyamo/cinepiu-booking/internal/model"
	"github.com/iliyamo/cinepiu-booking/internal/repository"
)

// RoomStore is implemented by repository.RoomRepo.
type RoomStore interface {
	List(ctx context.Context) ([]model.Room, error)
	Create(ctx context.Context, name string, seats []model.Seat) (uint64, error)
}

// RoomHandler lists rooms and provisions new ones.
type RoomHandler struct {
	Rooms RoomStore
	Cache Purger
}

func NewRoomHandler(rooms RoomStore, cache Purger) *RoomHandler {
	return &RoomHandler{Rooms: rooms, Cache: cache}
}

// List returns every room.
func (h *RoomHandler) List(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	rooms, err := h.Rooms.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rooms})
}

// Create provisions a rectangular room: rows A, B, ... each with seats
// numbered from 1. Seats cannot be changed afterwards.
func (h *RoomHandler) Create(c echo.Context) error {
	var layout model.RoomLayout
	if err := c.Bind(&layout); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	layout.Name = strings.TrimSpace(layout.Name)
	if err := layout.Validate(); err != nil {
		return respondError(c, err)
	}
	seats := layout.Seats()

	ctx, cancel := requestCtx(c)
	defer cancel()
	id, err := h.Rooms.Create(ctx, layout.Name, seats)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return respondError(c, invalidField("name", "a room with this name already exists"))
		}
		return respondError(c, err)
	}
	if h.Cache != nil {
		if err := h.Cache.Purge(c.Request().Context()); err != nil {
			logger.L().Warn("cache purge failed", zap.Error(err))
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"room":  model.Room{ID: id, Name: layout.Name},
		"seats": len(seats),
	})
}
