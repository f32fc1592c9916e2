package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinepiu-booking/internal/apperr"
	"github.com/iliyamo/cinepiu-booking/internal/logger"
	"github.com/iliyamo/cinepiu-booking/internal/middleware"
	"github.com/iliyamo/cinepiu-booking/internal/repository"
)

// dbTimeout bounds the database work of a single request.
const dbTimeout = 5 * time.Second

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

func statusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindRejected:
		return http.StatusBadRequest
	case apperr.KindConflict, apperr.KindState:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error", "reason"} with the status matching
// its kind. Anything that is not a domain error is logged and hidden
// behind a 500.
func respondError(c echo.Context, err error) error {
	if e, ok := apperr.As(err); ok {
		body := echo.Map{"error": e.Message, "reason": e.Reason}
		if e.Field != "" {
			body["field"] = e.Field
		}
		if e.Conflict != nil {
			body["conflict"] = e.Conflict
		}
		return c.JSON(statusOf(e.Kind), body)
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found", "reason": apperr.ReasonNotFound})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "reason": apperr.ReasonForbidden})
	}
	logger.L().Error("request failed",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error", "reason": "internal"})
}

// badRequest reports malformed input on field.
func badRequest(c echo.Context, field, msg string) error {
	return respondError(c, invalidField(field, msg))
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, invalidField(name, "invalid "+name)
	}
	return id, nil
}

func invalidField(field, msg string) error {
	return apperr.Validation(field, apperr.ReasonInvalidInput, msg)
}
