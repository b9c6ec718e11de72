package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/logger"
	"github.com/iliyamo/table-reservation/internal/metrics"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// OwnerReservationHandler lets restaurant owners see and confirm the
// bookings made at their restaurants.  Admins may act on any restaurant.
// Role checks happen in middleware; ownership is checked here.
type OwnerReservationHandler struct {
	Reservations *repository.ReservationRepo
	Metrics      *metrics.Metrics
}

func NewOwnerReservationHandler(res *repository.ReservationRepo, m *metrics.Metrics) *OwnerReservationHandler {
	return &OwnerReservationHandler{Reservations: res, Metrics: m}
}

func isAdmin(c echo.Context) bool {
	role, _ := c.Get(middleware.CtxRole).(string)
	return model.Role(role) == model.RoleAdmin
}

// List handles GET /v1/owner/restaurants/:id/reservations.
func (h *OwnerReservationHandler) List(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Reservations.ListByRestaurantForOwner(ctx, id, middleware.UserID(c), isAdmin(c))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "restaurant not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case err != nil:
		logger.FromContext(c).Error("list restaurant reservations failed", zap.Uint64("restaurant_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// Confirm handles POST /v1/owner/reservations/:id/confirm.
func (h *OwnerReservationHandler) Confirm(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Reservations.ConfirmForOwner(ctx, id, middleware.UserID(c), isAdmin(c))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is cancelled"})
	case err != nil:
		logger.FromContext(c).Error("confirm reservation failed", zap.Uint64("reservation_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.Metrics.Reservation("confirmed")
	return c.JSON(http.StatusOK, res)
}
