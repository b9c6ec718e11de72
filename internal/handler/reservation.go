package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/logger"
	"github.com/iliyamo/table-reservation/internal/metrics"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// EventPublisher sends reservation events.  *service.Publisher
// satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// ReservationHandler serves a customer's own reservations.
type ReservationHandler struct {
	Reservations *repository.ReservationRepo
	Restaurants  *repository.RestaurantRepo
	Events       EventPublisher
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

func NewReservationHandler(res *repository.ReservationRepo, rest *repository.RestaurantRepo, ev EventPublisher, m *metrics.Metrics) *ReservationHandler {
	return &ReservationHandler{Reservations: res, Restaurants: rest, Events: ev, Metrics: m, Now: time.Now}
}

type statusReq struct {
	Status model.ReservationStatus `json:"status"`
}

// List handles GET /v1/reservations?user_id=.  A missing user_id means
// the caller; any other user is forbidden.
func (h *ReservationHandler) List(c echo.Context) error {
	me := middleware.UserID(c)
	userID := strings.TrimSpace(c.QueryParam("user_id"))
	if userID == "" {
		userID = me
	}
	if userID != me {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Reservations.ListByUser(ctx, userID)
	if err != nil {
		logger.FromContext(c).Error("list reservations failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	return c.JSON(http.StatusOK, items)
}

// Create handles POST /v1/reservations.  The status in the body is
// ignored and no availability check is made.
func (h *ReservationHandler) Create(c echo.Context) error {
	var d model.ReservationDraft
	if err := c.Bind(&d); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	me := middleware.UserID(c)
	if d.UserID == "" {
		d.UserID = me
	}
	if d.UserID != me {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	d.Status = model.StatusPending
	if err := d.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rest, err := h.Restaurants.GetByID(ctx, d.RestaurantID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "restaurant does not exist"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	res, err := h.Reservations.Create(ctx, d)
	if err != nil {
		logger.FromContext(c).Error("create reservation failed", zap.String("user_id", me), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create reservation"})
	}
	h.Metrics.Reservation("created")
	h.publish(c, queue.EventCreated, res, rest.Name)
	return c.JSON(http.StatusCreated, res)
}

// UpdateStatus handles PATCH /v1/reservations/:id.  Customers may only
// cancel; cancelling twice succeeds.
func (h *ReservationHandler) UpdateStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Status != model.StatusCancelled {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "only status \"cancelled\" can be set"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Reservations.UpdateStatus(ctx, id, middleware.UserID(c), req.Status)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case err != nil:
		logger.FromContext(c).Error("update reservation failed", zap.Uint64("reservation_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.Metrics.Reservation("cancelled")
	h.publish(c, queue.EventCancelled, res, "")
	return c.JSON(http.StatusOK, res)
}

// publish emits an event for res.  A broker failure never fails the
// request; the publisher logs it.
func (h *ReservationHandler) publish(c echo.Context, typ queue.EventType, res model.Reservation, restaurantName string) {
	if h.Events == nil {
		return
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 3*time.Second)
	defer cancel()
	_ = h.Events.Publish(ctx, queue.ReservationEvent{
		Type:           typ,
		ReservationID:  res.ID,
		RestaurantID:   res.RestaurantID,
		RestaurantName: restaurantName,
		UserID:         res.UserID,
		Date:           res.Date,
		Time:           res.Time,
		PartySize:      res.PartySize,
		Status:         string(res.Status),
		OccurredAt:     now().UTC(),
	})
}
