package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/logger"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// ProfileHandler serves user_profiles rows.  Every route is limited to
// the caller's own profile.
type ProfileHandler struct {
	Profiles *repository.ProfileRepo
}

func NewProfileHandler(p *repository.ProfileRepo) *ProfileHandler {
	return &ProfileHandler{Profiles: p}
}

type createProfileReq struct {
	ID       string     `json:"id"`
	FullName string     `json:"full_name"`
	Phone    string     `json:"phone"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
}

// Get handles GET /v1/profiles/:id.
func (h *ProfileHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Profiles.Get(ctx, c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
	}
	if err != nil {
		logger.FromContext(c).Error("load profile failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, p)
}

// Create handles POST /v1/profiles.  The id must be the caller's own and
// only the customer role may be self-assigned.
func (h *ProfileHandler) Create(c echo.Context) error {
	var req createProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.ID == "" {
		req.ID = middleware.UserID(c)
	}
	if req.ID != middleware.UserID(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if req.Role != "" && req.Role != model.RoleCustomer {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "role cannot be self-assigned"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Profiles.Insert(ctx, model.UserProfile{
		ID:       req.ID,
		FullName: req.FullName,
		Phone:    req.Phone,
		Email:    req.Email,
		Role:     model.RoleCustomer,
	})
	if errors.Is(err, repository.ErrConflict) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "profile already exists"})
	}
	if err != nil {
		logger.FromContext(c).Error("insert profile failed", zap.String("user_id", req.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create profile"})
	}
	return c.JSON(http.StatusCreated, p)
}

// Update handles PATCH /v1/profiles/:id with a partial body.
func (h *ProfileHandler) Update(c echo.Context) error {
	var req model.ProfileUpdate
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Profiles.Update(ctx, c.Param("id"), req)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
	}
	if err != nil {
		logger.FromContext(c).Error("update profile failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, p)
}
