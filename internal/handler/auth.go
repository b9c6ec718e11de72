package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/logger"
	"github.com/iliyamo/table-reservation/internal/metrics"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/utils"
	"go.uber.org/zap"
)

// AuthHandler serves the auth subsystem: sign-up, password sign-in,
// refresh-token rotation, logout and the current-user endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Tokens   *repository.TokenRepo
	Profiles *repository.ProfileRepo
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, p *repository.ProfileRepo, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Profiles: p, Metrics: m, Now: time.Now}
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type updateUserReq struct {
	Password string `json:"password"`
}

// sessionResp is the wire form of a session.
type sessionResp struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
}

type userResp struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type signUpResp struct {
	User    userResp    `json:"user"`
	Session sessionResp `json:"session"`
}

func (h *AuthHandler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// issueSession signs an access token and stores a new refresh token for
// userID.  The role claim comes from the user's profile when one exists.
func (h *AuthHandler) issueSession(ctx context.Context, userID string) (sessionResp, error) {
	role := ""
	if h.Profiles != nil {
		if p, err := h.Profiles.Get(ctx, userID); err == nil {
			role = string(p.Role)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return sessionResp{}, err
		}
	}
	now := h.now()
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, role, h.Cfg.AccessTTLMin, now)
	if err != nil {
		return sessionResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays, now)
	if err != nil {
		return sessionResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, userID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return sessionResp{}, err
	}
	return sessionResp{
		AccessToken:  access.Token,
		RefreshToken: refresh.Raw,
		ExpiresAt:    access.Exp,
		UserID:       userID,
	}, nil
}

func (req *credentialsReq) normalize() {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
}

// SignUp creates an identity and signs it in.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.normalize()
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "a valid email is required"})
	}
	if err := utils.CheckPassword(req.Password); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Email, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		h.Metrics.Auth("signup", false)
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		logger.FromContext(c).Error("create user failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create account"})
	}
	s, err := h.issueSession(ctx, u.ID)
	if err != nil {
		logger.FromContext(c).Error("issue session failed", zap.String("user_id", u.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not start session"})
	}
	h.Metrics.Auth("signup", true)
	return c.JSON(http.StatusCreated, signUpResp{
		User:    userResp{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt},
		Session: s,
	})
}

// Token signs in with email and password.
func (h *AuthHandler) Token(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.normalize()
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		logger.FromContext(c).Error("load user failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err != nil || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		h.Metrics.Auth("signin", false)
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid email or password"})
	}
	s, err := h.issueSession(ctx, u.ID)
	if err != nil {
		logger.FromContext(c).Error("issue session failed", zap.String("user_id", u.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not start session"})
	}
	h.Metrics.Auth("signin", true)
	return c.JSON(http.StatusOK, s)
}

// Refresh rotates a refresh token and returns a new session.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash, h.now())
	if err == nil {
		err = h.Tokens.RevokeByHash(ctx, hash)
	}
	if err != nil {
		h.Metrics.Auth("refresh", false)
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired refresh token"})
		}
		logger.FromContext(c).Error("validate refresh failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	s, err := h.issueSession(ctx, userID)
	if err != nil {
		logger.FromContext(c).Error("issue session failed", zap.String("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not start session"})
	}
	h.Metrics.Auth("refresh", true)
	return c.JSON(http.StatusOK, s)
}

// Logout revokes the refresh token in the body, or with only a bearer
// token every refresh token of that user.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	refresh := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if refresh != "" {
		err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(refresh))
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			logger.FromContext(c).Error("revoke refresh failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}

	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")); raw != "" && raw != auth {
		claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, raw)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}
		if err := h.Tokens.RevokeAllForUser(ctx, claims.Subject); err != nil {
			logger.FromContext(c).Error("revoke all failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
}

// Me returns the authenticated identity.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, middleware.UserID(c))
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "user no longer exists"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, userResp{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt})
}

// UpdateUser changes the authenticated user's password.
func (h *AuthHandler) UpdateUser(c echo.Context) error {
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := utils.CheckPassword(req.Password); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id := middleware.UserID(c)
	err := h.Users.UpdatePassword(ctx, id, req.Password, h.Cfg.BcryptCost)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "user no longer exists"})
	}
	if err != nil {
		logger.FromContext(c).Error("update password failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id})
}
