package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/logger"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/utils"
)

// TokenStore persists refresh token hashes.
type TokenStore interface {
	Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	Rotate(ctx context.Context, oldHash, newHash string, exp time.Time) (uint64, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth and account endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
	Log    *logger.Logger
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, l *logger.Logger) *AuthHandler {
	if l == nil {
		l = logger.Default()
	}
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Log: l}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"full_name" validate:"required,max=100"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
	// Role is honoured only in the dev environment and by the admin
	// account endpoint; public sign-ups are always riders.
	Role string `json:"role" validate:"omitempty,oneof=user driver admin"`
}

type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    model.User `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

func timeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// Register creates a rider account and returns a token pair immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	role := model.RoleUser
	if h.Cfg.Env == "dev" && req.Role != "" {
		role = req.Role
	}
	u, status, err := h.createUser(c, req, role)
	if err != nil || status != 0 {
		return err
	}
	return h.issue(c, http.StatusCreated, u)
}

// createUser returns a non-zero status when it already wrote the response.
func (h *AuthHandler) createUser(c echo.Context, req registerReq, role string) (*model.User, int, error) {
	ctx, cancel := timeout(c)
	defer cancel()
	u := &model.User{
		Username: req.Username,
		Email:    req.Email,
		FullName: strings.TrimSpace(req.FullName),
		Phone:    strings.TrimSpace(req.Phone),
		Role:     role,
	}
	if err := h.Users.Create(ctx, u, req.Password, h.Cfg.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return nil, http.StatusConflict, c.JSON(http.StatusConflict, echo.Map{"error": "username or email already exists"})
		}
		h.Log.LogError(ctx, "create user failed", err)
		return nil, http.StatusInternalServerError, internalError(c, "create user failed")
	}
	return u, 0, nil
}

// Login verifies username and password and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := timeout(c)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.Log.LogAuthFailure(ctx, "unknown username", c.RealIP())
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return internalError(c, "query failed")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		h.Log.LogAuthFailure(ctx, "wrong password", c.RealIP())
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.IsActive {
		h.Log.LogAuthFailure(ctx, "inactive account", c.RealIP())
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
	}
	return h.issue(c, http.StatusOK, u)
}

func (h *AuthHandler) issue(c echo.Context, status int, u *model.User) error {
	ctx, cancel := timeout(c)
	defer cancel()
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return internalError(c, "issue access failed")
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return internalError(c, "issue refresh failed")
	}
	if err := h.Tokens.Store(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		h.Log.LogError(ctx, "save refresh failed", err)
		return internalError(c, "save refresh failed")
	}
	return c.JSON(status, authResp{
		User:    *u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is returned. A token can be rotated once.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	ctx, cancel := timeout(c)
	defer cancel()

	newRef, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return internalError(c, "issue refresh failed")
	}
	oldHash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))
	userID, err := h.Tokens.Rotate(ctx, oldHash, utils.HashRefreshRaw(newRef.Raw), newRef.Exp)
	if err != nil {
		if errors.Is(err, repository.ErrTokenInvalid) {
			h.Log.LogAuthFailure(ctx, "invalid refresh token", c.RealIP())
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return internalError(c, "rotate refresh failed")
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return internalError(c, "load user failed")
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return internalError(c, "issue access failed")
	}
	return c.JSON(http.StatusOK, authResp{
		User:    *u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: newRef.Raw, Expires: newRef.Exp},
	})
}

// Logout revokes the refresh token in the body, or every refresh token of
// the caller when the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req refreshReq
	_ = c.Bind(&req)

	ctx, cancel := timeout(c)
	defer cancel()
	if raw := strings.TrimSpace(req.RefreshToken); raw != "" {
		if err := h.Tokens.Revoke(ctx, utils.HashRefreshRaw(raw)); err != nil {
			if errors.Is(err, repository.ErrTokenInvalid) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
			}
			return internalError(c, "logout failed")
		}
		return c.NoContent(http.StatusNoContent)
	}
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return internalError(c, "logout failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's account together with the seat-map view its role
// maps to.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := timeout(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return internalError(c, "load user failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u, "view": viewOf(c).Name()})
}

// ListUsers is the admin account listing. ?role=driver narrows it to one
// role, which is how the bus form finds assignable drivers.
func (h *AuthHandler) ListUsers(c echo.Context) error {
	role := strings.ToLower(strings.TrimSpace(c.QueryParam("role")))
	if role != "" && !model.ValidRole(role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}
	ctx, cancel := timeout(c)
	defer cancel()
	users, err := h.Users.ListAll(ctx)
	if err != nil {
		return internalError(c, "list users failed")
	}
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	return c.JSON(http.StatusOK, out)
}

// CreateUser lets an admin create an account with any role, typically a
// driver.
func (h *AuthHandler) CreateUser(c echo.Context) error {
	var req registerReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	role := req.Role
	if role == "" {
		role = model.RoleUser
	}
	u, status, err := h.createUser(c, req, role)
	if err != nil || status != 0 {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}
