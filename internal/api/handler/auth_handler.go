package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
	"github.com/suatgpt/suatgpt-backend/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	log         zerolog.Logger
}

func NewAuthHandler(authService ports.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      authRequest  true  "Username and password"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  messageOnly
// @Failure      500   {object}  messageOnly
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req authRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageOnly{Message: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageOnly{Message: err.Error()})
	}

	if _, err := h.authService.Register(c.Request().Context(), req.Username, req.Password); err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateIdentity):
			return c.JSON(http.StatusBadRequest, messageOnly{Message: "Username already exists"})
		case errors.Is(err, domain.ErrInvalidRegistration):
			return c.JSON(http.StatusBadRequest, messageOnly{Message: err.Error()})
		}
		h.log.Error().Err(err).Msg("registration failed")
		return c.JSON(http.StatusInternalServerError, messageOnly{Message: "Registration failed"})
	}

	return c.JSON(http.StatusOK, authResponse{Message: "User registered successfully!"})
}

// Login authenticates a user and returns a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      authRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      401   {object}  authResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req authRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnauthorized, authResponse{Message: "Invalid username or password"})
	}

	token, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, domain.ErrAuthenticationFailed) {
			h.log.Error().Err(err).Msg("login failed")
		}
		return c.JSON(http.StatusUnauthorized, authResponse{Message: "Invalid username or password"})
	}

	return c.JSON(http.StatusOK, authResponse{Token: token, Message: "Authentication successful"})
}

// Me returns the caller's account without credentials.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      401  {object}  messageOnly
// @Failure      404  {object}  messageOnly
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	caller, err := ctxUser(c)
	if err != nil {
		return err
	}

	user, err := h.authService.Me(c.Request().Context(), caller.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, messageOnly{Message: "User not found"})
		}
		return err
	}

	return c.JSON(http.StatusOK, meResponse{ID: user.ID, Username: user.Username, Role: string(user.Role)})
}
