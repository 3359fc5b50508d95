package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/suatgpt/suatgpt-backend/internal/api/middleware"
	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
)

// ctxUser returns the identity resolved by the request gate, or a 401 when
// the request is anonymous.
func ctxUser(c echo.Context) (*domain.User, error) {
	user := middleware.Identity(c)
	if user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}
	return user, nil
}
