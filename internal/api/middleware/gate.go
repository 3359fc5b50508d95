package middleware

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
	"github.com/suatgpt/suatgpt-backend/internal/core/ports"
	"github.com/suatgpt/suatgpt-backend/internal/pkg/metrics"
)

const identityKey = "identity"

// Identity returns the caller resolved by Gate, or nil for anonymous requests.
func Identity(c echo.Context) *domain.User {
	u, _ := c.Get(identityKey).(*domain.User)
	return u
}

// SetIdentity stores user as the caller for the rest of the chain.
func SetIdentity(c echo.Context, user *domain.User) {
	c.Set(identityKey, user)
}

// GateConfig configures Gate.
type GateConfig struct {
	Codec ports.TokenCodec
	Users ports.UserRepository
	// PublicPaths are reachable without an identity. A pattern is an exact
	// path, a path.Match glob, or a prefix ending in "/**".
	PublicPaths []string
	Log         zerolog.Logger
}

// Gate resolves the bearer token, when present, into an identity stored on the
// context, then rejects requests to non-public paths that have none. A bad
// token never aborts the request by itself.
func Gate(cfg GateConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if user := resolve(c, cfg); user != nil {
				SetIdentity(c, user)
			}

			if Identity(c) == nil && !isPublic(cfg.PublicPaths, c.Request().URL.Path) {
				return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
			}
			return next(c)
		}
	}
}

func resolve(c echo.Context, cfg GateConfig) *domain.User {
	token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if !ok {
		return nil
	}

	subject, err := cfg.Codec.Validate(token)
	if err != nil {
		metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
		cfg.Log.Debug().Err(err).Str("path", c.Request().URL.Path).Msg("gate: ignoring invalid token")
		return nil
	}

	user, err := cfg.Users.FindByUsername(c.Request().Context(), subject)
	if err != nil {
		metrics.TokenValidationsTotal.WithLabelValues("unknown_subject").Inc()
		ev := cfg.Log.Debug()
		if !errors.Is(err, domain.ErrUserNotFound) {
			ev = cfg.Log.Warn()
		}
		ev.Err(err).Str("subject", subject).Msg("gate: token subject not resolved")
		return nil
	}

	metrics.TokenValidationsTotal.WithLabelValues("valid").Inc()
	return user
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func isPublic(patterns []string, p string) bool {
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	for _, pattern := range patterns {
		if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
			if p == prefix || strings.HasPrefix(p, prefix+"/") {
				return true
			}
			continue
		}
		if ok, _ := path.Match(pattern, p); ok {
			return true
		}
	}
	return false
}
