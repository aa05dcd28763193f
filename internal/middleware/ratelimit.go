package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"cors-relay-go/internal/headers"
	"cors-relay-go/internal/model"
)

// RateLimiter returns a per-client-IP limiter. Denied requests get the relay's
// JSON error envelope with CORS headers so browser clients can read it.
// Preflight requests are never limited.
func RateLimiter(rps float64) echo.MiddlewareFunc {
	store := echomw.NewRateLimiterMemoryStore(rate.Limit(rps))

	reject := func(c echo.Context, status int, msg string) error {
		headers.CORS(c.Request().Header.Get("Access-Control-Allow-Headers")).Apply(c.Response().Header())
		return c.JSON(status, model.ErrorBody{Code: status, Msg: msg})
	}

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Method == http.MethodOptions
		},
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, _ error) error {
			return reject(c, http.StatusForbidden, "unable to identify client")
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return reject(c, http.StatusTooManyRequests, "too many requests")
		},
	})
}
