package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"cors-relay-go/internal/headers"
	"cors-relay-go/internal/model"
)

// ErrorHandler replaces echo's default error handler so errors raised outside
// the relay handler (body limit, unknown routes, recovered panics) still get
// the CORS headers and the {code,msg} envelope.
//
// An *echo.HTTPError keeps its status and message. Anything else is answered
// 500 with code -1 and a fixed message; the detail is only logged.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	logger = logger.With("component", "error_handler")

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := model.ErrorBody{Code: -1, Msg: "Internal proxy error"}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			body.Code = he.Code
			if msg, ok := he.Message.(string); ok {
				body.Msg = msg
			} else {
				body.Msg = http.StatusText(he.Code)
			}
			if he.Internal != nil {
				logger.Debug("http error", "status", status, "err", he.Internal)
			}
		} else {
			logger.Error("unhandled error", "err", err, "method", c.Request().Method)
		}

		headers.CORS(c.Request().Header.Get("Access-Control-Allow-Headers")).Apply(c.Response().Header())

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error("writing error response", "err", writeErr)
		}
	}
}
