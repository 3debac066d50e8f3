package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recovery converts handler panics into 500 responses instead of tearing
// down the connection. The panic value and stack are logged; the client
// only ever sees a generic error body.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				evt := logger.Error().
					Str("request_id", requestID(c)).
					Str("path", c.Request().URL.Path).
					Bytes("stack", debug.Stack())
				if pe, ok := r.(error); ok {
					evt = evt.Err(pe)
				} else {
					evt = evt.Interface("panic", r)
				}
				evt.Msg("panic recovered")
				err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}()
			return next(c)
		}
	}
}

// requestID reads the correlation ID set by RequestID, tolerating
// middleware orderings where it has not run yet.
func requestID(c echo.Context) string {
	rid, _ := c.Get("request_id").(string)
	return rid
}
