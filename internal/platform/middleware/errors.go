package middleware

import (
	"errors"
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/iancoleman/strcase"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const codeValidationError = "validation_error"

// ErrorResponse is the JSON body returned for every handler error. Details
// carries per-field validation messages when the error came from payload
// validation.
type ErrorResponse struct {
	StatusCode int               `json:"-"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

// ErrorHandler returns an echo.HTTPErrorHandler that maps handler errors to
// structured JSON responses. ozzo validation.Errors become a 400 with one
// detail entry per failing field; echo.HTTPError keeps its status; anything
// else is a 500 with the cause logged but not leaked to the caller.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var resp *ErrorResponse

		var he *echo.HTTPError
		var ve validation.Errors
		switch {
		case errors.As(err, &ve):
			details := make(map[string]string, len(ve))
			for field, fieldErr := range ve {
				details[field] = fieldErr.Error()
			}
			resp = &ErrorResponse{
				StatusCode: http.StatusBadRequest,
				Code:       codeValidationError,
				Message:    "validation error",
				Details:    details,
			}
		case errors.As(err, &he):
			resp = &ErrorResponse{
				StatusCode: he.Code,
				Code:       strcase.ToSnake(http.StatusText(he.Code)),
				Message:    fmt.Sprintf("%v", he.Message),
			}
		default:
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")
			resp = &ErrorResponse{
				StatusCode: http.StatusInternalServerError,
				Code:       strcase.ToSnake(http.StatusText(http.StatusInternalServerError)),
				Message:    "internal server error",
			}
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(resp.StatusCode)
			return
		}
		_ = c.JSON(resp.StatusCode, resp)
	}
}
