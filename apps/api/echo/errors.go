package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core"
)

var (
	errUnauthenticated = echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	errForbidden       = echo.NewHTTPError(http.StatusForbidden, "Unauthorized")
	errHttpNotFound    = echo.NewHTTPError(http.StatusNotFound, "not found")
)

type errorPage struct {
	Code     int
	Message  string
	Identity interface{}
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		// already handled (request logger) or partially written
		if ctx.Response().Committed {
			return
		}

		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string][]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = append(fldErrs[fErr.Field], fErr.Error)
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			args := []interface{}{errors.Wrap(err, msg)}
			if id, ok := contextIdentity(ctx); ok {
				args = append(args, id)
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}

		// Send response
		switch {
		case ctx.Request().Method == http.MethodHead: // Issue #608
			err = ctx.NoContent(code)
		case wantsJSON(ctx):
			err = ctx.JSON(code, echo.Map{"error": message})
		default:
			page := errorPage{Code: code, Message: http.StatusText(code)}
			if m, ok := message.(string); ok {
				page.Message = m
			}
			if id, ok := contextIdentity(ctx); ok {
				page.Identity = id
			}
			err = ctx.Render(code, "error.html", page)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
