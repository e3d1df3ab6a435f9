package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/service"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

// statusFor maps admission codes to HTTP statuses.  Every business
// rejection other than a missing or foreign resource is a conflict with
// the current state.
var statusFor = map[service.Code]int{
	service.CodeNotFound:           http.StatusNotFound,
	service.CodeForbidden:          http.StatusForbidden,
	service.CodeHolidayBlackout:    http.StatusConflict,
	service.CodeDailyQuotaExceeded: http.StatusConflict,
	service.CodeSlotFull:           http.StatusConflict,
	service.CodeDuplicateHoliday:   http.StatusConflict,
	service.CodeInvalidTransition:  http.StatusConflict,
}

// fail writes err as {"error": ...}.  Unknown errors are returned to echo
// so the request logger records them as 500s.
func fail(c echo.Context, err error) error {
	var ae *service.AdmissionError
	if errors.As(err, &ae) {
		return c.JSON(statusFor[ae.Code], echo.Map{"error": ae.Msg, "code": ae.Code})
	}
	switch {
	case errors.Is(err, repository.ErrRestaurantNotFound),
		errors.Is(err, repository.ErrReservationNotFound),
		errors.Is(err, repository.ErrHolidayNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrDuplicateHoliday):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	return err
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// bind decodes and validates the request body into v.  The returned
// *echo.HTTPError is rendered by ErrorHandler.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return c.Validate(v)
}

// ErrorHandler renders errors that reach echo in the {"error": ...} shape
// used by every handler.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := http.StatusInternalServerError, any("internal error")
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code, msg = he.Code, he.Message
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, echo.Map{"error": msg})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func identity(c echo.Context) model.Identity {
	id, _ := middleware.IdentityFrom(c)
	return id
}

// parseDate reads a YYYY-MM-DD day in loc.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(model.DateLayout, s, loc)
}
