package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// ReportStore runs the admin aggregate queries.
type ReportStore interface {
	Summary(ctx context.Context, from, to time.Time) ([]repository.RestaurantSummary, error)
	Performance(ctx context.Context, year int, month time.Month) ([]repository.RestaurantPerformance, error)
}

type ReportHandler struct {
	Reports ReportStore
}

func NewReportHandler(r ReportStore) *ReportHandler { return &ReportHandler{Reports: r} }

// Summary counts reservations per restaurant between ?start and ?end,
// both inclusive.
func (h *ReportHandler) Summary(c echo.Context) error {
	from, err1 := parseDate(c.QueryParam("start"), time.UTC)
	to, err2 := parseDate(c.QueryParam("end"), time.UTC)
	if err1 != nil || err2 != nil {
		return badRequest(c, "start and end are required as YYYY-MM-DD")
	}
	if to.Before(from) {
		return badRequest(c, "end must not be before start")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	out, err := h.Reports.Summary(ctx, from, to)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"start": from.Format(model.DateLayout),
		"end":   to.Format(model.DateLayout),
		"data":  out,
	})
}

// Performance ranks restaurants by reservation count.  ?month and ?year
// narrow it to one month and must be given together.
func (h *ReportHandler) Performance(c echo.Context) error {
	ms, ys := c.QueryParam("month"), c.QueryParam("year")
	var (
		year  int
		month time.Month
	)
	if ms != "" || ys != "" {
		m, err1 := strconv.Atoi(ms)
		y, err2 := strconv.Atoi(ys)
		if err1 != nil || err2 != nil || m < 1 || m > 12 || y < 1 {
			return badRequest(c, "month (1-12) and year must be given together")
		}
		year, month = y, time.Month(m)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	out, err := h.Reports.Performance(ctx, year, month)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(out), "data": out})
}
