package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/model"
)

// HolidayStore is the holiday storage used by HolidayHandler.
type HolidayStore interface {
	ListByRestaurant(ctx context.Context, restaurantID uint64) ([]model.Holiday, error)
	Get(ctx context.Context, restaurantID, id uint64) (*model.Holiday, error)
	UpdateDescription(ctx context.Context, restaurantID, id uint64, description string, by uint64) (*model.Holiday, error)
	Delete(ctx context.Context, restaurantID, id uint64) error
}

// HolidayAdmitter creates holidays through the admission rules.
type HolidayAdmitter interface {
	CreateHoliday(ctx context.Context, actor model.Identity, restaurantID uint64, date time.Time, description string) (*model.Holiday, error)
	Location() *time.Location
}

type HolidayHandler struct {
	Holidays    HolidayStore
	Restaurants RestaurantStore
	Admission   HolidayAdmitter
}

func NewHolidayHandler(h HolidayStore, r RestaurantStore, a HolidayAdmitter) *HolidayHandler {
	return &HolidayHandler{Holidays: h, Restaurants: r, Admission: a}
}

type holidayReq struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Description string `json:"description" validate:"max=255"`
}

type holidayPatch struct {
	Description string `json:"description" validate:"required,max=255"`
}

// holidayIDs reads :id and, when withHoliday is set, :holidayId.
func holidayIDs(c echo.Context, withHoliday bool) (restaurantID, holidayID uint64, err error) {
	restaurantID, ok := pathID(c, "id")
	if !ok {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid restaurant id")
	}
	if withHoliday {
		if holidayID, ok = pathID(c, "holidayId"); !ok {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid holiday id")
		}
	}
	return restaurantID, holidayID, nil
}

func (h *HolidayHandler) List(c echo.Context) error {
	rid, _, err := holidayIDs(c, false)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if _, err := h.Restaurants.GetByID(ctx, rid); err != nil {
		return fail(c, err)
	}
	out, err := h.Holidays.ListByRestaurant(ctx, rid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(out), "data": out})
}

func (h *HolidayHandler) Get(c echo.Context) error {
	rid, hid, err := holidayIDs(c, true)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	hol, err := h.Holidays.Get(ctx, rid, hid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, hol)
}

// Create marks a date closed.  It is rejected when the date already is a
// holiday or still carries active reservations.
func (h *HolidayHandler) Create(c echo.Context) error {
	rid, _, err := holidayIDs(c, false)
	if err != nil {
		return err
	}
	var req holidayReq
	if err := bind(c, &req); err != nil {
		return err
	}
	date, err := parseDate(req.Date, h.Admission.Location())
	if err != nil {
		return badRequest(c, "date must be YYYY-MM-DD")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	hol, err := h.Admission.CreateHoliday(ctx, identity(c), rid, date, strings.TrimSpace(req.Description))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, hol)
}

// Update changes the description only; the date is fixed once admitted.
func (h *HolidayHandler) Update(c echo.Context) error {
	rid, hid, err := holidayIDs(c, true)
	if err != nil {
		return err
	}
	var req holidayPatch
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	hol, err := h.Holidays.UpdateDescription(ctx, rid, hid, strings.TrimSpace(req.Description), identity(c).UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, hol)
}

func (h *HolidayHandler) Delete(c echo.Context) error {
	rid, hid, err := holidayIDs(c, true)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Holidays.Delete(ctx, rid, hid); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
