package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/service"
)

// ReservationService is the booking surface used by ReservationHandler.
type ReservationService interface {
	Create(ctx context.Context, actor model.Identity, req service.CreateRequest) (*model.Reservation, error)
	Update(ctx context.Context, actor model.Identity, id uint64, ch service.Changes) (*model.Reservation, error)
	Cancel(ctx context.Context, actor model.Identity, id uint64) (*model.Reservation, error)
	Complete(ctx context.Context, actor model.Identity, id uint64) (*model.Reservation, error)
	Get(ctx context.Context, actor model.Identity, id uint64) (*model.Reservation, error)
	List(ctx context.Context, actor model.Identity) ([]model.Reservation, error)
	History(ctx context.Context, actor model.Identity, id uint64) ([]model.ReservationHistory, error)
	Location() *time.Location
}

type ReservationHandler struct {
	Svc ReservationService
}

func NewReservationHandler(svc ReservationService) *ReservationHandler {
	return &ReservationHandler{Svc: svc}
}

type createReservationReq struct {
	RestaurantID uint64 `json:"restaurant_id" validate:"required"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string `json:"time" validate:"required,clock"`
	NumOfGuests  int    `json:"num_of_guests" validate:"required,min=1,max=50"`
}

type updateReservationReq struct {
	RestaurantID *uint64 `json:"restaurant_id" validate:"omitempty,min=1"`
	Date         *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time         *string `json:"time" validate:"omitempty,clock"`
	NumOfGuests  *int    `json:"num_of_guests" validate:"omitempty,min=1,max=50"`
}

func reservationID(c echo.Context) (uint64, error) {
	id, ok := pathID(c, "id")
	if !ok {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid reservation id")
	}
	return id, nil
}

// List returns the caller's reservations, or every reservation for admins.
func (h *ReservationHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.Svc.List(ctx, identity(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(out), "data": out})
}

func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := reservationID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.Get(ctx, identity(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationReq
	if err := bind(c, &req); err != nil {
		return err
	}
	date, err := parseDate(req.Date, h.Svc.Location())
	if err != nil {
		return badRequest(c, "date must be YYYY-MM-DD")
	}
	actor := identity(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	res, err := h.Svc.Create(ctx, actor, service.CreateRequest{
		UserID:       actor.UserID,
		RestaurantID: req.RestaurantID,
		Date:         date,
		Time:         req.Time,
		NumOfGuests:  req.NumOfGuests,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Update applies a partial change.  Moving to another slot is re-checked
// for capacity; the status is never changed here.
func (h *ReservationHandler) Update(c echo.Context) error {
	id, err := reservationID(c)
	if err != nil {
		return err
	}
	var req updateReservationReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ch := service.Changes{RestaurantID: req.RestaurantID, Time: req.Time, NumOfGuests: req.NumOfGuests}
	if req.Date != nil {
		d, err := parseDate(*req.Date, h.Svc.Location())
		if err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
		ch.Date = &d
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	res, err := h.Svc.Update(ctx, identity(c), id, ch)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Cancel marks the reservation canceled, or deleted when an admin cancels.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	return h.changeStatus(c, h.Svc.Cancel)
}

func (h *ReservationHandler) Complete(c echo.Context) error {
	return h.changeStatus(c, h.Svc.Complete)
}

func (h *ReservationHandler) changeStatus(c echo.Context, fn func(context.Context, model.Identity, uint64) (*model.Reservation, error)) error {
	id, err := reservationID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := fn(ctx, identity(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// History returns the audit trail of a reservation, oldest first.
func (h *ReservationHandler) History(c echo.Context) error {
	id, err := reservationID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.Svc.History(ctx, identity(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(out), "data": out})
}
