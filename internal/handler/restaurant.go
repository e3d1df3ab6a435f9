package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/service"
)

// RestaurantStore is the restaurant storage used by RestaurantHandler.
type RestaurantStore interface {
	List(ctx context.Context, f repository.RestaurantFilter) ([]model.Restaurant, int, error)
	GetByID(ctx context.Context, id uint64) (*model.Restaurant, error)
	Create(ctx context.Context, rs *model.Restaurant) error
	Update(ctx context.Context, rs *model.Restaurant) error
	Delete(ctx context.Context, id uint64) error
}

// AvailabilityReader answers slot availability for a day.
type AvailabilityReader interface {
	Availability(ctx context.Context, restaurantID uint64, date time.Time) (*service.DayAvailability, error)
	Location() *time.Location
}

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

type RestaurantHandler struct {
	Restaurants RestaurantStore
	Slots       AvailabilityReader
}

func NewRestaurantHandler(r RestaurantStore, slots AvailabilityReader) *RestaurantHandler {
	return &RestaurantHandler{Restaurants: r, Slots: slots}
}

type locationReq struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

type restaurantReq struct {
	Name        string       `json:"name" validate:"required,max=100"`
	Address     string       `json:"address" validate:"required,max=255"`
	Telephone   string       `json:"telephone" validate:"required,max=30"`
	OpenTime    string       `json:"open_time" validate:"required,clock"`
	CloseTime   string       `json:"close_time" validate:"required,clock"`
	TotalTables int          `json:"total_tables" validate:"required,min=1"`
	Location    *locationReq `json:"location" validate:"required"`
}

// restaurantPatch holds the fields of a partial update; nil means unchanged.
type restaurantPatch struct {
	Name        *string      `json:"name" validate:"omitempty,min=1,max=100"`
	Address     *string      `json:"address" validate:"omitempty,min=1,max=255"`
	Telephone   *string      `json:"telephone" validate:"omitempty,min=1,max=30"`
	OpenTime    *string      `json:"open_time" validate:"omitempty,clock"`
	CloseTime   *string      `json:"close_time" validate:"omitempty,clock"`
	TotalTables *int         `json:"total_tables" validate:"omitempty,min=1"`
	Location    *locationReq `json:"location"`
}

type pageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type pagination struct {
	Next *pageRef `json:"next,omitempty"`
	Prev *pageRef `json:"prev,omitempty"`
}

type restaurantList struct {
	Count      int                `json:"count"`
	Total      int                `json:"total"`
	Pagination pagination         `json:"pagination"`
	Data       []model.Restaurant `json:"data"`
}

func queryInt(c echo.Context, name string, def int) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// List supports ?page, ?limit, ?sort=name,-created_at and ?name.
func (h *RestaurantHandler) List(c echo.Context) error {
	page := queryInt(c, "page", 1)
	limit := min(queryInt(c, "limit", defaultPageSize), maxPageSize)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	rows, total, err := h.Restaurants.List(ctx, repository.RestaurantFilter{
		Name:   c.QueryParam("name"),
		Sort:   repository.ParseSort(c.QueryParam("sort")),
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []model.Restaurant{}
	}
	var p pagination
	if page*limit < total {
		p.Next = &pageRef{Page: page + 1, Limit: limit}
	}
	if page > 1 {
		p.Prev = &pageRef{Page: page - 1, Limit: limit}
	}
	return c.JSON(http.StatusOK, restaurantList{Count: len(rows), Total: total, Pagination: p, Data: rows})
}

func (h *RestaurantHandler) load(c echo.Context) (*model.Restaurant, error) {
	id, ok := pathID(c, "id")
	if !ok {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid restaurant id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	return h.Restaurants.GetByID(ctx, id)
}

func (h *RestaurantHandler) Get(c echo.Context) error {
	rs, err := h.load(c)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rs)
}

// Location returns only the coordinates of a restaurant.
func (h *RestaurantHandler) Location(c echo.Context) error {
	rs, err := h.load(c)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": rs.ID, "name": rs.Name, "location": rs.Location})
}

func (h *RestaurantHandler) Create(c echo.Context) error {
	var req restaurantReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.CloseTime <= req.OpenTime {
		return badRequest(c, "close_time must be after open_time")
	}
	by := identity(c).UserID
	rs := &model.Restaurant{
		Name:        req.Name,
		Address:     req.Address,
		Telephone:   req.Telephone,
		OpenTime:    req.OpenTime,
		CloseTime:   req.CloseTime,
		TotalTables: req.TotalTables,
		Location:    model.Location{Latitude: req.Location.Latitude, Longitude: req.Location.Longitude},
		CreatedBy:   &by,
		UpdatedBy:   &by,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Restaurants.Create(ctx, rs); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rs)
}

func (h *RestaurantHandler) Update(c echo.Context) error {
	var req restaurantPatch
	if err := bind(c, &req); err != nil {
		return err
	}
	rs, err := h.load(c)
	if err != nil {
		return fail(c, err)
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&rs.Name, req.Name)
	set(&rs.Address, req.Address)
	set(&rs.Telephone, req.Telephone)
	set(&rs.OpenTime, req.OpenTime)
	set(&rs.CloseTime, req.CloseTime)
	if req.TotalTables != nil {
		rs.TotalTables = *req.TotalTables
	}
	if req.Location != nil {
		rs.Location = model.Location{Latitude: req.Location.Latitude, Longitude: req.Location.Longitude}
	}
	if rs.CloseTime <= rs.OpenTime {
		return badRequest(c, "close_time must be after open_time")
	}
	by := identity(c).UserID
	rs.UpdatedBy = &by

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Restaurants.Update(ctx, rs); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rs)
}

// Delete refuses while the restaurant has active reservations.
func (h *RestaurantHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid restaurant id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	err := h.Restaurants.Delete(ctx, id)
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot delete restaurant with active reservations"})
	}
	return fail(c, err)
}

type availabilityResp struct {
	*service.DayAvailability
	Message string `json:"message,omitempty"`
}

// Availability lists the hourly slots of ?date=YYYY-MM-DD.
func (h *RestaurantHandler) Availability(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid restaurant id")
	}
	date, err := parseDate(c.QueryParam("date"), h.Slots.Location())
	if err != nil {
		return badRequest(c, "date must be YYYY-MM-DD")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	day, err := h.Slots.Availability(ctx, id, date)
	if err != nil {
		return fail(c, err)
	}
	resp := availabilityResp{DayAvailability: day}
	if day.Holiday {
		resp.Message = "restaurant is closed on this day (holiday)"
	}
	return c.JSON(http.StatusOK, resp)
}
