package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// AccountStore is the account storage used by UserHandler.
type AccountStore interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id uint64) error
}

// UserHandler serves profile updates and admin account management.
type UserHandler struct {
	Users AccountStore
}

func NewUserHandler(u AccountStore) *UserHandler { return &UserHandler{Users: u} }

// profileReq holds the fields a user may change on their own account;
// nil means unchanged.
type profileReq struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email     *string `json:"email" validate:"omitempty,email,max=255"`
	Telephone *string `json:"telephone" validate:"omitempty,min=1,max=30"`
}

type accountReq struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email     *string `json:"email" validate:"omitempty,email,max=255"`
	Telephone *string `json:"telephone" validate:"omitempty,min=1,max=30"`
	Role      *string `json:"role" validate:"omitempty,oneof=user admin"`
}

func (p profileReq) apply(u *model.User) {
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Telephone != nil {
		u.Telephone = strings.TrimSpace(*p.Telephone)
	}
}

// save loads id, lets change edit it and writes it back.
func (h *UserHandler) save(c echo.Context, id uint64, change func(*model.User)) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	change(u)
	if err := h.Users.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateMe edits the caller's own profile.  The role cannot be changed
// here.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	var req profileReq
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.save(c, identity(c).UserID, req.apply)
}

// List returns every account.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(users), "data": users})
}

func (h *UserHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "userId")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Update edits any account, including its role.  A new role reaches the
// user's access tokens when they are next issued.
func (h *UserHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "userId")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req accountReq
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.save(c, id, func(u *model.User) {
		profileReq{Name: req.Name, Email: req.Email, Telephone: req.Telephone}.apply(u)
		if req.Role != nil {
			u.Role = model.ParseRole(*req.Role)
		}
	})
}

// Delete removes an account that holds no active reservations.
func (h *UserHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "userId")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	err := h.Users.Delete(ctx, id)
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot delete user with active reservations"})
	}
	return fail(c, err)
}
