package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
)

// RegisterUsers registers profile routes for any signed-in account and
// the admin account management routes.
func RegisterUsers(v1 *echo.Group, a *handler.AuthHandler, h *handler.UserHandler, jwtSecret string) {
	auth := middleware.JWTAuth(jwtSecret)
	anyone := middleware.RequireRole(model.RoleUser, model.RoleAdmin)
	v1.GET("/users/me", a.Me, auth, anyone)
	v1.PUT("/users/me", h.UpdateMe, auth, anyone)
	v1.PUT("/me", h.UpdateMe, auth, anyone)

	g := v1.Group("/users", auth, middleware.RequireRole(model.RoleAdmin))
	g.GET("", h.List)
	g.GET("/:userId", h.Get)
	g.PUT("/:userId", h.Update)
	g.DELETE("/:userId", h.Delete)
}
