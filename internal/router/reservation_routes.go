package router

import (
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/labstack/echo/v4"
)

// RegisterReservations registers booking routes.  Every route needs a
// session; mutations also pass the per-user booking rate limit.
func RegisterReservations(v1 *echo.Group, d Deps) {
	h := d.Reservations
	g := v1.Group("/reservations",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)
	booking := middleware.RateLimit(d.BookingLimit, d.Redis, d.Log)

	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/history", h.History)

	g.POST("", h.Create, middleware.RequireRole(model.RoleUser), booking)
	g.PUT("/:id", h.Update, booking)
	g.PATCH("/:id", h.Update, booking)
	g.POST("/:id/cancel", h.Cancel, booking)
	g.DELETE("/:id", h.Cancel, booking)
	g.POST("/:id/complete", h.Complete, middleware.RequireRole(model.RoleAdmin))
}
