package router

import (
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/labstack/echo/v4"
)

// RegisterRestaurants registers the restaurant and holiday routes.  Reads
// are public and served through the response cache; writes require the
// admin role and flush that cache.  Availability depends on live bookings
// and is never cached.
func RegisterRestaurants(v1 *echo.Group, d Deps) {
	cache := middleware.ResponseCache(d.Cache, d.Redis, d.Log)
	r, h := d.Restaurants, d.Holidays

	v1.GET("/restaurants/:id/availability", r.Availability)

	pub := v1.Group("/restaurants", cache)
	pub.GET("", r.List)
	pub.GET("/:id", r.Get)
	pub.GET("/:id/location", r.Location)
	pub.GET("/:id/holidays", h.List)
	pub.GET("/:id/holidays/:holidayId", h.Get)

	admin := v1.Group("/restaurants",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
		cache,
	)
	admin.POST("", r.Create)
	admin.PUT("/:id", r.Update)
	admin.DELETE("/:id", r.Delete)
	admin.POST("/:id/holidays", h.Create)
	admin.PUT("/:id/holidays/:holidayId", h.Update)
	admin.DELETE("/:id/holidays/:holidayId", h.Delete)
}
