package router

import (
	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/labstack/echo/v4"
)

// RegisterReports registers the admin reporting routes.
func RegisterReports(v1 *echo.Group, h *handler.ReportHandler, jwtSecret string) {
	g := v1.Group("/reports", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
	g.GET("/reservations/summary", h.Summary)
	g.GET("/restaurants/performance", h.Performance)
}
