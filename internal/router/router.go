// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
)

// Deps carries everything the routes need.  Redis may be nil, which turns
// rate limiting and response caching off.
type Deps struct {
	Auth         *handler.AuthHandler
	Users        *handler.UserHandler
	Restaurants  *handler.RestaurantHandler
	Holidays     *handler.HolidayHandler
	Reservations *handler.ReservationHandler
	Reports      *handler.ReportHandler
	DB           handler.Pinger

	JWTSecret    string
	Redis        *redis.Client
	RateLimit    config.RateLimitConfig
	BookingLimit config.RateLimitConfig
	Cache        config.CacheConfig
	Log          logrus.FieldLogger
}

// New builds the echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler

	e.Use(echomw.Recover())
	e.Use(middleware.Logger(d.Log))

	RegisterRoutes(e, d.DB)

	v1 := e.Group("/v1", middleware.RateLimit(d.RateLimit, d.Redis, d.Log))
	RegisterAuth(v1, d.Auth, d.JWTSecret)
	RegisterUsers(v1, d.Auth, d.Users, d.JWTSecret)
	RegisterRestaurants(v1, d)
	RegisterReservations(v1, d)
	RegisterReports(v1, d.Reports, d.JWTSecret)
	return e
}

// RegisterRoutes registers routes outside the versioned API.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers account routes.  Register, login, refresh and
// logout need no session; /me does.
func RegisterAuth(v1 *echo.Group, a *handler.AuthHandler, jwtSecret string) {
	g := v1.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	v1.GET("/me", a.Me, middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleUser, model.RoleAdmin))
}
