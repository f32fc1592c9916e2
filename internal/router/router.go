// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinepiu-booking/internal/handler"
	"github.com/iliyamo/cinepiu-booking/internal/middleware"
	"github.com/iliyamo/cinepiu-booking/internal/model"
)

// Deps carries everything the routes need. A nil limiter disables rate
// limiting for its routes.
type Deps struct {
	Log          *zap.Logger
	JWTSecret    string
	RateLimit    echo.MiddlewareFunc
	BookingLimit echo.MiddlewareFunc
	Cache        *middleware.ResponseCache
	Health       echo.HandlerFunc
	Auth         *handler.AuthHandler
	Catalog      *handler.CatalogHandler
	Booking      *handler.BookingHandler
	Programming  *handler.ProgrammingHandler
	Rooms        *handler.RoomHandler
}

// Register installs the global middleware and every route.
func Register(e *echo.Echo, d Deps) {
	e.Validator = handler.NewValidator()
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(d.Log))
	if d.RateLimit != nil {
		e.Use(d.RateLimit)
	}

	e.GET("/healthz", d.Health)

	RegisterAuth(e, d.Auth, d.JWTSecret)
	RegisterPublic(e, d)
	RegisterBooking(e, d)
	RegisterProgramming(e, d)
}

// RegisterAuth registers the session endpoints under /v1/auth and the
// protected /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the unauthenticated browsing endpoints. Listing
// responses go through the response cache; seat maps never do.
func RegisterPublic(e *echo.Echo, d Deps) {
	cached := []echo.MiddlewareFunc{}
	if d.Cache != nil {
		cached = append(cached, d.Cache.Middleware())
	}
	p := d.Catalog
	e.GET("/v1/movies/in-programming", p.InProgramming, cached...)
	e.GET("/v1/movies/festival", p.Festival, cached...)
	e.GET("/v1/movies/upcoming", p.Upcoming, cached...)
	e.GET("/v1/movies/search", p.Search, cached...)
	e.GET("/v1/movies/:id", p.Movie, cached...)
	e.GET("/v1/rooms", d.Rooms.List, cached...)
	e.GET("/v1/rooms/:id/schedule", d.Programming.RoomSchedule, cached...)

	e.GET("/v1/showtimes/:id/seats", p.SeatMap)
}

// RegisterBooking registers reservation endpoints for signed-in customers
// and for staff.
func RegisterBooking(e *echo.Echo, d Deps) {
	b := d.Booking
	limited := []echo.MiddlewareFunc{}
	if d.BookingLimit != nil {
		limited = append(limited, d.BookingLimit)
	}

	g := e.Group("/v1", middleware.JWTAuth(d.JWTSecret), middleware.Require(model.Role.Authenticated))
	g.POST("/showtimes/:id/book", b.Book, limited...)
	g.GET("/my-reservations", b.MyReservations)
	g.POST("/reservations/:id/cancel", b.Cancel, limited...)

	staff := e.Group("/v1/staff", middleware.JWTAuth(d.JWTSecret), middleware.Require(model.Role.IsStaffOperational))
	staff.POST("/reservations/:id/cancel", b.StaffCancel, middleware.Require(model.Role.CanCancelAnyReservation))
	staff.POST("/reservations/:id/pay", b.MarkPaid, middleware.Require(model.Role.CanMarkPaid))
	staff.GET("/movies/:id/reservations", b.MovieReservations)
	staff.GET("/users/:id/reservations", b.UserReservations)
}

// RegisterProgramming registers catalogue, schedule and room management.
func RegisterProgramming(e *echo.Echo, d Deps) {
	p := d.Programming
	g := e.Group("/v1", middleware.JWTAuth(d.JWTSecret), middleware.Require(model.Role.CanManageProgramming))
	g.POST("/movies", p.CreateMovie)
	g.PUT("/movies/:id", p.UpdateMovie)
	g.DELETE("/movies/:id", p.DeleteMovie)
	g.POST("/movies/:id/showtimes", p.CreateShowtime)
	g.PUT("/showtimes/:id", p.UpdateShowtime)
	g.DELETE("/showtimes/:id", p.DeleteShowtime)

	e.POST("/v1/rooms", d.Rooms.Create, middleware.JWTAuth(d.JWTSecret), middleware.RequireRole(model.RoleAdmin))
}
