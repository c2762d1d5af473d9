package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-booking/internal/handler"
	"github.com/iliyamo/seat-booking/internal/middleware"
	"github.com/iliyamo/seat-booking/internal/model"
)

// RegisterBooking registers the seat endpoints under /api/booking and the
// profile endpoint.  Every route requires a valid access token; the rate
// limiter runs after JWTAuth so buckets can be keyed by user.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	auth := middleware.JWTAuth(jwtSecret)
	anyRole := middleware.RequireRole(model.RoleUser, model.RoleAdmin)
	userOnly := middleware.RequireRole(model.RoleUser)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	g := e.Group("/api/booking", auth, limit)
	g.GET("/seats", h.ListSeats, anyRole)
	g.POST("/seats", h.CreateSeat, adminOnly)
	g.POST("/seats/bulk", h.CreateSeats, adminOnly)
	g.PATCH("/seats/book/:id", h.Book, userOnly)
	g.PATCH("/seats/unbook/:id", h.Unbook, anyRole)
	g.DELETE("/seats/:id", h.DeleteSeat, adminOnly)
	g.PATCH("/mark-attendance/:id", h.MarkAttendance, adminOnly)
	g.GET("/history", h.History, adminOnly)
	g.GET("/attendance", h.Attendance, adminOnly)
	g.GET("/my-bookings", h.MyBookings, userOnly)
	g.GET("/users-with-bookings", h.UsersWithBookings, adminOnly)

	e.GET("/api/user/profile", h.Profile, auth, limit, anyRole)
}
