package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-booking/internal/middleware"
	"github.com/iliyamo/seat-booking/internal/model"
	"github.com/iliyamo/seat-booking/internal/service"
)

// BookingHandler exposes the booking engine under /api/booking.
type BookingHandler struct {
	Svc *service.BookingService
}

func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	if svc == nil {
		panic("nil BookingService passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc}
}

type createSeatReq struct {
	SeatNumber string `json:"seatNumber"`
	Date       string `json:"date"`
}

type createSeatsReq struct {
	SeatNumbers []string `json:"seatNumbers"`
	Date        string   `json:"date"`
}

type unbookReq struct {
	UserID string `json:"userId"`
}

var kindStatus = map[service.Kind]int{
	service.KindValidation:    http.StatusBadRequest,
	service.KindNotFound:      http.StatusNotFound,
	service.KindConflict:      http.StatusBadRequest,
	service.KindQuotaExceeded: http.StatusBadRequest,
	service.KindForbidden:     http.StatusForbidden,
	service.KindPersistence:   http.StatusInternalServerError,
}

// respondError renders a service error as {"error", "kind"}.
func respondError(c echo.Context, err error) error {
	kind := service.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, echo.Map{"error": service.Message(err), "kind": kind})
}

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// ListSeats handles GET /seats?date=.
func (h *BookingHandler) ListSeats(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	seats, err := h.Svc.ListSeats(ctx, c.QueryParam("date"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, seats)
}

// CreateSeat handles POST /seats.
func (h *BookingHandler) CreateSeat(c echo.Context) error {
	var req createSeatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body", "kind": service.KindValidation})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	seat, err := h.Svc.CreateSeat(ctx, middleware.Principal(c), req.SeatNumber, req.Date)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, seat)
}

// CreateSeats handles POST /seats/bulk.
func (h *BookingHandler) CreateSeats(c echo.Context) error {
	var req createSeatsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body", "kind": service.KindValidation})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	seats, err := h.Svc.CreateSeats(ctx, middleware.Principal(c), req.SeatNumbers, req.Date)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "seats created successfully", "seats": seats})
}

// Book handles PATCH /seats/book/:id.
func (h *BookingHandler) Book(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	seat, err := h.Svc.Book(ctx, middleware.Principal(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, seat)
}

// Unbook handles PATCH /seats/unbook/:id.  Admins name the seat holder in
// the body; users send no body.
func (h *BookingHandler) Unbook(c echo.Context) error {
	p := middleware.Principal(c)
	var req unbookReq
	if p.IsAdmin() {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body", "kind": service.KindValidation})
		}
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	seat, err := h.Svc.Unbook(ctx, p, c.Param("id"), req.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "seat unbooked successfully", "seat": seat})
}

// DeleteSeat handles DELETE /seats/:id.
func (h *BookingHandler) DeleteSeat(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	seat, err := h.Svc.DeleteSeat(ctx, middleware.Principal(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "seat deleted successfully", "seat": seat})
}

// MarkAttendance handles PATCH /mark-attendance/:id.
func (h *BookingHandler) MarkAttendance(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	seat, err := h.Svc.MarkAttendance(ctx, middleware.Principal(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, seat)
}

// History handles GET /history?date=.
func (h *BookingHandler) History(c echo.Context) error {
	return h.listBookings(c, h.Svc.BookingHistory)
}

// Attendance handles GET /attendance?date=.
func (h *BookingHandler) Attendance(c echo.Context) error {
	return h.listBookings(c, h.Svc.AttendanceRecords)
}

func (h *BookingHandler) listBookings(c echo.Context, fetch func(context.Context, string) ([]model.Booking, error)) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	bookings, err := fetch(ctx, c.QueryParam("date"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, bookings)
}

// MyBookings handles GET /my-bookings?date=.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	seats, err := h.Svc.MyBookings(ctx, middleware.Principal(c), c.QueryParam("date"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, seats)
}

// UsersWithBookings handles GET /users-with-bookings?date=.
func (h *BookingHandler) UsersWithBookings(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	users, err := h.Svc.UsersWithBookings(ctx, c.QueryParam("date"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// Profile handles GET /api/user/profile.
func (h *BookingHandler) Profile(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	u, err := h.Svc.Profile(ctx, middleware.Principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
