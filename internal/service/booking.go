// Package service implements the booking engine: every seat state
// transition goes through BookingService so that the availability,
// ownership and daily quota rules hold no matter which endpoint called it.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/seat-booking/internal/model"
	"github.com/iliyamo/seat-booking/internal/monitoring"
	"github.com/iliyamo/seat-booking/internal/queue"
	"github.com/iliyamo/seat-booking/internal/repository"
)

// DailySeatLimit is the number of seats one user may hold on one day.
const DailySeatLimit = 6

// publishTimeout bounds how long a request waits on the broker after its
// transaction has committed.
const publishTimeout = 2 * time.Second

// EventPublisher receives committed seat state changes.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.SeatEvent) error
}

// BookingService mediates all seat reads and writes.
type BookingService struct {
	Seats  repository.SeatStore
	Users  repository.UserDirectory
	Events EventPublisher // optional
	Log    *log.Logger

	now func() time.Time
}

// NewBookingService panics on nil stores, like the handler constructors.
func NewBookingService(seats repository.SeatStore, users repository.UserDirectory, events EventPublisher, logger *log.Logger) *BookingService {
	if seats == nil || users == nil {
		panic("nil store passed to NewBookingService")
	}
	if logger == nil {
		logger = log.New("booking")
	}
	return &BookingService{Seats: seats, Users: users, Events: events, Log: logger, now: time.Now}
}

// ParseDate validates a date query value.
func ParseDate(raw string) (model.Day, error) {
	if strings.TrimSpace(raw) == "" {
		return model.Day{}, newError(KindValidation, "date is required")
	}
	d, err := model.ParseDay(raw)
	if err != nil {
		return model.Day{}, &Error{Kind: KindValidation, Message: "invalid date, expected YYYY-MM-DD", Err: err}
	}
	return d, nil
}

func parseSeatID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", newError(KindValidation, "invalid seat id")
	}
	return id.String(), nil
}

func requireRole(p model.Principal, role string) error {
	if p.UserID == "" {
		return newError(KindForbidden, "not authenticated")
	}
	if p.Role != role {
		return newError(KindForbidden, "not authorized")
	}
	return nil
}

// translate maps store errors onto the service taxonomy.  Anything
// unrecognised is logged and surfaced as a persistence failure with a
// generic message.
func (s *BookingService) translate(op, failMsg string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	switch {
	case errors.As(err, &se):
		return se
	case errors.Is(err, repository.ErrSeatNotFound):
		return newError(KindNotFound, "seat not found")
	case errors.Is(err, repository.ErrSeatExists):
		return &Error{Kind: KindConflict, Message: "seat already exists for this date", Err: err}
	case errors.Is(err, repository.ErrUserNotFound):
		return newError(KindNotFound, "user not found")
	}
	s.Log.Errorf("%s: %v", op, err)
	return &Error{Kind: KindPersistence, Message: failMsg, Err: err}
}

func (s *BookingService) track(op string, started time.Time, err *error) {
	outcome := monitoring.OutcomeOK
	if *err != nil {
		outcome = string(KindOf(*err))
	}
	monitoring.TrackOperation(op, outcome, started)
}

// publish is best-effort: the state change is already committed, so a
// broker failure is logged and counted but never returned.
func (s *BookingService) publish(ctx context.Context, typ string, seat *model.Seat, userID string, p model.Principal) {
	if s.Events == nil || seat == nil {
		return
	}
	ev := queue.SeatEvent{
		Type:       typ,
		SeatID:     seat.ID,
		SeatNumber: seat.SeatNumber,
		Date:       seat.Date.String(),
		UserID:     userID,
		ActorID:    p.UserID,
		ActorRole:  p.Role,
		OccurredAt: s.now().UTC().Format(time.RFC3339),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.Events.Publish(pctx, ev); err != nil {
		monitoring.TrackPublishFailure()
		s.Log.Warnf("publish %s for seat %s failed: %v", typ, seat.ID, err)
	}
}

// ListSeats returns every seat of a day.
func (s *BookingService) ListSeats(ctx context.Context, date string) (seats []model.Seat, err error) {
	defer s.track("list_seats", time.Now(), &err)
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	seats, err = s.Seats.ListByDate(ctx, day)
	return seats, s.translate("list seats", "failed to fetch seats", err)
}

func normalizeSeatNumber(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// CreateSeat adds an available seat.  (seatNumber, date) must be unique.
func (s *BookingService) CreateSeat(ctx context.Context, p model.Principal, seatNumber, date string) (seat *model.Seat, err error) {
	defer s.track("create_seat", time.Now(), &err)
	if err := requireRole(p, model.RoleAdmin); err != nil {
		return nil, err
	}
	number := normalizeSeatNumber(seatNumber)
	if number == "" || strings.TrimSpace(date) == "" {
		return nil, newError(KindValidation, "seat number and date are required")
	}
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	seat = &model.Seat{SeatNumber: number, Date: day}
	if err := s.Seats.Create(ctx, seat); err != nil {
		return nil, s.translate("create seat", "failed to create seat", err)
	}
	s.publish(ctx, queue.EventSeatCreated, seat, "", p)
	return seat, nil
}

// CreateSeats adds several seats for one day in a single write.  Either
// every seat is created or none is.
func (s *BookingService) CreateSeats(ctx context.Context, p model.Principal, seatNumbers []string, date string) (seats []model.Seat, err error) {
	defer s.track("create_seats", time.Now(), &err)
	if err := requireRole(p, model.RoleAdmin); err != nil {
		return nil, err
	}
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	if len(seatNumbers) == 0 {
		return nil, newError(KindValidation, "seatNumbers is required")
	}
	seen := make(map[string]struct{}, len(seatNumbers))
	seats = make([]model.Seat, 0, len(seatNumbers))
	for _, raw := range seatNumbers {
		number := normalizeSeatNumber(raw)
		if number == "" {
			return nil, newError(KindValidation, "seat numbers must not be empty")
		}
		if _, dup := seen[number]; dup {
			return nil, newError(KindValidation, "duplicate seat number "+number)
		}
		seen[number] = struct{}{}
		seats = append(seats, model.Seat{SeatNumber: number, Date: day})
	}
	if err := s.Seats.CreateBulk(ctx, seats); err != nil {
		return nil, s.translate("create seats", "failed to create seats", err)
	}
	for i := range seats {
		s.publish(ctx, queue.EventSeatCreated, &seats[i], "", p)
	}
	return seats, nil
}

// Book assigns an available seat to the calling user.  The seat row and
// the user's row are locked for the whole check-and-write, so neither two
// bookers of the same seat nor parallel bookings by the same user can
// slip past the availability flag or DailySeatLimit.
func (s *BookingService) Book(ctx context.Context, p model.Principal, seatID string) (seat *model.Seat, err error) {
	defer s.track("book", time.Now(), &err)
	if err := requireRole(p, model.RoleUser); err != nil {
		return nil, err
	}
	id, err := parseSeatID(seatID)
	if err != nil {
		return nil, err
	}
	userID := p.UserID
	err = s.Seats.InTx(ctx, func(tx repository.SeatTx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.IsAvailable {
			return newError(KindConflict, "seat already booked")
		}
		if err := tx.LockUser(ctx, userID); err != nil {
			return err
		}
		n, err := tx.CountBookedByUser(ctx, userID, current.Date)
		if err != nil {
			return err
		}
		if n >= DailySeatLimit {
			return newError(KindQuotaExceeded, "user has reached the limit of 6 seats per day")
		}
		ok, err := tx.CompareAndSetAvailability(ctx, id, true, false, &userID)
		if err != nil {
			return err
		}
		if !ok {
			return newError(KindConflict, "seat already booked")
		}
		current.IsAvailable = false
		current.BookedBy = &userID
		current.AttendanceMarked = false
		seat = current
		return nil
	})
	if err != nil {
		return nil, s.translate("book seat", "failed to book seat", err)
	}
	s.publish(ctx, queue.EventSeatBooked, seat, userID, p)
	return seat, nil
}

// Unbook releases a booked seat.  A user may only release their own seat.
// An admin must name the user currently holding it in targetUserID.
// Attendance is cleared together with the booking.
func (s *BookingService) Unbook(ctx context.Context, p model.Principal, seatID, targetUserID string) (seat *model.Seat, err error) {
	defer s.track("unbook", time.Now(), &err)
	if p.UserID == "" {
		return nil, newError(KindForbidden, "not authenticated")
	}
	id, err := parseSeatID(seatID)
	if err != nil {
		return nil, err
	}
	targetUserID = strings.TrimSpace(targetUserID)
	if p.IsAdmin() && targetUserID == "" {
		return nil, newError(KindValidation, "user id is required")
	}
	if !p.IsAdmin() && p.Role != model.RoleUser {
		return nil, newError(KindForbidden, "not authorized")
	}

	var releasedFrom string
	err = s.Seats.InTx(ctx, func(tx repository.SeatTx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.IsAdmin() {
			if current.IsAvailable || !current.BookedByUser(targetUserID) {
				return newError(KindForbidden, "user is not the owner of this seat")
			}
		} else {
			if current.IsAvailable {
				return newError(KindConflict, "seat is already available")
			}
			if !current.BookedByUser(p.UserID) {
				return newError(KindForbidden, "this seat is booked by another user")
			}
		}
		releasedFrom = *current.BookedBy
		ok, err := tx.CompareAndSetAvailability(ctx, id, false, true, nil)
		if err != nil {
			return err
		}
		if !ok {
			return newError(KindConflict, "seat is already available")
		}
		current.IsAvailable = true
		current.BookedBy = nil
		current.AttendanceMarked = false
		seat = current
		return nil
	})
	if err != nil {
		return nil, s.translate("unbook seat", "failed to unbook seat", err)
	}
	s.publish(ctx, queue.EventSeatUnbooked, seat, releasedFrom, p)
	return seat, nil
}

// DeleteSeat removes a seat whatever its booking state.
func (s *BookingService) DeleteSeat(ctx context.Context, p model.Principal, seatID string) (seat *model.Seat, err error) {
	defer s.track("delete_seat", time.Now(), &err)
	if err := requireRole(p, model.RoleAdmin); err != nil {
		return nil, err
	}
	id, err := parseSeatID(seatID)
	if err != nil {
		return nil, err
	}
	seat, err = s.Seats.Delete(ctx, id)
	if err != nil {
		return nil, s.translate("delete seat", "failed to delete seat", err)
	}
	var holder string
	if seat.BookedBy != nil {
		holder = *seat.BookedBy
	}
	s.publish(ctx, queue.EventSeatDeleted, seat, holder, p)
	return seat, nil
}

// MarkAttendance flags a booked seat as attended.  Marking twice leaves
// the seat unchanged.
func (s *BookingService) MarkAttendance(ctx context.Context, p model.Principal, seatID string) (seat *model.Seat, err error) {
	defer s.track("mark_attendance", time.Now(), &err)
	if err := requireRole(p, model.RoleAdmin); err != nil {
		return nil, err
	}
	id, err := parseSeatID(seatID)
	if err != nil {
		return nil, err
	}
	err = s.Seats.InTx(ctx, func(tx repository.SeatTx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.IsAvailable {
			return newError(KindNotFound, "seat is not booked")
		}
		if err := tx.MarkAttendance(ctx, id); err != nil {
			return err
		}
		current.AttendanceMarked = true
		seat = current
		return nil
	})
	if err != nil {
		return nil, s.translate("mark attendance", "failed to mark attendance", err)
	}
	s.publish(ctx, queue.EventSeatAttendance, seat, *seat.BookedBy, p)
	return seat, nil
}

// BookingHistory lists the booked seats of a day with their users.
func (s *BookingService) BookingHistory(ctx context.Context, date string) (bookings []model.Booking, err error) {
	defer s.track("booking_history", time.Now(), &err)
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	bookings, err = s.Seats.ListBookings(ctx, day, false)
	return bookings, s.translate("booking history", "failed to fetch booking history", err)
}

// AttendanceRecords lists the attended seats of a day with their users.
func (s *BookingService) AttendanceRecords(ctx context.Context, date string) (bookings []model.Booking, err error) {
	defer s.track("attendance_records", time.Now(), &err)
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	bookings, err = s.Seats.ListBookings(ctx, day, true)
	return bookings, s.translate("attendance records", "failed to fetch attendance records", err)
}

// MyBookings lists the caller's seats for a day.
func (s *BookingService) MyBookings(ctx context.Context, p model.Principal, date string) (seats []model.Seat, err error) {
	defer s.track("my_bookings", time.Now(), &err)
	if p.UserID == "" {
		return nil, newError(KindForbidden, "not authenticated")
	}
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	seats, err = s.Seats.ListByUserAndDate(ctx, p.UserID, day)
	return seats, s.translate("my bookings", "failed to fetch bookings", err)
}

// UsersWithBookings returns the full user roster, each user annotated
// with their seats for the day.  Users without bookings are included
// with an empty list.
func (s *BookingService) UsersWithBookings(ctx context.Context, date string) (result []model.UserBookings, err error) {
	defer s.track("users_with_bookings", time.Now(), &err)
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	users, err := s.Users.ListAll(ctx)
	if err != nil {
		return nil, s.translate("list users", "failed to fetch users", err)
	}
	bookings, err := s.Seats.ListBookings(ctx, day, false)
	if err != nil {
		return nil, s.translate("users with bookings", "failed to fetch bookings", err)
	}
	byUser := make(map[string][]model.Seat)
	for _, b := range bookings {
		byUser[b.User.ID] = append(byUser[b.User.ID], b.Seat)
	}
	result = make([]model.UserBookings, 0, len(users))
	for _, u := range users {
		seats := byUser[u.ID]
		if seats == nil {
			seats = []model.Seat{}
		}
		result = append(result, model.UserBookings{
			ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Bookings: seats,
		})
	}
	return result, nil
}

// Profile returns the caller's user record.
func (s *BookingService) Profile(ctx context.Context, p model.Principal) (user *model.User, err error) {
	defer s.track("profile", time.Now(), &err)
	user, err = s.Users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, s.translate("profile", "failed to fetch user profile", err)
	}
	return user, nil
}
