package repository

import (
	"context"
	"time"

	"github.com/iliyamo/seat-booking/internal/model"
)

// SeatStore is the persistent seat collection.  SeatRepo (MySQL) and
// MemoryStore implement it.
type SeatStore interface {
	ListByDate(ctx context.Context, day model.Day) ([]model.Seat, error)
	ListByUserAndDate(ctx context.Context, userID string, day model.Day) ([]model.Seat, error)
	// ListBookings returns booked seats of a day joined with their user.
	// With attendedOnly set, only seats with attendance marked are returned.
	ListBookings(ctx context.Context, day model.Day, attendedOnly bool) ([]model.Booking, error)
	Create(ctx context.Context, seat *model.Seat) error
	CreateBulk(ctx context.Context, seats []model.Seat) error
	Delete(ctx context.Context, id string) (*model.Seat, error)
	// InTx runs fn inside one transaction.  The transaction is committed
	// when fn returns nil and rolled back otherwise.
	InTx(ctx context.Context, fn func(tx SeatTx) error) error
}

// SeatTx is the set of row-locking operations available inside InTx.
type SeatTx interface {
	// GetForUpdate loads a seat and locks it until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*model.Seat, error)
	// LockUser locks the user's row so that concurrent quota checks for
	// the same user are serialized.
	LockUser(ctx context.Context, userID string) error
	CountBookedByUser(ctx context.Context, userID string, day model.Day) (int, error)
	// CompareAndSetAvailability flips a seat's availability only if it
	// currently equals expectedAvailable.  It reports whether a row was
	// changed.  attendanceMarked is always reset: a seat entering or
	// leaving the booked state has no attendance yet.
	CompareAndSetAvailability(ctx context.Context, seatID string, expectedAvailable, newAvailable bool, newBookedBy *string) (bool, error)
	MarkAttendance(ctx context.Context, seatID string) error
}

// UserDirectory is the read side of the user store used by the booking
// service.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	ListAll(ctx context.Context) ([]model.User, error)
}

// UserAccounts is the credential side of the user store used by the auth
// endpoints.
type UserAccounts interface {
	CreateUser(ctx context.Context, name, email, password, role string, cost int) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (string, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

var (
	_ SeatStore     = (*SeatRepo)(nil)
	_ SeatStore     = (*MemoryStore)(nil)
	_ UserDirectory = (*UserRepo)(nil)
	_ UserDirectory = (*MemoryStore)(nil)
	_ UserAccounts  = (*UserRepo)(nil)
	_ UserAccounts  = (*MemoryStore)(nil)
	_ TokenStore    = (*TokenRepo)(nil)
	_ TokenStore    = (*MemoryStore)(nil)
)
