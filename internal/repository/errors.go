// Package repository holds the data access layer.  Sentinel errors defined
// here let the booking service tell "nothing there" apart from real
// persistence failures without looking at driver-specific codes.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrSeatNotFound is returned when a seat lookup or delete matches no row.
var ErrSeatNotFound = errors.New("seat not found")

// ErrSeatExists is returned when a seat with the same number already
// exists on the same day.
var ErrSeatExists = errors.New("seat already exists for this date")

// ErrUserNotFound is returned when a user lookup matches no row.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrTokenInvalid is returned for unknown, expired or revoked refresh tokens.
var ErrTokenInvalid = errors.New("invalid refresh token")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
