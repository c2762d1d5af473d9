package model

import "time"

// Roles understood by the access gate.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User mirrors a row of the `users` table.  PasswordHash never leaves the
// server: it is tagged out of JSON and handlers respond with UserSummary
// or the Profile view.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Summary strips the user down to the fields safe to join onto bookings.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserSummary is the display join used by booking history and attendance.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserBookings annotates a user with their seats for one day.
type UserBookings struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Bookings []Seat `json:"bookings"`
}

// Principal is the authenticated caller produced by the access gate.
type Principal struct {
	UserID string
	Role   string
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
