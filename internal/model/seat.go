package model

import "time"

// Seat is a bookable seat on a single calendar day.  The same seat number
// may exist on many days; (SeatNumber, Date) is unique.
//
// Invariants kept by the booking service:
//
//	IsAvailable == false  <=>  BookedBy != nil
//	AttendanceMarked      =>   IsAvailable == false
type Seat struct {
	ID               string    `json:"id"`
	SeatNumber       string    `json:"seatNumber"`
	Date             Day       `json:"date"`
	IsAvailable      bool      `json:"isAvailable"`
	BookedBy         *string   `json:"bookedBy"`
	AttendanceMarked bool      `json:"attendanceMarked"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// BookedByUser reports whether the seat is currently held by userID.
func (s Seat) BookedByUser(userID string) bool {
	return s.BookedBy != nil && *s.BookedBy == userID
}

// Booking is a booked seat joined with the public fields of the user
// holding it.  It is what admins see in the history and attendance views.
type Booking struct {
	Seat
	User UserSummary `json:"user"`
}
