// Package queue defines message payloads exchanged over the message broker.
package queue

// SeatEventsQueue is the durable queue seat events are routed to.
const SeatEventsQueue = "seat.events"

// Seat event types.
const (
	EventSeatCreated    = "seat.created"
	EventSeatDeleted    = "seat.deleted"
	EventSeatBooked     = "seat.booked"
	EventSeatUnbooked   = "seat.unbooked"
	EventSeatAttendance = "seat.attendance"
)

// SeatEvent is published after every committed seat state change.  It
// carries enough context for an audit log without querying the database.
type SeatEvent struct {
	Type       string `json:"type"`
	SeatID     string `json:"seat_id"`
	SeatNumber string `json:"seat_number"`
	Date       string `json:"date"`
	UserID     string `json:"user_id,omitempty"` // user holding or releasing the seat
	ActorID    string `json:"actor_id"`          // who made the request
	ActorRole  string `json:"actor_role"`
	OccurredAt string `json:"occurred_at"`
}
