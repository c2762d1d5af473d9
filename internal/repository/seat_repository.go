package repository // repository defines data access for seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/seat-booking/internal/model"
)

const seatColumns = `id, seat_number, seat_date, is_available, booked_by, attendance_marked, created_at, updated_at`

// SeatRepo provides methods to work with seats in the database.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeat(rs rowScanner, s *model.Seat) error {
	var bookedBy sql.NullString
	if err := rs.Scan(&s.ID, &s.SeatNumber, &s.Date, &s.IsAvailable, &bookedBy,
		&s.AttendanceMarked, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return err
	}
	if bookedBy.Valid {
		v := bookedBy.String
		s.BookedBy = &v
	}
	return nil
}

func collectSeats(rows *sql.Rows) ([]model.Seat, error) {
	defer rows.Close()
	result := []model.Seat{}
	for rows.Next() {
		var s model.Seat
		if err := scanSeat(rows, &s); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListByDate retrieves all seats of a day ordered by seat number.
func (r *SeatRepo) ListByDate(ctx context.Context, day model.Day) ([]model.Seat, error) {
	q := `SELECT ` + seatColumns + ` FROM seats WHERE seat_date = ? ORDER BY seat_number`
	rows, err := r.db.QueryContext(ctx, q, day)
	if err != nil {
		return nil, err
	}
	return collectSeats(rows)
}

// ListByUserAndDate retrieves the seats a user holds on a day.
func (r *SeatRepo) ListByUserAndDate(ctx context.Context, userID string, day model.Day) ([]model.Seat, error) {
	q := `SELECT ` + seatColumns + ` FROM seats WHERE booked_by = ? AND seat_date = ? ORDER BY seat_number`
	rows, err := r.db.QueryContext(ctx, q, userID, day)
	if err != nil {
		return nil, err
	}
	return collectSeats(rows)
}

// ListBookings joins booked seats of a day with the booking user's name
// and email.  Password hashes are never selected.
func (r *SeatRepo) ListBookings(ctx context.Context, day model.Day, attendedOnly bool) ([]model.Booking, error) {
	q := `SELECT s.id, s.seat_number, s.seat_date, s.is_available, s.booked_by, s.attendance_marked,
	             s.created_at, s.updated_at, u.id, u.name, u.email
	      FROM seats s
	      JOIN users u ON u.id = s.booked_by
	      WHERE s.seat_date = ? AND s.is_available = 0`
	if attendedOnly {
		q += ` AND s.attendance_marked = 1`
	}
	q += ` ORDER BY s.seat_number`
	rows, err := r.db.QueryContext(ctx, q, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []model.Booking{}
	for rows.Next() {
		var (
			b        model.Booking
			bookedBy sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.SeatNumber, &b.Date, &b.IsAvailable, &bookedBy,
			&b.AttendanceMarked, &b.CreatedAt, &b.UpdatedAt,
			&b.User.ID, &b.User.Name, &b.User.Email); err != nil {
			return nil, err
		}
		if bookedBy.Valid {
			v := bookedBy.String
			b.BookedBy = &v
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// prepareNew fills in the fields the store owns for a new seat.
func prepareNew(s *model.Seat, now time.Time) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.IsAvailable = true
	s.BookedBy = nil
	s.AttendanceMarked = false
	s.CreatedAt = now
	s.UpdatedAt = now
}

// Create inserts a single available seat.  On success the seat's ID and
// timestamps are populated.  A duplicate (seat_number, seat_date) pair
// yields ErrSeatExists.
func (r *SeatRepo) Create(ctx context.Context, s *model.Seat) error {
	prepareNew(s, time.Now().UTC().Truncate(time.Second))
	const q = `INSERT INTO seats (id, seat_number, seat_date, is_available, attendance_marked, created_at, updated_at)
	           VALUES (?, ?, ?, 1, 0, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, s.ID, s.SeatNumber, s.Date, s.CreatedAt, s.UpdatedAt); err != nil {
		if isDuplicate(err) {
			return ErrSeatExists
		}
		return err
	}
	return nil
}

// CreateBulk inserts multiple seats in a single statement, so either all
// of them are stored or none is.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	now := time.Now().UTC().Truncate(time.Second)
	var query strings.Builder
	query.WriteString(`INSERT INTO seats (id, seat_number, seat_date, is_available, attendance_marked, created_at, updated_at) VALUES `)
	args := make([]any, 0, len(seats)*5)
	for i := range seats {
		prepareNew(&seats[i], now)
		if i > 0 {
			query.WriteString(",")
		}
		query.WriteString("(?, ?, ?, 1, 0, ?, ?)")
		args = append(args, seats[i].ID, seats[i].SeatNumber, seats[i].Date, seats[i].CreatedAt, seats[i].UpdatedAt)
	}
	if _, err := r.db.ExecContext(ctx, query.String(), args...); err != nil {
		if isDuplicate(err) {
			return ErrSeatExists
		}
		return err
	}
	return nil
}

// Delete removes a seat regardless of its booking state and returns the
// removed record.
func (r *SeatRepo) Delete(ctx context.Context, id string) (*model.Seat, error) {
	var removed *model.Seat
	err := r.inTx(ctx, func(t *sqlSeatTx) error {
		s, err := t.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		res, err := t.tx.ExecContext(ctx, `DELETE FROM seats WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrSeatNotFound
		}
		removed = s
		return nil
	})
	return removed, err
}

// InTx runs fn in a database transaction.
func (r *SeatRepo) InTx(ctx context.Context, fn func(tx SeatTx) error) error {
	return r.inTx(ctx, func(t *sqlSeatTx) error { return fn(t) })
}

func (r *SeatRepo) inTx(ctx context.Context, fn func(t *sqlSeatTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlSeatTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// sqlSeatTx implements SeatTx over *sql.Tx using InnoDB row locks.
type sqlSeatTx struct {
	tx *sql.Tx
}

func (t *sqlSeatTx) GetForUpdate(ctx context.Context, id string) (*model.Seat, error) {
	q := `SELECT ` + seatColumns + ` FROM seats WHERE id = ? FOR UPDATE`
	var s model.Seat
	if err := scanSeat(t.tx.QueryRowContext(ctx, q, id), &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (t *sqlSeatTx) LockUser(ctx context.Context, userID string) error {
	var id string
	err := t.tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = ? FOR UPDATE`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	return err
}

func (t *sqlSeatTx) CountBookedByUser(ctx context.Context, userID string, day model.Day) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seats WHERE booked_by = ? AND seat_date = ?`, userID, day).Scan(&n)
	return n, err
}

func (t *sqlSeatTx) CompareAndSetAvailability(ctx context.Context, seatID string, expectedAvailable, newAvailable bool, newBookedBy *string) (bool, error) {
	const q = `UPDATE seats
	           SET is_available = ?, booked_by = ?, attendance_marked = 0, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND is_available = ?`
	var bookedBy sql.NullString
	if newBookedBy != nil {
		bookedBy = sql.NullString{String: *newBookedBy, Valid: true}
	}
	res, err := t.tx.ExecContext(ctx, q, newAvailable, bookedBy, seatID, expectedAvailable)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkAttendance sets the flag on a booked seat.  Marking an already
// marked seat changes nothing and is not an error.
func (t *sqlSeatTx) MarkAttendance(ctx context.Context, seatID string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE seats SET attendance_marked = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND is_available = 0`,
		seatID)
	return err
}
