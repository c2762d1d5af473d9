package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/seat-booking/internal/model"
	"github.com/iliyamo/seat-booking/internal/utils"
)

// MemoryStore keeps seats, users and refresh tokens in process memory.  It
// backs APP_STORE=memory for local runs and the handler/service tests.
// Transactions take the store-wide lock, so they are fully serialized.
type MemoryStore struct {
	mu     sync.RWMutex
	seats  map[string]model.Seat
	users  map[string]model.User
	tokens map[string]memToken
}

type memToken struct {
	userID    string
	expiresAt time.Time
	revoked   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seats:  map[string]model.Seat{},
		users:  map[string]model.User{},
		tokens: map[string]memToken{},
	}
}

func sortSeats(seats []model.Seat) {
	sort.Slice(seats, func(i, j int) bool { return seats[i].SeatNumber < seats[j].SeatNumber })
}

func cloneSeat(s model.Seat) model.Seat {
	if s.BookedBy != nil {
		v := *s.BookedBy
		s.BookedBy = &v
	}
	return s
}

func (m *MemoryStore) ListByDate(_ context.Context, day model.Day) ([]model.Seat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.Seat{}
	for _, s := range m.seats {
		if s.Date.Equal(day) {
			out = append(out, cloneSeat(s))
		}
	}
	sortSeats(out)
	return out, nil
}

func (m *MemoryStore) ListByUserAndDate(_ context.Context, userID string, day model.Day) ([]model.Seat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.Seat{}
	for _, s := range m.seats {
		if s.Date.Equal(day) && s.BookedByUser(userID) {
			out = append(out, cloneSeat(s))
		}
	}
	sortSeats(out)
	return out, nil
}

func (m *MemoryStore) ListBookings(_ context.Context, day model.Day, attendedOnly bool) ([]model.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seats := []model.Seat{}
	for _, s := range m.seats {
		if !s.Date.Equal(day) || s.IsAvailable || s.BookedBy == nil {
			continue
		}
		if attendedOnly && !s.AttendanceMarked {
			continue
		}
		seats = append(seats, cloneSeat(s))
	}
	sortSeats(seats)
	out := []model.Booking{}
	for _, s := range seats {
		u, ok := m.users[*s.BookedBy]
		if !ok {
			// inner join semantics
			continue
		}
		out = append(out, model.Booking{Seat: s, User: u.Summary()})
	}
	return out, nil
}

func (m *MemoryStore) hasSeat(number string, day model.Day) bool {
	for _, s := range m.seats {
		if s.SeatNumber == number && s.Date.Equal(day) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) Create(_ context.Context, s *model.Seat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasSeat(s.SeatNumber, s.Date) {
		return ErrSeatExists
	}
	prepareNew(s, time.Now().UTC())
	m.seats[s.ID] = cloneSeat(*s)
	return nil
}

func (m *MemoryStore) CreateBulk(_ context.Context, seats []model.Seat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	for _, s := range seats {
		key := s.SeatNumber + "|" + s.Date.String()
		if seen[key] || m.hasSeat(s.SeatNumber, s.Date) {
			return ErrSeatExists
		}
		seen[key] = true
	}
	now := time.Now().UTC()
	for i := range seats {
		prepareNew(&seats[i], now)
		m.seats[seats[i].ID] = cloneSeat(seats[i])
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) (*model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.seats[id]
	if !ok {
		return nil, ErrSeatNotFound
	}
	delete(m.seats, id)
	return &s, nil
}

// InTx stages writes and applies them only if fn succeeds.
func (m *MemoryStore) InTx(ctx context.Context, fn func(tx SeatTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{store: m, staged: map[string]model.Seat{}}
	if err := fn(tx); err != nil {
		return err
	}
	for id, s := range tx.staged {
		m.seats[id] = s
	}
	return nil
}

type memTx struct {
	store  *MemoryStore
	staged map[string]model.Seat
}

func (t *memTx) current(id string) (model.Seat, bool) {
	if s, ok := t.staged[id]; ok {
		return s, true
	}
	s, ok := t.store.seats[id]
	return s, ok
}

func (t *memTx) GetForUpdate(_ context.Context, id string) (*model.Seat, error) {
	s, ok := t.current(id)
	if !ok {
		return nil, ErrSeatNotFound
	}
	c := cloneSeat(s)
	return &c, nil
}

func (t *memTx) LockUser(_ context.Context, userID string) error {
	if _, ok := t.store.users[userID]; !ok {
		return ErrUserNotFound
	}
	return nil
}

func (t *memTx) CountBookedByUser(_ context.Context, userID string, day model.Day) (int, error) {
	n := 0
	for id := range t.store.seats {
		s, _ := t.current(id)
		if s.Date.Equal(day) && s.BookedByUser(userID) {
			n++
		}
	}
	return n, nil
}

func (t *memTx) CompareAndSetAvailability(_ context.Context, seatID string, expectedAvailable, newAvailable bool, newBookedBy *string) (bool, error) {
	s, ok := t.current(seatID)
	if !ok || s.IsAvailable != expectedAvailable {
		return false, nil
	}
	s.IsAvailable = newAvailable
	s.BookedBy = nil
	if newBookedBy != nil {
		v := *newBookedBy
		s.BookedBy = &v
	}
	s.AttendanceMarked = false
	s.UpdatedAt = time.Now().UTC()
	t.staged[seatID] = s
	return true, nil
}

func (t *memTx) MarkAttendance(_ context.Context, seatID string) error {
	s, ok := t.current(seatID)
	if !ok || s.IsAvailable {
		return nil
	}
	s.AttendanceMarked = true
	s.UpdatedAt = time.Now().UTC()
	t.staged[seatID] = s
	return nil
}

// ---- users ----

// CreateUser registers a user with a bcrypt-hashed password.
func (m *MemoryStore) CreateUser(_ context.Context, name, email, password, role string, cost int) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return nil, ErrEmailExists
		}
	}
	u := model.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[u.ID] = u
	return &u, nil
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *MemoryStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryStore) ListAll(_ context.Context) ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

// ---- refresh tokens ----

func (m *MemoryStore) StoreRefresh(_ context.Context, userID, tokenHash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenHash] = memToken{userID: userID, expiresAt: exp}
	return nil
}

func (m *MemoryStore) ValidateRefresh(_ context.Context, tokenHash string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tokens[tokenHash]
	if !ok || t.revoked || time.Now().UTC().After(t.expiresAt) {
		return "", ErrTokenInvalid
	}
	return t.userID, nil
}

func (m *MemoryStore) RevokeByHash(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[tokenHash]; ok {
		t.revoked = true
		m.tokens[tokenHash] = t
	}
	return nil
}

func (m *MemoryStore) RevokeAllForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h, t := range m.tokens {
		if t.userID == userID {
			t.revoked = true
			m.tokens[h] = t
		}
	}
	return nil
}
