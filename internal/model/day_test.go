package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-03-10", "2025-03-10", true},
		{" 2025-03-10 ", "2025-03-10", true},
		{"2025-03-10T23:15:00Z", "2025-03-10", true},
		{"2025-03-10T23:15:00-05:00", "2025-03-11", true},
		{"", "", false},
		{"10/03/2025", "", false},
		{"2025-02-30", "", false},
	}
	for _, tc := range cases {
		d, err := ParseDay(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidDay, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, d.String(), tc.in)
	}
}

func TestDayIgnoresTimeOfDay(t *testing.T) {
	morning := NewDay(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	evening := NewDay(time.Date(2025, 3, 10, 22, 30, 0, 0, time.UTC))
	assert.True(t, morning.Equal(evening))
	assert.Equal(t, morning, evening)
	assert.True(t, morning.Before(NewDay(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC))))
}

func TestDayJSONAndSQL(t *testing.T) {
	d, err := ParseDay("2025-03-10")
	require.NoError(t, err)

	b, err := json.Marshal(struct {
		Date Day `json:"date"`
	}{d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2025-03-10"}`, string(b))

	var back struct {
		Date Day `json:"date"`
	}
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Date.Equal(d))
	assert.Error(t, json.Unmarshal([]byte(`{"date":"nope"}`), &back))

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", v)

	var scanned Day
	require.NoError(t, scanned.Scan(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, scanned.Equal(d))
	require.NoError(t, scanned.Scan([]byte("2025-03-10")))
	assert.True(t, scanned.Equal(d))
	assert.Error(t, scanned.Scan(42))
}

func TestSeatBookedByUser(t *testing.T) {
	uid := "u1"
	s := Seat{IsAvailable: false, BookedBy: &uid}
	assert.True(t, s.BookedByUser("u1"))
	assert.False(t, s.BookedByUser("u2"))
	assert.False(t, Seat{IsAvailable: true}.BookedByUser(""))
}

func TestUserJSONHidesPassword(t *testing.T) {
	b, err := json.Marshal(User{ID: "u1", Name: "Alice", Email: "a@example.com", PasswordHash: "secret", Role: RoleUser})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret")
	assert.NotContains(t, string(b), "password")
}
