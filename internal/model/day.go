package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayLayout is the wire and storage format of a Day.
const DayLayout = "2006-01-02"

// ErrInvalidDay is returned when a day string cannot be parsed.
var ErrInvalidDay = errors.New("invalid date")

// Day is a calendar date with the time-of-day stripped.  It always holds
// midnight UTC so that two Days built from the same calendar date compare
// equal with ==.
type Day struct {
	t time.Time
}

// NewDay truncates t to its calendar date (in t's own location) and
// returns it as a Day.
func NewDay(t time.Time) Day {
	y, m, d := t.Date()
	return Day{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDay accepts "2006-01-02" as well as full RFC3339 timestamps
// (browsers frequently send the ISO form of a Date object).  Any
// time-of-day part is discarded.
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Day{}, ErrInvalidDay
	}
	if t, err := time.Parse(DayLayout, s); err == nil {
		return NewDay(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return NewDay(t.UTC()), nil
	}
	return Day{}, fmt.Errorf("%w: %q", ErrInvalidDay, s)
}

func (d Day) IsZero() bool      { return d.t.IsZero() }
func (d Day) Time() time.Time   { return d.t }
func (d Day) String() string    { return d.t.Format(DayLayout) }
func (d Day) Equal(o Day) bool  { return d.t.Equal(o.t) }
func (d Day) Before(o Day) bool { return d.t.Before(o.t) }

func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Day) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	p, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = p
	return nil
}

// Value stores the day as a DATE string.
func (d Day) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan reads a DATE column.  With parseTime=true the MySQL driver hands
// back a time.Time; without it a []byte.
func (d *Day) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDay(v)
		return nil
	case []byte:
		p, err := ParseDay(string(v))
		if err != nil {
			return err
		}
		*d = p
		return nil
	case string:
		p, err := ParseDay(v)
		if err != nil {
			return err
		}
		*d = p
		return nil
	}
	return fmt.Errorf("cannot scan %T into Day", src)
}
