// Package adherence tracks scheduled medication entries for a single session
// and derives adherence score, streak and badges from them.
package adherence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNotFound        = errors.New("entry not found")
)

// TimeOfDay is a wall-clock time with minute precision
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24h clock)
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: time must be HH:MM: %q", ErrValidation, s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// sinceMidnight returns the offset of t from the start of the day
func (t TimeOfDay) sinceMidnight() time.Duration {
	return time.Duration(t.Hour)*time.Hour + time.Duration(t.Minute)*time.Minute
}

// Entry is one scheduled medication record
type Entry struct {
	ID        uuid.UUID
	Name      string
	Scheduled TimeOfDay
	// Date is the calendar day the entry is due on. The zero value means the
	// entry is undated and compared by time of day only.
	Date  time.Time
	Taken bool
}

// Dated reports whether the entry is pinned to a calendar day
func (e Entry) Dated() bool {
	return !e.Date.IsZero()
}

// ScheduledLabel renders the schedule as "HH:MM" or "YYYY-MM-DD HH:MM"
func (e Entry) ScheduledLabel() string {
	if e.Dated() {
		return e.Date.Format("2006-01-02") + " " + e.Scheduled.String()
	}
	return e.Scheduled.String()
}

// dueAt returns the instant the entry is due in loc
func (e Entry) dueAt(loc *time.Location) time.Time {
	y, m, d := e.Date.Date()
	return time.Date(y, m, d, e.Scheduled.Hour, e.Scheduled.Minute, 0, 0, loc)
}
