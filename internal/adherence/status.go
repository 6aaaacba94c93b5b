package adherence

import (
	"fmt"
	"time"
)

// Status is the classification of a single entry at a point in time
type Status int

const (
	StatusTaken Status = iota
	StatusUpcoming
	StatusMissed
)

func (s Status) String() string {
	switch s {
	case StatusTaken:
		return "Taken"
	case StatusUpcoming:
		return "Upcoming"
	case StatusMissed:
		return "Missed"
	}
	return "Unknown"
}

// MarshalText renders the status name in JSON payloads
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText
func (s *Status) UnmarshalText(b []byte) error {
	for _, st := range []Status{StatusTaken, StatusUpcoming, StatusMissed} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("%w: unknown status %q", ErrValidation, b)
}

// Classify maps an entry to Taken, Upcoming or Missed at now.
//
// Undated entries compare time of day only, so an untaken 09:00 entry is
// Missed after 09:00 on every day until it is marked taken.
func Classify(e Entry, now time.Time) Status {
	if e.Taken {
		return StatusTaken
	}
	if e.Dated() {
		if now.Before(e.dueAt(now.Location())) {
			return StatusUpcoming
		}
		return StatusMissed
	}
	if timeOfDay(now) < e.Scheduled.sinceMidnight() {
		return StatusUpcoming
	}
	return StatusMissed
}

func timeOfDay(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond())
}
