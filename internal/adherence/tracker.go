package adherence

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Tracker is the complete adherence state of one session: the record store,
// the streak counter carried between passes and the earned badges.
type Tracker struct {
	Store  Store
	Streak int
	Badges BadgeSet
	Policy Policy
	// LastIncrement is when the streak last moved up; used by OncePerDay.
	LastIncrement time.Time
}

// NewTracker returns an empty tracker evaluated under policy
func NewTracker(policy Policy) *Tracker {
	return &Tracker{Badges: BadgeSet{}, Policy: policy}
}

// Evaluation is the outcome of one recomputation pass
type Evaluation struct {
	Score         int
	Streak        int
	ResetOccurred bool
	NewBadges     []Badge
}

// EntryView is the read-only projection of an entry at a point in time
type EntryView struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Scheduled string    `json:"scheduled"`
	Date      string    `json:"date,omitempty"`
	Taken     bool      `json:"taken"`
	Status    Status    `json:"status"`
}

// Snapshot is the derived view handed to the presentation layer
type Snapshot struct {
	Score   int         `json:"score"`
	Streak  int         `json:"streak"`
	Badges  []BadgeInfo `json:"badges"`
	Entries []EntryView `json:"entries"`
}

// AddEntry appends an undated entry
func (t *Tracker) AddEntry(name string, at TimeOfDay) (uuid.UUID, error) {
	return t.Store.Add(name, at)
}

// AddEntryOn appends an entry due on date
func (t *Tracker) AddEntryOn(name string, at TimeOfDay, date time.Time) (uuid.UUID, error) {
	return t.Store.AddOn(name, at, date)
}

// Entry returns a copy of the entry with id
func (t *Tracker) Entry(id uuid.UUID) (Entry, error) {
	return t.Store.Get(id)
}

// MarkTaken flags the entry with id as taken
func (t *Tracker) MarkTaken(id uuid.UUID) error {
	i := t.Store.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.Store.MarkTakenAt(i)
}

// DeleteEntry removes the entry with id
func (t *Tracker) DeleteEntry(id uuid.UUID) error {
	i := t.Store.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.Store.DeleteAt(i)
}

// Classify returns the status of the entry with id at now
func (t *Tracker) Classify(id uuid.UUID, now time.Time) (Status, error) {
	e, err := t.Store.Get(id)
	if err != nil {
		return 0, err
	}
	return Classify(e, now), nil
}

// Refresh runs one recomputation pass: it scores the store, moves the streak
// according to the policy and unlocks any newly earned badges.
func (t *Tracker) Refresh(now time.Time) Evaluation {
	entries := t.Store.Entries
	score := Score(entries)

	prior := t.Streak
	next, reset := UpdateStreak(entries, prior)
	if next > prior {
		if t.Policy == OncePerDay && !t.LastIncrement.IsZero() && sameDay(now, t.LastIncrement) {
			next = prior
		} else {
			t.LastIncrement = now
		}
	}
	t.Streak = next

	updated := CheckBadges(score, t.Streak, t.Badges)
	var unlocked []Badge
	for _, b := range updated.List() {
		if !t.Badges.Has(b) {
			unlocked = append(unlocked, b)
		}
	}
	t.Badges = updated

	return Evaluation{
		Score:         score,
		Streak:        t.Streak,
		ResetOccurred: reset,
		NewBadges:     unlocked,
	}
}

// Snapshot derives score, badges and entry statuses without moving the streak
func (t *Tracker) Snapshot(now time.Time) Snapshot {
	snap := Snapshot{
		Score:   Score(t.Store.Entries),
		Streak:  t.Streak,
		Badges:  make([]BadgeInfo, 0, len(t.Badges)),
		Entries: make([]EntryView, 0, t.Store.Len()),
	}
	for _, b := range t.Badges.List() {
		if info, ok := b.Info(); ok {
			snap.Badges = append(snap.Badges, info)
		}
	}
	for _, e := range t.Store.Entries {
		v := EntryView{
			ID:        e.ID,
			Name:      e.Name,
			Scheduled: e.Scheduled.String(),
			Taken:     e.Taken,
			Status:    Classify(e, now),
		}
		if e.Dated() {
			v.Date = e.Date.Format("2006-01-02")
		}
		snap.Entries = append(snap.Entries, v)
	}
	return snap
}
