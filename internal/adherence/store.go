package adherence

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is the ordered collection of entries owned by one session.
// Fields are exported so the value survives gob encoding in the session store.
type Store struct {
	Entries []Entry
}

// Len returns the number of entries
func (s *Store) Len() int {
	return len(s.Entries)
}

// Add appends a new untaken entry. Duplicate names are allowed.
func (s *Store) Add(name string, at TimeOfDay) (uuid.UUID, error) {
	return s.add(name, at, time.Time{})
}

// AddOn appends a new untaken entry due on a specific calendar day
func (s *Store) AddOn(name string, at TimeOfDay, date time.Time) (uuid.UUID, error) {
	y, m, d := date.Date()
	return s.add(name, at, time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func (s *Store) add(name string, at TimeOfDay, date time.Time) (uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return uuid.Nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if at.Hour < 0 || at.Hour > 23 || at.Minute < 0 || at.Minute > 59 {
		return uuid.Nil, fmt.Errorf("%w: invalid time %s", ErrValidation, at)
	}
	e := Entry{ID: uuid.New(), Name: name, Scheduled: at, Date: date}
	s.Entries = append(s.Entries, e)
	return e.ID, nil
}

// MarkTakenAt sets the taken flag of the entry at index. Marking an already
// taken entry is a no-op.
func (s *Store) MarkTakenAt(index int) error {
	if index < 0 || index >= len(s.Entries) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	s.Entries[index].Taken = true
	return nil
}

// DeleteAt removes the entry at index; later entries shift down by one
func (s *Store) DeleteAt(index int) error {
	if index < 0 || index >= len(s.Entries) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	s.Entries = append(s.Entries[:index:index], s.Entries[index+1:]...)
	return nil
}

// IndexOf returns the position of the entry with id, or -1
func (s *Store) IndexOf(id uuid.UUID) int {
	for i := range s.Entries {
		if s.Entries[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns a copy of the entry with id
func (s *Store) Get(id uuid.UUID) (Entry, error) {
	i := s.IndexOf(id)
	if i < 0 {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.Entries[i], nil
}
