// Package coach renders the CoachBot training, recovery and strategy texts
// from fixed lookup tables
package coach

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownOption = errors.New("unknown option")
	ErrEmptyInput    = errors.New("input required")
)

// Position is a playing position
type Position int

const (
	Forward Position = iota
	Midfielder
	Defender
	Goalkeeper
)

// Positions lists every position in form order
var Positions = []Position{Forward, Midfielder, Defender, Goalkeeper}

func (p Position) String() string {
	switch p {
	case Forward:
		return "Forward"
	case Midfielder:
		return "Midfielder"
	case Defender:
		return "Defender"
	case Goalkeeper:
		return "Goalkeeper"
	}
	return fmt.Sprintf("Position(%d)", int(p))
}

// ParsePosition maps a form label to a Position
func ParsePosition(s string) (Position, error) {
	for _, p := range Positions {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: position %q", ErrUnknownOption, s)
}

// FitnessLevel is the athlete's self-reported training level
type FitnessLevel int

const (
	Beginner FitnessLevel = iota
	Intermediate
	Advanced
)

var FitnessLevels = []FitnessLevel{Beginner, Intermediate, Advanced}

func (l FitnessLevel) String() string {
	switch l {
	case Beginner:
		return "Beginner"
	case Intermediate:
		return "Intermediate"
	case Advanced:
		return "Advanced"
	}
	return fmt.Sprintf("FitnessLevel(%d)", int(l))
}

// Intensity is the training intensity prescribed for the level
func (l FitnessLevel) Intensity() string {
	switch l {
	case Beginner:
		return "Low–Moderate"
	case Intermediate:
		return "Moderate–High"
	case Advanced:
		return "High Intensity"
	}
	return "Moderate"
}

func ParseFitnessLevel(s string) (FitnessLevel, error) {
	for _, l := range FitnessLevels {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: fitness level %q", ErrUnknownOption, s)
}

// RecoveryFocus selects a recovery protocol
type RecoveryFocus int

const (
	GeneralFatigue RecoveryFocus = iota
	MuscleSoreness
	PostMatchRecovery
)

var RecoveryFocuses = []RecoveryFocus{GeneralFatigue, MuscleSoreness, PostMatchRecovery}

func (f RecoveryFocus) String() string {
	switch f {
	case GeneralFatigue:
		return "General Fatigue"
	case MuscleSoreness:
		return "Muscle Soreness"
	case PostMatchRecovery:
		return "Post-Match Recovery"
	}
	return fmt.Sprintf("RecoveryFocus(%d)", int(f))
}

func ParseRecoveryFocus(s string) (RecoveryFocus, error) {
	for _, f := range RecoveryFocuses {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: recovery focus %q", ErrUnknownOption, s)
}

// OpponentStyle is how the next opponent is expected to play
type OpponentStyle int

const (
	HighPress OpponentStyle = iota
	LowBlock
	CounterAttack
)

var OpponentStyles = []OpponentStyle{HighPress, LowBlock, CounterAttack}

func (o OpponentStyle) String() string {
	switch o {
	case HighPress:
		return "High Press"
	case LowBlock:
		return "Low Block"
	case CounterAttack:
		return "Counter Attack"
	}
	return fmt.Sprintf("OpponentStyle(%d)", int(o))
}

func ParseOpponentStyle(s string) (OpponentStyle, error) {
	for _, o := range OpponentStyles {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("%w: opponent style %q", ErrUnknownOption, s)
}
