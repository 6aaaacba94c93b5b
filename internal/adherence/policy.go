package adherence

import (
	"fmt"
	"time"
)

// Policy decides when a recomputation pass may move the streak
type Policy int

const (
	// EveryPass updates the streak on every pass, so several interactions on
	// one day can increment it several times.
	EveryPass Policy = iota
	// OncePerDay allows at most one increment per calendar day. Resets still
	// apply on any pass.
	OncePerDay
)

func (p Policy) String() string {
	switch p {
	case EveryPass:
		return "every-pass"
	case OncePerDay:
		return "once-per-day"
	}
	return "unknown"
}

// ParsePolicy accepts the names produced by Policy.String
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "every-pass":
		return EveryPass, nil
	case "once-per-day":
		return OncePerDay, nil
	}
	return EveryPass, fmt.Errorf("%w: unknown evaluation policy %q", ErrValidation, s)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
