package adherence

// Badge identifies a milestone achievement
type Badge string

const (
	BadgeFirstStep        Badge = "first-step"
	BadgeThreeDayStreak   Badge = "three-day-streak"
	BadgeSevenDayChampion Badge = "seven-day-champion"
	BadgePerfectDay       Badge = "perfect-day"
	BadgeConsistencyKing  Badge = "consistency-king"
)

// BadgeInfo describes a badge for display
type BadgeInfo struct {
	ID          Badge  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Catalog lists every badge in display order
var Catalog = []BadgeInfo{
	{BadgeFirstStep, "First Step", "Completed a full day of doses", "🥉"},
	{BadgeThreeDayStreak, "Three Day Streak", "Three full-adherence days in a row", "🥈"},
	{BadgeSevenDayChampion, "Seven Day Champion", "Seven full-adherence days in a row", "🏆"},
	{BadgePerfectDay, "Perfect Day", "Every dose taken", "🌟"},
	{BadgeConsistencyKing, "Consistency King", "Adherence score of 90% or better", "👑"},
}

// Info returns the catalog entry for b
func (b Badge) Info() (BadgeInfo, bool) {
	for _, info := range Catalog {
		if info.ID == b {
			return info, true
		}
	}
	return BadgeInfo{}, false
}

// earned reports whether b's threshold is met by score and streak
func (b Badge) earned(score, streak int) bool {
	switch b {
	case BadgeFirstStep:
		return streak >= 1
	case BadgeThreeDayStreak:
		return streak >= 3
	case BadgeSevenDayChampion:
		return streak >= 7
	case BadgePerfectDay:
		return score == 100
	case BadgeConsistencyKing:
		return score >= 90
	}
	return false
}

// BadgeSet is a set of earned badges. It only ever grows.
type BadgeSet map[Badge]bool

// Has reports whether b is in the set
func (s BadgeSet) Has(b Badge) bool {
	return s[b]
}

// List returns the badges in catalog order
func (s BadgeSet) List() []Badge {
	out := make([]Badge, 0, len(s))
	for _, info := range Catalog {
		if s[info.ID] {
			out = append(out, info.ID)
		}
	}
	return out
}

// CheckBadges returns existing plus every badge whose threshold is met.
// existing is not modified and nothing is ever removed.
func CheckBadges(score, streak int, existing BadgeSet) BadgeSet {
	out := make(BadgeSet, len(existing)+len(Catalog))
	for b := range existing {
		out[b] = true
	}
	for _, info := range Catalog {
		if info.ID.earned(score, streak) {
			out[info.ID] = true
		}
	}
	return out
}
