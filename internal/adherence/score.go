package adherence

// Score returns the share of taken entries as a percentage, truncated toward
// zero. An empty list scores 0.
func Score(entries []Entry) int {
	if len(entries) == 0 {
		return 0
	}
	taken := 0
	for _, e := range entries {
		if e.Taken {
			taken++
		}
	}
	return 100 * taken / len(entries)
}

// UpdateStreak advances the streak counter for one evaluation pass.
// resetOccurred is true only when a positive streak dropped to zero.
func UpdateStreak(entries []Entry, prior int) (next int, resetOccurred bool) {
	if len(entries) == 0 {
		return prior, false
	}
	if allTaken(entries) {
		return prior + 1, false
	}
	return 0, prior > 0
}

func allTaken(entries []Entry) bool {
	for _, e := range entries {
		if !e.Taken {
			return false
		}
	}
	return true
}
