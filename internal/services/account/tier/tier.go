// Package tier defines the XP reward ladder and its loan limits.
package tier

// Tier is one of the five ranked reward levels.
type Tier string

const (
	Bronze   Tier = "bronze"
	Silver   Tier = "silver"
	Gold     Tier = "gold"
	Platinum Tier = "platinum"
	Diamond  Tier = "diamond"
)

type level struct {
	tier      Tier
	minXP     int64
	loanLimit int64
}

// ladder is ordered lowest to highest. Thresholds and limits follow the
// published progression table.
var ladder = []level{
	{Bronze, 0, 500},
	{Silver, 1000, 1000},
	{Gold, 5000, 1500},
	{Platinum, 15000, 2500},
	{Diamond, 35000, 5000},
}

// ForXP returns the tier unlocked by cumulative XP.
// Negative XP clamps to the lowest tier.
func ForXP(xp int64) Tier {
	current := ladder[0].tier
	for _, lvl := range ladder {
		if xp < lvl.minXP {
			break
		}
		current = lvl.tier
	}
	return current
}

// LoanLimit returns the loan limit in rand for a tier.
// Unknown tiers report the bronze limit.
func LoanLimit(t Tier) int64 {
	for _, lvl := range ladder {
		if lvl.tier == t {
			return lvl.loanLimit
		}
	}
	return ladder[0].loanLimit
}

// MinXP returns the XP threshold that unlocks a tier.
func MinXP(t Tier) (int64, bool) {
	for _, lvl := range ladder {
		if lvl.tier == t {
			return lvl.minXP, true
		}
	}
	return 0, false
}

// Next returns the tier above t, or t itself at the top of the ladder.
func Next(t Tier) Tier {
	for i, lvl := range ladder {
		if lvl.tier == t && i+1 < len(ladder) {
			return ladder[i+1].tier
		}
	}
	return t
}

// Valid reports whether t names a known tier.
func Valid(t Tier) bool {
	for _, lvl := range ladder {
		if lvl.tier == t {
			return true
		}
	}
	return false
}
