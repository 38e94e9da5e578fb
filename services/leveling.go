package services

import (
	"time"

	"kabbalah-code-system/models"
)

// XPForLevel returns the XP needed to advance from the given level to the
// next one: 1000*L + 500*(L-1). Pure; levels below 1 are treated as 1.
func XPForLevel(level int) int64 {
	if level < 1 {
		level = 1
	}
	return 1000*int64(level) + 500*int64(level-1)
}

// ApplyXP credits earned XP and applies level-ups until the balance drops
// below the next threshold, so a single large award can cross several levels
// in one call. Each iteration uses the *new* level's threshold. Callers pass
// delta >= 0; admin adjustments bypass leveling entirely.
func ApplyXP(acc *models.Account, delta int64) {
	acc.XP += delta
	for acc.XP >= XPForLevel(acc.Level) {
		acc.XP -= XPForLevel(acc.Level)
		acc.Level++
	}
}

const dayLayout = "2006-01-02"

// Today returns the server-local calendar day used for daily gating. A user
// whose last action fell on "yesterday" by this clock is always eligible
// again — there is no rolling 24-hour window.
func Today() string {
	return time.Now().Format(dayLayout)
}
