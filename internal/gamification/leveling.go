package gamification

import (
	"math"

	"github.com/guidely/backend/internal/models"
)

// LevelForXP maps cumulative XP to a level: floor(sqrt(xp/100)) + 1.
func LevelForXP(xp int64) int {
	if xp <= 0 {
		return 1
	}
	l := int64(math.Sqrt(float64(xp) / 100))
	// correct float rounding at exact squares
	for (l+1)*(l+1)*100 <= xp {
		l++
	}
	for l > 0 && l*l*100 > xp {
		l--
	}
	return int(l) + 1
}

// XPForNextLevel is the cumulative XP at which level+1 begins.
func XPForNextLevel(level int) int64 {
	if level < 1 {
		level = 1
	}
	l := int64(level)
	return l * l * 100
}

// LevelProgress reports where xp sits inside its level.
func LevelProgress(xp int64) models.LevelInfo {
	if xp < 0 {
		xp = 0
	}
	level := LevelForXP(xp)
	start := XPForNextLevel(level - 1)
	if level == 1 {
		start = 0
	}
	next := XPForNextLevel(level)
	return models.LevelInfo{
		Level:          level,
		XPIntoLevel:    xp - start,
		XPForLevel:     next - start,
		XPForNextLevel: next,
	}
}
