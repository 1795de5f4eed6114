package gamification

import "math"

// ComputePercentile converts a 1-based rank into the displayed "top N%" figure.
//
// Beginners are floored: no XP and no tasks shows at least 50, under 100 XP at least 40.
// With the floors the result is not monotonic in rank at the low end.
func ComputePercentile(rank, totalUsers int, totalXP int64, tasksCompleted int) int {
	if totalUsers < 1 {
		totalUsers = 1
	}
	if rank < 1 {
		rank = 1
	}
	raw := int(math.Round(float64(rank) / float64(totalUsers) * 100))

	switch {
	case totalXP == 0 && tasksCompleted == 0:
		return max(50, raw)
	case totalXP < 100:
		return max(40, raw)
	default:
		return raw
	}
}
