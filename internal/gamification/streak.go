package gamification

import "time"

const dayMillis = int64(24 * time.Hour / time.Millisecond)

// StreakState is the streak-related slice of UserStats.
type StreakState struct {
	Current      int
	Longest      int
	LastActivity *time.Time
}

// DaysSince is floor((now - last) / 24h) on raw milliseconds, not calendar days.
func DaysSince(last, now time.Time) int64 {
	diff := now.UnixMilli() - last.UnixMilli()
	q := diff / dayMillis
	if diff < 0 && diff%dayMillis != 0 {
		q--
	}
	return q
}

// ApplyActivity records a qualifying activity at now.
// Same day keeps the streak, the next day extends it, and a longer gap restarts it at 1.
func ApplyActivity(s StreakState, now time.Time) StreakState {
	next := s
	if s.LastActivity == nil {
		next.Current = 1
	} else {
		switch days := DaysSince(*s.LastActivity, now); {
		case days == 1:
			next.Current = s.Current + 1
		case days > 1:
			next.Current = 1
		}
	}

	if next.Current > next.Longest {
		next.Longest = next.Current
	}
	t := now
	next.LastActivity = &t
	return next
}

// ExpireIfStale is the read-time rule: more than one day without activity zeroes the
// current streak. It reports whether anything changed.
func ExpireIfStale(s StreakState, now time.Time) (StreakState, bool) {
	if s.LastActivity == nil || s.Current == 0 {
		return s, false
	}
	if DaysSince(*s.LastActivity, now) > 1 {
		s.Current = 0
		return s, true
	}
	return s, false
}
