package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputePercentile(t *testing.T) {
	tests := []struct {
		name  string
		rank  int
		total int
		xp    int64
		tasks int
		want  int
	}{
		{"top user", 1, 10000, 50000, 300, 0},
		{"rank 9000 of 10000", 9000, 10000, 1200, 20, 90},
		{"zero user at rank 9000 of 10000 keeps 90", 9000, 10000, 0, 0, 90},
		{"brand new user floored at 50", 100, 10000, 0, 0, 50},
		{"zero xp but has tasks uses 40 floor", 100, 10000, 0, 2, 40},
		{"under 100 xp floored at 40", 10, 100, 15, 1, 40},
		{"under 100 xp keeps worse raw", 90, 100, 15, 1, 90},
		{"zero users guarded", 1, 0, 500, 3, 100},
		{"rounds half up", 1, 8, 500, 3, 13},
		{"last place", 10, 10, 500, 3, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputePercentile(tt.rank, tt.total, tt.xp, tt.tasks))
		})
	}
}
