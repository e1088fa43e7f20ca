package benefit_test

import (
	"testing"

	"github.com/warp/benefit-engine/benefit"
)

func TestClassifyUrgency(t *testing.T) {
	cases := []struct {
		days int
		want benefit.Urgency
	}{
		{-3, benefit.UrgencyToday}, // already lapsed still reads as "today"
		{0, benefit.UrgencyToday},
		{1, benefit.UrgencyWithin1Day},
		{2, benefit.UrgencyWithin3Days},
		{3, benefit.UrgencyWithin3Days},
		{4, benefit.UrgencyWithin1Week},
		{7, benefit.UrgencyWithin1Week},
		{8, benefit.UrgencyLater},
		{90, benefit.UrgencyLater},
	}
	for _, tc := range cases {
		if got := benefit.ClassifyUrgency(tc.days); got != tc.want {
			t.Errorf("ClassifyUrgency(%d) = %s, want %s", tc.days, got, tc.want)
		}
	}
}

func TestUrgency_IsUrgent(t *testing.T) {
	urgent := []benefit.Urgency{benefit.UrgencyToday, benefit.UrgencyWithin1Day, benefit.UrgencyWithin3Days}
	for _, u := range urgent {
		if !u.IsUrgent() {
			t.Errorf("%s should be urgent", u)
		}
	}
	for _, u := range []benefit.Urgency{benefit.UrgencyWithin1Week, benefit.UrgencyLater} {
		if u.IsUrgent() {
			t.Errorf("%s should not be urgent", u)
		}
	}
}
