package benefit

// =============================================================================
// URGENCY - Days-remaining tiers
// =============================================================================

// Urgency buckets "days remaining" for UI grouping and reminder timing.
// Ordered: lower is more urgent.
type Urgency int

const (
	UrgencyToday Urgency = iota
	UrgencyWithin1Day
	UrgencyWithin3Days
	UrgencyWithin1Week
	UrgencyLater
)

func (u Urgency) String() string {
	switch u {
	case UrgencyToday:
		return "today"
	case UrgencyWithin1Day:
		return "within_1_day"
	case UrgencyWithin3Days:
		return "within_3_days"
	case UrgencyWithin1Week:
		return "within_1_week"
	default:
		return "later"
	}
}

// ClassifyUrgency maps days remaining to a tier. Negative days mean
// already due and classify as today. Total, pure.
func ClassifyUrgency(daysRemaining int) Urgency {
	switch {
	case daysRemaining <= 0:
		return UrgencyToday
	case daysRemaining == 1:
		return UrgencyWithin1Day
	case daysRemaining <= 3:
		return UrgencyWithin3Days
	case daysRemaining <= 7:
		return UrgencyWithin1Week
	default:
		return UrgencyLater
	}
}

// IsUrgent reports whether the tier warrants immediate attention:
// today, within one day, or within three days.
func (u Urgency) IsUrgent() bool {
	return u <= UrgencyWithin3Days
}
