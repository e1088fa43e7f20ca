package benefit

// =============================================================================
// FREQUENCY INFERENCE
// =============================================================================

// InferFrequency estimates the most likely reset frequency from a
// historical period span. Used only as a fallback for benefits with no
// stored frequency (legacy or custom entries with no template link).
//
// Buckets by whole calendar months between start and end:
//
//	0-1  -> monthly
//	2-4  -> quarterly
//	5-7  -> semiannual
//	8+   -> annual
//
// Total function: any input, including inverted ranges, yields a
// frequency.
func InferFrequency(periodStart, periodEnd Date) Frequency {
	months := MonthsBetween(periodStart, periodEnd)
	switch {
	case months <= 1:
		return Monthly
	case months <= 4:
		return Quarterly
	case months <= 7:
		return SemiAnnual
	default:
		return Annual
	}
}
