package scoring

// DisabilityPercentage converts raw index answers into a 0-100 disability
// score. The whole answer slice is summed on every call.
//
// All four indexes use sum / (items * max) * 100, where items is the
// number of answers supplied. LEFS is scored on the same percentage scale
// as ULFI.
func DisabilityPercentage(region Region, answers []int) float64 {
	idx, ok := IndexFor(region)
	if !ok || len(answers) == 0 {
		return 0
	}

	sum := 0
	for _, a := range answers {
		sum += a
	}

	pct := float64(sum*100) / float64(len(answers)*idx.MaxScore)
	return clamp(pct, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
