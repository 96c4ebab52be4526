package scoring

// ClassifyPhase maps an SRS to its recovery phase:
// 0-3 RESET, 4-6 EDUCATE, 7-11 REBUILD. Negative values fall into RESET
// and values above 11 into REBUILD.
func ClassifyPhase(srs int) Phase {
	switch {
	case srs <= 3:
		return PhaseReset
	case srs <= 6:
		return PhaseEducate
	default:
		return PhaseRebuild
	}
}

// Description returns the patient-facing summary of a phase.
func (p Phase) Description() string {
	switch p {
	case PhaseReset:
		return "Calm things down and restore comfortable movement"
	case PhaseEducate:
		return "Understand your condition and build confidence in movement"
	case PhaseRebuild:
		return "Rebuild strength and return to the activities that matter"
	}
	return ""
}
