package scoring

// MaxSRS is the highest Signature Recovery Score.
const MaxSRS = 11

// Criterion names, in the order they appear in a breakdown.
const (
	CriterionVAS        = "vas_improvement"
	CriterionPSFS       = "psfs_improvement"
	CriterionDisability = "disability_improvement"
	CriterionConfidence = "confidence_improvement"
	CriterionBeliefs    = "no_negative_beliefs"
	CriterionGROC       = "groc"
	CriterionMilestone  = "recovery_milestone"
	CriterionVerified   = "clinical_progress_verified"
)

// ComputeSRS returns the Signature Recovery Score for current. An intake
// always scores 0. A follow-up is compared against previous, which must be
// non-nil.
func ComputeSRS(current Snapshot, previous *Snapshot) (int, error) {
	criteria, err := evaluate(current, previous)
	if err != nil {
		return 0, err
	}
	return total(criteria), nil
}

// Score computes the full result for current: SRS, disability percentage,
// phase and the per-criterion breakdown. An intake has an empty breakdown.
func Score(current Snapshot, previous *Snapshot) (Result, error) {
	criteria, err := evaluate(current, previous)
	if err != nil {
		return Result{}, err
	}
	srs := total(criteria)
	return Result{
		SRS:                  srs,
		DisabilityPercentage: DisabilityPercentage(current.Region, current.DisabilityAnswers),
		Phase:                ClassifyPhase(srs),
		Breakdown:            criteria,
	}, nil
}

func evaluate(current Snapshot, previous *Snapshot) ([]Criterion, error) {
	if current.FormType != FormFollowUp {
		return []Criterion{}, nil
	}
	if previous == nil {
		return nil, &MissingBaselineError{AssessmentDate: current.AssessmentDate}
	}

	prevPct := DisabilityPercentage(previous.Region, previous.DisabilityAnswers)
	curPct := DisabilityPercentage(current.Region, current.DisabilityAnswers)

	return []Criterion{
		criterion(CriterionVAS, previous.VAS-current.VAS >= 2, 1),
		criterion(CriterionPSFS, current.PSFSTotal()-previous.PSFSTotal() >= 4, 2),
		criterion(CriterionDisability, prevPct-curPct >= 10, 1),
		criterion(CriterionConfidence, current.Confidence-previous.Confidence >= 3, 2),
		criterion(CriterionBeliefs, current.EndorsesNoBeliefs(), 1),
		criterion(CriterionGROC, current.GROC >= 5, 1),
		criterion(CriterionMilestone, current.RecoveryMilestone, 1),
		criterion(CriterionVerified, current.ClinicalProgressVerified, 1),
	}, nil
}

func criterion(name string, met bool, possible int) Criterion {
	c := Criterion{Name: name, Met: met, Possible: possible}
	if met {
		c.Points = possible
	}
	return c
}

func total(criteria []Criterion) int {
	sum := 0
	for _, c := range criteria {
		sum += c.Points
	}
	if sum > MaxSRS {
		return MaxSRS
	}
	if sum < 0 {
		return 0
	}
	return sum
}
