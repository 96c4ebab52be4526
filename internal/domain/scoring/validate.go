package scoring

import "fmt"

// ValidateAnswers checks that answers has the item count and per-item range
// of the region's index.
func ValidateAnswers(region Region, answers []int) error {
	problems := answerProblems(region, answers)
	if len(problems) > 0 {
		return &InvalidAnswersError{Region: region, Problems: problems}
	}
	return nil
}

// ValidateSnapshot checks every bounded field of s. It collects all
// problems rather than stopping at the first one.
func ValidateSnapshot(s Snapshot) error {
	problems := answerProblems(s.Region, s.DisabilityAnswers)

	if s.FormType != FormIntake && s.FormType != FormFollowUp {
		problems = append(problems, fmt.Sprintf("unknown form type %q", s.FormType))
	}
	if s.VAS < 0 || s.VAS > 10 {
		problems = append(problems, fmt.Sprintf("vas %d outside 0-10", s.VAS))
	}
	if s.Confidence < 0 || s.Confidence > 10 {
		problems = append(problems, fmt.Sprintf("confidence %d outside 0-10", s.Confidence))
	}
	if s.GROC < -7 || s.GROC > 7 {
		problems = append(problems, fmt.Sprintf("groc %d outside -7..7", s.GROC))
	}
	if s.FormType == FormIntake && s.GROC != 0 {
		problems = append(problems, "groc is only recorded on follow-up assessments")
	}

	if len(s.PSFS) < 1 || len(s.PSFS) > 3 {
		problems = append(problems, fmt.Sprintf("psfs has %d activities, want 1-3", len(s.PSFS)))
	}
	for i, item := range s.PSFS {
		if item.Activity == "" {
			problems = append(problems, fmt.Sprintf("psfs activity %d has no label", i+1))
		}
		if item.Score < 0 || item.Score > 10 {
			problems = append(problems, fmt.Sprintf("psfs activity %d score %d outside 0-10", i+1, item.Score))
		}
	}

	problems = append(problems, beliefProblems(s.Beliefs)...)

	if len(problems) > 0 {
		return &InvalidAnswersError{Region: s.Region, Problems: problems}
	}
	return nil
}

func answerProblems(region Region, answers []int) []string {
	idx, ok := IndexFor(region)
	if !ok {
		return []string{fmt.Sprintf("unknown region %q", region)}
	}

	var problems []string
	if len(answers) != idx.Items {
		problems = append(problems, fmt.Sprintf("%s expects %d answers, got %d", idx.Name, idx.Items, len(answers)))
	}
	for i, a := range answers {
		if a < 0 || a > idx.MaxScore {
			problems = append(problems, fmt.Sprintf("%s item %d value %d outside 0-%d", idx.Name, i+1, a, idx.MaxScore))
		}
	}
	return problems
}

func beliefProblems(beliefs []string) []string {
	var problems []string
	seen := make(map[string]bool, len(beliefs))
	for _, b := range beliefs {
		if !beliefSet[b] {
			problems = append(problems, fmt.Sprintf("unknown belief %q", b))
		}
		if seen[b] {
			problems = append(problems, fmt.Sprintf("belief %q selected twice", b))
		}
		seen[b] = true
	}
	if seen[NoBeliefs] && len(beliefs) > 1 {
		problems = append(problems, fmt.Sprintf("%q cannot be combined with other beliefs", NoBeliefs))
	}
	return problems
}
