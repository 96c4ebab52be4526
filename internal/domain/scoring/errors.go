package scoring

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidRegionAnswers is matched by every *InvalidAnswersError.
	ErrInvalidRegionAnswers = errors.New("answers do not match region index")
	// ErrMissingBaseline is matched by every *MissingBaselineError.
	ErrMissingBaseline = errors.New("follow-up scoring requires a previous assessment")
)

// InvalidAnswersError lists every problem found while validating a snapshot.
type InvalidAnswersError struct {
	Region   Region
	Problems []string
}

func (e *InvalidAnswersError) Error() string {
	return fmt.Sprintf("invalid answers for region %q: %s", e.Region, strings.Join(e.Problems, "; "))
}

func (e *InvalidAnswersError) Unwrap() error { return ErrInvalidRegionAnswers }

// MissingBaselineError is returned when a follow-up is scored without the
// snapshot it should be compared against.
type MissingBaselineError struct {
	AssessmentDate time.Time
}

func (e *MissingBaselineError) Error() string {
	if e.AssessmentDate.IsZero() {
		return ErrMissingBaseline.Error()
	}
	return fmt.Sprintf("%s (assessment dated %s)", ErrMissingBaseline, e.AssessmentDate.Format("2006-01-02"))
}

func (e *MissingBaselineError) Unwrap() error { return ErrMissingBaseline }
