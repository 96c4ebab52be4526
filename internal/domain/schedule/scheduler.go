package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrSchedulerUnavailable is matched by every *UnavailableError.
	ErrSchedulerUnavailable = errors.New("assessment schedule unavailable")
	// ErrNoIntake means the patient has no intake, so no schedule exists.
	ErrNoIntake = errors.New("patient has no intake assessment")
)

// UnavailableError reports that checkpoint records could not be read.
type UnavailableError struct {
	PatientID uuid.UUID
	Err       error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s for patient %s: %v", ErrSchedulerUnavailable, e.PatientID, e.Err)
}

func (e *UnavailableError) Unwrap() []error { return []error{ErrSchedulerUnavailable, e.Err} }

// StatusOf derives the state of every checkpoint. completed is the set of
// checkpoints with a recorded submission. intakeDate is a calendar date:
// its year, month and day are taken as written and due dates fall on
// those days in the location of today.
//
// Initial counts as completed whenever intakeDate is set, since the intake
// date only exists once an intake was submitted.
func StatusOf(intakeDate time.Time, completed map[CheckpointID]bool, today time.Time) map[CheckpointID]CheckpointStatus {
	rows := Evaluate(intakeDate, recordsFromSet(completed), today)
	out := make(map[CheckpointID]CheckpointStatus, len(rows))
	for _, r := range rows {
		out[r.ID] = r
	}
	return out
}

// Evaluate is StatusOf with completion timestamps, returned in schedule order.
func Evaluate(intakeDate time.Time, records []Record, today time.Time) []CheckpointStatus {
	loc := today.Location()
	y, m, d := intakeDate.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	day := civilDate(today, loc)

	done := make(map[CheckpointID]*time.Time, len(records))
	// Earliest completion wins; a zero timestamp still marks completion.
	for _, r := range records {
		existing, seen := done[r.Checkpoint]
		if r.CompletedAt.IsZero() {
			if !seen {
				done[r.Checkpoint] = nil
			}
			continue
		}
		if !seen || existing == nil || r.CompletedAt.Before(*existing) {
			at := r.CompletedAt
			done[r.Checkpoint] = &at
		}
	}

	rows := make([]CheckpointStatus, 0, len(Checkpoints))
	for _, cp := range Checkpoints {
		due := start.AddDate(0, 0, cp.OffsetDays)
		row := CheckpointStatus{Checkpoint: cp, DueDate: due}

		completedAt, isDone := done[cp.ID]
		if cp.ID == Initial && !intakeDate.IsZero() {
			isDone = true
			if completedAt == nil {
				intake := intakeDate
				completedAt = &intake
			}
		}

		switch {
		case isDone:
			row.Status = StatusCompleted
			row.CompletedAt = completedAt
		case !day.Before(due):
			row.Status = StatusDue
		default:
			row.Status = StatusUpcoming
		}
		rows = append(rows, row)
	}
	return rows
}

// NextDue returns the earliest checkpoint that is not completed, if any.
func NextDue(rows []CheckpointStatus) (CheckpointStatus, bool) {
	for _, r := range rows {
		if r.Status != StatusCompleted {
			return r, true
		}
	}
	return CheckpointStatus{}, false
}

func civilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func recordsFromSet(completed map[CheckpointID]bool) []Record {
	records := make([]Record, 0, len(completed))
	for id, ok := range completed {
		if ok {
			records = append(records, Record{Checkpoint: id})
		}
	}
	return records
}

// RecordSource reads the facts a schedule is derived from.
type RecordSource interface {
	IntakeDate(ctx context.Context, patientID uuid.UUID) (time.Time, error)
	CompletedCheckpoints(ctx context.Context, patientID uuid.UUID) ([]Record, error)
}

// Service evaluates schedules against a RecordSource. It never substitutes a
// default schedule when the source fails.
type Service struct {
	source RecordSource
	logger zerolog.Logger
}

func NewService(source RecordSource, logger zerolog.Logger) *Service {
	return &Service{source: source, logger: logger}
}

// Schedule returns the patient's checkpoint statuses as of today. A patient
// without an intake yields ErrNoIntake; a failing source yields an
// *UnavailableError.
func (s *Service) Schedule(ctx context.Context, patientID uuid.UUID, today time.Time) ([]CheckpointStatus, error) {
	intake, err := s.source.IntakeDate(ctx, patientID)
	if err != nil {
		if errors.Is(err, ErrNoIntake) {
			return nil, err
		}
		return nil, s.unavailable(patientID, err)
	}
	if intake.IsZero() {
		return nil, ErrNoIntake
	}

	records, err := s.source.CompletedCheckpoints(ctx, patientID)
	if err != nil {
		return nil, s.unavailable(patientID, err)
	}
	return Evaluate(intake, records, today), nil
}

func (s *Service) unavailable(patientID uuid.UUID, err error) error {
	s.logger.Error().Err(err).Str("patient_id", patientID.String()).Msg("checkpoint records unavailable")
	return &UnavailableError{PatientID: patientID, Err: err}
}
