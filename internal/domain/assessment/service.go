package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/backtolife/recovery/internal/domain/schedule"
	"github.com/backtolife/recovery/internal/domain/scoring"
	"github.com/backtolife/recovery/internal/platform/db"
)

// ErrInvalidAssessment wraps field-level problems with a submission that are
// not answer-range problems.
var ErrInvalidAssessment = errors.New("invalid assessment")

type Service struct {
	assessments AssessmentRepository
	scheduler   *schedule.Service
	logger      zerolog.Logger
	now         func() time.Time
	loc         *time.Location
}

func NewService(assessments AssessmentRepository, logger zerolog.Logger) *Service {
	s := &Service{
		assessments: assessments,
		logger:      logger,
		now:         time.Now,
		loc:         time.UTC,
	}
	s.scheduler = schedule.NewService(&recordSource{repo: assessments}, logger)
	return s
}

// SetLocation sets the clinic time zone used to decide what "today" is.
func (s *Service) SetLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

// SetClock replaces the wall clock, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

// Submit validates and stores a new assessment. The checkpoint label is
// normalized and decides the form type: Initial is an intake, every later
// checkpoint is a follow-up. A checkpoint can be completed once.
func (s *Service) Submit(ctx context.Context, a *Assessment) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient_id is required", ErrInvalidAssessment)
	}

	cp, err := schedule.ParseCheckpoint(a.Checkpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAssessment, err)
	}
	a.Checkpoint = string(cp)

	region, ok := scoring.ParseRegion(a.Region)
	if !ok {
		return fmt.Errorf("%w: unknown region %q", ErrInvalidAssessment, a.Region)
	}
	a.Region = string(region)

	formType := scoring.FormFollowUp
	if cp == schedule.Initial {
		formType = scoring.FormIntake
	}
	if a.FormType != "" {
		claimed, ok := scoring.ParseFormType(a.FormType)
		if !ok {
			return fmt.Errorf("%w: unknown form type %q", ErrInvalidAssessment, a.FormType)
		}
		if claimed != formType {
			return fmt.Errorf("%w: checkpoint %s is a %s, not a %s", ErrInvalidAssessment, cp, formType, claimed)
		}
	}
	a.FormType = string(formType)

	if a.AssessmentDate.IsZero() {
		a.AssessmentDate = s.today()
	}
	a.AssessmentDate = dateOnly(a.AssessmentDate)

	if formType == scoring.FormIntake {
		a.IntakeDate = a.AssessmentDate
	} else {
		intake, err := s.assessments.GetIntake(ctx, a.PatientID)
		if errors.Is(err, ErrNotFound) {
			return schedule.ErrNoIntake
		}
		if err != nil {
			return fmt.Errorf("load intake: %w", err)
		}
		if a.AssessmentDate.Before(intake.AssessmentDate) {
			return fmt.Errorf("%w: assessment_date precedes intake on %s", ErrInvalidAssessment, intake.AssessmentDate.Format("2006-01-02"))
		}
		a.IntakeDate = intake.AssessmentDate
	}

	if err := scoring.ValidateSnapshot(a.ToSnapshot()); err != nil {
		return err
	}

	err = db.RunInTx(ctx, func(ctx context.Context) error {
		records, err := s.assessments.ListCheckpoints(ctx, a.PatientID)
		if err != nil {
			return fmt.Errorf("load checkpoints: %w", err)
		}
		for _, r := range records {
			if r.Checkpoint == cp {
				return fmt.Errorf("%w: %s", ErrCheckpointCompleted, cp)
			}
		}
		return s.assessments.Create(ctx, a)
	})
	if err != nil {
		return err
	}
	s.logger.Info().
		Str("assessment_id", a.ID.String()).
		Str("patient_id", a.PatientID.String()).
		Str("checkpoint", a.Checkpoint).
		Msg("assessment submitted")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	return s.assessments.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Assessment, int, error) {
	return s.assessments.ListByPatient(ctx, patientID, limit, offset)
}

// Score derives the score of a stored assessment, comparing a follow-up with
// the assessment submitted just before it. A follow-up with nothing to
// compare against returns a *scoring.MissingBaselineError.
func (s *Service) Score(ctx context.Context, id uuid.UUID) (*ScoreView, error) {
	a, err := s.assessments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var prev *Assessment
	if a.FormType == string(scoring.FormFollowUp) {
		prev, err = s.assessments.Previous(ctx, a)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("load previous assessment: %w", err)
		}
	}

	view, err := scoreView(a, prev)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// History scores every assessment of the patient in date order. Entries that
// cannot be scored are marked unable_to_calculate.
func (s *Service) History(ctx context.Context, patientID uuid.UUID) ([]ScoreView, error) {
	items, err := s.assessments.History(ctx, patientID)
	if err != nil {
		return nil, err
	}

	views := make([]ScoreView, 0, len(items))
	var prev *Assessment
	for _, a := range items {
		var baseline *Assessment
		if a.FormType == string(scoring.FormFollowUp) {
			baseline = prev
		}
		view, err := scoreView(a, baseline)
		if err != nil {
			view = unscored(a, err)
		}
		views = append(views, view)
		prev = a
	}
	return views, nil
}

// Schedule returns the patient's checkpoint statuses as of today in the
// clinic time zone.
func (s *Service) Schedule(ctx context.Context, patientID uuid.UUID) ([]schedule.CheckpointStatus, error) {
	return s.scheduler.Schedule(ctx, patientID, s.today())
}

// Dashboard combines history and schedule for one patient.
func (s *Service) Dashboard(ctx context.Context, patientID uuid.UUID) (*Dashboard, error) {
	rows, err := s.Schedule(ctx, patientID)
	if err != nil {
		return nil, err
	}
	history, err := s.History(ctx, patientID)
	if err != nil {
		return nil, &schedule.UnavailableError{PatientID: patientID, Err: err}
	}

	d := &Dashboard{
		PatientID: patientID,
		History:   history,
		Schedule:  rows,
	}
	for _, r := range rows {
		if r.Status == schedule.StatusCompleted {
			d.Completed++
		}
		if r.ID == schedule.Initial {
			d.IntakeDate = r.DueDate
		}
	}
	if next, ok := schedule.NextDue(rows); ok {
		d.NextDue = &next
	}
	if len(history) > 0 {
		latest := history[len(history)-1]
		d.Latest = &latest
	}
	today := dateOnly(s.today())
	d.DaysInProgram = int(today.Sub(dateOnly(d.IntakeDate)).Hours() / 24)
	return d, nil
}

// Preview scores snapshots supplied by the caller without storing anything.
func (s *Service) Preview(req PreviewRequest) (scoring.Result, error) {
	if err := scoring.ValidateSnapshot(req.Current); err != nil {
		return scoring.Result{}, err
	}
	if req.Previous != nil {
		if err := scoring.ValidateSnapshot(*req.Previous); err != nil {
			return scoring.Result{}, fmt.Errorf("previous: %w", err)
		}
	}
	return scoring.Score(req.Current, req.Previous)
}

func scoreView(a, prev *Assessment) (ScoreView, error) {
	var baseline *scoring.Snapshot
	if prev != nil {
		snap := prev.ToSnapshot()
		baseline = &snap
	}
	res, err := scoring.Score(a.ToSnapshot(), baseline)
	if err != nil {
		return ScoreView{}, err
	}
	view := ScoreView{
		AssessmentID:     a.ID,
		Checkpoint:       a.Checkpoint,
		AssessmentDate:   a.AssessmentDate,
		Status:           ScoreStatusScored,
		Result:           &res,
		PhaseDescription: res.Phase.Description(),
	}
	if baseline != nil {
		id := prev.ID
		view.ComparedWith = &id
	}
	return view, nil
}

func unscored(a *Assessment, err error) ScoreView {
	return ScoreView{
		AssessmentID:   a.ID,
		Checkpoint:     a.Checkpoint,
		AssessmentDate: a.AssessmentDate,
		Status:         ScoreStatusUnableToCalculate,
		Reason:         err.Error(),
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// recordSource adapts the repository to schedule.RecordSource.
type recordSource struct {
	repo AssessmentRepository
}

func (r *recordSource) IntakeDate(ctx context.Context, patientID uuid.UUID) (time.Time, error) {
	intake, err := r.repo.GetIntake(ctx, patientID)
	if errors.Is(err, ErrNotFound) {
		return time.Time{}, schedule.ErrNoIntake
	}
	if err != nil {
		return time.Time{}, err
	}
	return intake.AssessmentDate, nil
}

func (r *recordSource) CompletedCheckpoints(ctx context.Context, patientID uuid.UUID) ([]schedule.Record, error) {
	return r.repo.ListCheckpoints(ctx, patientID)
}
