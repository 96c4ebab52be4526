package assessment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/backtolife/recovery/internal/domain/schedule"
	"github.com/backtolife/recovery/internal/domain/scoring"
	"github.com/backtolife/recovery/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

const uniqueViolation = "23505"

type assessmentRepoPG struct{ pool *pgxpool.Pool }

func NewAssessmentRepoPG(pool *pgxpool.Pool) AssessmentRepository {
	return &assessmentRepoPG{pool: pool}
}

func (r *assessmentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const assessmentCols = `id, patient_id, clinician_id, checkpoint, form_type, region,
	disability_answers, vas, psfs, beliefs, confidence, groc,
	recovery_milestone, clinical_progress_verified, pcs4, tsk7,
	intake_date, assessment_date, note, created_at`

func (r *assessmentRepoPG) scanAssessment(row pgx.Row) (*Assessment, error) {
	var a Assessment
	err := row.Scan(&a.ID, &a.PatientID, &a.ClinicianID, &a.Checkpoint, &a.FormType, &a.Region,
		&a.DisabilityAnswers, &a.VAS, &a.PSFS, &a.Beliefs, &a.Confidence, &a.GROC,
		&a.RecoveryMilestone, &a.ClinicalProgressVerified, &a.PCS4, &a.TSK7,
		&a.IntakeDate, &a.AssessmentDate, &a.Note, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assessmentRepoPG) Create(ctx context.Context, a *Assessment) error {
	a.ID = uuid.New()
	answers, psfs, beliefs := a.DisabilityAnswers, a.PSFS, a.Beliefs
	if answers == nil {
		answers = []int{}
	}
	if psfs == nil {
		psfs = []scoring.PSFSItem{}
	}
	if beliefs == nil {
		beliefs = []string{}
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO assessment (id, patient_id, clinician_id, checkpoint, form_type, region,
			disability_answers, vas, psfs, beliefs, confidence, groc,
			recovery_milestone, clinical_progress_verified, pcs4, tsk7,
			intake_date, assessment_date, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		RETURNING created_at`,
		a.ID, a.PatientID, a.ClinicianID, a.Checkpoint, a.FormType, a.Region,
		answers, a.VAS, psfs, beliefs, a.Confidence, a.GROC,
		a.RecoveryMilestone, a.ClinicalProgressVerified, a.PCS4, a.TSK7,
		a.IntakeDate, a.AssessmentDate, a.Note).Scan(&a.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrCheckpointCompleted, a.Checkpoint)
	}
	return err
}

func (r *assessmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	return r.scanAssessment(r.conn(ctx).QueryRow(ctx, `SELECT `+assessmentCols+` FROM assessment WHERE id = $1`, id))
}

func (r *assessmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Assessment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM assessment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+assessmentCols+` FROM assessment WHERE patient_id = $1
		ORDER BY assessment_date DESC, created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(rows)
	return items, total, err
}

func (r *assessmentRepoPG) History(ctx context.Context, patientID uuid.UUID) ([]*Assessment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+assessmentCols+` FROM assessment WHERE patient_id = $1
		ORDER BY assessment_date ASC, created_at ASC`, patientID)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *assessmentRepoPG) Previous(ctx context.Context, a *Assessment) (*Assessment, error) {
	return r.scanAssessment(r.conn(ctx).QueryRow(ctx, `SELECT `+assessmentCols+` FROM assessment
		WHERE patient_id = $1 AND id <> $2
			AND (assessment_date, created_at) < ($3, $4)
		ORDER BY assessment_date DESC, created_at DESC LIMIT 1`,
		a.PatientID, a.ID, a.AssessmentDate, a.CreatedAt))
}

func (r *assessmentRepoPG) GetIntake(ctx context.Context, patientID uuid.UUID) (*Assessment, error) {
	return r.scanAssessment(r.conn(ctx).QueryRow(ctx, `SELECT `+assessmentCols+` FROM assessment
		WHERE patient_id = $1 AND checkpoint = $2`, patientID, string(schedule.Initial)))
}

func (r *assessmentRepoPG) ListCheckpoints(ctx context.Context, patientID uuid.UUID) ([]schedule.Record, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT checkpoint, created_at FROM assessment WHERE patient_id = $1`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []schedule.Record
	for rows.Next() {
		var label string
		var rec schedule.Record
		if err := rows.Scan(&label, &rec.CompletedAt); err != nil {
			return nil, err
		}
		rec.Checkpoint = schedule.CheckpointID(label)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *assessmentRepoPG) collect(rows pgx.Rows) ([]*Assessment, error) {
	defer rows.Close()
	var items []*Assessment
	for rows.Next() {
		a, err := r.scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
