package assessment

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/backtolife/recovery/internal/domain/schedule"
)

var (
	ErrNotFound            = errors.New("assessment not found")
	ErrCheckpointCompleted = errors.New("checkpoint already completed")
)

type AssessmentRepository interface {
	Create(ctx context.Context, a *Assessment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Assessment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Assessment, int, error)
	// History returns every assessment of the patient, oldest first.
	History(ctx context.Context, patientID uuid.UUID) ([]*Assessment, error)
	// Previous returns the assessment submitted immediately before a.
	Previous(ctx context.Context, a *Assessment) (*Assessment, error)
	GetIntake(ctx context.Context, patientID uuid.UUID) (*Assessment, error)
	ListCheckpoints(ctx context.Context, patientID uuid.UUID) ([]schedule.Record, error)
}
