package assessment

import (
	"time"

	"github.com/google/uuid"

	"github.com/backtolife/recovery/internal/domain/schedule"
	"github.com/backtolife/recovery/internal/domain/scoring"
)

// Assessment maps to the assessment table. Rows are written once and never
// updated.
type Assessment struct {
	ID                       uuid.UUID          `db:"id" json:"id"`
	PatientID                uuid.UUID          `db:"patient_id" json:"patient_id"`
	ClinicianID              *uuid.UUID         `db:"clinician_id" json:"clinician_id,omitempty"`
	Checkpoint               string             `db:"checkpoint" json:"checkpoint"`
	FormType                 string             `db:"form_type" json:"form_type"`
	Region                   string             `db:"region" json:"region"`
	DisabilityAnswers        []int              `db:"disability_answers" json:"disability_answers"`
	VAS                      int                `db:"vas" json:"vas"`
	PSFS                     []scoring.PSFSItem `db:"psfs" json:"psfs"`
	Beliefs                  []string           `db:"beliefs" json:"beliefs"`
	Confidence               int                `db:"confidence" json:"confidence"`
	GROC                     int                `db:"groc" json:"groc"`
	RecoveryMilestone        bool               `db:"recovery_milestone" json:"recovery_milestone"`
	ClinicalProgressVerified bool               `db:"clinical_progress_verified" json:"clinical_progress_verified"`
	PCS4                     map[string]int     `db:"pcs4" json:"pcs4,omitempty"`
	TSK7                     map[string]int     `db:"tsk7" json:"tsk7,omitempty"`
	IntakeDate               time.Time          `db:"intake_date" json:"intake_date"`
	AssessmentDate           time.Time          `db:"assessment_date" json:"assessment_date"`
	Note                     *string            `db:"note" json:"note,omitempty"`
	CreatedAt                time.Time          `db:"created_at" json:"created_at"`
}

// ToSnapshot converts the stored row into the calculator's input. Fields
// are expected to hold canonical values (see Service.Submit).
func (a *Assessment) ToSnapshot() scoring.Snapshot {
	return scoring.Snapshot{
		FormType:                 scoring.FormType(a.FormType),
		Region:                   scoring.Region(a.Region),
		DisabilityAnswers:        a.DisabilityAnswers,
		VAS:                      a.VAS,
		PSFS:                     a.PSFS,
		Beliefs:                  a.Beliefs,
		Confidence:               a.Confidence,
		GROC:                     a.GROC,
		RecoveryMilestone:        a.RecoveryMilestone,
		ClinicalProgressVerified: a.ClinicalProgressVerified,
		PCS4:                     a.PCS4,
		TSK7:                     a.TSK7,
		IntakeDate:               a.IntakeDate,
		AssessmentDate:           a.AssessmentDate,
	}
}

// ScoreStatus tells a client whether a score could be derived.
type ScoreStatus string

const (
	ScoreStatusScored            ScoreStatus = "scored"
	ScoreStatusUnableToCalculate ScoreStatus = "unable_to_calculate"
)

// ScoreView is the score of one stored assessment.
type ScoreView struct {
	AssessmentID     uuid.UUID       `json:"assessment_id"`
	Checkpoint       string          `json:"checkpoint"`
	AssessmentDate   time.Time       `json:"assessment_date"`
	Status           ScoreStatus     `json:"status"`
	Result           *scoring.Result `json:"result,omitempty"`
	PhaseDescription string          `json:"phase_description,omitempty"`
	ComparedWith     *uuid.UUID      `json:"compared_with,omitempty"`
	Reason           string          `json:"reason,omitempty"`
}

// Dashboard summarizes a patient's recovery for the patient and clinician
// views.
type Dashboard struct {
	PatientID     uuid.UUID                   `json:"patient_id"`
	Latest        *ScoreView                  `json:"latest,omitempty"`
	History       []ScoreView                 `json:"history"`
	Schedule      []schedule.CheckpointStatus `json:"schedule"`
	NextDue       *schedule.CheckpointStatus  `json:"next_due,omitempty"`
	Completed     int                         `json:"completed"`
	IntakeDate    time.Time                   `json:"intake_date"`
	DaysInProgram int                         `json:"days_in_program"`
}

// PreviewRequest scores snapshots without persisting them.
type PreviewRequest struct {
	Current  scoring.Snapshot  `json:"current"`
	Previous *scoring.Snapshot `json:"previous,omitempty"`
}
