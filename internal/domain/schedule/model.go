package schedule

import "time"

// CheckpointID identifies one scheduled assessment.
type CheckpointID string

const (
	Initial   CheckpointID = "initial"
	FourWeek  CheckpointID = "4-week"
	EightWeek CheckpointID = "8-week"
)

// Status is the derived state of a checkpoint. It is never stored.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusDue       Status = "due"
	StatusUpcoming  Status = "upcoming"
)

// Checkpoint is an entry of the fixed assessment schedule.
type Checkpoint struct {
	ID         CheckpointID `json:"id"`
	Label      string       `json:"label"`
	OffsetDays int          `json:"offset_days"`
}

// Checkpoints is the schedule, in order.
var Checkpoints = []Checkpoint{
	{ID: Initial, Label: "Initial Assessment", OffsetDays: 0},
	{ID: FourWeek, Label: "4-Week Reassessment", OffsetDays: 28},
	{ID: EightWeek, Label: "8-Week Reassessment", OffsetDays: 56},
}

// Lookup returns the schedule entry for id.
func Lookup(id CheckpointID) (Checkpoint, bool) {
	for _, cp := range Checkpoints {
		if cp.ID == id {
			return cp, true
		}
	}
	return Checkpoint{}, false
}

// CheckpointStatus is one row of a derived schedule.
type CheckpointStatus struct {
	Checkpoint
	DueDate     time.Time  `json:"due_date"`
	Status      Status     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Record is a persisted completion of a checkpoint.
type Record struct {
	Checkpoint  CheckpointID
	CompletedAt time.Time
}
