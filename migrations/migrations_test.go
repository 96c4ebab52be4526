package migrations

import (
	"strings"
	"testing"

	"github.com/backtolife/recovery/internal/domain/schedule"
	"github.com/backtolife/recovery/internal/platform/db"
)

func TestEmbeddedMigrationsLoad(t *testing.T) {
	migs, err := db.NewMigrator(nil, FS).LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migs) == 0 || migs[0].Version != 1 {
		t.Fatalf("expected migration 1 first, got %+v", migs)
	}
	if !strings.Contains(migs[0].SQL, "UNIQUE (patient_id, checkpoint)") {
		t.Error("expected one row per patient checkpoint to be enforced")
	}
}

// The checkpoint column only admits canonical ids, so stored labels scan
// straight into schedule.CheckpointID.
func TestCheckpointConstraintMatchesSchedule(t *testing.T) {
	migs, err := db.NewMigrator(nil, FS).LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := make([]string, 0, len(schedule.Checkpoints))
	for _, cp := range schedule.Checkpoints {
		ids = append(ids, "'"+string(cp.ID)+"'")
	}
	want := "CHECK (checkpoint IN (" + strings.Join(ids, ", ") + "))"
	if !strings.Contains(migs[0].SQL, want) {
		t.Errorf("expected %s in migration 1", want)
	}
}
