package schedule

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var intake = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestStatusOf_OnIntakeDay(t *testing.T) {
	got := StatusOf(intake, map[CheckpointID]bool{Initial: true}, intake)

	if got[Initial].Status != StatusCompleted {
		t.Errorf("initial = %s, want completed", got[Initial].Status)
	}
	if got[FourWeek].Status != StatusUpcoming {
		t.Errorf("4-week = %s, want upcoming", got[FourWeek].Status)
	}
	if got[EightWeek].Status != StatusUpcoming {
		t.Errorf("8-week = %s, want upcoming", got[EightWeek].Status)
	}
	if !got[FourWeek].DueDate.Equal(day(28)) {
		t.Errorf("4-week due = %v, want %v", got[FourWeek].DueDate, day(28))
	}
	if !got[EightWeek].DueDate.Equal(day(56)) {
		t.Errorf("8-week due = %v, want %v", got[EightWeek].DueDate, day(56))
	}
}

func TestStatusOf_InitialCompletedByIntakeDate(t *testing.T) {
	got := StatusOf(intake, nil, intake)
	if got[Initial].Status != StatusCompleted {
		t.Errorf("initial = %s, want completed", got[Initial].Status)
	}
}

func TestStatusOf_FourWeekBecomesDue(t *testing.T) {
	before := StatusOf(intake, nil, day(27))
	if before[FourWeek].Status != StatusUpcoming {
		t.Errorf("day 27: 4-week = %s, want upcoming", before[FourWeek].Status)
	}

	on := StatusOf(intake, nil, day(28))
	if on[FourWeek].Status != StatusDue {
		t.Errorf("day 28: 4-week = %s, want due", on[FourWeek].Status)
	}
	if on[EightWeek].Status != StatusUpcoming {
		t.Errorf("day 28: 8-week = %s, want upcoming", on[EightWeek].Status)
	}

	late := StatusOf(intake, nil, day(90))
	if late[FourWeek].Status != StatusDue || late[EightWeek].Status != StatusDue {
		t.Errorf("day 90: got %s/%s, want due/due", late[FourWeek].Status, late[EightWeek].Status)
	}
}

func TestStatusOf_IgnoresTimeOfDay(t *testing.T) {
	earlyMorning := day(28).Add(30 * time.Minute)
	got := StatusOf(intake, nil, earlyMorning)
	if got[FourWeek].Status != StatusDue {
		t.Errorf("4-week = %s, want due", got[FourWeek].Status)
	}
	lateEvening := day(27).Add(23*time.Hour + 59*time.Minute)
	got = StatusOf(intake, nil, lateEvening)
	if got[FourWeek].Status != StatusUpcoming {
		t.Errorf("4-week = %s, want upcoming", got[FourWeek].Status)
	}
}

func TestStatusOf_CompletedIsTerminal(t *testing.T) {
	done := map[CheckpointID]bool{Initial: true, FourWeek: true}
	for _, offset := range []int{0, 28, 100} {
		got := StatusOf(intake, done, day(offset))
		if got[FourWeek].Status != StatusCompleted {
			t.Errorf("day %d: 4-week = %s, want completed", offset, got[FourWeek].Status)
		}
	}
}

func TestEvaluate_OrderAndCompletionTime(t *testing.T) {
	first := day(30).Add(10 * time.Hour)
	records := []Record{
		{Checkpoint: FourWeek, CompletedAt: day(31)},
		{Checkpoint: FourWeek, CompletedAt: first},
	}
	rows := Evaluate(intake, records, day(40))
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, id := range []CheckpointID{Initial, FourWeek, EightWeek} {
		if rows[i].ID != id {
			t.Errorf("row %d = %s, want %s", i, rows[i].ID, id)
		}
	}
	if rows[1].CompletedAt == nil || !rows[1].CompletedAt.Equal(first) {
		t.Errorf("expected earliest completion %v, got %v", first, rows[1].CompletedAt)
	}
	if rows[0].CompletedAt == nil || !rows[0].CompletedAt.Equal(intake) {
		t.Errorf("expected initial completion at intake, got %v", rows[0].CompletedAt)
	}
}

func TestEvaluate_UsesTodayLocation(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*3600)
	// 2024-04-01 03:00 UTC is still 2024-03-31 in UTC-8, day 27 of the plan.
	today := time.Date(2024, 4, 1, 3, 0, 0, 0, time.UTC).In(loc)
	intakeLocal := time.Date(2024, 3, 4, 9, 0, 0, 0, loc)
	rows := Evaluate(intakeLocal, nil, today)
	if rows[1].Status != StatusUpcoming {
		t.Errorf("4-week = %s, want upcoming", rows[1].Status)
	}
}

func TestEvaluate_StoredDateInClinicZone(t *testing.T) {
	// DATE columns scan as UTC midnight.
	stored := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name string
		loc  *time.Location
	}{
		{"utc", time.UTC},
		{"west of utc", newYork},
		{"east of utc", tokyo},
		{"fixed offset west", time.FixedZone("UTC-10", -10*3600)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantDue := time.Date(2024, 1, 29, 0, 0, 0, 0, tt.loc)

			rows := Evaluate(stored, nil, time.Date(2024, 1, 28, 23, 0, 0, 0, tt.loc))
			if y, m, d := rows[0].DueDate.Date(); y != 2024 || m != time.January || d != 1 {
				t.Errorf("initial due = %v, want 2024-01-01", rows[0].DueDate)
			}
			if !rows[1].DueDate.Equal(wantDue) {
				t.Errorf("4-week due = %v, want %v", rows[1].DueDate, wantDue)
			}
			if rows[1].Status != StatusUpcoming {
				t.Errorf("day 27: 4-week = %s, want upcoming", rows[1].Status)
			}

			rows = Evaluate(stored, nil, time.Date(2024, 1, 29, 0, 30, 0, 0, tt.loc))
			if rows[1].Status != StatusDue {
				t.Errorf("day 28: 4-week = %s, want due", rows[1].Status)
			}
		})
	}
}

func TestNextDue(t *testing.T) {
	rows := Evaluate(intake, nil, day(10))
	next, ok := NextDue(rows)
	if !ok || next.ID != FourWeek {
		t.Errorf("next = %v %v, want 4-week", next.ID, ok)
	}

	all := Evaluate(intake, []Record{{Checkpoint: FourWeek}, {Checkpoint: EightWeek}}, day(60))
	if _, ok := NextDue(all); ok {
		t.Error("expected no next checkpoint when all are completed")
	}
}

func TestParseCheckpoint(t *testing.T) {
	tests := map[string]CheckpointID{
		"Intake":              Initial,
		"Initial Intake":      Initial,
		"Initial":             Initial,
		"initial":             Initial,
		"4-Week":              FourWeek,
		"4 week":              FourWeek,
		"Week 4 Reassessment": FourWeek,
		"8-Week":              EightWeek,
		"8wk":                 EightWeek,
	}
	for in, want := range tests {
		got, err := ParseCheckpoint(in)
		if err != nil || got != want {
			t.Errorf("ParseCheckpoint(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseCheckpoint("12-week"); !errors.Is(err, ErrUnknownCheckpoint) {
		t.Errorf("expected ErrUnknownCheckpoint, got %v", err)
	}
}

// -- Service --

type stubSource struct {
	intake    time.Time
	intakeErr error
	records   []Record
	recErr    error
}

func (s *stubSource) IntakeDate(_ context.Context, _ uuid.UUID) (time.Time, error) {
	return s.intake, s.intakeErr
}

func (s *stubSource) CompletedCheckpoints(_ context.Context, _ uuid.UUID) ([]Record, error) {
	return s.records, s.recErr
}

func newTestService(src RecordSource) *Service {
	return NewService(src, zerolog.New(io.Discard))
}

func TestService_Schedule(t *testing.T) {
	svc := newTestService(&stubSource{intake: intake, records: []Record{{Checkpoint: Initial, CompletedAt: intake}}})
	rows, err := svc.Schedule(context.Background(), uuid.New(), day(28))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows[1].Status != StatusDue {
		t.Errorf("4-week = %s, want due", rows[1].Status)
	}
}

func TestService_Schedule_SourceDown(t *testing.T) {
	down := errors.New("connection refused")
	for name, src := range map[string]*stubSource{
		"intake lookup":  {intakeErr: down},
		"records lookup": {intake: intake, recErr: down},
	} {
		t.Run(name, func(t *testing.T) {
			rows, err := newTestService(src).Schedule(context.Background(), uuid.New(), day(1))
			if rows != nil {
				t.Error("expected no schedule when source is down")
			}
			if !errors.Is(err, ErrSchedulerUnavailable) {
				t.Fatalf("expected ErrSchedulerUnavailable, got %v", err)
			}
			if !errors.Is(err, down) {
				t.Error("expected underlying cause to be preserved")
			}
			var ue *UnavailableError
			if !errors.As(err, &ue) {
				t.Error("expected *UnavailableError")
			}
		})
	}
}

func TestService_Schedule_NoIntake(t *testing.T) {
	_, err := newTestService(&stubSource{}).Schedule(context.Background(), uuid.New(), day(1))
	if !errors.Is(err, ErrNoIntake) {
		t.Fatalf("expected ErrNoIntake, got %v", err)
	}
	_, err = newTestService(&stubSource{intakeErr: ErrNoIntake}).Schedule(context.Background(), uuid.New(), day(1))
	if !errors.Is(err, ErrNoIntake) || errors.Is(err, ErrSchedulerUnavailable) {
		t.Fatalf("expected bare ErrNoIntake, got %v", err)
	}
}
