package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/backtolife/recovery/internal/config"
	"github.com/backtolife/recovery/internal/domain/schedule"
	"github.com/backtolife/recovery/internal/domain/scoring"
	"github.com/backtolife/recovery/internal/platform/db"
	"github.com/backtolife/recovery/internal/platform/idempotency"
	"github.com/backtolife/recovery/internal/platform/middleware"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:            "development",
		DefaultClinic:  "main",
		CORSOrigins:    []string{"http://localhost:3000"},
		BodyLimit:      "1M",
		RequestTimeout: 5 * time.Second,
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	return newRouter(cfg, nil, idempotency.NewMemoryStore(time.Hour),
		middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst), time.UTC, zerolog.Nop())
}

func TestRouter_Health(t *testing.T) {
	e := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

func TestRouter_RequiresTokenOutsideDevAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "staging"
	cfg.AuthSigningKey = strings.Repeat("s", 32)
	e := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/"+"9b2f64c4-8f0e-4c53-9d59-2b7a3e0f2a11"+"/schedule", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected public health check, got %d", rec.Code)
	}
}

func TestScoreSnapshots(t *testing.T) {
	answers := "[2,2,2,2,2,2,2,2,2,2]"
	body := `{
		"current": {"form_type": "follow-up", "region": "low-back", "disability_answers": ` + answers + `,
			"vas": 3, "psfs": [{"activity": "Walking", "score": 7}], "beliefs": ["None of these apply"],
			"confidence": 8, "groc": 5},
		"previous": {"form_type": "intake", "region": "low-back", "disability_answers": ` + answers + `,
			"vas": 6, "psfs": [{"activity": "Walking", "score": 2}], "confidence": 4}
	}`

	res, err := scoreSnapshots(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// vas 1 + psfs 2 + confidence 2 + beliefs 1 + groc 1
	if res.SRS != 7 || res.Phase != scoring.PhaseRebuild {
		t.Errorf("expected SRS 7 REBUILD, got %d %s", res.SRS, res.Phase)
	}
	if res.DisabilityPercentage != 40 {
		t.Errorf("expected 40%%, got %v", res.DisabilityPercentage)
	}
}

func TestScoreSnapshots_Errors(t *testing.T) {
	if _, err := scoreSnapshots(strings.NewReader("{")); err == nil {
		t.Error("expected decode error")
	}
	_, err := scoreSnapshots(strings.NewReader(`{"current": {"form_type": "intake", "region": "neck", "disability_answers": [1], "psfs": [{"activity": "x", "score": 1}]}}`))
	if !errors.Is(err, scoring.ErrInvalidRegionAnswers) {
		t.Errorf("expected ErrInvalidRegionAnswers, got %v", err)
	}
	_, err = scoreSnapshots(strings.NewReader(`{"current": {"form_type": "follow-up", "region": "neck", "disability_answers": [1,1,1,1,1,1,1,1,1,1], "psfs": [{"activity": "x", "score": 1}]}}`))
	if !errors.Is(err, scoring.ErrMissingBaseline) {
		t.Errorf("expected ErrMissingBaseline, got %v", err)
	}
}

func TestEvaluateSchedule(t *testing.T) {
	rows, err := evaluateSchedule("2024-01-01", []string{"Week 4"}, "2024-02-26", "America/New_York", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[schedule.CheckpointID]schedule.Status{
		schedule.Initial:   schedule.StatusCompleted,
		schedule.FourWeek:  schedule.StatusCompleted,
		schedule.EightWeek: schedule.StatusDue,
	}
	for _, r := range rows {
		if r.Status != want[r.ID] {
			t.Errorf("%s: expected %s, got %s", r.ID, want[r.ID], r.Status)
		}
	}
}

func TestEvaluateSchedule_DefaultsToNow(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	rows, err := evaluateSchedule("2024-01-01", nil, "", "UTC", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows[1].Status != schedule.StatusUpcoming {
		t.Errorf("expected 4-week upcoming, got %s", rows[1].Status)
	}
}

func TestEvaluateSchedule_Errors(t *testing.T) {
	tests := []struct {
		name      string
		intake    string
		completed []string
		today     string
		tz        string
	}{
		{"bad zone", "2024-01-01", nil, "", "Nowhere/Land"},
		{"bad intake", "01/01/2024", nil, "", "UTC"},
		{"bad today", "2024-01-01", nil, "tomorrow", "UTC"},
		{"unknown checkpoint", "2024-01-01", []string{"week 3"}, "", "UTC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := evaluateSchedule(tt.intake, tt.completed, tt.today, tt.tz, time.Now()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPrintMigrationStatus(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printMigrationStatus(&buf, "clinic_main", []db.MigrationStatus{
		{Version: 1, Name: "001_assessment.sql", Applied: true, AppliedAt: &at},
		{Version: 2, Name: "002_next.sql"},
	})
	out := buf.String()
	if !strings.Contains(out, "clinic_main") || !strings.Contains(out, "2024-05-01 10:00:00") || !strings.Contains(out, "pending") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestSweep_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := make(chan struct{}, 10)
	done := make(chan struct{})
	go func() {
		sweep(ctx, time.Millisecond, zerolog.Nop(), func() int {
			select {
			case calls <- struct{}{}:
			default:
			}
			return 1
		})
		close(done)
	}()

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("sweeper never ran")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestClinicLocation(t *testing.T) {
	cfg := testConfig()
	cfg.ClinicTimezone = "America/New_York"
	loc, err := clinicLocation(cfg)
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	if loc.String() != "America/New_York" {
		t.Errorf("location = %s, want America/New_York", loc)
	}

	cfg.ClinicTimezone = "Mars/Olympus_Mons"
	if loc, err := clinicLocation(cfg); err == nil || loc != nil {
		t.Errorf("expected an error for an unknown zone, got %v, %v", loc, err)
	}

	cfg = testConfig()
	if loc, err := clinicLocation(cfg); err != nil || loc != time.UTC {
		t.Errorf("expected UTC by default, got %v, %v", loc, err)
	}
}
