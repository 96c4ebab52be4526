package db

import (
	"testing"
	"testing/fstest"
	"time"
)

func TestLoadMigrations(t *testing.T) {
	files := fstest.MapFS{
		"002_history.sql":    {Data: []byte("CREATE INDEX a ON assessment (patient_id);")},
		"001_assessment.sql": {Data: []byte("CREATE TABLE assessment (id UUID PRIMARY KEY);")},
		"010_later.sql":      {Data: []byte("SELECT 1;")},
		"README.md":          {Data: []byte("docs")},
		"notes.sql":          {Data: []byte("SELECT 1;")},
		"abc_bad.sql":        {Data: []byte("SELECT 1;")},
		"sub/003_nested.sql": {Data: []byte("SELECT 1;")},
	}

	migrations, err := NewMigrator(nil, files).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	wantVersions := []int{1, 2, 10}
	for i, v := range wantVersions {
		if migrations[i].Version != v {
			t.Errorf("migration %d: expected version %d, got %d", i, v, migrations[i].Version)
		}
	}
	if migrations[0].Name != "001_assessment.sql" {
		t.Errorf("expected 001_assessment.sql first, got %s", migrations[0].Name)
	}
	if migrations[0].SQL != "CREATE TABLE assessment (id UUID PRIMARY KEY);" {
		t.Errorf("unexpected SQL content: %s", migrations[0].SQL)
	}
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	files := fstest.MapFS{
		"001_a.sql":  {Data: []byte("SELECT 1;")},
		"0001_b.sql": {Data: []byte("SELECT 1;")},
	}
	if _, err := NewMigrator(nil, files).LoadMigrations(); err == nil {
		t.Error("expected error for duplicate version")
	}
}

func TestLoadMigrations_Empty(t *testing.T) {
	migrations, err := NewMigrator(nil, fstest.MapFS{}).LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migrations) != 0 {
		t.Errorf("expected no migrations, got %d", len(migrations))
	}
}

func TestPendingAndStatuses(t *testing.T) {
	migrations := []Migration{{Version: 1, Name: "001_a.sql"}, {Version: 2, Name: "002_b.sql"}, {Version: 3, Name: "003_c.sql"}}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	applied := map[int]time.Time{1: at}

	all := pending(migrations, applied, 0)
	if len(all) != 2 || all[0].Version != 2 || all[1].Version != 3 {
		t.Errorf("unexpected pending set: %+v", all)
	}
	upTo := pending(migrations, applied, 2)
	if len(upTo) != 1 || upTo[0].Version != 2 {
		t.Errorf("unexpected pending set up to 2: %+v", upTo)
	}

	st := statuses(migrations, applied)
	if len(st) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(st))
	}
	if !st[0].Applied || st[0].AppliedAt == nil || !st[0].AppliedAt.Equal(at) {
		t.Errorf("expected version 1 applied at %v, got %+v", at, st[0])
	}
	if st[1].Applied || st[1].AppliedAt != nil {
		t.Errorf("expected version 2 pending, got %+v", st[1])
	}
}

func TestQuoteSchema(t *testing.T) {
	if got := quoteSchema("clinic_main"); got != `"clinic_main"` {
		t.Errorf("unexpected quoting: %s", got)
	}
}
