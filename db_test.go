package main

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"attendbot/internal/engine"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "attendbot-test.db")
	db, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUpsertAttendanceEvents(t *testing.T) {
	db := newTestDB(t)

	rows := []engine.RawRecord{
		{StudentID: "S1", CourseID: "MATH", Date: "2026-03-18", Status: "attended"},
		{StudentID: "S1", CourseID: "MATH", Date: "2026-03-19", Status: "absent"},
		{StudentID: "S2", CourseID: "BIO", Date: "2026-03-19", Status: "late"},
	}
	inserted, replaced, err := UpsertAttendanceEvents(db, rows)
	if err != nil {
		t.Fatalf("UpsertAttendanceEvents failed: %v", err)
	}
	if inserted != 3 || replaced != 0 {
		t.Fatalf("inserted=%d replaced=%d, want 3/0", inserted, replaced)
	}

	// Re-marking a stored day replaces it instead of duplicating.
	rows = []engine.RawRecord{
		{StudentID: "S1", CourseID: "MATH", Date: "2026-03-19", Status: "attended"},
		{StudentID: "S1", CourseID: "MATH", Date: "2026-03-20", Status: "absent"},
	}
	inserted, replaced, err = UpsertAttendanceEvents(db, rows)
	if err != nil {
		t.Fatalf("UpsertAttendanceEvents failed: %v", err)
	}
	if inserted != 1 || replaced != 1 {
		t.Fatalf("inserted=%d replaced=%d, want 1/1", inserted, replaced)
	}

	count, err := CountEvents(db)
	if err != nil {
		t.Fatalf("CountEvents failed: %v", err)
	}
	if count != 4 {
		t.Fatalf("CountEvents = %d, want 4", count)
	}

	all, err := GetAllEvents(db)
	if err != nil {
		t.Fatalf("GetAllEvents failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 events, got %d", len(all))
	}
	for _, r := range all {
		if r.StudentID == "S1" && r.Date == "2026-03-19" && r.Status != "attended" {
			t.Fatalf("re-marked day status = %q, want attended", r.Status)
		}
	}
}

func TestGetEventsForStudent(t *testing.T) {
	db := newTestDB(t)

	rows := []engine.RawRecord{
		{StudentID: "S1", CourseID: "MATH", Date: "2026-03-18", Status: "attended"},
		{StudentID: "S1", CourseID: "BIO", Date: "2026-03-18", Status: "absent"},
		{StudentID: "S2", CourseID: "MATH", Date: "2026-03-18", Status: "late"},
	}
	if _, _, err := UpsertAttendanceEvents(db, rows); err != nil {
		t.Fatalf("UpsertAttendanceEvents failed: %v", err)
	}

	events, err := GetEventsForStudent(db, "S1")
	if err != nil {
		t.Fatalf("GetEventsForStudent failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events for S1, got %d", len(events))
	}
	for _, e := range events {
		if e.StudentID != "S1" {
			t.Fatalf("unexpected student in result: %q", e.StudentID)
		}
	}
}

func TestRecordAlertDedupe(t *testing.T) {
	db := newTestDB(t)
	day := time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)

	a := &engine.Assessment{
		StudentID: "S1",
		CourseID:  "MATH",
		Tier:      engine.TierCritical,
		RiskScore: 82.5,
	}

	fresh, err := RecordAlert(db, "run-1", a, day)
	if err != nil {
		t.Fatalf("RecordAlert failed: %v", err)
	}
	if !fresh {
		t.Fatal("first alert of the day must be fresh")
	}

	// Same pair, tier, and day from a later run is a duplicate.
	fresh, err = RecordAlert(db, "run-2", a, day.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("RecordAlert failed: %v", err)
	}
	if fresh {
		t.Fatal("repeat alert on the same day must be suppressed")
	}

	// The next day it fires again.
	fresh, err = RecordAlert(db, "run-3", a, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("RecordAlert failed: %v", err)
	}
	if !fresh {
		t.Fatal("alert on a new day must be fresh")
	}

	count, err := CountAlertsForRun(db, "run-1")
	if err != nil {
		t.Fatalf("CountAlertsForRun failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("CountAlertsForRun(run-1) = %d, want 1", count)
	}
	count, err = CountAlertsForRun(db, "run-2")
	if err != nil {
		t.Fatalf("CountAlertsForRun failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("CountAlertsForRun(run-2) = %d, want 0", count)
	}
}
