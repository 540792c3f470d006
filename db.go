package main

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"attendbot/internal/engine"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS attendance_events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id TEXT NOT NULL,
		course_id  TEXT NOT NULL,
		date       TEXT NOT NULL,
		status     TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(student_id, course_id, date)
	);
	CREATE INDEX IF NOT EXISTS idx_events_pair ON attendance_events(student_id, course_id);
	CREATE INDEX IF NOT EXISTS idx_events_date ON attendance_events(date);

	CREATE TABLE IF NOT EXISTS alert_log (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     TEXT NOT NULL,
		student_id TEXT NOT NULL,
		course_id  TEXT NOT NULL,
		tier       TEXT NOT NULL,
		risk_score REAL NOT NULL,
		alert_date TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(student_id, course_id, tier, alert_date)
	);
	CREATE INDEX IF NOT EXISTS idx_alert_log_run ON alert_log(run_id);
	CREATE INDEX IF NOT EXISTS idx_alert_log_date ON alert_log(alert_date);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// UpsertAttendanceEvents writes raw rows into the event store. A re-marked
// day (same student, course, date) replaces the stored status, matching the
// last-write-wins rule the analytics apply at read time.
func UpsertAttendanceEvents(db *sql.DB, rows []engine.RawRecord) (inserted, replaced int, err error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	check, err := tx.Prepare(
		`SELECT COUNT(*) FROM attendance_events WHERE student_id = ? AND course_id = ? AND date = ?`,
	)
	if err != nil {
		return 0, 0, err
	}
	defer check.Close()

	upsert, err := tx.Prepare(
		`INSERT INTO attendance_events (student_id, course_id, date, status)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(student_id, course_id, date) DO UPDATE SET status = excluded.status`,
	)
	if err != nil {
		return 0, 0, err
	}
	defer upsert.Close()

	for _, row := range rows {
		var count int
		if err := check.QueryRow(row.StudentID, row.CourseID, row.Date).Scan(&count); err != nil {
			return inserted, replaced, err
		}
		if _, err := upsert.Exec(row.StudentID, row.CourseID, row.Date, row.Status); err != nil {
			return inserted, replaced, err
		}
		if count > 0 {
			replaced++
		} else {
			inserted++
		}
	}

	return inserted, replaced, tx.Commit()
}

func GetAllEvents(db *sql.DB) ([]engine.RawRecord, error) {
	rows, err := db.Query(
		`SELECT student_id, course_id, date, status
		 FROM attendance_events ORDER BY student_id, course_id, date, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.RawRecord
	for rows.Next() {
		var r engine.RawRecord
		if err := rows.Scan(&r.StudentID, &r.CourseID, &r.Date, &r.Status); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func GetEventsForStudent(db *sql.DB, studentID string) ([]engine.RawRecord, error) {
	rows, err := db.Query(
		`SELECT student_id, course_id, date, status
		 FROM attendance_events WHERE student_id = ? ORDER BY course_id, date, id`,
		studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.RawRecord
	for rows.Next() {
		var r engine.RawRecord
		if err := rows.Scan(&r.StudentID, &r.CourseID, &r.Date, &r.Status); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func CountEvents(db *sql.DB) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM attendance_events`).Scan(&count)
	return count, err
}

// RecordAlert logs a delivered alert. The unique constraint on
// (student, course, tier, date) de-duplicates repeat runs on the same day:
// the second attempt is a no-op and returns false.
func RecordAlert(db *sql.DB, runID string, a *engine.Assessment, alertDate time.Time) (bool, error) {
	res, err := db.Exec(
		`INSERT OR IGNORE INTO alert_log (run_id, student_id, course_id, tier, risk_score, alert_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, a.StudentID, a.CourseID, string(a.Tier), a.RiskScore, alertDate.Format("2006-01-02"),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func CountAlertsForRun(db *sql.DB, runID string) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM alert_log WHERE run_id = ?`, runID).Scan(&count)
	return count, err
}
