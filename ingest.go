package main

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"attendbot/internal/engine"
)

// ImportResult tracks separate counters for each row outcome.
type ImportResult struct {
	Source   string
	Rows     int
	Inserted int
	Replaced int
	Dropped  int
	Errors   []string
}

// Column aliases seen across student-information-system exports. Headers are
// matched case-insensitively after trimming.
var csvColumnAliases = map[string][]string{
	"student": {"student_id", "student", "sid", "learner_id"},
	"course":  {"course_id", "course", "class", "class_id", "section"},
	"date":    {"date", "session_date", "day"},
	"status":  {"status", "attendance", "attendance_status", "mark"},
}

// ReadAttendanceCSV parses an attendance export. Rows with a short field
// count or blank required cells are dropped, not fatal; a bad export should
// degrade into drop counts, not kill the import.
func ReadAttendanceCSV(r io.Reader) ([]engine.RawRecord, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("reading CSV header: %w", err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, 0, err
	}

	var records []engine.RawRecord
	dropped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			dropped++
			continue
		}
		rec, ok := rowToRecord(row, cols)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped, nil
}

func resolveColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	cols := make(map[string]int, len(csvColumnAliases))
	var missing []string
	for field, aliases := range csvColumnAliases {
		found := -1
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				found = i
				break
			}
		}
		if found == -1 {
			missing = append(missing, field)
			continue
		}
		cols[field] = found
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("CSV header missing required column(s): %s (header: %s)",
			strings.Join(missing, ", "), strings.Join(header, ","))
	}
	return cols, nil
}

func rowToRecord(row []string, cols map[string]int) (engine.RawRecord, bool) {
	get := func(field string) string {
		i := cols[field]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	rec := engine.RawRecord{
		StudentID: get("student"),
		CourseID:  get("course"),
		Date:      get("date"),
		Status:    get("status"),
	}
	if rec.StudentID == "" || rec.CourseID == "" || rec.Date == "" || rec.Status == "" {
		return engine.RawRecord{}, false
	}
	return rec, true
}

// FetchAttendanceCSV downloads an attendance export over HTTP.
func FetchAttendanceCSV(url string) ([]engine.RawRecord, int, error) {
	resp, err := externalHTTPClient.Get(url)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching attendance export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, 0, fmt.Errorf("fetching attendance export: status %d", resp.StatusCode)
	}
	return ReadAttendanceCSV(resp.Body)
}

// ImportAttendanceCSV loads the export named by source (a file path or an
// http(s) URL; empty falls back to the configured source) and upserts its
// rows into the event store.
func ImportAttendanceCSV(cfg Config, db *sql.DB, source string) (ImportResult, error) {
	if source == "" {
		source = cfg.AttendanceCSVPath
		if source == "" {
			source = cfg.AttendanceCSVURL
		}
	}
	if source == "" {
		return ImportResult{}, fmt.Errorf("no attendance CSV source configured")
	}

	var (
		records []engine.RawRecord
		dropped int
		err     error
	)
	result := ImportResult{Source: source}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		records, dropped, err = FetchAttendanceCSV(source)
	} else {
		var f *os.File
		f, err = os.Open(source)
		if err != nil {
			return result, fmt.Errorf("opening attendance export: %w", err)
		}
		defer f.Close()
		records, dropped, err = ReadAttendanceCSV(f)
	}
	if err != nil {
		return result, err
	}

	result.Rows = len(records) + dropped
	result.Dropped = dropped
	log.Printf("import source=%s rows=%d dropped=%d", source, result.Rows, dropped)

	if len(records) > 0 {
		inserted, replaced, dbErr := UpsertAttendanceEvents(db, records)
		result.Inserted = inserted
		result.Replaced = replaced
		if dbErr != nil {
			return result, fmt.Errorf("storing attendance rows: %v", dbErr)
		}
	}
	return result, nil
}

// FormatImportSummary returns a human-readable summary of an ImportResult.
func FormatImportSummary(result ImportResult) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%d new", result.Inserted))
	if result.Replaced > 0 {
		parts = append(parts, fmt.Sprintf("%d re-marked", result.Replaced))
	}
	if result.Dropped > 0 {
		parts = append(parts, fmt.Sprintf("%d dropped", result.Dropped))
	}
	return fmt.Sprintf("Imported %d rows: %s.", result.Rows, strings.Join(parts, ", "))
}
