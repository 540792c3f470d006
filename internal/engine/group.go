package engine

import (
	"sort"
	"time"
)

// RawRecord is the strict record shape at the ingestion boundary. Whatever
// loose shapes the upstream export produces must be flattened into this
// before the engine sees them; nothing past this point branches on input
// shape.
type RawRecord struct {
	StudentID string
	CourseID  string
	Date      string // ISO calendar date
	Status    string
}

// Roster is the two-level grouping of raw events: student -> course ->
// events in input order. Built once per batch.
type Roster map[string]map[string][]Event

// GroupDiagnostics counts what happened to the rows during grouping.
// Malformed rows (unparseable date, unknown status, missing IDs) are dropped
// but reported so a bad export does not silently skew the statistics.
type GroupDiagnostics struct {
	Total     int
	Grouped   int
	Unmarked  int
	Malformed int
}

// GroupRows builds a Roster from flat rows. Input order within each pair is
// preserved so later re-marks win during normalization.
func GroupRows(rows []RawRecord) (Roster, GroupDiagnostics) {
	roster := make(Roster)
	diag := GroupDiagnostics{Total: len(rows)}

	for _, row := range rows {
		if row.StudentID == "" || row.CourseID == "" {
			diag.Malformed++
			continue
		}
		date, err := ParseDate(row.Date)
		if err != nil {
			diag.Malformed++
			continue
		}
		status, err := ParseStatus(row.Status)
		if err != nil {
			diag.Malformed++
			continue
		}
		if status == StatusUnmarked {
			diag.Unmarked++
			continue
		}
		courses, ok := roster[row.StudentID]
		if !ok {
			courses = make(map[string][]Event)
			roster[row.StudentID] = courses
		}
		courses[row.CourseID] = append(courses[row.CourseID], Event{Date: date, Status: status})
		diag.Grouped++
	}
	return roster, diag
}

// Pairs lists the student/course pairs in the roster in a stable order.
func (r Roster) Pairs() []Pair {
	pairs := make([]Pair, 0, len(r))
	for student, courses := range r {
		for course := range courses {
			pairs = append(pairs, Pair{StudentID: student, CourseID: course})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].StudentID != pairs[j].StudentID {
			return pairs[i].StudentID < pairs[j].StudentID
		}
		return pairs[i].CourseID < pairs[j].CourseID
	})
	return pairs
}

// Pair identifies one student in one course.
type Pair struct {
	StudentID string
	CourseID  string
}

// AssessRecords validates that the rows belong to exactly one student/course
// pair and assesses them. Mixing pairs in a single call is a caller bug and
// fails immediately with ErrMixedSeries.
func AssessRecords(rows []RawRecord, asOf time.Time, cfg Config) (*Assessment, error) {
	roster, _ := GroupRows(rows)
	pairs := roster.Pairs()
	if len(pairs) == 0 {
		return nil, ErrEmptySeries
	}
	if len(pairs) > 1 {
		return nil, ErrMixedSeries
	}
	pair := pairs[0]
	return Assess(pair.StudentID, pair.CourseID, roster[pair.StudentID][pair.CourseID], asOf, cfg)
}
