// Package engine computes attendance risk assessments from raw per-session
// attendance events. The pipeline is pure and side-effect free: normalize the
// event series, compute streak and rate metrics, fit a trend, scan for
// behavioral patterns, then classify the student into a risk tier. Running it
// twice on the same input yields identical output.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status is the normalized attendance status of one session day.
type Status int

const (
	// StatusAttended means the student was present and on time.
	StatusAttended Status = iota
	// StatusLate means present but late; counts as present for rates.
	StatusLate
	// StatusAbsent means an unexcused absence.
	StatusAbsent
	// StatusNeutral covers excused absences and vacation days. Neutral
	// days count neither as present nor absent and do not break absence
	// streaks.
	StatusNeutral
	// StatusUnmarked is a placeholder the instructor has not filled in yet.
	// Unmarked events are discarded before analysis.
	StatusUnmarked
)

func (s Status) String() string {
	switch s {
	case StatusAttended:
		return "attended"
	case StatusLate:
		return "late"
	case StatusAbsent:
		return "absent"
	case StatusNeutral:
		return "neutral"
	case StatusUnmarked:
		return "unmarked"
	default:
		return "unknown"
	}
}

// ParseStatus maps a raw status string onto a Status. Excused and vacation
// records collapse to neutral here; everything else unknown is an error so
// bad data gets counted instead of silently absorbed into the statistics.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "attended", "present":
		return StatusAttended, nil
	case "late", "tardy":
		return StatusLate, nil
	case "absent":
		return StatusAbsent, nil
	case "excused", "vacation", "holiday", "neutral":
		return StatusNeutral, nil
	case "unmarked":
		return StatusUnmarked, nil
	default:
		return StatusUnmarked, fmt.Errorf("unknown attendance status: %q", raw)
	}
}

// Event is one attendance record for one session day. Date carries only the
// calendar day; any time-of-day component is ignored.
type Event struct {
	Date   time.Time
	Status Status
}

// Series is a normalized event series: one entry per date, statuses
// restricted to attended/late/absent/neutral, sorted newest first.
type Series []Event

// Sentinel results. These mark well-defined "no assessment" conditions, not
// failures; batch callers check them with errors.Is and move on.
var (
	// ErrEmptySeries means no usable records remained after normalization.
	// Callers must treat this as "no opinion", never as zero risk.
	ErrEmptySeries = errors.New("attendance series is empty")
	// ErrInsufficientData means too few effective days to assess.
	ErrInsufficientData = errors.New("insufficient attendance data")
	// ErrNothingToFlag means the record is clean enough that there is
	// nothing to assess: no absences and at most one late arrival.
	ErrNothingToFlag = errors.New("no absences to assess")
	// ErrMixedSeries means the caller passed records belonging to more
	// than one student/course pair into a single assessment. That is a
	// programming error, not a data-quality issue.
	ErrMixedSeries = errors.New("records span more than one student/course pair")
)

const dateLayout = "2006-01-02"

// ParseDate parses a calendar date in the formats attendance exports use.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	layouts := []string{
		dateLayout,
		"2006/01/02",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z07:00",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return dayOf(parsed), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %q", value)
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Normalize deduplicates and orders a raw event series. Duplicate dates keep
// the last occurrence in input order (re-marked attendance wins), unmarked
// events are dropped, and the result is sorted newest first. Returns
// ErrEmptySeries when nothing usable remains.
func Normalize(events []Event) (Series, error) {
	byDate := make(map[string]Event, len(events))
	for _, ev := range events {
		if ev.Status == StatusUnmarked || ev.Date.IsZero() {
			continue
		}
		day := dayOf(ev.Date)
		byDate[day.Format(dateLayout)] = Event{Date: day, Status: ev.Status}
	}
	if len(byDate) == 0 {
		return nil, ErrEmptySeries
	}

	series := make(Series, 0, len(byDate))
	for _, ev := range byDate {
		series = append(series, ev)
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.After(series[j].Date)
	})
	return series, nil
}
