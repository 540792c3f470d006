package engine

import (
	"sync"
	"time"
)

// Assess runs the full pipeline for one student/course pair: normalize,
// metrics, trend, patterns, score. The five stages run strictly in order and
// each consumes only the previous stage's output. Sentinel errors
// (ErrEmptySeries, ErrInsufficientData, ErrNothingToFlag) mean "no
// assessment", which callers must keep distinct from "assessed and healthy".
func Assess(studentID, courseID string, events []Event, asOf time.Time, cfg Config) (*Assessment, error) {
	series, err := Normalize(events)
	if err != nil {
		return nil, err
	}
	metrics := ComputeMetrics(series, asOf, cfg)
	trend := AnalyzeTrend(series, asOf, cfg)
	patterns := DetectPatterns(series, metrics, trend, cfg)

	a, err := Score(metrics, trend, patterns, cfg)
	if err != nil {
		return nil, err
	}
	a.StudentID = studentID
	a.CourseID = courseID
	return a, nil
}

// RosterStats summarizes a batch assessment.
type RosterStats struct {
	Pairs        int
	Assessed     int
	NoAssessment int
}

// AssessRoster assesses every student/course pair in the roster across a
// bounded worker pool. Pairs are independent, so they run in parallel;
// results come back in stable pair order regardless of scheduling, and pairs
// that hit a no-assessment sentinel are simply skipped.
func AssessRoster(roster Roster, asOf time.Time, workers int, cfg Config) ([]*Assessment, RosterStats) {
	pairs := roster.Pairs()
	stats := RosterStats{Pairs: len(pairs)}
	if len(pairs) == 0 {
		return nil, stats
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]*Assessment, len(pairs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, pair := range pairs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, pair Pair) {
			defer wg.Done()
			defer func() { <-sem }()
			a, err := Assess(pair.StudentID, pair.CourseID, roster[pair.StudentID][pair.CourseID], asOf, cfg)
			if err != nil {
				return
			}
			results[i] = a
		}(i, pair)
	}
	wg.Wait()

	out := make([]*Assessment, 0, len(pairs))
	for _, a := range results {
		if a == nil {
			stats.NoAssessment++
			continue
		}
		stats.Assessed++
		out = append(out, a)
	}
	return out, stats
}
