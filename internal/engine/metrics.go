package engine

import (
	"math"
	"time"
)

// Metrics is the immutable per-series metrics snapshot. Rates are
// percentages in [0,100].
type Metrics struct {
	TotalDays     int
	EffectiveDays int // total minus neutral days
	PresentDays   int // attended + late
	AbsentDays    int
	LateDays      int

	// AttendanceRate is present/effective * 100, 0 when there are no
	// effective days.
	AttendanceRate float64

	// MaxConsecutiveAbsences is the longest absence run anywhere in the
	// series. Neutral days inside a run do not break it.
	MaxConsecutiveAbsences int

	// RecentConsecutiveAbsences is the worst absence run observed inside
	// the recency window, or the ongoing run when the series ends in an
	// absence, whichever is larger.
	RecentConsecutiveAbsences int

	// OngoingStreak is the absence run that includes the most recent
	// record; zero when the student last showed up.
	OngoingStreak int

	// RecencyWeightedScore sums exponentially decayed weights over all
	// absence dates, scaled and capped to [0,100]. One absence yesterday
	// outweighs several from two months ago.
	RecencyWeightedScore float64
}

// ComputeMetrics walks a normalized series (newest first) and produces the
// full metrics snapshot as of the given date. asOf anchors the recency window
// and the decay weights so results are reproducible.
func ComputeMetrics(series Series, asOf time.Time, cfg Config) Metrics {
	asOf = dayOf(asOf)
	window := time.Duration(cfg.RecentWindowDays) * 24 * time.Hour

	var m Metrics
	m.TotalDays = len(series)

	current := 0
	leading := 0        // absence run anchored at the newest record
	leadingOpen := true // still inside that leading run
	decaySum := 0.0

	for _, ev := range series {
		switch ev.Status {
		case StatusNeutral:
			// Neutral days neither reset nor extend streaks; an
			// absence run spans excused gaps.
			continue
		case StatusAttended, StatusLate:
			m.EffectiveDays++
			m.PresentDays++
			if ev.Status == StatusLate {
				m.LateDays++
			}
			current = 0
			leadingOpen = false
		case StatusAbsent:
			m.EffectiveDays++
			m.AbsentDays++
			current++
			if current > m.MaxConsecutiveAbsences {
				m.MaxConsecutiveAbsences = current
			}
			if leadingOpen {
				leading++
			}
			if asOf.Sub(ev.Date) <= window && current > m.RecentConsecutiveAbsences {
				m.RecentConsecutiveAbsences = current
			}
			days := asOf.Sub(ev.Date).Hours() / 24
			if days < 0 {
				days = 0
			}
			decaySum += math.Exp(-days / cfg.RecencyHalfLifeDays)
		}
	}

	// The ongoing run counts in full even when it started before the
	// window: an absence streak still in progress is recent by definition.
	if len(series) > 0 && series[0].Status == StatusAbsent {
		m.OngoingStreak = leading
		if leading > m.RecentConsecutiveAbsences {
			m.RecentConsecutiveAbsences = leading
		}
	}

	if m.EffectiveDays > 0 {
		m.AttendanceRate = round1(float64(m.PresentDays) / float64(m.EffectiveDays) * 100)
	}
	m.RecencyWeightedScore = round1(math.Min(100, decaySum*cfg.RecencyScale))
	return m
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
