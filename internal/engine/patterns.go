package engine

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// PatternSet holds the behavioral patterns detected in a series. Labels are
// advisory strings for humans; downstream logic only looks at the count and
// the lateness flag, never at the label text.
type PatternSet struct {
	Labels          []string
	ChronicLateness bool
}

// Count returns the number of detected patterns.
func (p PatternSet) Count() int { return len(p.Labels) }

// DetectPatterns scans a normalized series plus its metrics for behavioral
// patterns. Every detector sits behind a significance guard so sparse data
// does not produce false positives.
func DetectPatterns(series Series, m Metrics, trend Trend, cfg Config) PatternSet {
	var out PatternSet

	if label, ok := weekdayBias(series, cfg); ok {
		out.Labels = append(out.Labels, label)
	}
	if label, ok := recentSpike(series, cfg); ok {
		out.Labels = append(out.Labels, label)
	}
	if m.MaxConsecutiveAbsences >= cfg.ExtendedStreakMin {
		out.Labels = append(out.Labels,
			fmt.Sprintf("extended absence streak (%d consecutive sessions)", m.MaxConsecutiveAbsences))
	}
	out.Labels = append(out.Labels, clusteringLabels(series, m, cfg)...)
	if m.TotalDays >= cfg.MinDaysLateness && m.LateDays >= cfg.LatenessMinDays &&
		float64(m.LateDays)/float64(m.TotalDays) >= cfg.LatenessMinShare {
		pct := float64(m.LateDays) / float64(m.TotalDays) * 100
		out.Labels = append(out.Labels, fmt.Sprintf("chronic lateness (%.0f%% of days)", pct))
		out.ChronicLateness = true
	}
	if trend.Class == TrendDeclining && math.Abs(trend.Slope) >= cfg.SharpDeclineSlope &&
		m.AttendanceRate < cfg.SharpDeclineRateBar {
		out.Labels = append(out.Labels, "sharp attendance decline")
	}

	return out
}

// weekdayBias reports a weekday the student reliably misses. Requires enough
// total days, enough occurrences of the weekday, and a high absence share on
// it before firing.
func weekdayBias(series Series, cfg Config) (string, bool) {
	if len(series) < cfg.MinDaysWeekdayBias {
		return "", false
	}
	var absences, occurrences [7]int
	for _, ev := range series {
		wd := int(ev.Date.Weekday())
		occurrences[wd]++
		if ev.Status == StatusAbsent {
			absences[wd]++
		}
	}
	for wd := 0; wd < 7; wd++ {
		if occurrences[wd] < 4 || absences[wd] < 3 {
			continue
		}
		if float64(absences[wd])/float64(occurrences[wd]) >= 0.7 {
			day := time.Weekday(wd)
			return fmt.Sprintf("frequently absent on %ss (%d of %d)", day, absences[wd], occurrences[wd]), true
		}
	}
	return "", false
}

// recentSpike fires when absences in the newest window clearly exceed the
// window before it.
func recentSpike(series Series, cfg Config) (string, bool) {
	if len(series) < cfg.MinDaysSpike {
		return "", false
	}
	w := cfg.SpikeWindow
	recent := absentCount(series[:w])
	prior := absentCount(series[w : 2*w])
	if recent >= cfg.SpikeMinAbsences && recent-prior >= cfg.SpikeMinDelta {
		return fmt.Sprintf("recent spike in absences (%d in last %d sessions)", recent, w), true
	}
	return "", false
}

func absentCount(events []Event) int {
	count := 0
	for _, ev := range events {
		if ev.Status == StatusAbsent {
			count++
		}
	}
	return count
}

// clusteringLabels looks at the calendar gaps between consecutive absences.
// A small mean gap means the absences bunch up instead of scattering; the
// two signals are related but distinct and may both fire.
func clusteringLabels(series Series, m Metrics, cfg Config) []string {
	if m.TotalDays < cfg.MinDaysClustering || m.AbsentDays < cfg.MinAbsencesClustering {
		return nil
	}
	dates := make([]time.Time, 0, m.AbsentDays)
	for _, ev := range series {
		if ev.Status == StatusAbsent {
			dates = append(dates, ev.Date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	totalGap := 0.0
	for i := 1; i < len(dates); i++ {
		totalGap += dates[i].Sub(dates[i-1]).Hours() / 24
	}
	meanGap := totalGap / float64(len(dates)-1)

	var labels []string
	if meanGap < cfg.IntermittentMeanGap {
		labels = append(labels, "frequent intermittent absences")
	}
	if meanGap <= cfg.ClusteredMeanGap {
		labels = append(labels, "clustered absence pattern")
	}
	return labels
}
