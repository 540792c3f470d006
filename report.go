package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"attendbot/internal/engine"
)

const reportTopRisks = 10

// BuildRunReport renders a markdown report for one assessment run.
func BuildRunReport(cfg Config, result RunResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s attendance risk report\n\n", cfg.TeamName)
	fmt.Fprintf(&b, "Run `%s` on %s.\n\n", result.RunID, result.AsOf.Format("Monday, Jan 2 2006"))

	fmt.Fprintf(&b, "## Overview\n\n")
	fmt.Fprintf(&b, "- Events: %d (%d dropped)\n", result.TotalEvents, result.DroppedRows)
	fmt.Fprintf(&b, "- Pairs assessed: %d of %d\n", result.Assessed, result.Pairs)
	tiers := []engine.Tier{engine.TierCritical, engine.TierHigh, engine.TierMedium, engine.TierWatch, engine.TierNone}
	for _, tier := range tiers {
		if n := result.TierCounts[tier]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", tier, n)
		}
	}
	fmt.Fprintf(&b, "- Alerts: %d (minimum tier %s)\n\n", len(result.Alerts), cfg.AlertMinTier)

	if len(result.Assessments) > 0 {
		fmt.Fprintf(&b, "## Top risks\n\n")
		limit := reportTopRisks
		if len(result.Assessments) < limit {
			limit = len(result.Assessments)
		}
		for _, a := range result.Assessments[:limit] {
			fmt.Fprintf(&b, "### %s / %s — %s (%.1f)\n\n", a.StudentID, a.CourseID, a.Tier, a.RiskScore)
			fmt.Fprintf(&b, "- Attendance %.1f%% over %d sessions (%d absent, %d late, max streak %d)\n",
				a.Metrics.AttendanceRate, a.Metrics.EffectiveDays,
				a.Metrics.AbsentDays, a.Metrics.LateDays, a.Metrics.MaxConsecutiveAbsences)
			fmt.Fprintf(&b, "- Trend %s (slope %.1f, r² %.2f, momentum %.1f), engagement %.1f\n",
				a.Trend.Class, a.Trend.Slope, a.Trend.RSquared, a.Trend.Momentum, a.EngagementScore)
			for _, label := range a.Patterns.Labels {
				fmt.Fprintf(&b, "- %s\n", label)
			}
			fmt.Fprintf(&b, "\n")
		}
	}

	return b.String()
}

func WriteReportFile(content, outputDir string, reportDate time.Time, teamName string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s_attendance_%s.md", sanitizeFilename(teamName), reportDate.Format("20060102"))
	path := filepath.Join(outputDir, filename)
	return path, os.WriteFile(path, []byte(content), 0644)
}

func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", " ", "_")
	return replacer.Replace(s)
}
