package main

import (
	"database/sql"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"

	"attendbot/internal/engine"
)

// RunResult is the outcome of one batch assessment over the full event store.
type RunResult struct {
	RunID string
	AsOf  time.Time

	TotalEvents  int
	DroppedRows  int
	Pairs        int
	Assessed     int
	NoAssessment int

	TierCounts  map[engine.Tier]int
	Assessments []*engine.Assessment // sorted by risk, highest first
	Alerts      []*engine.Assessment // subset at/above the configured tier
}

// RunAssessments loads every stored event, assesses all student/course pairs,
// and selects the alerts. It has no Slack dependency so it can be called from
// both the slash command and the scheduler.
func RunAssessments(cfg Config, db *sql.DB) (RunResult, error) {
	result := RunResult{
		RunID:      uuid.NewString(),
		AsOf:       time.Now().In(cfg.Location),
		TierCounts: make(map[engine.Tier]int),
	}

	rows, err := GetAllEvents(db)
	if err != nil {
		return result, fmt.Errorf("loading attendance events: %v", err)
	}
	result.TotalEvents = len(rows)

	roster, diag := engine.GroupRows(rows)
	result.DroppedRows = diag.Malformed + diag.Unmarked

	assessments, stats := engine.AssessRoster(roster, result.AsOf, cfg.Workers, cfg.EngineConfig())
	result.Pairs = stats.Pairs
	result.Assessed = stats.Assessed
	result.NoAssessment = stats.NoAssessment

	sort.SliceStable(assessments, func(i, j int) bool {
		return assessments[i].RiskScore > assessments[j].RiskScore
	})
	result.Assessments = assessments

	minRank := engine.TierRank(engine.Tier(cfg.AlertMinTier))
	for _, a := range assessments {
		result.TierCounts[a.Tier]++
		if a.ShouldAlert && engine.TierRank(a.Tier) >= minRank {
			result.Alerts = append(result.Alerts, a)
		}
	}

	log.Printf("run id=%s events=%d pairs=%d assessed=%d skipped=%d alerts=%d",
		result.RunID, result.TotalEvents, result.Pairs, result.Assessed,
		result.NoAssessment, len(result.Alerts))
	return result, nil
}

// FormatRunSummary returns a human-readable summary of a RunResult.
func FormatRunSummary(result RunResult) string {
	tiers := []engine.Tier{engine.TierCritical, engine.TierHigh, engine.TierMedium, engine.TierWatch}
	var tierParts []string
	for _, tier := range tiers {
		if n := result.TierCounts[tier]; n > 0 {
			tierParts = append(tierParts, fmt.Sprintf("%d %s", n, tier))
		}
	}
	tierLine := "none at risk"
	if len(tierParts) > 0 {
		tierLine = strings.Join(tierParts, ", ")
	}
	return fmt.Sprintf("Assessed %d of %d student/course pairs (%s): %d alert(s).",
		result.Assessed, result.Pairs, tierLine, len(result.Alerts))
}

// StartAssessmentScheduler starts a cron-based scheduler that periodically
// runs the full assessment and posts alerts plus a summary to the alert channel.
// The schedule is a standard 5-field cron expression (minute hour day-of-month month day-of-week).
// Examples: "0 7 * * *" (daily 7am), "0 7 * * 1-5" (weekdays 7am).
func StartAssessmentScheduler(cfg Config, db *sql.DB, api *slack.Client) {
	schedule := strings.TrimSpace(cfg.AssessSchedule)
	if schedule == "" {
		log.Println("Scheduled assessments disabled (assess_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid assess_schedule '%s': %v, scheduled assessments disabled", schedule, err)
		return
	}

	log.Printf("Assessments scheduled (cron: %s)", schedule)

	go func() {
		for {
			now := time.Now().In(cfg.Location)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next assessment run at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)
			runAndDeliver(cfg, db, api)
		}
	}()
}

// runAndDeliver executes one scheduled run end to end: refresh from the
// configured export if any, assess, write the report file, post alerts, post
// the summary.
func runAndDeliver(cfg Config, db *sql.DB, api *slack.Client) {
	if cfg.CSVConfigured() {
		importResult, err := ImportAttendanceCSV(cfg, db, "")
		if err != nil {
			log.Printf("Scheduled import error: %v", err)
		} else {
			log.Printf("Scheduled import: %s", FormatImportSummary(importResult))
		}
	}

	result, err := RunAssessments(cfg, db)
	if err != nil {
		log.Printf("Scheduled run error: %v", err)
		return
	}

	report := BuildRunReport(cfg, result)
	if cfg.BriefingEnabled() {
		briefing, usage, err := GenerateRunBriefing(cfg, result)
		if err != nil {
			log.Printf("Briefing error (non-fatal): %v", err)
		} else {
			log.Printf("Briefing generated tokens_in=%d tokens_out=%d", usage.InputTokens, usage.OutputTokens)
			report = report + "\n## Briefing\n\n" + briefing + "\n"
		}
	}
	path, err := WriteReportFile(report, cfg.ReportOutputDir, result.AsOf, cfg.TeamName)
	if err != nil {
		log.Printf("Report write error: %v", err)
	} else {
		log.Printf("Report written to %s", path)
	}

	delivered := PostAlerts(api, cfg, db, result)
	summary := FormatRunSummary(result)
	log.Printf("Scheduled run complete: %s delivered=%d", summary, delivered)

	if cfg.AlertChannelID != "" {
		_, _, postErr := api.PostMessage(cfg.AlertChannelID, slack.MsgOptionText(
			fmt.Sprintf("Attendance run complete: %s", summary), false))
		if postErr != nil {
			log.Printf("Run summary post error: %v", postErr)
		}
	}
}
