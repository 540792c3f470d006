package main

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"

	"attendbot/internal/engine"
)

var tierEmoji = map[engine.Tier]string{
	engine.TierCritical: ":rotating_light:",
	engine.TierHigh:     ":warning:",
	engine.TierMedium:   ":large_orange_diamond:",
	engine.TierWatch:    ":eyes:",
}

// FormatAlertMessage renders one assessment as a Slack message.
func FormatAlertMessage(a *engine.Assessment) string {
	emoji := tierEmoji[a.Tier]
	if emoji == "" {
		emoji = ":grey_question:"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s* risk for student `%s` in `%s` (score %.1f, engagement %.1f)\n",
		emoji, a.Tier, a.StudentID, a.CourseID, a.RiskScore, a.EngagementScore)
	fmt.Fprintf(&b, "• Attendance %.1f%% over %d sessions (%d absent, %d late)\n",
		a.Metrics.AttendanceRate, a.Metrics.EffectiveDays, a.Metrics.AbsentDays, a.Metrics.LateDays)
	if a.Metrics.OngoingStreak > 0 {
		fmt.Fprintf(&b, "• Currently absent %d session(s) in a row\n", a.Metrics.OngoingStreak)
	}
	fmt.Fprintf(&b, "• Trend %s (slope %.1f, momentum %.1f)\n", a.Trend.Class, a.Trend.Slope, a.Trend.Momentum)
	for _, label := range a.Patterns.Labels {
		fmt.Fprintf(&b, "• %s\n", label)
	}
	return strings.TrimRight(b.String(), "\n")
}

// PostAlerts delivers the run's alerts to the alert channel, logging each one
// so a rerun on the same day does not page twice. Returns the number actually
// delivered.
func PostAlerts(api *slack.Client, cfg Config, db *sql.DB, result RunResult) int {
	if cfg.AlertChannelID == "" {
		if len(result.Alerts) > 0 {
			log.Printf("alert_channel_id not set, %d alert(s) not delivered", len(result.Alerts))
		}
		return 0
	}

	delivered := 0
	for _, a := range result.Alerts {
		fresh, err := RecordAlert(db, result.RunID, a, result.AsOf)
		if err != nil {
			log.Printf("Alert log error student=%s course=%s: %v", a.StudentID, a.CourseID, err)
			continue
		}
		if !fresh {
			log.Printf("Alert suppressed (already sent today) student=%s course=%s tier=%s",
				a.StudentID, a.CourseID, a.Tier)
			continue
		}

		_, _, err = api.PostMessage(cfg.AlertChannelID, slack.MsgOptionText(FormatAlertMessage(a), false))
		if err != nil {
			log.Printf("Alert post error student=%s course=%s: %v", a.StudentID, a.CourseID, err)
			continue
		}
		delivered++
	}
	return delivered
}
