package main

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"attendbot/internal/engine"
)

func StartSlackBot(cfg Config, db *sql.DB, api *slack.Client) error {
	client := socketmode.New(api)

	go func() {
		for evt := range client.Events {
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				client.Ack(*evt.Request)
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				log.Printf("Slash command received: %s %q from user=%s channel=%s", cmd.Command, cmd.Text, cmd.UserID, cmd.ChannelID)
				go handleSlashCommand(api, db, cfg, cmd)
			}
		}
	}()

	log.Println("Slack bot connected via Socket Mode")
	return client.Run()
}

func handleSlashCommand(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand) {
	if cmd.Command != "/attendance" {
		return
	}

	fields := strings.Fields(cmd.Text)
	sub := ""
	if len(fields) > 0 {
		sub = strings.ToLower(fields[0])
	}

	switch sub {
	case "run":
		handleRun(api, db, cfg, cmd)
	case "import":
		handleImport(api, db, cfg, cmd, fields[1:])
	case "student":
		handleStudent(api, db, cfg, cmd, fields[1:])
	case "help", "":
		handleHelp(api, cmd)
	default:
		postEphemeral(api, cmd, fmt.Sprintf("Unknown subcommand '%s'. Try `/attendance help`.", sub))
	}
}

func handleRun(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand) {
	result, err := RunAssessments(cfg, db)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error running assessments: %v", err))
		log.Printf("run error user=%s: %v", cmd.UserID, err)
		return
	}

	report := BuildRunReport(cfg, result)
	path, err := WriteReportFile(report, cfg.ReportOutputDir, result.AsOf, cfg.TeamName)
	if err != nil {
		log.Printf("Report write error: %v", err)
	}

	delivered := PostAlerts(api, cfg, db, result)

	msg := FormatRunSummary(result)
	if delivered > 0 {
		msg += fmt.Sprintf(" Posted %d to <#%s>.", delivered, cfg.AlertChannelID)
	}
	if path != "" {
		msg += fmt.Sprintf("\nReport: %s", path)
	}
	postEphemeral(api, cmd, msg)
}

func handleImport(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand, args []string) {
	source := ""
	if len(args) > 0 {
		source = args[0]
	}
	if source == "" && !cfg.CSVConfigured() {
		postEphemeral(api, cmd, "Usage: /attendance import <path-or-url> (or set attendance_csv_path / attendance_csv_url)")
		return
	}

	result, err := ImportAttendanceCSV(cfg, db, source)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Import error: %v", err))
		log.Printf("import error user=%s: %v", cmd.UserID, err)
		return
	}
	postEphemeral(api, cmd, FormatImportSummary(result))
}

func handleStudent(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand, args []string) {
	if len(args) == 0 {
		postEphemeral(api, cmd, "Usage: /attendance student <student_id> [course_id]")
		return
	}
	studentID := args[0]
	courseFilter := ""
	if len(args) > 1 {
		courseFilter = args[1]
	}

	rows, err := GetEventsForStudent(db, studentID)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error loading events: %v", err))
		log.Printf("student lookup error user=%s student=%s: %v", cmd.UserID, studentID, err)
		return
	}
	if len(rows) == 0 {
		postEphemeral(api, cmd, fmt.Sprintf("No attendance events for student `%s`.", studentID))
		return
	}

	roster, _ := engine.GroupRows(rows)
	asOf := time.Now().In(cfg.Location)
	ec := cfg.EngineConfig()

	var sections []string
	for _, pair := range roster.Pairs() {
		if courseFilter != "" && pair.CourseID != courseFilter {
			continue
		}
		a, err := engine.Assess(pair.StudentID, pair.CourseID, roster[pair.StudentID][pair.CourseID], asOf, ec)
		if err != nil {
			sections = append(sections, fmt.Sprintf("`%s`: no assessment (%v)", pair.CourseID, err))
			continue
		}
		sections = append(sections, formatStudentSection(a))
	}
	if len(sections) == 0 {
		postEphemeral(api, cmd, fmt.Sprintf("No events for student `%s` in course `%s`.", studentID, courseFilter))
		return
	}

	postEphemeral(api, cmd, fmt.Sprintf("Student `%s`:\n%s", studentID, strings.Join(sections, "\n")))
}

func formatStudentSection(a *engine.Assessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "`%s`: *%s* (risk %.1f, engagement %.1f)\n", a.CourseID, a.Tier, a.RiskScore, a.EngagementScore)
	fmt.Fprintf(&b, "  • Attendance %.1f%% over %d sessions (%d absent, %d late)\n",
		a.Metrics.AttendanceRate, a.Metrics.EffectiveDays, a.Metrics.AbsentDays, a.Metrics.LateDays)
	fmt.Fprintf(&b, "  • Trend %s, streak max %d / recent %d / ongoing %d",
		a.Trend.Class, a.Metrics.MaxConsecutiveAbsences,
		a.Metrics.RecentConsecutiveAbsences, a.Metrics.OngoingStreak)
	for _, label := range a.Patterns.Labels {
		fmt.Fprintf(&b, "\n  • %s", label)
	}
	return b.String()
}

func handleHelp(api *slack.Client, cmd slack.SlashCommand) {
	help := "*Attendance bot commands:*\n" +
		"• `/attendance run` — Assess every student/course pair and post alerts\n" +
		"• `/attendance import [path-or-url]` — Import an attendance CSV export\n" +
		"• `/attendance student <id> [course]` — Show one student's risk breakdown\n" +
		"• `/attendance help` — This message"
	postEphemeral(api, cmd, help)
}

func postEphemeral(api *slack.Client, cmd slack.SlashCommand, text string) {
	_, err := api.PostEphemeral(cmd.ChannelID, cmd.UserID, slack.MsgOptionText(text, false))
	if err != nil {
		log.Printf("Error posting ephemeral: %v", err)
	}
}
