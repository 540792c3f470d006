package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing test config failed: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SLACK_BOT_TOKEN", "SLACK_APP_TOKEN", "DB_PATH", "REPORT_OUTPUT_DIR",
		"ALERT_CHANNEL_ID", "ATTENDANCE_CSV_PATH", "ATTENDANCE_CSV_URL",
		"ASSESS_SCHEDULE", "ALERT_MIN_TIER", "WORKERS", "ANTHROPIC_API_KEY",
		"BRIEFING_MODEL", "RECENCY_HALF_LIFE_DAYS", "RECENT_WINDOW_DAYS",
		"MIN_EFFECTIVE_DAYS", "TEAM_NAME", "TIMEZONE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	writeTestConfig(t, "slack_bot_token: xoxb-test\nslack_app_token: xapp-test\n")

	cfg := LoadConfig()

	if cfg.DBPath != "./attendbot.db" {
		t.Errorf("DBPath = %q, want ./attendbot.db", cfg.DBPath)
	}
	if cfg.ReportOutputDir != "./reports" {
		t.Errorf("ReportOutputDir = %q, want ./reports", cfg.ReportOutputDir)
	}
	if cfg.AlertMinTier != "HIGH" {
		t.Errorf("AlertMinTier = %q, want HIGH", cfg.AlertMinTier)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.TeamName != "Advising" {
		t.Errorf("TeamName = %q, want Advising", cfg.TeamName)
	}
	if cfg.Location != time.Local {
		t.Errorf("Location = %v, want Local", cfg.Location)
	}
	if cfg.BriefingEnabled() {
		t.Error("BriefingEnabled should be false without an API key")
	}
	if cfg.CSVConfigured() {
		t.Error("CSVConfigured should be false with no source set")
	}
}

func TestLoadConfigEnvOverridesYAML(t *testing.T) {
	clearConfigEnv(t)
	writeTestConfig(t, `
slack_bot_token: xoxb-yaml
slack_app_token: xapp-yaml
alert_min_tier: MEDIUM
workers: 2
team_name: Yaml Team
`)
	t.Setenv("ALERT_MIN_TIER", "CRITICAL")
	t.Setenv("WORKERS", "8")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("ATTENDANCE_CSV_PATH", "/tmp/export.csv")

	cfg := LoadConfig()

	if cfg.SlackBotToken != "xoxb-yaml" {
		t.Errorf("SlackBotToken = %q, want xoxb-yaml", cfg.SlackBotToken)
	}
	if cfg.AlertMinTier != "CRITICAL" {
		t.Errorf("AlertMinTier = %q, want CRITICAL (env must win)", cfg.AlertMinTier)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8 (env must win)", cfg.Workers)
	}
	if cfg.TeamName != "Yaml Team" {
		t.Errorf("TeamName = %q, want Yaml Team", cfg.TeamName)
	}
	if !cfg.BriefingEnabled() {
		t.Error("BriefingEnabled should be true with an API key")
	}
	if !cfg.CSVConfigured() {
		t.Error("CSVConfigured should be true with a path set")
	}
}

func TestEngineConfigOverrides(t *testing.T) {
	cfg := Config{
		RecencyHalfLifeDays: 14,
		RecentWindowDays:    30,
	}
	ec := cfg.EngineConfig()

	if ec.RecencyHalfLifeDays != 14 {
		t.Errorf("RecencyHalfLifeDays = %v, want 14", ec.RecencyHalfLifeDays)
	}
	if ec.RecentWindowDays != 30 {
		t.Errorf("RecentWindowDays = %d, want 30", ec.RecentWindowDays)
	}
	// Unset tunables keep the stock values.
	if ec.MinEffectiveDays != 3 {
		t.Errorf("MinEffectiveDays = %d, want 3", ec.MinEffectiveDays)
	}
	if ec.RecencyScale != 10 {
		t.Errorf("RecencyScale = %v, want 10", ec.RecencyScale)
	}
}
