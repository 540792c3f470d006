package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"attendbot/internal/engine"
)

type Config struct {
	SlackBotToken string `yaml:"slack_bot_token"`
	SlackAppToken string `yaml:"slack_app_token"`

	DBPath          string `yaml:"db_path"`
	ReportOutputDir string `yaml:"report_output_dir"`
	AlertChannelID  string `yaml:"alert_channel_id"`

	AttendanceCSVPath string `yaml:"attendance_csv_path"`
	AttendanceCSVURL  string `yaml:"attendance_csv_url"`

	AssessSchedule string `yaml:"assess_schedule"`
	AlertMinTier   string `yaml:"alert_min_tier"`
	Workers        int    `yaml:"workers"`

	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	BriefingModel   string `yaml:"briefing_model"`

	RecencyHalfLifeDays float64 `yaml:"recency_half_life_days"`
	RecentWindowDays    int     `yaml:"recent_window_days"`
	MinEffectiveDays    int     `yaml:"min_effective_days"`

	TeamName string `yaml:"team_name"`
	Timezone string `yaml:"timezone"`

	Location *time.Location `yaml:"-"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.AlertChannelID, "ALERT_CHANNEL_ID")
	envOverride(&cfg.AttendanceCSVPath, "ATTENDANCE_CSV_PATH")
	envOverride(&cfg.AttendanceCSVURL, "ATTENDANCE_CSV_URL")
	envOverride(&cfg.AssessSchedule, "ASSESS_SCHEDULE")
	envOverride(&cfg.AlertMinTier, "ALERT_MIN_TIER")
	envOverrideInt(&cfg.Workers, "WORKERS")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.BriefingModel, "BRIEFING_MODEL")
	envOverrideFloat(&cfg.RecencyHalfLifeDays, "RECENCY_HALF_LIFE_DAYS")
	envOverrideInt(&cfg.RecentWindowDays, "RECENT_WINDOW_DAYS")
	envOverrideInt(&cfg.MinEffectiveDays, "MIN_EFFECTIVE_DAYS")
	envOverride(&cfg.TeamName, "TEAM_NAME")
	envOverride(&cfg.Timezone, "TIMEZONE")

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = "./attendbot.db"
	}
	if cfg.ReportOutputDir == "" {
		cfg.ReportOutputDir = "./reports"
	}
	if cfg.AlertMinTier == "" {
		cfg.AlertMinTier = "HIGH"
	}
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
	if cfg.TeamName == "" {
		cfg.TeamName = "Advising"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	// Validate required fields
	required := map[string]string{
		"slack_bot_token": cfg.SlackBotToken,
		"slack_app_token": cfg.SlackAppToken,
	}
	for name, val := range required {
		if val == "" {
			log.Fatalf("Required config '%s' is not set (via config.yaml or env var)", name)
		}
	}

	if engine.TierRank(engine.Tier(cfg.AlertMinTier)) == 0 {
		log.Fatalf("invalid alert_min_tier '%s': must be one of WATCH, MEDIUM, HIGH, CRITICAL", cfg.AlertMinTier)
	}
	if cfg.Workers < 1 {
		log.Fatalf("invalid workers '%d': must be >= 1", cfg.Workers)
	}
	if cfg.RecencyHalfLifeDays < 0 {
		log.Fatalf("invalid recency_half_life_days '%f': must be >= 0", cfg.RecencyHalfLifeDays)
	}
	if cfg.RecentWindowDays < 0 {
		log.Fatalf("invalid recent_window_days '%d': must be >= 0", cfg.RecentWindowDays)
	}
	if cfg.MinEffectiveDays < 0 {
		log.Fatalf("invalid min_effective_days '%d': must be >= 0", cfg.MinEffectiveDays)
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	return cfg
}

// EngineConfig maps the configured tunables onto the analytics defaults.
// Unset fields keep the calibrated stock values.
func (c Config) EngineConfig() engine.Config {
	ec := engine.DefaultConfig()
	if c.RecencyHalfLifeDays > 0 {
		ec.RecencyHalfLifeDays = c.RecencyHalfLifeDays
	}
	if c.RecentWindowDays > 0 {
		ec.RecentWindowDays = c.RecentWindowDays
	}
	if c.MinEffectiveDays > 0 {
		ec.MinEffectiveDays = c.MinEffectiveDays
	}
	return ec
}

// CSVConfigured reports whether any attendance export source is set.
func (c Config) CSVConfigured() bool {
	return c.AttendanceCSVPath != "" || c.AttendanceCSVURL != ""
}

// BriefingEnabled reports whether the narrative run briefing can be generated.
func (c Config) BriefingEnabled() bool {
	return c.AnthropicAPIKey != ""
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
