package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"attendbot/internal/engine"
)

const defaultBriefingModel = "claude-sonnet-4-5-20250929"
const briefingTopRisks = 10

type LLMUsage struct {
	InputTokens  int64
	OutputTokens int64
}

func (u LLMUsage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

// GenerateRunBriefing turns a completed run into a short advisor-readable
// narrative. Every number it talks about is already computed; the model only
// writes prose around the rule-based results.
func GenerateRunBriefing(cfg Config, result RunResult) (string, LLMUsage, error) {
	if cfg.AnthropicAPIKey == "" {
		return "", LLMUsage{}, fmt.Errorf("anthropic_api_key is not configured")
	}

	model := cfg.BriefingModel
	if model == "" {
		model = defaultBriefingModel
	}

	systemPrompt := "You write short briefings for academic advisors about attendance risk. " +
		"You receive pre-computed statistics; never invent numbers, students, or causes. " +
		"Write 2-3 plain paragraphs: overall picture, the students needing attention first, " +
		"and any shared patterns worth acting on. No markdown headings, no bullet lists."

	userPrompt := buildBriefingPrompt(result)

	log.Printf("briefing model=%s assessed=%d alerts=%d", model, result.Assessed, len(result.Alerts))

	client := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
	message, err := client.Messages.New(context.Background(), anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("briefing anthropic error: %v", err)
		return "", LLMUsage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := LLMUsage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return strings.TrimSpace(block.Text), usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}

func buildBriefingPrompt(result RunResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Assessment run on %s.\n", result.AsOf.Format("2006-01-02"))
	fmt.Fprintf(&b, "Pairs assessed: %d of %d. Alerts: %d.\n", result.Assessed, result.Pairs, len(result.Alerts))
	for _, tier := range []engine.Tier{engine.TierCritical, engine.TierHigh, engine.TierMedium, engine.TierWatch} {
		if n := result.TierCounts[tier]; n > 0 {
			fmt.Fprintf(&b, "Tier %s: %d.\n", tier, n)
		}
	}

	limit := briefingTopRisks
	if len(result.Assessments) < limit {
		limit = len(result.Assessments)
	}
	if limit > 0 {
		b.WriteString("\nHighest risks:\n")
	}
	for _, a := range result.Assessments[:limit] {
		fmt.Fprintf(&b, "- %s in %s: tier %s, risk %.1f, attendance %.1f%% over %d sessions, trend %s",
			a.StudentID, a.CourseID, a.Tier, a.RiskScore,
			a.Metrics.AttendanceRate, a.Metrics.EffectiveDays, a.Trend.Class)
		if a.Metrics.OngoingStreak > 0 {
			fmt.Fprintf(&b, ", currently absent %d in a row", a.Metrics.OngoingStreak)
		}
		if len(a.Patterns.Labels) > 0 {
			fmt.Fprintf(&b, ", patterns: %s", strings.Join(a.Patterns.Labels, "; "))
		}
		b.WriteString("\n")
	}

	return b.String()
}
