package engine

// Tier is the ordinal risk tier of an assessed student.
type Tier string

const (
	TierCritical Tier = "CRITICAL"
	TierHigh     Tier = "HIGH"
	TierMedium   Tier = "MEDIUM"
	TierWatch    Tier = "WATCH"
	// TierNone means the student was assessed and landed below every
	// threshold: healthy, no alert. Distinct from a no-assessment
	// sentinel, which means the engine had no opinion at all.
	TierNone Tier = "NONE"
)

// TierRank orders tiers by severity, higher is worse. Unknown tiers rank
// below everything.
func TierRank(t Tier) int {
	switch t {
	case TierCritical:
		return 4
	case TierHigh:
		return 3
	case TierMedium:
		return 2
	case TierWatch:
		return 1
	default:
		return 0
	}
}

// Assessment is the final artifact of the pipeline for one student/course
// pair. It is fully derived from the event history: recomputing on the same
// input gives the same assessment.
type Assessment struct {
	StudentID string
	CourseID  string

	RiskScore       float64 // composite 0-100, higher is worse
	Tier            Tier
	ShouldAlert     bool
	EngagementScore float64 // 0-100, higher is better

	Metrics  Metrics
	Trend    Trend
	Patterns PatternSet
}

// Score combines metrics, trend, and patterns into the composite risk score,
// the engagement score, the tier, and the alert flag. Guard clauses run
// first: with fewer than the minimum effective days, or nothing worth
// flagging, it returns a sentinel instead of an assessment.
func Score(m Metrics, trend Trend, patterns PatternSet, cfg Config) (*Assessment, error) {
	if m.EffectiveDays < cfg.MinEffectiveDays {
		return nil, ErrInsufficientData
	}
	if m.AbsentDays == 0 && m.LateDays <= 1 {
		return nil, ErrNothingToFlag
	}

	score := absenceSeverity(m) +
		recentBehavior(m) +
		trendFactor(trend) +
		patternComplexity(patterns)
	score = round1(clamp(score, 0, 100))

	engagement := engagementScore(m, trend, patterns, cfg)

	a := &Assessment{
		RiskScore:       score,
		EngagementScore: engagement,
		Metrics:         m,
		Trend:           trend,
		Patterns:        patterns,
	}
	a.Tier = classifyTier(a)
	a.ShouldAlert = a.Tier != TierNone

	// Suppression override: when every independent health signal agrees
	// the student is fine, residual score from one old absence must not
	// page anyone. This can only suppress, never escalate.
	if a.ShouldAlert && suppressed(a, cfg) {
		a.ShouldAlert = false
	}
	return a, nil
}

// absenceSeverity is nonlinear in the absence ratio: the cap is reached at a
// 50% absence rate, with steps below it and a linear ramp at the low end.
func absenceSeverity(m Metrics) float64 {
	if m.EffectiveDays == 0 {
		return 0
	}
	ratio := float64(m.AbsentDays) / float64(m.EffectiveDays)
	switch {
	case ratio >= severityRateFull:
		return capAbsenceSeverity
	case ratio >= severityRateHigh:
		return severityPtsHigh
	case ratio >= severityRateMid:
		return severityPtsMid
	case ratio >= severityRateLow:
		return severityPtsLow
	default:
		return ratio / severityRateLow * severityPtsLow
	}
}

// recentBehavior is tiered by the recent consecutive-absence streak with the
// recency-weighted score layered on top, so a burst of current absences
// dominates but steady recent misses still register.
func recentBehavior(m Metrics) float64 {
	var pts float64
	switch {
	case m.RecentConsecutiveAbsences >= 4:
		pts = recentPtsStreak4
	case m.RecentConsecutiveAbsences == 3:
		pts = recentPtsStreak3
	case m.RecentConsecutiveAbsences == 2:
		pts = recentPtsStreak2
	case m.RecentConsecutiveAbsences == 1:
		pts = recentPtsStreak1
	}
	return pts + m.RecencyWeightedScore*recencyAddOnScale
}

func trendFactor(t Trend) float64 {
	switch t.Class {
	case TrendDeclining:
		if t.Momentum < 0 {
			return trendPtsDecliningAccel
		}
		return trendPtsDeclining
	case TrendImproving:
		return trendPtsImproving
	case TrendVolatile:
		return trendPtsVolatile
	default:
		// Stable-but-not-improving carries a mild penalty: it signals
		// no remediation is happening.
		return trendPtsStable
	}
}

func patternComplexity(p PatternSet) float64 {
	pts := patternPtsEach * float64(p.Count())
	if p.ChronicLateness {
		pts += patternLatenessAdd
	}
	if pts > capPatternComplexity {
		return capPatternComplexity
	}
	return pts
}

// engagementScore blends four health components on a 0-100 scale. It is
// inverse in spirit to the risk score but deliberately not its complement:
// the weights and inputs differ.
func engagementScore(m Metrics, t Trend, p PatternSet, cfg Config) float64 {
	quality := clamp(m.AttendanceRate-cfg.LatePenaltyPerDay*float64(m.LateDays), 0, 100)

	var trendComp float64
	switch t.Class {
	case TrendImproving:
		trendComp = engTrendImproving
	case TrendStable:
		trendComp = engTrendStable
	case TrendVolatile:
		trendComp = engTrendVolatile
	case TrendDeclining:
		trendComp = engTrendDeclining
		if t.Momentum < 0 {
			trendComp = engTrendDecliningAccel
		}
	}

	consistency := clamp(100-
		consistStreakPenalty*float64(m.MaxConsecutiveAbsences)-
		consistPatternPenalty*float64(p.Count()), 0, 100)

	score := engagementWtRate*quality +
		engagementWtRecency*(100-m.RecencyWeightedScore) +
		engagementWtTrend*trendComp +
		engagementWtConsist*consistency
	return round1(clamp(score, 0, 100))
}

// classifyTier walks the tier rules most-severe-first; the first matching
// rule wins.
func classifyTier(a *Assessment) Tier {
	m := a.Metrics
	declining := a.Trend.Class == TrendDeclining

	switch {
	case a.RiskScore >= tierScoreCritical,
		m.OngoingStreak >= tierOngoingCritical,
		m.AttendanceRate < tierRateCritical,
		m.RecentConsecutiveAbsences >= tierRecentCritical && m.AttendanceRate < tierRecentCriticalRate:
		return TierCritical

	case a.RiskScore >= tierScoreHigh,
		m.OngoingStreak >= tierOngoingHigh,
		m.AttendanceRate < tierRateHigh,
		m.RecentConsecutiveAbsences >= tierRecentHighDeclining && declining && m.AttendanceRate < tierRateRecentDecline:
		return TierHigh

	case a.RiskScore >= tierScoreMedium,
		m.OngoingStreak >= tierOngoingMedium,
		m.AttendanceRate < tierRateMedium,
		a.Patterns.Count() >= tierPatternsMediumMinCnt && m.AttendanceRate < tierRatePatternMedium:
		return TierMedium

	case a.RiskScore >= tierScoreWatch,
		m.AbsentDays >= 1 && m.AttendanceRate < tierRateWatch,
		declining && m.AttendanceRate < tierRateWatch,
		a.EngagementScore < tierEngagementWatchBar:
		return TierWatch
	}
	return TierNone
}

func suppressed(a *Assessment, cfg Config) bool {
	return a.EngagementScore >= cfg.SuppressMinEngagement &&
		a.Metrics.AttendanceRate >= cfg.SuppressMinRate &&
		a.Trend.Class != TrendDeclining &&
		a.Metrics.OngoingStreak == 0 &&
		a.Metrics.RecentConsecutiveAbsences <= cfg.SuppressMaxRecent &&
		a.Patterns.Count() == 0
}
