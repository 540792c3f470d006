package engine

// Config holds every tunable the analytics pipeline uses. Callers that want
// the stock behavior should start from DefaultConfig and override fields
// rather than building a Config from scratch.
type Config struct {
	// RecencyHalfLifeDays controls how fast old absences stop mattering.
	// An absence N days old contributes exp(-N/half-life) to the
	// recency-weighted score before scaling.
	RecencyHalfLifeDays float64

	// RecencyScale multiplies the summed decay weights; the result is
	// capped at 100.
	RecencyScale float64

	// RecentWindowDays bounds the lookback for the recent
	// consecutive-absence streak.
	RecentWindowDays int

	// MinEffectiveDays is the minimum number of non-neutral days required
	// before an assessment is produced at all.
	MinEffectiveDays int

	// Significance guards for the pattern detectors.
	MinDaysWeekdayBias    int
	MinDaysSpike          int
	MinDaysClustering     int
	MinAbsencesClustering int
	MinDaysLateness       int

	// Trend classification.
	VolatileRSquaredBelow float64 // below this the fit is too noisy to trust
	SlopeThreshold        float64 // percentage points per index
	RelaxedSlopeThreshold float64 // used when the baseline makes small moves meaningful
	LowBaselineRate       float64 // below this, calling "improving" gets easier
	HighBaselineRate      float64 // above this, calling "declining" gets easier
	MomentumWindow        int     // effective days per momentum sub-window

	// Pattern thresholds.
	ExtendedStreakMin   int
	SpikeWindow         int
	SpikeMinAbsences    int
	SpikeMinDelta       int
	IntermittentMeanGap float64
	ClusteredMeanGap    float64
	LatenessMinDays     int
	LatenessMinShare    float64
	SharpDeclineSlope   float64
	SharpDeclineRateBar float64

	// Engagement scoring.
	LatePenaltyPerDay float64

	// Alert suppression: when all of these health signals agree, the alert
	// flag is forced off no matter what tier the score landed in.
	SuppressMinEngagement float64
	SuppressMinRate       float64
	SuppressMaxRecent     int
}

// DefaultConfig returns the calibrated production constants. The thresholds
// were reverse-engineered from historical attendance data and may need
// recalibration per school; that is why they live here and not inline.
func DefaultConfig() Config {
	return Config{
		RecencyHalfLifeDays: 30,
		RecencyScale:        10,
		RecentWindowDays:    21,
		MinEffectiveDays:    3,

		MinDaysWeekdayBias:    8,
		MinDaysSpike:          10,
		MinDaysClustering:     10,
		MinAbsencesClustering: 5,
		MinDaysLateness:       8,

		VolatileRSquaredBelow: 0.3,
		SlopeThreshold:        1.0,
		RelaxedSlopeThreshold: 0.5,
		LowBaselineRate:       60,
		HighBaselineRate:      85,
		MomentumWindow:        5,

		ExtendedStreakMin:   4,
		SpikeWindow:         5,
		SpikeMinAbsences:    3,
		SpikeMinDelta:       2,
		IntermittentMeanGap: 3,
		ClusteredMeanGap:    7,
		LatenessMinDays:     3,
		LatenessMinShare:    0.3,
		SharpDeclineSlope:   5,
		SharpDeclineRateBar: 75,

		LatePenaltyPerDay: 1.5,

		SuppressMinEngagement: 85,
		SuppressMinRate:       85,
		SuppressMaxRecent:     1,
	}
}

// Composite risk factor caps and steps. Kept as one block so the scoring
// shape can be reviewed and tuned without reading control flow.
const (
	capAbsenceSeverity   = 35.0
	capRecentBehavior    = 30.0
	capTrendFactor       = 20.0
	capPatternComplexity = 15.0

	// Absence severity steps: absent/effective ratio -> points.
	severityRateFull  = 0.5 // full cap at or above this ratio
	severityRateHigh  = 0.4
	severityRateMid   = 0.3
	severityRateLow   = 0.2
	severityPtsHigh   = 30.0
	severityPtsMid    = 22.0
	severityPtsLow    = 15.0
	recencyAddOnScale = 0.15

	// Recent-behavior points by recent consecutive absences.
	recentPtsStreak4 = 30.0
	recentPtsStreak3 = 24.0
	recentPtsStreak2 = 17.0
	recentPtsStreak1 = 10.0

	// Trend factor points.
	trendPtsDeclining      = 15.0
	trendPtsDecliningAccel = 20.0 // declining with negative momentum
	trendPtsStable         = 6.0
	trendPtsVolatile       = 6.0
	trendPtsImproving      = 4.0

	patternPtsEach      = 4.0
	patternLatenessAdd  = 3.0
	engagementWtRate    = 0.40
	engagementWtRecency = 0.25
	engagementWtTrend   = 0.20
	engagementWtConsist = 0.15

	// Engagement trend component on a 0-100 scale.
	engTrendImproving      = 90.0
	engTrendStable         = 70.0
	engTrendVolatile       = 60.0
	engTrendDeclining      = 25.0
	engTrendDecliningAccel = 15.0

	consistStreakPenalty  = 12.0
	consistPatternPenalty = 8.0

	// Tier cut lines on the composite score.
	tierScoreCritical = 70.0
	tierScoreHigh     = 50.0
	tierScoreMedium   = 30.0
	tierScoreWatch    = 15.0

	// Tier rate bars, percentages.
	tierRateCritical       = 35.0
	tierRateHigh           = 50.0
	tierRateMedium         = 65.0
	tierRateWatch          = 85.0
	tierRatePatternMedium  = 75.0
	tierRateRecentDecline  = 70.0
	tierEngagementWatchBar = 70.0

	// Streak bars for tier escalation.
	tierOngoingCritical      = 5
	tierOngoingHigh          = 3
	tierOngoingMedium        = 2
	tierRecentCritical       = 4
	tierRecentCriticalRate   = 50.0
	tierRecentHighDeclining  = 2
	tierPatternsMediumMinCnt = 2
)
