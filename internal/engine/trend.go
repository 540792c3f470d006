package engine

import "time"

// TrendClass labels the direction of an attendance trend.
type TrendClass string

const (
	TrendImproving TrendClass = "IMPROVING"
	TrendDeclining TrendClass = "DECLINING"
	TrendStable    TrendClass = "STABLE"
	// TrendVolatile means the linear fit is too poor to trust a
	// direction; the rate is noisy.
	TrendVolatile TrendClass = "VOLATILE"
)

// Trend is the result of fitting a line to a rate time series. Slope is in
// percentage points per unit index, rounded to 1 decimal; RSquared is in
// [0,1], rounded to 2 decimals. Momentum is the very-recent present-rate
// minus the mid-recent present-rate and acts only as a modifier downstream.
type Trend struct {
	Slope    float64
	RSquared float64
	Class    TrendClass
	Momentum float64
}

// FitTrend runs an ordinary least-squares regression of the given rates
// (oldest to newest) against their 1..n index and classifies the direction.
// Fewer than two points yield a flat, perfectly-fit STABLE result.
//
// The slope thresholds are asymmetric: a small negative move from a high
// baseline matters more than from a low one, and a small positive move from
// a poor baseline is already worth calling improvement.
func FitTrend(rates []float64, cfg Config) Trend {
	n := len(rates)
	if n < 2 {
		return Trend{Slope: 0, RSquared: 1, Class: TrendStable}
	}

	meanX := float64(n+1) / 2
	meanY := 0.0
	for _, r := range rates {
		meanY += r
	}
	meanY /= float64(n)

	sxx, sxy := 0.0, 0.0
	for i, r := range rates {
		dx := float64(i+1) - meanX
		sxx += dx * dx
		sxy += dx * (r - meanY)
	}
	slope := sxy / sxx
	intercept := meanY - slope*meanX

	ssTot, ssRes := 0.0, 0.0
	for i, r := range rates {
		fitted := slope*float64(i+1) + intercept
		ssRes += (r - fitted) * (r - fitted)
		ssTot += (r - meanY) * (r - meanY)
	}
	rSquared := 1.0
	if ssTot > 0 {
		rSquared = 1 - ssRes/ssTot
	}

	t := Trend{Slope: round1(slope), RSquared: round2(clamp(rSquared, 0, 1))}

	up := cfg.SlopeThreshold
	if meanY < cfg.LowBaselineRate {
		up = cfg.RelaxedSlopeThreshold
	}
	down := cfg.SlopeThreshold
	if meanY >= cfg.HighBaselineRate {
		down = cfg.RelaxedSlopeThreshold
	}

	switch {
	case t.RSquared < cfg.VolatileRSquaredBelow:
		t.Class = TrendVolatile
	case slope > up:
		t.Class = TrendImproving
	case slope < -down:
		t.Class = TrendDeclining
	default:
		t.Class = TrendStable
	}
	return t
}

// AnalyzeTrend derives the rate time series from a normalized event series
// and fits it. The series is one cumulative attendance rate per effective
// day, oldest to newest; neutral days are skipped.
func AnalyzeTrend(series Series, asOf time.Time, cfg Config) Trend {
	present := presentSeries(series)
	rates := make([]float64, 0, len(present))
	presentSoFar := 0
	for i, p := range present {
		if p {
			presentSoFar++
		}
		rates = append(rates, float64(presentSoFar)/float64(i+1)*100)
	}

	t := FitTrend(rates, cfg)
	t.Momentum = momentum(present, cfg.MomentumWindow)
	return t
}

// presentSeries flattens the series into one bool per effective day, oldest
// to newest: true for attended/late, false for absent.
func presentSeries(series Series) []bool {
	out := make([]bool, 0, len(series))
	for i := len(series) - 1; i >= 0; i-- {
		switch series[i].Status {
		case StatusAttended, StatusLate:
			out = append(out, true)
		case StatusAbsent:
			out = append(out, false)
		}
	}
	return out
}

// momentum compares the present-rate of the newest window of effective days
// against the window just before it. Positive means attendance is picking
// up; zero when there is not enough history for two full windows.
func momentum(present []bool, window int) float64 {
	if window < 1 || len(present) < 2*window {
		return 0
	}
	recent := present[len(present)-window:]
	mid := present[len(present)-2*window : len(present)-window]
	return round1(presentRate(recent) - presentRate(mid))
}

func presentRate(present []bool) float64 {
	if len(present) == 0 {
		return 0
	}
	count := 0
	for _, p := range present {
		if p {
			count++
		}
	}
	return float64(count) / float64(len(present)) * 100
}
