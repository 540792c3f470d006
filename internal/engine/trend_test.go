package engine

import (
	"math"
	"testing"
)

func TestFitTrendTooFewPoints(t *testing.T) {
	for _, rates := range [][]float64{nil, {75}} {
		got := FitTrend(rates, DefaultConfig())
		if got.Slope != 0 || got.RSquared != 1 || got.Class != TrendStable {
			t.Errorf("FitTrend(%v) = %+v, want flat stable", rates, got)
		}
	}
}

func TestFitTrendConstantSeries(t *testing.T) {
	got := FitTrend([]float64{80, 80, 80, 80}, DefaultConfig())
	if got.Slope != 0 {
		t.Errorf("Slope = %v, want 0", got.Slope)
	}
	if got.RSquared != 1 {
		t.Errorf("RSquared = %v, want 1 for constant rate", got.RSquared)
	}
	if got.Class != TrendStable {
		t.Errorf("Class = %v, want STABLE", got.Class)
	}
}

func TestFitTrendMirrorSymmetry(t *testing.T) {
	up := []float64{50, 55, 60, 65, 70, 75}
	down := make([]float64, len(up))
	for i, v := range up {
		down[len(up)-1-i] = v
	}

	fitUp := FitTrend(up, DefaultConfig())
	fitDown := FitTrend(down, DefaultConfig())

	if fitUp.Slope != 5.0 || fitDown.Slope != -5.0 {
		t.Errorf("slopes = %v, %v, want +5.0, -5.0", fitUp.Slope, fitDown.Slope)
	}
	if math.Abs(fitUp.Slope) != math.Abs(fitDown.Slope) {
		t.Errorf("|slope| mismatch: %v vs %v", fitUp.Slope, fitDown.Slope)
	}
	if fitUp.RSquared != 1 || fitDown.RSquared != 1 {
		t.Errorf("r-squared = %v, %v, want 1, 1 for perfectly linear series", fitUp.RSquared, fitDown.RSquared)
	}
	if fitUp.Class != TrendImproving {
		t.Errorf("up Class = %v, want IMPROVING", fitUp.Class)
	}
	if fitDown.Class != TrendDeclining {
		t.Errorf("down Class = %v, want DECLINING", fitDown.Class)
	}
}

func TestFitTrendVolatile(t *testing.T) {
	got := FitTrend([]float64{90, 40, 85, 35, 95, 30, 80, 45}, DefaultConfig())
	if got.Class != TrendVolatile {
		t.Errorf("Class = %v (r2=%v), want VOLATILE for noisy series", got.Class, got.RSquared)
	}
	if got.RSquared < 0 || got.RSquared > 1 {
		t.Errorf("RSquared = %v, want within [0,1]", got.RSquared)
	}
}

func TestFitTrendAdaptiveThresholds(t *testing.T) {
	cfg := DefaultConfig()

	// Slope +0.7 from a poor baseline counts as improvement; the same
	// slope from a healthy baseline is just stable.
	low := []float64{40, 40.7, 41.4, 42.1, 42.8, 43.5}
	if got := FitTrend(low, cfg); got.Class != TrendImproving {
		t.Errorf("low-baseline Class = %v, want IMPROVING", got.Class)
	}
	mid := []float64{70, 70.7, 71.4, 72.1, 72.8, 73.5}
	if got := FitTrend(mid, cfg); got.Class != TrendStable {
		t.Errorf("mid-baseline Class = %v, want STABLE", got.Class)
	}

	// A shallow decline from a high baseline still reads as declining.
	high := []float64{96, 95.3, 94.6, 93.9, 93.2, 92.5}
	if got := FitTrend(high, cfg); got.Class != TrendDeclining {
		t.Errorf("high-baseline Class = %v, want DECLINING", got.Class)
	}
	midDown := []float64{73.5, 72.8, 72.1, 71.4, 70.7, 70}
	if got := FitTrend(midDown, cfg); got.Class != TrendStable {
		t.Errorf("mid-baseline shallow decline Class = %v, want STABLE", got.Class)
	}
}

func TestAnalyzeTrendMomentum(t *testing.T) {
	// 5 oldest attended, 5 newest absent: recent window present-rate 0,
	// mid window 100.
	series := mustNormalize(t, eventsDaily(testAsOf,
		StatusAbsent, StatusAbsent, StatusAbsent, StatusAbsent, StatusAbsent,
		StatusAttended, StatusAttended, StatusAttended, StatusAttended, StatusAttended))
	got := AnalyzeTrend(series, testAsOf, DefaultConfig())

	if got.Momentum != -100 {
		t.Errorf("Momentum = %v, want -100", got.Momentum)
	}
	if got.Class != TrendDeclining {
		t.Errorf("Class = %v, want DECLINING", got.Class)
	}
	if got.Slope >= -5 {
		t.Errorf("Slope = %v, want steeply negative", got.Slope)
	}
	if got.RSquared < 0.8 || got.RSquared > 1 {
		t.Errorf("RSquared = %v, want near 1 for a step change", got.RSquared)
	}
}

func TestAnalyzeTrendShortSeries(t *testing.T) {
	series := mustNormalize(t, eventsDaily(testAsOf, StatusAbsent))
	got := AnalyzeTrend(series, testAsOf, DefaultConfig())
	if got.Class != TrendStable || got.Momentum != 0 {
		t.Errorf("got %+v, want stable with zero momentum for one point", got)
	}
}
