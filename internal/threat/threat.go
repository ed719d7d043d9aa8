// Package threat scores near-Earth objects. The scorer is a pure function:
// identical inputs always produce identical scores and classifications, with
// no randomness and no I/O, so both the NEO adapter and the correlation
// engine can share it without duplicating the formula.
package threat

import "fmt"

// Level classifies a composite threat score.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
	LevelSevere   Level = "severe"
)

// Fixed reference ranges used to normalize each input dimension. An object
// at or beyond the reference value saturates that dimension at 1.0.
const (
	refDiameterKm   = 1.0     // 1 km: "very large" per historical survey categories
	refVelocityKmS  = 30.0    // typical upper bound for close-approach velocity
	refMissDistKm   = 7.5e6   // ~20 lunar distances; closer approaches score higher
	minMissDistKm   = 10000.0 // clamp to avoid distance normalization blowing up
)

// Weights of each normalized dimension in the composite score.
const (
	weightDiameter = 0.40
	weightMissDist = 0.35
	weightVelocity = 0.25
)

// Classification thresholds on the composite score.
const (
	thresholdModerate = 0.25
	thresholdHigh     = 0.50
	thresholdSevere   = 0.75
)

// Assessment is the deterministic output of the scorer.
type Assessment struct {
	Score float64 `json:"score"` // 0..1
	Level Level   `json:"level"`
}

// Score computes the composite threat assessment for an object from its
// maximum estimated diameter, relative velocity at closest approach, and
// miss distance. The upstream hazardous flag floors the level at moderate.
func Score(diameterKm, velocityKmS, missDistanceKm float64, hazardous bool) Assessment {
	d := clamp01(diameterKm / refDiameterKm)
	v := clamp01(velocityKmS / refVelocityKmS)

	miss := missDistanceKm
	if miss < minMissDistKm {
		miss = minMissDistKm
	}
	// Inverse distance: closer approaches approach 1, far approaches 0.
	m := clamp01(1 - miss/refMissDistKm)

	score := weightDiameter*d + weightMissDist*m + weightVelocity*v

	level := classify(score)
	if hazardous && level == LevelLow {
		level = LevelModerate
	}

	return Assessment{Score: score, Level: level}
}

func classify(score float64) Level {
	switch {
	case score < thresholdModerate:
		return LevelLow
	case score < thresholdHigh:
		return LevelModerate
	case score < thresholdSevere:
		return LevelHigh
	default:
		return LevelSevere
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// SizeComparison renders a human-friendly analogy for an object's diameter.
func SizeComparison(diameterKm float64) string {
	m := diameterKm * 1000
	switch {
	case m > 1000:
		return fmt.Sprintf("about %.1f km across, larger than most cities", diameterKm)
	case m > 500:
		return fmt.Sprintf("about %.0f m, the size of a large skyscraper", m)
	case m > 100:
		return fmt.Sprintf("about %.0f m, the size of a football field", m)
	case m > 50:
		return fmt.Sprintf("about %.0f m, the size of a large building", m)
	case m > 10:
		return fmt.Sprintf("about %.0f m, the size of a house", m)
	default:
		return fmt.Sprintf("about %.0f m, the size of a car", m)
	}
}
