package transform

import (
	"math"
	"strings"

	"wayfarer/internal/domain"
)

// ConfidenceWeights blends the three confidence components. They are
// normalised by their sum, so only the ratios matter.
type ConfidenceWeights struct {
	LengthMatch     float64 `mapstructure:"length_match" json:"length_match"`
	Appropriateness float64 `mapstructure:"appropriateness" json:"appropriateness"`
	Quality         float64 `mapstructure:"quality" json:"quality"`
}

// DefaultConfidenceWeights returns the 0.3 / 0.4 / 0.3 blend.
func DefaultConfidenceWeights() ConfidenceWeights {
	return ConfidenceWeights{LengthMatch: 0.3, Appropriateness: 0.4, Quality: 0.3}
}

// Length ratios outside this band halve the quality score.
const (
	maxLengthRatio = 1.5
	minLengthRatio = 0.1
)

// Confidence scores how well adapted text realises strategy s in env.
// The result is always a finite value in [0,1].
func Confidence(original, adapted string, format domain.ContentFormat, s domain.AdaptationStrategy, env domain.ContextualEnvironment, w ConfidenceWeights) float64 {
	origWords := words(original)
	adaptedWords := words(adapted)

	var actual float64
	if len(origWords) > 0 {
		actual = 1 - float64(len(adaptedWords))/float64(len(origWords))
	}
	lengthMatch := clamp01(1 - math.Abs(actual-s.LengthReduction))

	quality := jaccard(origWords, adaptedWords)
	if len(origWords) > 0 {
		ratio := float64(len(adaptedWords)) / float64(len(origWords))
		if ratio > maxLengthRatio || ratio < minLengthRatio {
			quality /= 2
		}
	}

	total := w.LengthMatch + w.Appropriateness + w.Quality
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		w = DefaultConfidenceWeights()
		total = 1
	}
	score := (w.LengthMatch*lengthMatch + w.Appropriateness*appropriateness(format, s, env) + w.Quality*quality) / total
	return clamp01(score)
}

func appropriateness(format domain.ContentFormat, s domain.AdaptationStrategy, env domain.ContextualEnvironment) float64 {
	formatOK := 0.0
	if Appropriate(format, env) {
		formatOK = 1
	}

	timeFit := 0.5
	switch env.AvailableTime {
	case domain.TimeShort:
		if s.LengthReduction >= 0.5 {
			timeFit = 1
		}
	case domain.TimeMedium:
		if s.LengthReduction >= 0.2 && s.LengthReduction <= 0.7 {
			timeFit = 1
		}
	case domain.TimeLong:
		if s.LengthReduction <= 0.4 {
			timeFit = 1
		}
	}

	movementFit := 0.5
	switch env.Movement.Mode {
	case domain.MovementDriving:
		if s.InteractionLevel == 0 {
			movementFit = 1
		} else {
			movementFit = 0
		}
	case domain.MovementStationary:
		if s.InteractionLevel >= 0.5 {
			movementFit = 1
		}
	case domain.MovementCycling, domain.MovementWalking:
		if s.InteractionLevel <= 0.6 {
			movementFit = 1
		}
	}

	return (formatOK + timeFit + movementFit) / 3
}

func jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, w := range a {
		setA[strings.ToLower(w)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, w := range b {
		setB[strings.ToLower(w)] = struct{}{}
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	var shared int
	for w := range setB {
		if _, ok := setA[w]; ok {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	return float64(shared) / float64(union)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
