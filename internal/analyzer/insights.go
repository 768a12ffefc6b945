package analyzer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"wayfarer/internal/domain"
)

// Weights combine the confidence signals of an analysis.
type Weights struct {
	Movement    float64 `mapstructure:"movement"`
	Location    float64 `mapstructure:"location"`
	Weather     float64 `mapstructure:"weather"`
	Consistency float64 `mapstructure:"consistency"`
}

// DefaultWeights returns the standard confidence weights.
func DefaultWeights() Weights {
	return Weights{Movement: 0.4, Location: 0.2, Weather: 0.2, Consistency: 0.2}
}

func estimatedTime(t domain.AvailableTime) time.Duration {
	switch t {
	case domain.TimeShort:
		return 2 * time.Minute
	case domain.TimeMedium:
		return 5 * time.Minute
	case domain.TimeLong:
		return 12 * time.Minute
	}
	return 5 * time.Minute
}

func interactionLevel(env domain.ContextualEnvironment) domain.Level {
	if env.Movement.Mode == domain.MovementDriving {
		return domain.LevelLow
	}
	switch env.Attention {
	case domain.AttentionHigh:
		return domain.LevelHigh
	case domain.AttentionMedium:
		return domain.LevelMedium
	case domain.AttentionLow:
		return domain.LevelLow
	}
	return domain.LevelLow
}

func movementPhrase(m domain.MovementMode) string {
	switch m {
	case domain.MovementDriving:
		return "driving"
	case domain.MovementCycling:
		return "cycling"
	case domain.MovementWalking:
		return "on foot"
	case domain.MovementStationary:
		return "staying put"
	}
	return "moving"
}

func primaryContext(env domain.ContextualEnvironment) string {
	activity := string(env.Activity)
	if activity == "" {
		activity = string(domain.ActivityUnknown)
	}
	sentence := fmt.Sprintf("%s while %s in a %s area during the %s, %s weather",
		activity, movementPhrase(env.Movement.Mode), env.Location.Environment, env.TimeOfDay, env.WeatherCondition())
	return strings.ToUpper(sentence[:1]) + sentence[1:]
}

func suggestions(env domain.ContextualEnvironment) []domain.ContentSuggestion {
	est := estimatedTime(env.AvailableTime)
	level := interactionLevel(env)
	var out []domain.ContentSuggestion

	if env.Location.HasPOI(0, domain.POIHistorical, domain.POICultural) {
		priority := domain.PriorityMedium
		if env.Activity == domain.ActivitySightseeing {
			priority = domain.PriorityHigh
		}
		out = append(out, domain.ContentSuggestion{
			Type: domain.ContentHistorical, Priority: priority, EstimatedTime: est, InteractionLevel: level,
			Reason: "historical or cultural landmarks nearby",
		})
	}

	if env.Location.Environment.IsNatural() {
		priority := domain.PriorityLow
		if (env.Activity == domain.ActivityExercise || env.Activity == domain.ActivityLeisure) && env.AvailableTime != domain.TimeShort {
			priority = domain.PriorityHigh
		}
		out = append(out, domain.ContentSuggestion{
			Type: domain.ContentNatural, Priority: priority, EstimatedTime: est, InteractionLevel: level,
			Reason: fmt.Sprintf("%s surroundings", env.Location.Environment),
		})
	}

	if (env.Activity == domain.ActivityLeisure || env.Activity == domain.ActivityWork) && env.AvailableTime != domain.TimeShort {
		priority := domain.PriorityLow
		if env.AvailableTime == domain.TimeLong {
			priority = domain.PriorityMedium
		}
		out = append(out, domain.ContentSuggestion{
			Type: domain.ContentPersonal, Priority: priority, EstimatedTime: est, InteractionLevel: level,
			Reason: "time to reflect",
		})
	}
	return out
}

func riskFactors(env domain.ContextualEnvironment) []string {
	var risks []string
	if env.Location.NoiseLevel == domain.LevelHigh {
		risks = append(risks, "high ambient noise")
	}
	if c := env.WeatherCondition(); c.Severity() >= 2 {
		risks = append(risks, fmt.Sprintf("adverse weather (%s)", c))
	}
	if env.Movement.Mode == domain.MovementDriving {
		risks = append(risks, "operating a vehicle")
	}
	if env.TimeOfDay == domain.TimeNight || env.WeatherCondition() == domain.WeatherFoggy {
		risks = append(risks, "low light")
	}
	if env.Location.SafetyLevel == domain.LevelLow {
		risks = append(risks, "low safety area")
	}
	return risks
}

func recommendations(env domain.ContextualEnvironment) []domain.AdaptationRecommendation {
	var recs []domain.AdaptationRecommendation
	add := func(aspect domain.AdaptationAspect, dir domain.Direction, importance domain.Priority, reason string) {
		recs = append(recs, domain.AdaptationRecommendation{Aspect: aspect, Direction: dir, Reason: reason, Importance: importance})
	}

	if env.Location.NoiseLevel == domain.LevelHigh {
		add(domain.AspectVolume, domain.DirectionIncrease, domain.PriorityHigh, "noisy surroundings")
	}
	driving := env.Movement.Mode == domain.MovementDriving
	if driving {
		add(domain.AspectSpeed, domain.DirectionDecrease, domain.PriorityUrgent, "listener is driving")
		add(domain.AspectComplexity, domain.DirectionDecrease, domain.PriorityHigh, "listener is driving")
	}
	switch {
	case env.AvailableTime == domain.TimeShort:
		add(domain.AspectDuration, domain.DirectionDecrease, domain.PriorityHigh, "little time available")
	case env.AvailableTime == domain.TimeLong && env.Attention == domain.AttentionHigh:
		add(domain.AspectDuration, domain.DirectionIncrease, domain.PriorityMedium, "time and attention to spare")
	}
	switch {
	case env.Attention == domain.AttentionLow && !driving:
		add(domain.AspectComplexity, domain.DirectionDecrease, domain.PriorityMedium, "attention is limited")
	case env.Attention == domain.AttentionHigh:
		add(domain.AspectComplexity, domain.DirectionIncrease, domain.PriorityLow, "listener is attentive")
	}
	return recs
}

// confidence blends the signals by w normalised to its sum, so a missing
// signal always costs its share whatever scale the weights use.
func confidence(env domain.ContextualEnvironment, consistent bool, w Weights) float64 {
	total := w.Movement + w.Location + w.Weather + w.Consistency
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		w = DefaultWeights()
		total = 1
	}
	score := w.Movement * clamp01(env.Movement.Confidence)
	if env.LocationResolved {
		score += w.Location
	}
	if env.WeatherResolved {
		score += w.Weather
	}
	if consistent {
		score += w.Consistency
	}
	return clamp01(score / total)
}

func clamp01(v float64) float64 {
	switch {
	case v != v, v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
