package analyzer

import (
	"wayfarer/internal/domain"
)

// AvailableTime estimates how long the user can engage.
func AvailableTime(m domain.MovementAnalysis, activity domain.ActivityContext, weather domain.WeatherCondition) domain.AvailableTime {
	var t domain.AvailableTime
	switch m.Mode {
	case domain.MovementDriving:
		t = domain.TimeShort
	case domain.MovementCycling:
		t = domain.TimeMedium
	case domain.MovementWalking:
		t = domain.TimeMedium
		if activity == domain.ActivitySightseeing {
			t = domain.TimeLong
		}
	case domain.MovementStationary:
		t = domain.TimeLong
		if activity == domain.ActivityWork {
			t = domain.TimeMedium
		}
	default:
		t = domain.TimeMedium
	}
	if activity == domain.ActivityCommuting {
		t = domain.TimeShort
	}
	if weather.Severity() >= 2 {
		t = shorter(t)
	}
	return t
}

func shorter(t domain.AvailableTime) domain.AvailableTime {
	switch t {
	case domain.TimeLong:
		return domain.TimeMedium
	case domain.TimeMedium, domain.TimeShort:
		return domain.TimeShort
	}
	return domain.TimeShort
}

// Attention estimates how much attention the user can spare. Noise, unsafe
// surroundings and walking at night each cost one step.
func Attention(m domain.MovementAnalysis, loc domain.LocationContext, tod domain.TimeOfDay) domain.AttentionLevel {
	var a domain.AttentionLevel
	switch m.Mode {
	case domain.MovementDriving, domain.MovementCycling:
		a = domain.AttentionLow
	case domain.MovementWalking:
		a = domain.AttentionMedium
	case domain.MovementStationary:
		a = domain.AttentionHigh
	default:
		a = domain.AttentionMedium
	}
	if loc.NoiseLevel == domain.LevelHigh {
		a = lower(a)
	}
	if loc.SafetyLevel == domain.LevelLow {
		a = lower(a)
	}
	if tod == domain.TimeNight && m.Mode == domain.MovementWalking {
		a = lower(a)
	}
	return a
}

func lower(a domain.AttentionLevel) domain.AttentionLevel {
	switch a {
	case domain.AttentionHigh:
		return domain.AttentionMedium
	case domain.AttentionMedium, domain.AttentionLow:
		return domain.AttentionLow
	}
	return domain.AttentionLow
}

// Preference derives the appetite for depth from time and attention.
func Preference(t domain.AvailableTime, a domain.AttentionLevel) domain.ContentPreference {
	switch {
	case t == domain.TimeShort || a == domain.AttentionLow:
		return domain.PreferenceBrief
	case t == domain.TimeLong && a == domain.AttentionHigh:
		return domain.PreferenceImmersive
	default:
		return domain.PreferenceDetailed
	}
}
