// Package environment holds the pure classifiers that turn timestamps and raw
// samples into the categorical values used by the rule tables.
package environment

import (
	"sort"
	"time"

	"wayfarer/internal/domain"
)

// TimeOfDayAt buckets the local hour of t.
func TimeOfDayAt(t time.Time) domain.TimeOfDay {
	switch h := t.Hour(); {
	case h >= 5 && h < 7:
		return domain.TimeDawn
	case h >= 7 && h < 11:
		return domain.TimeMorning
	case h >= 11 && h < 14:
		return domain.TimeMidday
	case h >= 14 && h < 18:
		return domain.TimeAfternoon
	case h >= 18 && h < 21:
		return domain.TimeEvening
	default:
		return domain.TimeNight
	}
}

// SeasonAt returns the northern-hemisphere season for t's month.
func SeasonAt(t time.Time) domain.Season {
	switch t.Month() {
	case time.March, time.April, time.May:
		return domain.SeasonSpring
	case time.June, time.July, time.August:
		return domain.SeasonSummer
	case time.September, time.October, time.November:
		return domain.SeasonAutumn
	default:
		return domain.SeasonWinter
	}
}

// WeatherObservation is a raw provider reading before classification.
type WeatherObservation struct {
	TemperatureC    float64
	PrecipitationMM float64 // mm in the last hour
	WindSpeed       float64 // m/s
	VisibilityKM    float64
	CloudCover      float64 // 0-1
	Lightning       bool
}

// ClassifyWeather maps a raw observation to a condition. First match wins.
func ClassifyWeather(obs WeatherObservation) domain.WeatherCondition {
	switch {
	case obs.Lightning || (obs.PrecipitationMM > 7.6 && obs.WindSpeed > 15):
		return domain.WeatherStormy
	case obs.PrecipitationMM > 0 && obs.TemperatureC <= 0:
		return domain.WeatherSnowy
	case obs.PrecipitationMM > 0.1:
		return domain.WeatherRainy
	case obs.VisibilityKM > 0 && obs.VisibilityKM < 1:
		return domain.WeatherFoggy
	case obs.WindSpeed > 10:
		return domain.WeatherWindy
	case obs.CloudCover > 0.6:
		return domain.WeatherCloudy
	default:
		return domain.WeatherClear
	}
}

const (
	mountainElevation = 1500.0
	poiSurveyRadius   = 500.0
)

// ClassifyEnvironment derives the environment type from elevation and the
// POIs within 500 m.
func ClassifyEnvironment(elevation float64, pois []domain.PointOfInterest) domain.EnvironmentType {
	if elevation >= mountainElevation {
		return domain.EnvironmentMountain
	}

	counts := make(map[domain.POIType]int)
	for _, poi := range pois {
		if poi.Distance <= poiSurveyRadius {
			counts[poi.Type]++
		}
	}
	built := counts[domain.POICommercial] + counts[domain.POITransit]

	switch {
	case counts[domain.POIPark] > 0 && counts[domain.POIPark] >= built:
		return domain.EnvironmentPark
	case counts[domain.POINatural] > 0 && counts[domain.POINatural] >= built:
		return domain.EnvironmentForest
	case counts[domain.POIWaterfront] > 0 && counts[domain.POIWaterfront] >= built:
		return domain.EnvironmentCoastal
	case built >= 5:
		return domain.EnvironmentUrban
	case built >= 2 || counts[domain.POIResidential] >= 2:
		return domain.EnvironmentSuburban
	default:
		return domain.EnvironmentRural
	}
}

// PopulationDensity returns the density level for an environment.
func PopulationDensity(env domain.EnvironmentType) domain.Level {
	switch env {
	case domain.EnvironmentUrban:
		return domain.LevelHigh
	case domain.EnvironmentSuburban:
		return domain.LevelMedium
	case domain.EnvironmentRural, domain.EnvironmentForest, domain.EnvironmentCoastal,
		domain.EnvironmentMountain, domain.EnvironmentPark:
		return domain.LevelLow
	}
	return domain.LevelMedium
}

// NoiseLevel returns the expected ambient noise for an environment.
func NoiseLevel(env domain.EnvironmentType) domain.Level {
	switch env {
	case domain.EnvironmentUrban:
		return domain.LevelHigh
	case domain.EnvironmentSuburban, domain.EnvironmentCoastal:
		return domain.LevelMedium
	case domain.EnvironmentRural, domain.EnvironmentForest, domain.EnvironmentMountain, domain.EnvironmentPark:
		return domain.LevelLow
	}
	return domain.LevelMedium
}

// SafetyLevel returns the pedestrian safety level for an environment.
func SafetyLevel(env domain.EnvironmentType) domain.Level {
	switch env {
	case domain.EnvironmentUrban:
		return domain.LevelMedium
	case domain.EnvironmentMountain:
		return domain.LevelLow
	case domain.EnvironmentSuburban, domain.EnvironmentRural, domain.EnvironmentForest,
		domain.EnvironmentCoastal, domain.EnvironmentPark:
		return domain.LevelHigh
	}
	return domain.LevelMedium
}

// BuildLocationContext classifies a set of POIs into a full location
// context. POIs are returned ordered by distance.
func BuildLocationContext(elevation float64, pois []domain.PointOfInterest) domain.LocationContext {
	sorted := append([]domain.PointOfInterest(nil), pois...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Distance < sorted[j].Distance })

	env := ClassifyEnvironment(elevation, sorted)
	return domain.LocationContext{
		Environment:       env,
		Elevation:         elevation,
		NearbyPOIs:        sorted,
		PopulationDensity: PopulationDensity(env),
		NoiseLevel:        NoiseLevel(env),
		SafetyLevel:       SafetyLevel(env),
	}
}
