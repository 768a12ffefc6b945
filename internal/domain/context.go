package domain

import (
	"strings"
	"time"
)

// MovementAnalysis is produced by the external speed/motion detector.
type MovementAnalysis struct {
	Mode               MovementMode  `json:"mode"`
	AverageSpeed       float64       `json:"average_speed"` // km/h
	Trend              SpeedTrend    `json:"trend"`
	Confidence         float64       `json:"confidence"`
	StationaryDuration time.Duration `json:"stationary_duration"`
}

// WeatherData is a single weather reading for a coordinate.
type WeatherData struct {
	Condition   WeatherCondition `json:"condition"`
	Temperature float64          `json:"temperature"` // °C
	Humidity    float64          `json:"humidity"`    // 0-100
	WindSpeed   float64          `json:"wind_speed"`  // m/s
	Visibility  float64          `json:"visibility"`  // km
	Pressure    float64          `json:"pressure"`    // hPa
	UVIndex     float64          `json:"uv_index"`
	FetchedAt   time.Time        `json:"fetched_at"`
}

// FreshAt reports whether the reading is still usable at now given ttl.
func (w WeatherData) FreshAt(now time.Time, ttl time.Duration) bool {
	if w.FetchedAt.IsZero() {
		return false
	}
	return now.Sub(w.FetchedAt) < ttl
}

// DefaultWeather is the fallback used when no reading is available.
func DefaultWeather(now time.Time) WeatherData {
	return WeatherData{
		Condition:   WeatherClear,
		Temperature: 18,
		Humidity:    50,
		WindSpeed:   2,
		Visibility:  10,
		Pressure:    1013,
		UVIndex:     3,
		FetchedAt:   now,
	}
}

// PointOfInterest is a nearby place that may anchor content.
type PointOfInterest struct {
	Type      POIType `json:"type"`
	Name      string  `json:"name"`
	Distance  float64 `json:"distance"`  // metres
	Relevance float64 `json:"relevance"` // 0-1
}

// LocationContext describes the surroundings of a coordinate.
type LocationContext struct {
	Environment       EnvironmentType   `json:"environment"`
	Elevation         float64           `json:"elevation"`
	NearbyPOIs        []PointOfInterest `json:"nearby_pois"`
	PopulationDensity Level             `json:"population_density"`
	NoiseLevel        Level             `json:"noise_level"`
	SafetyLevel       Level             `json:"safety_level"`
}

// HasPOI reports whether any nearby POI of the given types lies within maxDistance metres.
func (l LocationContext) HasPOI(maxDistance float64, types ...POIType) bool {
	for _, poi := range l.NearbyPOIs {
		if maxDistance > 0 && poi.Distance > maxDistance {
			continue
		}
		for _, t := range types {
			if poi.Type == t {
				return true
			}
		}
	}
	return false
}

// DefaultLocationContext is the degraded value used when place data is unavailable.
func DefaultLocationContext(elevation float64) LocationContext {
	return LocationContext{
		Environment:       EnvironmentSuburban,
		Elevation:         elevation,
		PopulationDensity: LevelMedium,
		NoiseLevel:        LevelMedium,
		SafetyLevel:       LevelMedium,
	}
}

// ContextualEnvironment is the situational snapshot produced per analysis call.
type ContextualEnvironment struct {
	Timestamp         time.Time         `json:"timestamp"`
	Coordinate        Coordinate        `json:"coordinate"`
	TimeOfDay         TimeOfDay         `json:"time_of_day"`
	Season            Season            `json:"season"`
	Weather           *WeatherData      `json:"weather,omitempty"`
	Location          LocationContext   `json:"location"`
	Movement          MovementAnalysis  `json:"movement"`
	Activity          ActivityContext   `json:"activity"`
	AvailableTime     AvailableTime     `json:"available_time"`
	Attention         AttentionLevel    `json:"attention"`
	ContentPreference ContentPreference `json:"content_preference"`

	WeatherResolved  bool `json:"weather_resolved"`
	LocationResolved bool `json:"location_resolved"`
}

// Hash returns the context hash: the six adaptation-relevant fields joined
// and lower-cased. Contexts that agree on these fields share adaptations.
func (e ContextualEnvironment) Hash() string {
	parts := []string{
		string(e.Movement.Mode),
		string(e.AvailableTime),
		string(e.Attention),
		string(e.ContentPreference),
		string(e.Location.Environment),
		string(e.Activity),
	}
	return strings.ToLower(strings.Join(parts, "_"))
}

// WeatherCondition returns the current condition, clear when unknown.
func (e ContextualEnvironment) WeatherCondition() WeatherCondition {
	if e.Weather == nil {
		return WeatherClear
	}
	return e.Weather.Condition
}

// ContentSuggestion proposes a content type for the current context.
type ContentSuggestion struct {
	Type             ContentType   `json:"type"`
	Priority         Priority      `json:"priority"`
	EstimatedTime    time.Duration `json:"estimated_time"`
	InteractionLevel Level         `json:"interaction_level"`
	Reason           string        `json:"reason"`
}

// AdaptationRecommendation is an (aspect, direction, reason, importance) tuple.
type AdaptationRecommendation struct {
	Aspect     AdaptationAspect `json:"aspect"`
	Direction  Direction        `json:"direction"`
	Reason     string           `json:"reason"`
	Importance Priority         `json:"importance"`
}

// ContextualInsights are the actionable conclusions drawn from an environment.
type ContextualInsights struct {
	PrimaryContext  string                     `json:"primary_context"`
	Suggestions     []ContentSuggestion        `json:"suggestions"`
	RiskFactors     []string                   `json:"risk_factors"`
	Recommendations []AdaptationRecommendation `json:"recommendations"`
	Confidence      float64                    `json:"confidence"`
}

// Suggestion returns the suggestion for content type t, if any.
func (i ContextualInsights) Suggestion(t ContentType) (ContentSuggestion, bool) {
	for _, s := range i.Suggestions {
		if s.Type == t {
			return s, true
		}
	}
	return ContentSuggestion{}, false
}
