package server

import (
	"fmt"
	"time"

	"wayfarer/internal/domain"
	wferrors "wayfarer/internal/errors"
)

// APIResponse is the envelope every /api endpoint returns.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// MovementRequest is the motion detector output as sent by clients.
type MovementRequest struct {
	Mode              domain.MovementMode `json:"mode"`
	AverageSpeed      float64             `json:"average_speed"`
	Trend             domain.SpeedTrend   `json:"trend"`
	Confidence        float64             `json:"confidence"`
	StationarySeconds float64             `json:"stationary_seconds"`
}

// ContextRequest carries the raw signals for one analysis.
type ContextRequest struct {
	Latitude  float64             `json:"latitude"`
	Longitude float64             `json:"longitude"`
	Altitude  *float64            `json:"altitude,omitempty"`
	Accuracy  float64             `json:"accuracy,omitempty"`
	Timestamp *time.Time          `json:"timestamp,omitempty"`
	Movement  MovementRequest     `json:"movement"`
	Weather   *domain.WeatherData `json:"weather,omitempty"`
}

func (r ContextRequest) validate() error {
	if r.Latitude < -90 || r.Latitude > 90 || r.Longitude < -180 || r.Longitude > 180 {
		return badRequest(fmt.Errorf("%w: %v,%v", wferrors.ErrInvalidLocation, r.Latitude, r.Longitude))
	}
	if !r.Movement.Mode.Valid() {
		return badRequest(fmt.Errorf("unknown movement mode %q", r.Movement.Mode))
	}
	return nil
}

func (r ContextRequest) sample(now time.Time) domain.LocationSample {
	ts := now
	if r.Timestamp != nil && !r.Timestamp.IsZero() {
		ts = *r.Timestamp
	}
	return domain.LocationSample{
		Coordinate: domain.Coordinate{Latitude: r.Latitude, Longitude: r.Longitude},
		Altitude:   r.Altitude,
		Accuracy:   r.Accuracy,
		Timestamp:  ts,
	}
}

func (r ContextRequest) movement() domain.MovementAnalysis {
	trend := r.Movement.Trend
	if trend == "" {
		trend = domain.TrendStable
	}
	return domain.MovementAnalysis{
		Mode:               r.Movement.Mode,
		AverageSpeed:       r.Movement.AverageSpeed,
		Trend:              trend,
		Confidence:         r.Movement.Confidence,
		StationaryDuration: time.Duration(r.Movement.StationarySeconds * float64(time.Second)),
	}
}

// ContextResponse is the analysed environment plus its insights.
type ContextResponse struct {
	Hash        string                       `json:"hash"`
	Environment domain.ContextualEnvironment `json:"environment"`
	Insights    domain.ContextualInsights    `json:"insights"`
}

// AdaptRequest asks for one story adapted to a context.
type AdaptRequest struct {
	ContentID   string             `json:"content_id"`
	Context     ContextRequest     `json:"context"`
	Preferences domain.Preferences `json:"preferences"`
}

// RecommendRequest asks for ranked stories. A nil MaxResults uses the
// server default; zero or less means no limit.
type RecommendRequest struct {
	Context    ContextRequest `json:"context"`
	MaxResults *int           `json:"max_results,omitempty"`
}

// StoryRequest creates a story.
type StoryRequest struct {
	ID       string                 `json:"id"`
	Title    string                 `json:"title"`
	Text     string                 `json:"text"`
	Metadata domain.ContentMetadata `json:"metadata"`
	Geofence *domain.Geofence       `json:"geofence,omitempty"`
}

// StorySummary lists a story without its text.
type StorySummary struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Type        domain.ContentType `json:"type"`
	Themes      []string           `json:"themes"`
	Words       int                `json:"words"`
	HasGeofence bool               `json:"has_geofence"`
	Adaptations int                `json:"adaptations"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	Stories   int       `json:"stories"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}
