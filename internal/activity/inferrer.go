// Package activity infers what the user is doing from movement, place and
// time, and keeps a short history for consistency scoring.
package activity

import (
	"sync"
	"time"

	"wayfarer/internal/domain"
)

// HistorySize is the number of inferred activities retained.
const HistorySize = 10

// Thresholds tune the decision table.
type Thresholds struct {
	SightseeingMaxSpeed  float64       // km/h
	SightseeingPOIRadius float64       // metres
	ShoppingStationary   time.Duration // minimum stop time while walking in town
	WorkStationary       time.Duration // minimum stop time during daytime
}

// DefaultThresholds returns the standard decision thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SightseeingMaxSpeed:  4,
		SightseeingPOIRadius: 250,
		ShoppingStationary:   3 * time.Minute,
		WorkStationary:       30 * time.Minute,
	}
}

// Classify applies the decision table. First match wins.
func Classify(m domain.MovementAnalysis, loc domain.LocationContext, tod domain.TimeOfDay, th Thresholds) domain.ActivityContext {
	env := loc.Environment
	rushHour := tod == domain.TimeMorning || tod == domain.TimeEvening

	switch {
	case rushHour && (m.Mode == domain.MovementDriving || m.Mode == domain.MovementCycling) && env == domain.EnvironmentUrban:
		return domain.ActivityCommuting
	case m.Mode == domain.MovementCycling && env == domain.EnvironmentPark,
		m.Mode == domain.MovementWalking && sustained(m.Trend) &&
			(env == domain.EnvironmentPark || env == domain.EnvironmentForest):
		return domain.ActivityExercise
	case m.Mode == domain.MovementWalking && m.AverageSpeed < th.SightseeingMaxSpeed &&
		loc.HasPOI(th.SightseeingPOIRadius, domain.POIHistorical, domain.POICultural):
		return domain.ActivitySightseeing
	case m.Mode == domain.MovementWalking && env == domain.EnvironmentUrban && m.StationaryDuration > th.ShoppingStationary:
		return domain.ActivityShopping
	case m.Mode == domain.MovementStationary && m.StationaryDuration > th.WorkStationary && tod.IsDaytime():
		return domain.ActivityWork
	default:
		return domain.ActivityLeisure
	}
}

// sustained reports a pace that is held or rising. An unreported trend is
// not evidence of exercise.
func sustained(t domain.SpeedTrend) bool {
	return t == domain.TrendStable || t == domain.TrendAccelerating
}

// Inferrer classifies activities and remembers the most recent ones.
type Inferrer struct {
	thresholds Thresholds

	mu      sync.Mutex
	history []domain.ActivityContext
}

// NewInferrer builds an inferrer with the given thresholds.
func NewInferrer(th Thresholds) *Inferrer {
	return &Inferrer{thresholds: th, history: make([]domain.ActivityContext, 0, HistorySize)}
}

// Infer classifies and records the activity.
func (i *Inferrer) Infer(m domain.MovementAnalysis, loc domain.LocationContext, tod domain.TimeOfDay) domain.ActivityContext {
	activity := Classify(m, loc, tod, i.thresholds)

	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.history) == HistorySize {
		copy(i.history, i.history[1:])
		i.history = i.history[:HistorySize-1]
	}
	i.history = append(i.history, activity)
	return activity
}

// Recent returns the retained history, oldest first.
func (i *Inferrer) Recent() []domain.ActivityContext {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]domain.ActivityContext(nil), i.history...)
}

// Consistent reports whether the last n inferred activities agree.
func (i *Inferrer) Consistent(n int) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if n <= 0 || len(i.history) < n {
		return false
	}
	tail := i.history[len(i.history)-n:]
	for _, a := range tail[1:] {
		if a != tail[0] {
			return false
		}
	}
	return true
}

// Reset clears the history.
func (i *Inferrer) Reset() {
	i.mu.Lock()
	i.history = i.history[:0]
	i.mu.Unlock()
}
