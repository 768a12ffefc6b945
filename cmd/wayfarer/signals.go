package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wayfarer/internal/domain"
	wferrors "wayfarer/internal/errors"
)

// signalFlags describe one moment of a journey on the command line.
type signalFlags struct {
	lat, lng    float64
	mode        string
	speed       float64
	trend       string
	confidence  float64
	stationary  time.Duration
	at          string
	condition   string
	temperature float64
}

func (f *signalFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.Float64Var(&f.lat, "lat", 51.5007, "latitude")
	fl.Float64Var(&f.lng, "lng", -0.1246, "longitude")
	fl.StringVarP(&f.mode, "mode", "m", string(domain.MovementWalking), "movement mode: driving, cycling, walking, stationary")
	fl.Float64Var(&f.speed, "speed", 4, "average speed in km/h")
	fl.StringVar(&f.trend, "trend", string(domain.TrendStable), "speed trend: accelerating, decelerating, stable")
	fl.Float64Var(&f.confidence, "movement-confidence", 0.9, "motion detector confidence")
	fl.DurationVar(&f.stationary, "stationary", 0, "time spent stationary")
	fl.StringVar(&f.at, "at", "", "RFC 3339 timestamp (default now)")
	fl.StringVar(&f.condition, "weather", "", "use this weather condition instead of the provider")
	fl.Float64Var(&f.temperature, "temperature", 18, "temperature in °C when --weather is set")
}

func (f *signalFlags) resolve(now time.Time) (domain.LocationSample, domain.MovementAnalysis, *domain.WeatherData, error) {
	if f.lat < -90 || f.lat > 90 || f.lng < -180 || f.lng > 180 {
		return domain.LocationSample{}, domain.MovementAnalysis{}, nil,
			fmt.Errorf("%w: %v,%v", wferrors.ErrInvalidLocation, f.lat, f.lng)
	}
	mode := domain.MovementMode(f.mode)
	if !mode.Valid() {
		return domain.LocationSample{}, domain.MovementAnalysis{}, nil, fmt.Errorf("unknown movement mode %q", f.mode)
	}
	if f.at != "" {
		ts, err := time.Parse(time.RFC3339, f.at)
		if err != nil {
			return domain.LocationSample{}, domain.MovementAnalysis{}, nil, fmt.Errorf("--at: %w", err)
		}
		now = ts
	}

	sample := domain.LocationSample{
		Coordinate: domain.Coordinate{Latitude: f.lat, Longitude: f.lng},
		Timestamp:  now,
	}
	movement := domain.MovementAnalysis{
		Mode:               mode,
		AverageSpeed:       f.speed,
		Trend:              domain.SpeedTrend(f.trend),
		Confidence:         f.confidence,
		StationaryDuration: f.stationary,
	}

	var reading *domain.WeatherData
	if f.condition != "" {
		wd := domain.DefaultWeather(now)
		wd.Condition = domain.WeatherCondition(f.condition)
		wd.Temperature = f.temperature
		reading = &wd
	}
	return sample, movement, reading, nil
}
