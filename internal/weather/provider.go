// Package weather resolves weather readings for coordinates through a
// time-bounded cache in front of a pluggable provider.
package weather

import (
	"context"
	"hash/fnv"
	"math"
	"time"

	"wayfarer/internal/domain"
	"wayfarer/internal/environment"
)

// Provider supplies a weather reading for a coordinate.
type Provider interface {
	Fetch(ctx context.Context, at domain.Coordinate) (domain.WeatherData, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, at domain.Coordinate) (domain.WeatherData, error)

// Fetch calls f.
func (f ProviderFunc) Fetch(ctx context.Context, at domain.Coordinate) (domain.WeatherData, error) {
	return f(ctx, at)
}

// SimulatedProvider derives a plausible reading from the coordinate bucket and
// the current hour. The same bucket and hour always produce the same reading.
type SimulatedProvider struct {
	Now func() time.Time
}

// Fetch implements Provider.
func (p SimulatedProvider) Fetch(ctx context.Context, at domain.Coordinate) (domain.WeatherData, error) {
	if err := ctx.Err(); err != nil {
		return domain.WeatherData{}, err
	}
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(at.BucketKey(2)))
	_, _ = h.Write([]byte(now.UTC().Format("2006010215")))
	seed := h.Sum64()

	unit := func(shift uint) float64 { return float64((seed>>shift)&0xffff) / 0xffff }

	seasonal := 10 - 12*math.Cos(2*math.Pi*float64(now.YearDay())/365)
	obs := environment.WeatherObservation{
		TemperatureC: math.Round((seasonal+unit(0)*8-4)*10) / 10,
		WindSpeed:    math.Round(unit(16)*14*10) / 10,
		VisibilityKM: 0.5 + unit(32)*14.5,
		CloudCover:   unit(48),
	}
	if unit(8) > 0.75 {
		obs.PrecipitationMM = math.Round(unit(24)*9*10) / 10
	}

	return domain.WeatherData{
		Condition:   environment.ClassifyWeather(obs),
		Temperature: obs.TemperatureC,
		Humidity:    math.Round(40 + obs.CloudCover*55),
		WindSpeed:   obs.WindSpeed,
		Visibility:  math.Round(obs.VisibilityKM*10) / 10,
		Pressure:    math.Round(995 + unit(40)*35),
		UVIndex:     math.Round((1-obs.CloudCover)*8*10) / 10,
		FetchedAt:   now,
	}, nil
}
