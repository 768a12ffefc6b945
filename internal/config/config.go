// Package config loads wayfarer settings from defaults, an optional YAML
// file, WAYFARER_* environment variables and caller overrides, in that
// order of precedence.
package config

import (
	"time"

	"wayfarer/internal/activity"
	"wayfarer/internal/adaptation"
	"wayfarer/internal/analyzer"
	wferrors "wayfarer/internal/errors"
	"wayfarer/internal/location"
	"wayfarer/internal/transform"
	"wayfarer/internal/weather"
)

// Weather provider names.
const (
	ProviderSimulated = "simulated"
	ProviderOpenMeteo = "openmeteo"
	ProviderNone      = "none"
)

// Config is the full wayfarer configuration.
type Config struct {
	Engine        EngineConfig                `mapstructure:"engine"`
	Weather       WeatherConfig               `mapstructure:"weather"`
	Location      LocationConfig              `mapstructure:"location"`
	Activity      ActivityConfig              `mapstructure:"activity"`
	Insights      analyzer.Weights            `mapstructure:"insights"`
	Confidence    transform.ConfidenceWeights `mapstructure:"confidence"`
	Server        ServerConfig                `mapstructure:"server"`
	Library       LibraryConfig               `mapstructure:"library"`
	Observability string                      `mapstructure:"observability"` // path to observability.yaml
}

// EngineConfig tunes the adaptation engine.
type EngineConfig struct {
	CacheCapacity     int     `mapstructure:"cache_capacity"`
	SuccessThreshold  float64 `mapstructure:"success_threshold"`
	StrategyCacheSize int     `mapstructure:"strategy_cache_size"`
	Seed              int64   `mapstructure:"seed"`
}

// WeatherConfig selects and tunes the weather provider and cache.
type WeatherConfig struct {
	Provider        string        `mapstructure:"provider"`
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	TTL             time.Duration `mapstructure:"ttl"`
	BucketDecimals  int           `mapstructure:"bucket_decimals"`
	MaxEntries      int           `mapstructure:"max_entries"`
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
}

// LocationConfig tunes the place cache.
type LocationConfig struct {
	TTL            time.Duration `mapstructure:"ttl"`
	BucketDecimals int           `mapstructure:"bucket_decimals"`
	MaxEntries     int           `mapstructure:"max_entries"`
	SearchRadius   float64       `mapstructure:"search_radius"`
}

// ActivityConfig mirrors activity.Thresholds.
type ActivityConfig struct {
	SightseeingMaxSpeed  float64       `mapstructure:"sightseeing_max_speed"`
	SightseeingPOIRadius float64       `mapstructure:"sightseeing_poi_radius"`
	ShoppingStationary   time.Duration `mapstructure:"shopping_stationary"`
	WorkStationary       time.Duration `mapstructure:"work_stationary"`
}

// ServerConfig configures the HTTP facade.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	Mode           string        `mapstructure:"mode"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	MaxResults     int           `mapstructure:"max_results"`
}

// LibraryConfig points at the story files to load on start.
type LibraryConfig struct {
	Path string `mapstructure:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	engine := adaptation.DefaultConfig()
	wx := weather.DefaultConfig()
	loc := location.DefaultConfig()
	th := activity.DefaultThresholds()
	return Config{
		Engine: EngineConfig{
			CacheCapacity:     engine.CacheCapacity,
			SuccessThreshold:  engine.SuccessThreshold,
			StrategyCacheSize: engine.StrategyCacheSize,
			Seed:              engine.Seed,
		},
		Weather: WeatherConfig{
			Provider:        ProviderSimulated,
			BaseURL:         weather.DefaultOpenMeteoURL,
			Timeout:         5 * time.Second,
			TTL:             wx.TTL,
			BucketDecimals:  wx.BucketDecimals,
			MaxEntries:      wx.MaxEntries,
			BreakerFailures: wx.Breaker.FailureThreshold,
			BreakerTimeout:  wx.Breaker.Timeout,
		},
		Location: LocationConfig{
			TTL:            loc.TTL,
			BucketDecimals: loc.BucketDecimals,
			MaxEntries:     loc.MaxEntries,
			SearchRadius:   loc.SearchRadius,
		},
		Activity: ActivityConfig{
			SightseeingMaxSpeed:  th.SightseeingMaxSpeed,
			SightseeingPOIRadius: th.SightseeingPOIRadius,
			ShoppingStationary:   th.ShoppingStationary,
			WorkStationary:       th.WorkStationary,
		},
		Insights:   engine.Insights,
		Confidence: engine.Confidence,
		Server: ServerConfig{
			Addr:           ":8080",
			Mode:           "release",
			AllowedOrigins: []string{"*"},
			ReadTimeout:    10 * time.Second,
			MaxResults:     5,
		},
		Library: LibraryConfig{Path: "stories"},
	}
}

// AdaptationConfig converts the loaded values into engine settings.
func (c Config) AdaptationConfig() adaptation.Config {
	breaker := wferrors.DefaultCircuitBreakerConfig()
	if c.Weather.BreakerFailures > 0 {
		breaker.FailureThreshold = c.Weather.BreakerFailures
	}
	if c.Weather.BreakerTimeout > 0 {
		breaker.Timeout = c.Weather.BreakerTimeout
	}

	return adaptation.Config{
		CacheCapacity:     c.Engine.CacheCapacity,
		SuccessThreshold:  c.Engine.SuccessThreshold,
		StrategyCacheSize: c.Engine.StrategyCacheSize,
		Seed:              c.Engine.Seed,
		Weather: weather.Config{
			TTL:            c.Weather.TTL,
			BucketDecimals: c.Weather.BucketDecimals,
			MaxEntries:     c.Weather.MaxEntries,
			Breaker:        breaker,
		},
		Location: location.Config{
			TTL:            c.Location.TTL,
			BucketDecimals: c.Location.BucketDecimals,
			MaxEntries:     c.Location.MaxEntries,
			SearchRadius:   c.Location.SearchRadius,
			Breaker:        breaker,
		},
		Activity: activity.Thresholds{
			SightseeingMaxSpeed:  c.Activity.SightseeingMaxSpeed,
			SightseeingPOIRadius: c.Activity.SightseeingPOIRadius,
			ShoppingStationary:   c.Activity.ShoppingStationary,
			WorkStationary:       c.Activity.WorkStationary,
		},
		Insights:   c.Insights,
		Confidence: c.Confidence,
	}
}
