package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WAYFARER"

// ValueSource identifies where a setting came from.
type ValueSource string

const (
	SourceDefault  ValueSource = "default"
	SourceFile     ValueSource = "file"
	SourceEnv      ValueSource = "environment"
	SourceOverride ValueSource = "override"
)

// EnvLookup resolves an environment variable.
type EnvLookup func(string) (string, bool)

// DefaultEnvLookup reads the process environment.
func DefaultEnvLookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// Metadata records the provenance of loaded values.
type Metadata struct {
	File    string
	sources map[string]ValueSource
}

// Source reports where key ("engine.cache_capacity") was set.
func (m Metadata) Source(key string) ValueSource {
	if src, ok := m.sources[strings.ToLower(key)]; ok {
		return src
	}
	return SourceDefault
}

// Keys lists every key not left at its default, sorted.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m.sources))
	for k := range m.sources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type loadOptions struct {
	envLookup  EnvLookup
	homeDir    string
	configPath string
	overrides  map[string]any
}

// Option customises Load.
type Option func(*loadOptions)

// WithEnv swaps the environment lookup, mostly for tests.
func WithEnv(lookup EnvLookup) Option {
	return func(o *loadOptions) { o.envLookup = lookup }
}

// WithConfigPath reads the given file instead of searching for wayfarer.yaml.
func WithConfigPath(path string) Option {
	return func(o *loadOptions) { o.configPath = path }
}

// WithHomeDir changes where $HOME/.wayfarer is resolved.
func WithHomeDir(dir string) Option {
	return func(o *loadOptions) { o.homeDir = dir }
}

// WithOverrides applies values on top of everything else. Keys use the
// dotted form, e.g. "server.addr".
func WithOverrides(overrides map[string]any) Option {
	return func(o *loadOptions) {
		if o.overrides == nil {
			o.overrides = make(map[string]any, len(overrides))
		}
		for k, v := range overrides {
			o.overrides[k] = v
		}
	}
}

// Load resolves configuration: defaults, then the config file, then
// WAYFARER_* variables, then overrides.
func Load(opts ...Option) (Config, Metadata, error) {
	options := loadOptions{envLookup: DefaultEnvLookup}
	for _, opt := range opts {
		opt(&options)
	}
	if options.homeDir == "" {
		options.homeDir, _ = os.UserHomeDir()
	}

	meta := Metadata{sources: make(map[string]ValueSource)}
	v := viper.New()
	for key, value := range flatten(Default()) {
		v.SetDefault(key, value)
	}

	file, err := readFile(v, options)
	if err != nil {
		return Config{}, meta, err
	}
	if file != "" {
		meta.File = file
		for _, key := range v.AllKeys() {
			if v.InConfig(key) {
				meta.sources[key] = SourceFile
			}
		}
	}

	for _, key := range v.AllKeys() {
		name := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if value, ok := options.envLookup(name); ok && strings.TrimSpace(value) != "" {
			v.Set(key, strings.TrimSpace(value))
			meta.sources[key] = SourceEnv
		}
	}

	for key, value := range options.overrides {
		key = strings.ToLower(key)
		v.Set(key, value)
		meta.sources[key] = SourceOverride
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, meta, fmt.Errorf("decode config: %w", err)
	}
	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, meta, err
	}
	return cfg, meta, nil
}

func readFile(v *viper.Viper, options loadOptions) (string, error) {
	if options.configPath != "" {
		v.SetConfigFile(options.configPath)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("read config %s: %w", options.configPath, err)
		}
		return v.ConfigFileUsed(), nil
	}

	v.SetConfigName("wayfarer")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if options.homeDir != "" {
		v.AddConfigPath(filepath.Join(options.homeDir, ".wayfarer"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("read config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

func normalize(cfg *Config) {
	cfg.Weather.Provider = strings.ToLower(strings.TrimSpace(cfg.Weather.Provider))
	cfg.Server.Mode = strings.ToLower(strings.TrimSpace(cfg.Server.Mode))
	origins := cfg.Server.AllowedOrigins[:0]
	for _, o := range cfg.Server.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	cfg.Server.AllowedOrigins = origins
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Engine.CacheCapacity <= 0 {
		errs = append(errs, fmt.Errorf("engine.cache_capacity must be positive, got %d", c.Engine.CacheCapacity))
	}
	if c.Engine.SuccessThreshold < 0 || c.Engine.SuccessThreshold > 1 {
		errs = append(errs, fmt.Errorf("engine.success_threshold must be within [0,1], got %v", c.Engine.SuccessThreshold))
	}
	switch c.Weather.Provider {
	case ProviderSimulated, ProviderOpenMeteo, ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("weather.provider %q is not one of simulated, openmeteo, none", c.Weather.Provider))
	}
	if c.Weather.BucketDecimals < 0 || c.Weather.BucketDecimals > 6 {
		errs = append(errs, fmt.Errorf("weather.bucket_decimals must be within [0,6], got %d", c.Weather.BucketDecimals))
	}
	if c.Location.BucketDecimals < 0 || c.Location.BucketDecimals > 6 {
		errs = append(errs, fmt.Errorf("location.bucket_decimals must be within [0,6], got %d", c.Location.BucketDecimals))
	}
	for key, w := range map[string]float64{
		"insights.movement":    c.Insights.Movement,
		"insights.location":    c.Insights.Location,
		"insights.consistency": c.Insights.Consistency,
	} {
		if w < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", key, w))
		}
	}
	if !(c.Insights.Weather > 0) {
		errs = append(errs, fmt.Errorf("insights.weather must be positive, got %v", c.Insights.Weather))
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.mode %q is not one of debug, release, test", c.Server.Mode))
	}
	return errors.Join(errs...)
}

// flatten lists every setting under its dotted viper key so that
// environment variables can be matched against AllKeys.
func flatten(c Config) map[string]any {
	return map[string]any{
		"engine.cache_capacity":      c.Engine.CacheCapacity,
		"engine.success_threshold":   c.Engine.SuccessThreshold,
		"engine.strategy_cache_size": c.Engine.StrategyCacheSize,
		"engine.seed":                c.Engine.Seed,

		"weather.provider":         c.Weather.Provider,
		"weather.base_url":         c.Weather.BaseURL,
		"weather.timeout":          c.Weather.Timeout,
		"weather.ttl":              c.Weather.TTL,
		"weather.bucket_decimals":  c.Weather.BucketDecimals,
		"weather.max_entries":      c.Weather.MaxEntries,
		"weather.breaker_failures": c.Weather.BreakerFailures,
		"weather.breaker_timeout":  c.Weather.BreakerTimeout,

		"location.ttl":             c.Location.TTL,
		"location.bucket_decimals": c.Location.BucketDecimals,
		"location.max_entries":     c.Location.MaxEntries,
		"location.search_radius":   c.Location.SearchRadius,

		"activity.sightseeing_max_speed":  c.Activity.SightseeingMaxSpeed,
		"activity.sightseeing_poi_radius": c.Activity.SightseeingPOIRadius,
		"activity.shopping_stationary":    c.Activity.ShoppingStationary,
		"activity.work_stationary":        c.Activity.WorkStationary,

		"insights.movement":    c.Insights.Movement,
		"insights.location":    c.Insights.Location,
		"insights.weather":     c.Insights.Weather,
		"insights.consistency": c.Insights.Consistency,

		"confidence.length_match":    c.Confidence.LengthMatch,
		"confidence.appropriateness": c.Confidence.Appropriateness,
		"confidence.quality":         c.Confidence.Quality,

		"server.addr":            c.Server.Addr,
		"server.mode":            c.Server.Mode,
		"server.allowed_origins": c.Server.AllowedOrigins,
		"server.read_timeout":    c.Server.ReadTimeout,
		"server.max_results":     c.Server.MaxResults,

		"library.path":  c.Library.Path,
		"observability": c.Observability,
	}
}
