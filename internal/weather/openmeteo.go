package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"wayfarer/internal/domain"
	"wayfarer/internal/environment"
	wferrors "wayfarer/internal/errors"
	"wayfarer/internal/httpclient"
	"wayfarer/internal/logging"
)

const (
	// DefaultOpenMeteoURL is the public forecast endpoint.
	DefaultOpenMeteoURL = "https://api.open-meteo.com"

	openMeteoBodyLimit = 64 << 10
	currentFields      = "temperature_2m,relative_humidity_2m,precipitation,weather_code,cloud_cover,surface_pressure,wind_speed_10m,uv_index,visibility"
)

// OpenMeteoProvider fetches current conditions from the Open-Meteo API.
type OpenMeteoProvider struct {
	baseURL string
	client  *http.Client
	retry   wferrors.RetryConfig
	logger  logging.Logger
	now     func() time.Time
}

// OpenMeteoOption customises the provider.
type OpenMeteoOption func(*OpenMeteoProvider)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) OpenMeteoOption {
	return func(p *OpenMeteoProvider) {
		if client != nil {
			p.client = client
		}
	}
}

// WithRetry overrides the retry policy.
func WithRetry(cfg wferrors.RetryConfig) OpenMeteoOption {
	return func(p *OpenMeteoProvider) { p.retry = cfg }
}

// NewOpenMeteoProvider builds a provider against baseURL (DefaultOpenMeteoURL when empty).
func NewOpenMeteoProvider(baseURL string, logger logging.Logger, opts ...OpenMeteoOption) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}
	logger = logging.OrNop(logger)
	p := &OpenMeteoProvider{
		baseURL: baseURL,
		client:  httpclient.New(5*time.Second, logger),
		retry:   wferrors.DefaultRetryConfig(),
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type openMeteoResponse struct {
	Current struct {
		Temperature   float64 `json:"temperature_2m"`
		Humidity      float64 `json:"relative_humidity_2m"`
		Precipitation float64 `json:"precipitation"`
		WeatherCode   int     `json:"weather_code"`
		CloudCover    float64 `json:"cloud_cover"`
		Pressure      float64 `json:"surface_pressure"`
		WindSpeed     float64 `json:"wind_speed_10m"`
		UVIndex       float64 `json:"uv_index"`
		Visibility    float64 `json:"visibility"` // metres
	} `json:"current"`
}

// Fetch implements Provider.
func (p *OpenMeteoProvider) Fetch(ctx context.Context, at domain.Coordinate) (domain.WeatherData, error) {
	return wferrors.RetryWithResult(ctx, p.retry, p.logger, func(ctx context.Context) (domain.WeatherData, error) {
		return p.fetchOnce(ctx, at)
	})
}

func (p *OpenMeteoProvider) fetchOnce(ctx context.Context, at domain.Coordinate) (domain.WeatherData, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(at.Latitude, 'f', 4, 64))
	query.Set("longitude", strconv.FormatFloat(at.Longitude, 'f', 4, 64))
	query.Set("current", currentFields)
	query.Set("wind_speed_unit", "ms")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/forecast?"+query.Encode(), nil)
	if err != nil {
		return domain.WeatherData{}, wferrors.NewPermanentError(err, "build open-meteo request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.WeatherData{}, fmt.Errorf("open-meteo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.WeatherData{}, wferrors.FromHTTPStatus(resp.StatusCode, "open-meteo")
	}

	var payload openMeteoResponse
	if err := httpclient.DecodeJSON(resp.Body, openMeteoBodyLimit, &payload); err != nil {
		return domain.WeatherData{}, classifyBodyError(err)
	}

	cur := payload.Current
	condition := conditionFromWMO(cur.WeatherCode)
	if condition == domain.WeatherClear || condition == domain.WeatherCloudy {
		// WMO codes carry no wind class.
		obs := environment.WeatherObservation{WindSpeed: cur.WindSpeed, CloudCover: cur.CloudCover / 100, VisibilityKM: cur.Visibility / 1000}
		if c := environment.ClassifyWeather(obs); c == domain.WeatherWindy || c == domain.WeatherFoggy {
			condition = c
		}
	}

	return domain.WeatherData{
		Condition:   condition,
		Temperature: cur.Temperature,
		Humidity:    cur.Humidity,
		WindSpeed:   cur.WindSpeed,
		Visibility:  cur.Visibility / 1000,
		Pressure:    cur.Pressure,
		UVIndex:     cur.UVIndex,
		FetchedAt:   p.now(),
	}, nil
}

// classifyBodyError retries a body cut short in transit but not one that is
// oversized or malformed, since asking again returns the same payload.
func classifyBodyError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case httpclient.IsResponseTooLarge(err):
		return wferrors.NewPermanentError(err, fmt.Sprintf("open-meteo response too large: %v", err))
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return wferrors.NewPermanentError(err, "")
	default:
		return wferrors.NewTransientError(err, "")
	}
}

// conditionFromWMO maps WMO 4677 present-weather codes as used by Open-Meteo.
func conditionFromWMO(code int) domain.WeatherCondition {
	switch {
	case code <= 1:
		return domain.WeatherClear
	case code <= 3:
		return domain.WeatherCloudy
	case code == 45 || code == 48:
		return domain.WeatherFoggy
	case code >= 51 && code <= 67, code >= 80 && code <= 82:
		return domain.WeatherRainy
	case code >= 71 && code <= 77, code == 85 || code == 86:
		return domain.WeatherSnowy
	case code >= 95:
		return domain.WeatherStormy
	default:
		return domain.WeatherCloudy
	}
}
