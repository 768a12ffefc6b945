package adaptation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"wayfarer/internal/domain"
	"wayfarer/internal/location"
	"wayfarer/internal/transform"
	"wayfarer/internal/weather"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type shelf map[string]*domain.StoryContent

func (s shelf) Get(id string) (*domain.StoryContent, bool) {
	story, ok := s[id]
	return story, ok
}

func (s shelf) All() []*domain.StoryContent {
	out := make([]*domain.StoryContent, 0, len(s))
	for _, story := range s {
		out = append(out, story)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var (
	noon  = time.Date(2026, 6, 3, 14, 30, 0, 0, time.UTC)
	abbey = domain.Coordinate{Latitude: 51.4994, Longitude: -0.1273}
)

const tenSentences = "The abbey was founded by Benedictine monks more than a thousand years ago. " +
	"Kings and queens have been crowned beneath its vaulted roof since 1066. " +
	"However, a fire in the old dormitory nearly destroyed the library. " +
	"The monks decided to construct a new cloister in order to protect their books. " +
	"Work commenced in spring and took approximately ten years to finish. " +
	"Numerous poets and scientists are buried or remembered inside the nave. " +
	"The oldest door in the country still hangs in a passage near the chapter house. " +
	"Visitors once believed that touching it would bring good fortune. " +
	"Furthermore, the abbey gardens are among the oldest still in use. " +
	"Today the bells ring out over the square as they have for centuries."

func library() shelf {
	return shelf{
		"abbey": domain.NewStoryContent("abbey", "The Abbey", tenSentences,
			domain.ContentMetadata{Type: domain.ContentHistorical, Themes: []string{"outdoor"}},
			&domain.Geofence{Center: abbey, Radius: 200}),
		"gallery": domain.NewStoryContent("gallery", "The Gallery", tenSentences,
			domain.ContentMetadata{Type: domain.ContentCultural, Themes: []string{"indoor"}}, nil),
	}
}

func places() location.StaticPlaces {
	return location.StaticPlaces{
		Elevation: 12,
		Places: []location.Place{
			{Name: "Abbey", Type: domain.POIHistorical, At: abbey, Relevance: 1},
		},
	}
}

func sunny(context.Context, domain.Coordinate) (domain.WeatherData, error) {
	return domain.DefaultWeather(noon), nil
}

func newEngine(t *testing.T, wx weather.Provider, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return noon })}, opts...)
	e, err := New(library(), wx, places(), opts...)
	require.NoError(t, err)
	return e
}

func env(mode domain.MovementMode, avail domain.AvailableTime, att domain.AttentionLevel) domain.ContextualEnvironment {
	return domain.ContextualEnvironment{
		Timestamp:         noon,
		Coordinate:        abbey,
		TimeOfDay:         domain.TimeAfternoon,
		Movement:          domain.MovementAnalysis{Mode: mode, Confidence: 0.9},
		AvailableTime:     avail,
		Attention:         att,
		ContentPreference: domain.PreferenceBrief,
		Location:          domain.LocationContext{Environment: domain.EnvironmentUrban},
		Activity:          domain.ActivityLeisure,
	}
}

func TestAdaptUnknownContent(t *testing.T) {
	e := newEngine(t, weather.ProviderFunc(sunny))
	adapted, ok := e.Adapt(context.Background(), "missing", env(domain.MovementWalking, domain.TimeLong, domain.AttentionMedium), domain.ContextualInsights{}, domain.Preferences{})
	assert.False(t, ok)
	assert.Nil(t, adapted)
	assert.Zero(t, e.Metrics().TotalAdaptations)
}

func TestAdaptIsIdempotentAndCountsHits(t *testing.T) {
	e := newEngine(t, weather.ProviderFunc(sunny))
	ctx := context.Background()
	walking := env(domain.MovementWalking, domain.TimeMedium, domain.AttentionMedium)

	first, ok := e.Adapt(ctx, "abbey", walking, domain.ContextualInsights{}, domain.Preferences{})
	require.True(t, ok)
	before := e.Metrics().CacheHitRate

	second, ok := e.Adapt(ctx, "abbey", walking, domain.ContextualInsights{}, domain.Preferences{})
	require.True(t, ok)
	after := e.Metrics().CacheHitRate

	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, *first, *second)
	assert.Greater(t, after, before)
	assert.InDelta(t, 0.5, after, 1e-9)

	m := e.Metrics()
	assert.Equal(t, int64(2), m.TotalAdaptations)
	assert.Equal(t, int64(2), m.ContextTypeCounts[string(domain.ActivityLeisure)])
	assert.InDelta(t, first.Confidence, m.AverageConfidence, 1e-9)

	assert.Equal(t, []string{CacheKey("abbey", walking.Hash(), "")}, e.CachedKeys())
}

func TestAdaptKeysByPreferences(t *testing.T) {
	e := newEngine(t, weather.ProviderFunc(sunny))
	ctx := context.Background()
	walking := env(domain.MovementWalking, domain.TimeLong, domain.AttentionMedium)

	plain, _ := e.Adapt(ctx, "abbey", walking, domain.ContextualInsights{}, domain.Preferences{})
	brief, _ := e.Adapt(ctx, "abbey", walking, domain.ContextualInsights{}, domain.Preferences{Brief: true})

	assert.Less(t, len(transform.SplitSentences(brief.Text)), len(transform.SplitSentences(plain.Text)))
	assert.Len(t, e.CachedKeys(), 2)
	assert.Zero(t, e.Metrics().CacheHitRate)
}

func TestDrivingScenario(t *testing.T) {
	e := newEngine(t, weather.ProviderFunc(sunny))
	driving := env(domain.MovementDriving, domain.TimeShort, domain.AttentionLow)

	adapted, ok := e.Adapt(context.Background(), "abbey", driving, domain.ContextualInsights{}, domain.Preferences{Interactive: true})
	require.True(t, ok)
	assert.Equal(t, domain.FormatAudio, adapted.Format)
	assert.Contains(t, []domain.LengthCategory{domain.LengthMicro, domain.LengthShort}, adapted.Length)
	assert.Empty(t, adapted.InteractionPoints)
	assert.NotEmpty(t, adapted.AudioScript)
}

func TestStationaryScenario(t *testing.T) {
	e := newEngine(t, weather.ProviderFunc(sunny))
	seated := env(domain.MovementStationary, domain.TimeLong, domain.AttentionHigh)

	s := e.CreateStrategy(seated, domain.ContextualInsights{}, nil, domain.Preferences{})
	assert.InDelta(t, 0, s.LengthReduction, 1e-9)

	adapted, ok := e.Adapt(context.Background(), "abbey", seated, domain.ContextualInsights{}, domain.Preferences{})
	require.True(t, ok)
	assert.Contains(t, []domain.ContentFormat{domain.FormatInteractive, domain.FormatVisual, domain.FormatText}, adapted.Format)
	assert.Len(t, transform.SplitSentences(adapted.Text), 10)
	assert.NotEmpty(t, adapted.InteractionPoints)
}

func TestWeatherOutageLowersConfidence(t *testing.T) {
	ctx := context.Background()
	sample := domain.LocationSample{Coordinate: abbey}
	movement := domain.MovementAnalysis{Mode: domain.MovementWalking, AverageSpeed: 3, Confidence: 0.9}

	healthy := newEngine(t, weather.ProviderFunc(sunny))
	good := healthy.AnalyzeContext(ctx, sample, movement, nil)

	broken := newEngine(t, weather.ProviderFunc(func(context.Context, domain.Coordinate) (domain.WeatherData, error) {
		return domain.WeatherData{}, errors.New("weather service unavailable")
	}))
	degraded := broken.AnalyzeContext(ctx, sample, movement, nil)

	require.NotNil(t, degraded.Weather)
	assert.Equal(t, domain.WeatherClear, degraded.Weather.Condition)
	assert.False(t, degraded.WeatherResolved)
	assert.Less(t, broken.GenerateInsights(ctx, degraded).Confidence, healthy.GenerateInsights(ctx, good).Confidence)
}

func TestNearbySamplesShareStrategyAndAdaptation(t *testing.T) {
	e := newEngine(t, weather.ProviderFunc(sunny))
	ctx := context.Background()
	movement := domain.MovementAnalysis{Mode: domain.MovementWalking, AverageSpeed: 3, Confidence: 0.9}

	first := e.AnalyzeContext(ctx, domain.LocationSample{Coordinate: domain.Coordinate{Latitude: 51.49941, Longitude: -0.12731}}, movement, nil)
	second := e.AnalyzeContext(ctx, domain.LocationSample{Coordinate: domain.Coordinate{Latitude: 51.49944, Longitude: -0.12734}}, movement, nil)
	require.NotEqual(t, first.Coordinate, second.Coordinate)
	require.Equal(t, first.Hash(), second.Hash())

	s1 := e.CreateStrategy(first, e.GenerateInsights(ctx, first), nil, domain.Preferences{})
	s2 := e.CreateStrategy(second, e.GenerateInsights(ctx, second), nil, domain.Preferences{})
	if diff := cmp.Diff(s1, s2); diff != "" {
		t.Fatalf("strategies differ (-first +second):\n%s", diff)
	}

	a1, _ := e.Adapt(ctx, "abbey", first, domain.ContextualInsights{}, domain.Preferences{})
	a2, _ := e.Adapt(ctx, "abbey", second, domain.ContextualInsights{}, domain.Preferences{})
	assert.Equal(t, a1.Text, a2.Text)
	assert.InDelta(t, 0.5, e.Metrics().CacheHitRate, 1e-9)
}

func TestFIFOCacheEvictsEarliestInsert(t *testing.T) {
	var evicted []string
	c, err := newFIFOCache(100, func(key string) { evicted = append(evicted, key) })
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		assert.True(t, c.put(fmt.Sprintf("k%03d", i), domain.AdaptedContent{Text: fmt.Sprint(i)}, nil))
	}
	_, ok := c.get("k000")
	require.True(t, ok, "reading the oldest entry must not protect it")
	assert.False(t, c.put("k000", domain.AdaptedContent{Text: "again"}, nil), "re-inserting keeps the original slot")

	c.put("k100", domain.AdaptedContent{}, nil)

	assert.Equal(t, []string{"k000"}, evicted)
	assert.Equal(t, 100, c.len())
	_, ok = c.get("k000")
	assert.False(t, ok)
	for i := 1; i <= 100; i++ {
		_, ok := c.get(fmt.Sprintf("k%03d", i))
		assert.True(t, ok, "k%03d", i)
	}
	keys := c.keys()
	assert.Equal(t, "k001", keys[0])
	assert.Equal(t, "k100", keys[len(keys)-1])
}

func TestEngineCacheCapacityFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CacheCapacity = 1
	e := newEngine(t, weather.ProviderFunc(sunny), WithConfig(cfg))
	ctx := context.Background()
	walking := env(domain.MovementWalking, domain.TimeLong, domain.AttentionMedium)

	e.Adapt(ctx, "abbey", walking, domain.ContextualInsights{}, domain.Preferences{})
	e.Adapt(ctx, "gallery", walking, domain.ContextualInsights{}, domain.Preferences{})
	assert.Equal(t, []string{CacheKey("gallery", walking.Hash(), "")}, e.CachedKeys())
}

func TestStoryMemosFollowCacheEviction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CacheCapacity = 1
	e := newEngine(t, weather.ProviderFunc(sunny), WithConfig(cfg))
	lib := e.library.(shelf)
	ctx := context.Background()
	walking := env(domain.MovementWalking, domain.TimeLong, domain.AttentionMedium)

	e.Adapt(ctx, "abbey", walking, domain.ContextualInsights{}, domain.Preferences{})
	assert.Equal(t, 1, lib["abbey"].AdaptationCount())

	e.Adapt(ctx, "gallery", walking, domain.ContextualInsights{}, domain.Preferences{})
	assert.Zero(t, lib["abbey"].AdaptationCount(), "evicted adaptation must leave the story")
	_, ok := lib["abbey"].Adaptation(walking.Hash())
	assert.False(t, ok)
	assert.Equal(t, 1, lib["gallery"].AdaptationCount())

	e.Reset()
	assert.Zero(t, lib["gallery"].AdaptationCount())
}

func TestPreferenceAdaptationsAreNotMemoised(t *testing.T) {
	e := newEngine(t, weather.ProviderFunc(sunny))
	lib := e.library.(shelf)
	walking := env(domain.MovementWalking, domain.TimeLong, domain.AttentionMedium)

	_, ok := e.Adapt(context.Background(), "abbey", walking, domain.ContextualInsights{}, domain.Preferences{Brief: true})
	require.True(t, ok)
	assert.Zero(t, lib["abbey"].AdaptationCount())
	assert.Len(t, e.CachedKeys(), 1)
}

func TestRecommendUsesCachedAdaptation(t *testing.T) {
	e := newEngine(t, weather.ProviderFunc(sunny))
	ctx := context.Background()
	sample := domain.LocationSample{Coordinate: abbey}
	current := e.AnalyzeContext(ctx, sample, domain.MovementAnalysis{Mode: domain.MovementWalking, AverageSpeed: 3, Confidence: 0.9}, nil)
	insights := e.GenerateInsights(ctx, current)

	adapted, ok := e.Adapt(ctx, "abbey", current, insights, domain.Preferences{})
	require.True(t, ok)

	recs := e.Recommend(ctx, current, insights, 5)
	require.NotEmpty(t, recs)
	assert.Equal(t, "abbey", recs[0].Content.ID)
	assert.Equal(t, domain.DeliveryImmediate, recs[0].Timing)
	assert.Equal(t, adapted.Text, recs[0].Adapted.Text)
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := newEngine(t, weather.ProviderFunc(sunny), WithRegisterer(reg))
	ctx := context.Background()
	walking := env(domain.MovementWalking, domain.TimeLong, domain.AttentionMedium)

	e.Adapt(ctx, "abbey", walking, domain.ContextualInsights{}, domain.Preferences{})
	e.Adapt(ctx, "abbey", walking, domain.ContextualInsights{}, domain.Preferences{})
	e.AnalyzeContext(ctx, domain.LocationSample{Coordinate: abbey}, walking.Movement, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(e.prom.cacheLookups.WithLabelValues("adaptation", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.prom.cacheLookups.WithLabelValues("adaptation", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.prom.cacheLookups.WithLabelValues("weather", "miss")))
	assert.Equal(t, 1, testutil.CollectAndCount(e.prom.adaptations))
	assert.Equal(t, 0, testutil.CollectAndCount(e.prom.failures))

	again := MustNewMetrics(reg)
	assert.Same(t, e.prom.cacheLookups, again.cacheLookups)
}

func TestResetClearsState(t *testing.T) {
	e := newEngine(t, weather.ProviderFunc(sunny))
	ctx := context.Background()
	walking := env(domain.MovementWalking, domain.TimeLong, domain.AttentionMedium)
	e.Adapt(ctx, "abbey", walking, domain.ContextualInsights{}, domain.Preferences{})
	e.AnalyzeContext(ctx, domain.LocationSample{Coordinate: abbey}, walking.Movement, nil)
	require.NotEmpty(t, e.RecentActivities())

	e.Reset()

	assert.Equal(t, domain.AdaptationMetrics{ContextTypeCounts: map[string]int64{}}, e.Metrics())
	assert.Empty(t, e.CachedKeys())
	assert.Empty(t, e.RecentActivities())
}

func TestNilProvidersStillAnalyze(t *testing.T) {
	e, err := New(nil, nil, nil, WithClock(func() time.Time { return noon }))
	require.NoError(t, err)

	got := e.AnalyzeContext(context.Background(), domain.LocationSample{Coordinate: abbey}, domain.MovementAnalysis{Mode: domain.MovementStationary}, nil)
	assert.False(t, got.WeatherResolved)
	assert.False(t, got.LocationResolved)
	assert.Equal(t, domain.EnvironmentSuburban, got.Location.Environment)

	_, ok := e.Adapt(context.Background(), "abbey", got, domain.ContextualInsights{}, domain.Preferences{})
	assert.False(t, ok)
	assert.Empty(t, e.Recommend(context.Background(), got, domain.ContextualInsights{}, 3))
}
