package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/domain"
)

type shelf []*domain.StoryContent

func (s shelf) All() []*domain.StoryContent { return s }

var abbey = domain.Coordinate{Latitude: 51.4994, Longitude: -0.1273}

const text = "The abbey was founded by monks. Kings were crowned beneath its vaulted roof for centuries. " +
	"A fire in the old dormitory nearly destroyed the library. The cloisters survived and remain open today."

func fenced(id string, t domain.ContentType, themes ...string) *domain.StoryContent {
	return domain.NewStoryContent(id, id, text, domain.ContentMetadata{Type: t, Themes: themes},
		&domain.Geofence{Center: abbey, Radius: 150})
}

func loose(id string, t domain.ContentType, themes ...string) *domain.StoryContent {
	return domain.NewStoryContent(id, id, text, domain.ContentMetadata{Type: t, Themes: themes}, nil)
}

func sightseeing() domain.ContextualEnvironment {
	return domain.ContextualEnvironment{
		Coordinate:        abbey,
		TimeOfDay:         domain.TimeNight,
		Movement:          domain.MovementAnalysis{Mode: domain.MovementWalking, AverageSpeed: 3},
		Activity:          domain.ActivitySightseeing,
		AvailableTime:     domain.TimeShort,
		Attention:         domain.AttentionMedium,
		ContentPreference: domain.PreferenceBrief,
		Location:          domain.LocationContext{Environment: domain.EnvironmentUrban},
	}
}

func historyInsights() domain.ContextualInsights {
	return domain.ContextualInsights{
		Suggestions: []domain.ContentSuggestion{
			{Type: domain.ContentHistorical, Priority: domain.PriorityHigh},
			{Type: domain.ContentCultural, Priority: domain.PriorityHigh},
		},
		Confidence: 0.8,
	}
}

func TestRelevance(t *testing.T) {
	env := sightseeing()
	insights := historyInsights()

	score, reasons := Relevance(fenced("abbey", domain.ContentHistorical), env, insights)
	assert.InDelta(t, 0.9, score, 1e-9)
	assert.Len(t, reasons, 3)

	score, _ = Relevance(loose("gallery", domain.ContentCultural), env, insights)
	assert.InDelta(t, 0.5, score, 1e-9)

	rainy := env
	rainy.Weather = &domain.WeatherData{Condition: domain.WeatherRainy}
	score, reasons = Relevance(loose("museum", domain.ContentInformational, "Indoor"), rainy, domain.ContextualInsights{})
	assert.InDelta(t, 0.2, score, 1e-9)
	assert.Contains(t, reasons, "indoor story for rainy weather")

	score, _ = Relevance(loose("museum", domain.ContentInformational, "indoor"), env, domain.ContextualInsights{})
	assert.InDelta(t, 0.1, score, 1e-9, "clear skies favour outdoor stories only")
}

func TestRecommendOrdersByPriorityThenRelevance(t *testing.T) {
	stories := shelf{
		loose("gallery", domain.ContentCultural),
		loose("walks", domain.ContentNatural, "outdoor"),
		fenced("abbey", domain.ContentHistorical),
		loose("tickets", domain.ContentInformational),
	}
	r := NewRanker(stories, nil, nil, nil)

	recs := r.Recommend(sightseeing(), historyInsights(), 10)
	require.Len(t, recs, 2, "natural and informational stories fall below the cut")

	assert.Equal(t, "abbey", recs[0].Content.ID)
	assert.Equal(t, domain.PriorityHigh, recs[0].Priority, "short time withholds urgent")
	assert.Equal(t, domain.DeliveryImmediate, recs[0].Timing)
	assert.Equal(t, "gallery", recs[1].Content.ID)
	assert.Equal(t, domain.PriorityMedium, recs[1].Priority)
	assert.Equal(t, domain.DeliveryScheduled, recs[1].Timing)

	for _, rec := range recs {
		assert.InDelta(t, 0.6*rec.Relevance+0.4*rec.Adapted.Confidence, rec.EstimatedEngagement, 1e-9)
		assert.NotEmpty(t, rec.Adapted.Text)
		assert.NotEmpty(t, rec.Reason)
	}
}

func TestRecommendEqualTierSortsByRelevance(t *testing.T) {
	env := sightseeing()
	env.AvailableTime = domain.TimeLong
	insights := domain.ContextualInsights{Suggestions: []domain.ContentSuggestion{
		{Type: domain.ContentHistorical, Priority: domain.PriorityMedium},
		{Type: domain.ContentCultural, Priority: domain.PriorityLow},
	}}
	stories := shelf{
		loose("b-culture", domain.ContentCultural),
		loose("a-history", domain.ContentHistorical),
		loose("c-culture", domain.ContentCultural),
	}

	recs := NewRanker(stories, nil, nil, nil).Recommend(env, insights, 0)
	require.Len(t, recs, 3)
	ids := []string{recs[0].Content.ID, recs[1].Content.ID, recs[2].Content.ID}
	assert.Equal(t, []string{"a-history", "b-culture", "c-culture"}, ids)

	for i := 1; i < len(recs); i++ {
		prev, cur := recs[i-1], recs[i]
		require.LessOrEqual(t, prev.Priority.Rank(), cur.Priority.Rank())
		if prev.Priority == cur.Priority {
			assert.GreaterOrEqual(t, prev.Relevance, cur.Relevance)
		}
	}
}

func TestRecommendTruncates(t *testing.T) {
	stories := shelf{fenced("a", domain.ContentHistorical), fenced("b", domain.ContentHistorical), fenced("c", domain.ContentCultural)}
	recs := NewRanker(stories, nil, nil, nil).Recommend(sightseeing(), historyInsights(), 2)
	assert.Len(t, recs, 2)
	assert.Empty(t, NewRanker(nil, nil, nil, nil).Recommend(sightseeing(), historyInsights(), 2))
}

func TestRecommendPrefersCachedAdaptation(t *testing.T) {
	env := sightseeing()
	story := fenced("abbey", domain.ContentHistorical)
	story.Remember(domain.AdaptedContent{ContentID: "abbey", Text: "Cached.", ContextHash: env.Hash(), Confidence: 1})

	recs := NewRanker(shelf{story}, nil, nil, nil).Recommend(env, historyInsights(), 1)
	require.Len(t, recs, 1)
	assert.Equal(t, "Cached.", recs[0].Adapted.Text)

	var asked int
	lookup := func(*domain.StoryContent, domain.ContextualEnvironment) (domain.AdaptedContent, bool) {
		asked++
		return domain.AdaptedContent{}, false
	}
	recs = NewRanker(shelf{story}, nil, lookup, nil).Recommend(env, historyInsights(), 1)
	require.Len(t, recs, 1)
	assert.Equal(t, 1, asked)
	assert.NotEqual(t, "Cached.", recs[0].Adapted.Text)
}

func TestTiming(t *testing.T) {
	env := sightseeing()
	assert.Equal(t, domain.DeliveryImmediate, Timing(env, true))
	assert.Equal(t, domain.DeliveryScheduled, Timing(env, false))

	env.Attention = domain.AttentionLow
	assert.Equal(t, domain.DeliveryQueued, Timing(env, true))

	env.Movement.Mode = domain.MovementDriving
	assert.Equal(t, domain.DeliveryOpportunistic, Timing(env, true))
}

func TestPriorityFor(t *testing.T) {
	tests := []struct {
		relevance float64
		avail     domain.AvailableTime
		want      domain.Priority
	}{
		{0.95, domain.TimeLong, domain.PriorityUrgent},
		{0.95, domain.TimeShort, domain.PriorityHigh},
		{0.8, domain.TimeLong, domain.PriorityHigh},
		{0.61, domain.TimeMedium, domain.PriorityHigh},
		{0.6, domain.TimeMedium, domain.PriorityMedium},
		{0.41, domain.TimeMedium, domain.PriorityMedium},
		{0.4, domain.TimeMedium, domain.PriorityLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PriorityFor(tt.relevance, tt.avail), "relevance %.2f %s", tt.relevance, tt.avail)
	}
}
