// Package recommend scores library stories against the current context and
// returns them ready to deliver.
package recommend

import (
	"fmt"
	"sort"
	"strings"

	"wayfarer/internal/domain"
	"wayfarer/internal/logging"
	"wayfarer/internal/transform"
)

// Relevance below this is dropped.
const MinRelevance = 0.3

const (
	geofenceBonus    = 0.4
	engagementWeight = 0.6
)

// Catalog lists the stories that can be recommended.
type Catalog interface {
	All() []*domain.StoryContent
}

// Lookup returns an existing adaptation of story for env.
type Lookup func(story *domain.StoryContent, env domain.ContextualEnvironment) (domain.AdaptedContent, bool)

// StoryMemo looks up the adaptation memoized on the story itself.
func StoryMemo(story *domain.StoryContent, env domain.ContextualEnvironment) (domain.AdaptedContent, bool) {
	return story.Adaptation(env.Hash())
}

// Ranker is stateless apart from its collaborators.
type Ranker struct {
	catalog     Catalog
	transformer *transform.Transformer
	lookup      Lookup
	logger      logging.Logger
}

// NewRanker builds a ranker. A nil lookup falls back to StoryMemo.
func NewRanker(catalog Catalog, transformer *transform.Transformer, lookup Lookup, logger logging.Logger) *Ranker {
	if lookup == nil {
		lookup = StoryMemo
	}
	if transformer == nil {
		transformer = transform.New()
	}
	return &Ranker{
		catalog:     catalog,
		transformer: transformer,
		lookup:      lookup,
		logger:      logging.OrNop(logger),
	}
}

// Recommend ranks the catalog for env. maxResults <= 0 returns every
// story above MinRelevance.
func (r *Ranker) Recommend(env domain.ContextualEnvironment, insights domain.ContextualInsights, maxResults int) []domain.ContentRecommendation {
	if r.catalog == nil {
		return []domain.ContentRecommendation{}
	}

	recs := make([]domain.ContentRecommendation, 0)
	for _, story := range r.catalog.All() {
		score, reasons := Relevance(story, env, insights)
		if score < MinRelevance {
			continue
		}

		adapted, ok := r.lookup(story, env)
		if !ok {
			adapted = r.transformer.QuickAdapt(story, env)
		}

		inFence := story.Geofence != nil && story.Geofence.Contains(env.Coordinate)
		relevance := min(score, 1)
		recs = append(recs, domain.ContentRecommendation{
			Content:             story,
			Adapted:             adapted,
			Relevance:           relevance,
			Timing:              Timing(env, inFence),
			Priority:            PriorityFor(relevance, env.AvailableTime),
			Reason:              strings.Join(reasons, "; "),
			EstimatedEngagement: min(1, engagementWeight*relevance+(1-engagementWeight)*adapted.Confidence),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if a.Relevance != b.Relevance {
			return a.Relevance > b.Relevance
		}
		return a.Content.ID < b.Content.ID
	})
	if maxResults > 0 && len(recs) > maxResults {
		recs = recs[:maxResults]
	}

	r.logger.Debug("recommended %d stories for %s", len(recs), env.Hash())
	return recs
}

// Relevance sums the context bonuses for story and explains each one.
func Relevance(story *domain.StoryContent, env domain.ContextualEnvironment, insights domain.ContextualInsights) (float64, []string) {
	var (
		score   float64
		reasons []string
	)
	contentType := story.Metadata.Type

	if story.Geofence != nil && story.Geofence.Contains(env.Coordinate) {
		score += geofenceBonus
		reasons = append(reasons, "you are here")
	}
	if s, ok := insights.Suggestion(contentType); ok {
		score += suggestionBonus(s.Priority)
		reasons = append(reasons, fmt.Sprintf("%s content suggested (%s)", contentType, s.Priority))
	}
	if bonus := activityBonus(env.Activity, contentType); bonus > 0 {
		score += bonus
		reasons = append(reasons, "fits "+string(env.Activity))
	}
	if bonus := timeBonus(env.TimeOfDay, contentType); bonus > 0 {
		score += bonus
		reasons = append(reasons, "suits the "+string(env.TimeOfDay))
	}
	if theme := weatherTheme(env.WeatherCondition()); theme != "" && story.Metadata.HasTheme(theme) {
		score += 0.1
		reasons = append(reasons, theme+" story for "+string(env.WeatherCondition())+" weather")
	}
	return score, reasons
}

func suggestionBonus(p domain.Priority) float64 {
	switch p {
	case domain.PriorityUrgent, domain.PriorityHigh:
		return 0.3
	case domain.PriorityMedium:
		return 0.2
	case domain.PriorityLow:
		return 0.1
	}
	return 0
}

func activityBonus(a domain.ActivityContext, t domain.ContentType) float64 {
	switch a {
	case domain.ActivitySightseeing:
		switch t {
		case domain.ContentHistorical, domain.ContentCultural:
			return 0.2
		case domain.ContentInformational:
			return 0.1
		}
	case domain.ActivityExercise:
		switch t {
		case domain.ContentNatural:
			return 0.2
		case domain.ContentPersonal:
			return 0.1
		}
	case domain.ActivityCommuting:
		switch t {
		case domain.ContentInformational:
			return 0.2
		case domain.ContentPersonal:
			return 0.1
		}
	case domain.ActivityLeisure:
		switch t {
		case domain.ContentNatural, domain.ContentCultural, domain.ContentHistorical, domain.ContentPersonal:
			return 0.1
		}
	case domain.ActivityShopping:
		switch t {
		case domain.ContentCultural, domain.ContentInformational:
			return 0.1
		}
	case domain.ActivityWork:
		if t == domain.ContentInformational {
			return 0.1
		}
	case domain.ActivityUnknown:
	}
	return 0
}

func timeBonus(tod domain.TimeOfDay, t domain.ContentType) float64 {
	switch tod {
	case domain.TimeDawn:
		if t == domain.ContentNatural {
			return 0.1
		}
	case domain.TimeMorning:
		if t == domain.ContentInformational || t == domain.ContentNatural {
			return 0.1
		}
	case domain.TimeMidday, domain.TimeAfternoon:
		if t == domain.ContentHistorical || t == domain.ContentCultural {
			return 0.1
		}
	case domain.TimeEvening:
		if t == domain.ContentCultural || t == domain.ContentPersonal {
			return 0.1
		}
	case domain.TimeNight:
		if t == domain.ContentPersonal {
			return 0.1
		}
	}
	return 0
}

func weatherTheme(c domain.WeatherCondition) string {
	switch c {
	case domain.WeatherRainy, domain.WeatherStormy:
		return "indoor"
	case domain.WeatherClear:
		return "outdoor"
	case domain.WeatherSnowy:
		return "winter"
	case domain.WeatherFoggy:
		return "mystery"
	case domain.WeatherCloudy, domain.WeatherWindy:
	}
	return ""
}

// Timing decides when the consumer should surface a recommendation.
func Timing(env domain.ContextualEnvironment, inGeofence bool) domain.DeliveryTiming {
	switch {
	case env.Movement.Mode == domain.MovementDriving:
		return domain.DeliveryOpportunistic
	case env.Attention == domain.AttentionLow:
		return domain.DeliveryQueued
	case inGeofence:
		return domain.DeliveryImmediate
	}
	return domain.DeliveryScheduled
}

// PriorityFor maps relevance onto a priority tier. Urgent is withheld when
// the user has little time.
func PriorityFor(relevance float64, avail domain.AvailableTime) domain.Priority {
	switch {
	case relevance > 0.8 && avail != domain.TimeShort:
		return domain.PriorityUrgent
	case relevance > 0.6:
		return domain.PriorityHigh
	case relevance > 0.4:
		return domain.PriorityMedium
	}
	return domain.PriorityLow
}
