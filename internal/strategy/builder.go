// Package strategy turns a context snapshot into the parameters that drive
// one adaptation.
package strategy

import (
	"fmt"
	"slices"
	"sort"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"wayfarer/internal/domain"
	"wayfarer/internal/logging"
)

// Topic tags shared with the transformer.
const (
	TagKeyPoints         = "key-points"
	TagFullNarrative     = "full-narrative"
	TagVisualDescription = "visual-description"
)

const defaultCacheSize = 256

type base struct {
	reduction   float64
	complexity  int
	interaction float64
	speed       float64
	formats     []domain.ContentFormat
}

func movementBase(mode domain.MovementMode) base {
	switch mode {
	case domain.MovementDriving:
		return base{0.7, -1, 0, 0.9, []domain.ContentFormat{domain.FormatAudio}}
	case domain.MovementCycling:
		return base{0.5, -1, 0.1, 0.95, []domain.ContentFormat{domain.FormatAudio, domain.FormatVisual}}
	case domain.MovementWalking:
		return base{0.2, 0, 0.4, 1.0, []domain.ContentFormat{domain.FormatAudio, domain.FormatVisual, domain.FormatText}}
	case domain.MovementStationary:
		return base{0, 0, 0.8, 1.0, []domain.ContentFormat{domain.FormatInteractive, domain.FormatVisual, domain.FormatText, domain.FormatAudio}}
	}
	return base{0.3, 0, 0.2, 1.0, []domain.ContentFormat{domain.FormatAudio}}
}

// Builder derives strategies and memoizes them per context hash and
// preference set.
type Builder struct {
	cache  *lru.Cache[string, domain.AdaptationStrategy]
	logger logging.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewBuilder returns a builder caching up to size strategies.
func NewBuilder(size int, logger logging.Logger) (*Builder, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, domain.AdaptationStrategy](size)
	if err != nil {
		return nil, fmt.Errorf("strategy cache: %w", err)
	}
	return &Builder{cache: cache, logger: logging.OrNop(logger)}, nil
}

// CacheKey identifies the strategy for a context and preference set.
func CacheKey(env domain.ContextualEnvironment, prefs domain.Preferences) string {
	return env.Hash() + "|" + prefs.Key()
}

// Build returns the strategy for env, from cache when the context hash and
// preferences were seen before. Callers receive their own copy.
func (b *Builder) Build(env domain.ContextualEnvironment, insights domain.ContextualInsights, prefs domain.Preferences) domain.AdaptationStrategy {
	key := CacheKey(env, prefs)
	if cached, ok := b.cache.Get(key); ok {
		b.hits.Add(1)
		return clone(cached)
	}
	b.misses.Add(1)

	s := Derive(env, insights, prefs)
	b.cache.Add(key, s)
	b.logger.Debug("built strategy %s: reduction=%.2f complexity=%d interaction=%.2f formats=%v",
		key, s.LengthReduction, s.ComplexityDelta, s.InteractionLevel, s.FormatPreference)
	return clone(s)
}

// Stats returns cache hit and miss counts.
func (b *Builder) Stats() (hits, misses int64) {
	return b.hits.Load(), b.misses.Load()
}

// Purge empties the cache.
func (b *Builder) Purge() {
	b.cache.Purge()
	b.hits.Store(0)
	b.misses.Store(0)
}

// Derive applies the rule table without caching. Rules run in order and
// only tighten earlier values; the driving clamp runs last so nothing can
// relax it.
func Derive(env domain.ContextualEnvironment, insights domain.ContextualInsights, prefs domain.Preferences) domain.AdaptationStrategy {
	mode := env.Movement.Mode
	b := movementBase(mode)
	s := domain.AdaptationStrategy{
		ContextHash:      env.Hash(),
		LengthReduction:  b.reduction,
		ComplexityDelta:  b.complexity,
		InteractionLevel: b.interaction,
		DeliverySpeed:    b.speed,
		FormatPreference: slices.Clone(b.formats),
	}
	var focus, avoid []string

	switch env.AvailableTime {
	case domain.TimeShort:
		s.LengthReduction = max(s.LengthReduction, 0.6)
		focus = append(focus, TagKeyPoints)
		avoid = append(avoid, TagFullNarrative)
	case domain.TimeMedium:
		s.LengthReduction = max(s.LengthReduction, 0.3)
		focus = append(focus, TagKeyPoints)
	case domain.TimeLong:
		focus = append(focus, TagFullNarrative)
	}

	switch env.Attention {
	case domain.AttentionLow:
		s.ComplexityDelta--
		s.InteractionLevel = min(s.InteractionLevel, 0.2)
	case domain.AttentionHigh:
		s.ComplexityDelta++
		s.InteractionLevel = max(s.InteractionLevel, 0.6)
	case domain.AttentionMedium:
	}

	if prefs.Brief {
		s.LengthReduction = max(s.LengthReduction, 0.5)
		s.InteractionLevel = min(s.InteractionLevel, 0.3)
	}
	if prefs.Detailed {
		s.LengthReduction = min(s.LengthReduction, 0.2)
		s.ComplexityDelta = max(s.ComplexityDelta, 0)
	}
	if prefs.Interactive {
		s.InteractionLevel = max(s.InteractionLevel, 0.7)
		s.FormatPreference = prepend(s.FormatPreference, domain.FormatInteractive)
	}

	focus = append(focus, suggestedTopics(insights)...)
	if mode == domain.MovementDriving {
		avoid = append(avoid, TagVisualDescription)
	}

	if mode == domain.MovementDriving {
		s.LengthReduction = max(s.LengthReduction, 0.7)
		s.ComplexityDelta = min(s.ComplexityDelta, -1)
		s.InteractionLevel = 0
		s.DeliverySpeed = min(s.DeliverySpeed, 0.9)
		s.FormatPreference = []domain.ContentFormat{domain.FormatAudio}
	}

	s.LengthReduction = clamp(s.LengthReduction, 0, 1)
	s.InteractionLevel = clamp(s.InteractionLevel, 0, 1)
	s.ComplexityDelta = max(-2, min(2, s.ComplexityDelta))
	s.FocusTopics = dedupe(focus)
	s.AvoidTopics = dedupe(avoid)
	return s
}

func suggestedTopics(insights domain.ContextualInsights) []string {
	ordered := append([]domain.ContentSuggestion(nil), insights.Suggestions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority.Rank() < ordered[j].Priority.Rank()
	})
	topics := make([]string, 0, len(ordered))
	for _, s := range ordered {
		topics = append(topics, string(s.Type))
	}
	return topics
}

func prepend(formats []domain.ContentFormat, f domain.ContentFormat) []domain.ContentFormat {
	out := []domain.ContentFormat{f}
	for _, existing := range formats {
		if existing != f {
			out = append(out, existing)
		}
	}
	return out
}

func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

func clone(s domain.AdaptationStrategy) domain.AdaptationStrategy {
	s.FocusTopics = slices.Clone(s.FocusTopics)
	s.AvoidTopics = slices.Clone(s.AvoidTopics)
	s.FormatPreference = slices.Clone(s.FormatPreference)
	return s
}
