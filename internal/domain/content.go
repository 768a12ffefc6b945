package domain

import (
	"strings"
	"sync"
	"time"
)

// ContentMetadata describes a story for ranking and adaptation.
type ContentMetadata struct {
	Type              ContentType   `json:"type" yaml:"type"`
	Themes            []string      `json:"themes" yaml:"themes"`
	Difficulty        int           `json:"difficulty" yaml:"difficulty"` // 1-5
	EstimatedReadTime time.Duration `json:"estimated_read_time" yaml:"estimated_read_time"`
	EmotionalTone     string        `json:"emotional_tone" yaml:"emotional_tone"`
	AgeAppropriate    bool          `json:"age_appropriate" yaml:"age_appropriate"`
}

// HasTheme reports whether the metadata carries theme (case-insensitive).
func (m ContentMetadata) HasTheme(theme string) bool {
	for _, t := range m.Themes {
		if strings.EqualFold(strings.TrimSpace(t), theme) {
			return true
		}
	}
	return false
}

// StoryContent is a library item. Text is immutable; only memoized
// adaptations are added over its lifetime.
type StoryContent struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Text     string          `json:"text"`
	Metadata ContentMetadata `json:"metadata"`
	Geofence *Geofence       `json:"geofence,omitempty"`

	mu          sync.RWMutex
	adaptations map[string]AdaptedContent
}

// NewStoryContent builds a story with an empty memo table.
func NewStoryContent(id, title, text string, metadata ContentMetadata, fence *Geofence) *StoryContent {
	return &StoryContent{
		ID:       id,
		Title:    title,
		Text:     text,
		Metadata: metadata,
		Geofence: fence,
	}
}

// Adaptation returns the memoized adaptation for a context hash.
func (s *StoryContent) Adaptation(contextHash string) (AdaptedContent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	adapted, ok := s.adaptations[contextHash]
	return adapted, ok
}

// Remember memoizes an adaptation under its context hash.
func (s *StoryContent) Remember(adapted AdaptedContent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.adaptations == nil {
		s.adaptations = make(map[string]AdaptedContent)
	}
	s.adaptations[adapted.ContextHash] = adapted
}

// Forget drops the memoized adaptation for contextHash.
func (s *StoryContent) Forget(contextHash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.adaptations, contextHash)
}

// ForgetAll drops every memoized adaptation.
func (s *StoryContent) ForgetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.adaptations)
}

// AdaptationCount returns the number of memoized adaptations.
func (s *StoryContent) AdaptationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.adaptations)
}

// InteractionPoint is a prompt the consumer fires at Offset into delivery.
type InteractionPoint struct {
	Offset           time.Duration   `json:"offset"`
	Type             InteractionType `json:"type"`
	Prompt           string          `json:"prompt"`
	Choices          []string        `json:"choices,omitempty"`
	ExpectedDuration time.Duration   `json:"expected_duration"`
	Optional         bool            `json:"optional"`
}

// AdaptedContent is an immutable adaptation of a story for one context hash.
type AdaptedContent struct {
	ContentID         string             `json:"content_id"`
	Text              string             `json:"text"`
	AudioScript       string             `json:"audio_script,omitempty"`
	EstimatedDuration time.Duration      `json:"estimated_duration"`
	Format            ContentFormat      `json:"format"`
	Length            LengthCategory     `json:"length"`
	Complexity        ComplexityCategory `json:"complexity"`
	InteractionPoints []InteractionPoint `json:"interaction_points"`
	ContextHash       string             `json:"context_hash"`
	Confidence        float64            `json:"confidence"`
	CreatedAt         time.Time          `json:"created_at"`
}

// AdaptationStrategy holds the parameters that drive one adaptation.
type AdaptationStrategy struct {
	ContextHash      string          `json:"context_hash"`
	LengthReduction  float64         `json:"length_reduction"`  // 0-1
	ComplexityDelta  int             `json:"complexity_delta"`  // -2..+2
	InteractionLevel float64         `json:"interaction_level"` // 0-1
	FocusTopics      []string        `json:"focus_topics"`
	AvoidTopics      []string        `json:"avoid_topics"`
	DeliverySpeed    float64         `json:"delivery_speed"`
	FormatPreference []ContentFormat `json:"format_preference"`
}

// Preferences are explicit user overrides layered on top of derived rules.
type Preferences struct {
	Brief       bool `json:"brief"`
	Detailed    bool `json:"detailed"`
	Interactive bool `json:"interactive"`
}

// Key returns a stable cache-key fragment; empty when no preference is set.
func (p Preferences) Key() string {
	var parts []string
	if p.Brief {
		parts = append(parts, "brief")
	}
	if p.Detailed {
		parts = append(parts, "detailed")
	}
	if p.Interactive {
		parts = append(parts, "interactive")
	}
	return strings.Join(parts, "+")
}

// ContentRecommendation pairs a story with its adaptation and delivery plan.
type ContentRecommendation struct {
	Content             *StoryContent  `json:"content"`
	Adapted             AdaptedContent `json:"adapted"`
	Relevance           float64        `json:"relevance"`
	Timing              DeliveryTiming `json:"timing"`
	Priority            Priority       `json:"priority"`
	Reason              string         `json:"reason"`
	EstimatedEngagement float64        `json:"estimated_engagement"`
}

// AdaptationMetrics is a point-in-time snapshot of engine performance.
type AdaptationMetrics struct {
	TotalAdaptations      int64            `json:"total_adaptations"`
	SuccessfulAdaptations int64            `json:"successful_adaptations"`
	AverageConfidence     float64          `json:"average_confidence"`
	AverageLatency        time.Duration    `json:"average_latency"`
	CacheHitRate          float64          `json:"cache_hit_rate"`
	ContextTypeCounts     map[string]int64 `json:"context_type_counts"`
}
