// Package transform rewrites a story for one adaptation strategy: it trims
// sentences, shifts vocabulary, picks a delivery format and plans prompts.
package transform

import (
	"math/rand"
	"sync"
	"time"

	"wayfarer/internal/domain"
	"wayfarer/internal/errors"
	"wayfarer/internal/logging"
)

// Transformer is safe for concurrent use; the random source is guarded.
type Transformer struct {
	mu      sync.Mutex
	rng     *rand.Rand
	weights ConfidenceWeights
	now     func() time.Time
	logger  logging.Logger
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithRand injects the random source used for interaction types.
func WithRand(rng *rand.Rand) Option {
	return func(t *Transformer) {
		if rng != nil {
			t.rng = rng
		}
	}
}

// WithConfidenceWeights overrides the confidence blend.
func WithConfidenceWeights(w ConfidenceWeights) Option {
	return func(t *Transformer) { t.weights = w }
}

// WithClock sets the CreatedAt source.
func WithClock(now func() time.Time) Option {
	return func(t *Transformer) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLogger sets the component logger.
func WithLogger(logger logging.Logger) Option {
	return func(t *Transformer) { t.logger = logging.OrNop(logger) }
}

// New returns a transformer seeded with 1 unless WithRand is given.
func New(opts ...Option) *Transformer {
	t := &Transformer{
		rng:     rand.New(rand.NewSource(1)),
		weights: DefaultConfidenceWeights(),
		now:     time.Now,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Adapt produces the adapted form of story for strategy s in env.
func (t *Transformer) Adapt(story *domain.StoryContent, s domain.AdaptationStrategy, env domain.ContextualEnvironment) domain.AdaptedContent {
	sentences := SplitSentences(story.Text)
	selected := SelectSentences(sentences, s.LengthReduction, s.FocusTopics)
	errors.Invariant(len(selected) == KeepCount(len(sentences), s.LengthReduction),
		"transform", "kept %d of %d sentences at reduction %.2f", len(selected), len(sentences), s.LengthReduction)

	adjusted := make([]string, len(selected))
	for i, sentence := range selected {
		adjusted[i] = AdjustComplexity(sentence, s.ComplexityDelta)
	}
	text := JoinSentences(adjusted)
	wordCount := len(words(text))
	duration := EstimateDuration(wordCount, s.DeliverySpeed)

	format := SelectFormat(s.FormatPreference, env)
	errors.Invariant(env.Movement.Mode != domain.MovementDriving || format == domain.FormatAudio,
		"transform", "format %s selected while driving", format)

	t.mu.Lock()
	points := InteractionPoints(len(adjusted), s.InteractionLevel, duration, env, t.rng)
	t.mu.Unlock()

	hash := s.ContextHash
	if hash == "" {
		hash = env.Hash()
	}
	adapted := domain.AdaptedContent{
		ContentID:         story.ID,
		Text:              text,
		EstimatedDuration: duration,
		Format:            format,
		Length:            LengthCategory(wordCount, duration),
		Complexity:        ComplexityCategory(s.ComplexityDelta),
		InteractionPoints: points,
		ContextHash:       hash,
		Confidence:        Confidence(story.Text, text, format, s, env, t.weights),
		CreatedAt:         t.now(),
	}
	if format == domain.FormatAudio {
		adapted.AudioScript = AudioScript(adjusted, env.Location.Environment, s.FocusTopics)
	}

	t.logger.Debug("adapted %s: %d/%d sentences, %s, %s, confidence=%.2f",
		story.ID, len(adjusted), len(sentences), format, duration, adapted.Confidence)
	return adapted
}

// MinimalStrategy trims by available time only, with no vocabulary shift
// and no prompts.
func MinimalStrategy(env domain.ContextualEnvironment) domain.AdaptationStrategy {
	reduction := 0.0
	switch env.AvailableTime {
	case domain.TimeShort:
		reduction = 0.6
	case domain.TimeMedium:
		reduction = 0.3
	case domain.TimeLong:
	}
	speed := 1.0
	if env.Movement.Mode == domain.MovementDriving {
		speed = 0.9
	}
	return domain.AdaptationStrategy{
		ContextHash:      env.Hash(),
		LengthReduction:  reduction,
		DeliverySpeed:    speed,
		FocusTopics:      []string{},
		AvoidTopics:      []string{},
		FormatPreference: []domain.ContentFormat{domain.FormatAudio},
	}
}

// QuickAdapt runs the pipeline with MinimalStrategy. The ranker uses it for
// stories that have no cached adaptation.
func (t *Transformer) QuickAdapt(story *domain.StoryContent, env domain.ContextualEnvironment) domain.AdaptedContent {
	return t.Adapt(story, MinimalStrategy(env), env)
}
