package transform

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"wayfarer/internal/domain"
)

// WordsPerMinute is the narration rate at delivery speed 1.0.
const WordsPerMinute = 160

// EstimateDuration converts a word count into whole seconds of narration.
func EstimateDuration(wordCount int, speed float64) time.Duration {
	if speed <= 0 {
		speed = 1
	}
	secs := math.Ceil(float64(wordCount) * 60 / WordsPerMinute / speed)
	return time.Duration(secs) * time.Second
}

// LengthCategory buckets adapted content; either bound is enough to land in
// the smaller bucket.
func LengthCategory(wordCount int, d time.Duration) domain.LengthCategory {
	switch {
	case wordCount < 50 || d < 30*time.Second:
		return domain.LengthMicro
	case wordCount < 150 || d < 90*time.Second:
		return domain.LengthShort
	case wordCount < 400 || d < 240*time.Second:
		return domain.LengthMedium
	case wordCount < 800 || d < 480*time.Second:
		return domain.LengthLong
	}
	return domain.LengthExtended
}

// Appropriate reports whether format f may be delivered in env.
func Appropriate(f domain.ContentFormat, env domain.ContextualEnvironment) bool {
	mode := env.Movement.Mode
	switch f {
	case domain.FormatAudio:
		return true
	case domain.FormatVisual:
		return mode != domain.MovementDriving && env.Attention != domain.AttentionLow && env.TimeOfDay != domain.TimeNight
	case domain.FormatInteractive:
		return mode == domain.MovementStationary && env.Attention == domain.AttentionHigh && env.AvailableTime != domain.TimeShort
	case domain.FormatText:
		return mode == domain.MovementStationary && env.Attention != domain.AttentionLow
	}
	return false
}

// SelectFormat picks the first appropriate preferred format. Driving is
// always audio.
func SelectFormat(preferred []domain.ContentFormat, env domain.ContextualEnvironment) domain.ContentFormat {
	if env.Movement.Mode == domain.MovementDriving {
		return domain.FormatAudio
	}
	for _, f := range preferred {
		if Appropriate(f, env) {
			return f
		}
	}
	return domain.FormatAudio
}

// Interaction type thresholds, compared against one roll in [0,1) per point.
const (
	ChoiceThreshold   = 0.4
	QuestionThreshold = 0.7
	interactionRate   = 0.3
)

var storyChoices = []string{"Tell me more", "Skip ahead", "Save for later"}

// InteractionPoints spaces floor(sentences × level × 0.3) optional prompts
// evenly across the narration.
func InteractionPoints(sentences int, level float64, total time.Duration, env domain.ContextualEnvironment, rng *rand.Rand) []domain.InteractionPoint {
	count := int(math.Floor(float64(sentences) * level * interactionRate))
	if count <= 0 {
		return []domain.InteractionPoint{}
	}

	points := make([]domain.InteractionPoint, 0, count)
	step := total / time.Duration(count+1)
	for i := 1; i <= count; i++ {
		roll := rng.Float64()
		point := domain.InteractionPoint{Offset: step * time.Duration(i), Optional: true}
		switch {
		case env.Movement.Mode == domain.MovementStationary && roll < ChoiceThreshold:
			point.Type = domain.InteractionChoice
			point.Prompt = "What would you like to do next?"
			point.Choices = append([]string(nil), storyChoices...)
			point.ExpectedDuration = 10 * time.Second
		case env.Attention == domain.AttentionHigh && roll < QuestionThreshold:
			point.Type = domain.InteractionQuestion
			point.Prompt = "What do you notice around you that connects to this story?"
			point.ExpectedDuration = 15 * time.Second
		default:
			point.Type = domain.InteractionPause
			point.Prompt = "Take a moment to look around."
			point.ExpectedDuration = 5 * time.Second
		}
		points = append(points, point)
	}
	return points
}

var (
	spokenSymbols = strings.NewReplacer("&", "and", "%", " percent")
	spokenWords   = table(
		"km/h", "kilometres per hour",
		"km", "kilometres",
		"approx", "approximately",
		"etc", "et cetera",
		"vs", "versus",
		"St", "Saint",
		"Dr", "Doctor",
	)
)

var emphasisWords = map[string]struct{}{
	"oldest": {}, "first": {}, "only": {}, "never": {}, "famous": {},
	"remarkable": {}, "important": {}, "largest": {}, "secret": {},
}

// AmbientCue is the sound bed announced before narration.
func AmbientCue(env domain.EnvironmentType) string {
	switch env {
	case domain.EnvironmentForest:
		return "[ambient: birdsong and rustling leaves]"
	case domain.EnvironmentCoastal:
		return "[ambient: waves on the shore]"
	case domain.EnvironmentMountain:
		return "[ambient: high wind]"
	case domain.EnvironmentPark:
		return "[ambient: distant voices and birds]"
	case domain.EnvironmentUrban:
		return "[ambient: soft city hum]"
	case domain.EnvironmentSuburban:
		return "[ambient: quiet street]"
	case domain.EnvironmentRural:
		return "[ambient: open fields and breeze]"
	}
	return "[ambient: none]"
}

// AudioScript renders sentences for narration: an ambient cue, ellipsis
// pauses between sentences, *emphasis* and spoken forms of abbreviations.
func AudioScript(sentences []string, env domain.EnvironmentType, focus []string) string {
	emphasis := focusKeywords(focus)
	for w := range emphasisWords {
		emphasis[w] = struct{}{}
	}

	spoken := make([]string, 0, len(sentences))
	for _, s := range sentences {
		s = apply(spokenSymbols.Replace(s), spokenWords)
		s = wordPattern.ReplaceAllStringFunc(s, func(w string) string {
			if _, ok := emphasis[strings.ToLower(w)]; ok {
				return "*" + w + "*"
			}
			return w
		})
		spoken = append(spoken, s)
	}

	var b strings.Builder
	b.WriteString(AmbientCue(env))
	if len(spoken) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(spoken, "... "))
		b.WriteString("...")
	}
	return b.String()
}
