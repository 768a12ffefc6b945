package transform

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"wayfarer/internal/domain"
	"wayfarer/internal/strategy"
)

var (
	sentenceBreak = regexp.MustCompile(`[.!?]+`)
	wordPattern   = regexp.MustCompile(`[\p{L}\p{N}']+`)
)

// Scoring weights for sentence selection.
const (
	positionBonus   = 0.3
	lengthBonus     = 0.2
	keywordBonus    = 0.1
	repetitionCost  = 0.1
	repetitionLimit = 0.3
	edgeFraction    = 0.2
	minUsefulWords  = 8
	maxUsefulWords  = 20
)

// topicKeywords expands a focus tag into words that signal it in prose.
var topicKeywords = map[string][]string{
	string(domain.ContentHistorical):    {"history", "historic", "historical", "century", "ancient", "built", "founded", "war"},
	string(domain.ContentNatural):       {"nature", "tree", "trees", "river", "forest", "bird", "birds", "wildlife", "flower"},
	string(domain.ContentCultural):      {"art", "music", "festival", "culture", "gallery", "theatre", "poet"},
	string(domain.ContentPersonal):      {"you", "your", "remember", "imagine"},
	string(domain.ContentInformational): {"open", "hours", "ticket", "distance", "route"},
}

// SplitSentences breaks text on terminal punctuation and drops empty pieces.
func SplitSentences(text string) []string {
	parts := sentenceBreak.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinSentences is the inverse of SplitSentences for adapted output.
func JoinSentences(sentences []string) string {
	if len(sentences) == 0 {
		return ""
	}
	return strings.Join(sentences, ". ") + "."
}

// KeepCount is the number of sentences retained for a reduction ratio.
func KeepCount(n int, reduction float64) int {
	if n == 0 {
		return 0
	}
	keep := int(math.Ceil(float64(n)*(1-reduction) - 1e-9))
	return max(1, min(n, keep))
}

func words(text string) []string {
	return wordPattern.FindAllString(text, -1)
}

func scoreSentence(sentence string, index, total int, keywords map[string]struct{}) float64 {
	var score float64
	edge := int(math.Ceil(float64(total) * edgeFraction))
	if index < edge || index >= total-edge {
		score += positionBonus
	}

	ws := words(sentence)
	if len(ws) >= minUsefulWords && len(ws) <= maxUsefulWords {
		score += lengthBonus
	}

	unique := make(map[string]struct{}, len(ws))
	for _, w := range ws {
		lw := strings.ToLower(w)
		unique[lw] = struct{}{}
		if _, ok := keywords[lw]; ok {
			score += keywordBonus
		}
	}
	if len(ws) > 0 && 1-float64(len(unique))/float64(len(ws)) > repetitionLimit {
		score -= repetitionCost
	}
	return score
}

// focusKeywords expands focus topics into lower-case prose keywords.
// Strategy tags steer the transformer and contribute no keywords.
func focusKeywords(topics []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, topic := range topics {
		switch topic {
		case strategy.TagKeyPoints, strategy.TagFullNarrative, strategy.TagVisualDescription:
			continue
		}
		if kws, ok := topicKeywords[topic]; ok {
			for _, kw := range kws {
				out[kw] = struct{}{}
			}
			continue
		}
		for _, w := range words(topic) {
			out[strings.ToLower(w)] = struct{}{}
		}
	}
	return out
}

// SelectSentences keeps the best-scoring sentences for the reduction ratio
// and returns them in their original order.
func SelectSentences(sentences []string, reduction float64, focus []string) []string {
	keep := KeepCount(len(sentences), reduction)
	if keep == len(sentences) {
		return append([]string(nil), sentences...)
	}

	keywords := focusKeywords(focus)
	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, s := range sentences {
		ranked[i] = scored{index: i, score: scoreSentence(s, i, len(sentences), keywords)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	picked := make([]int, 0, keep)
	for _, r := range ranked[:keep] {
		picked = append(picked, r.index)
	}
	sort.Ints(picked)

	out := make([]string, 0, keep)
	for _, i := range picked {
		out = append(out, sentences[i])
	}
	return out
}
