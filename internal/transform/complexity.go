package transform

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"wayfarer/internal/domain"
)

type substitution struct {
	pattern *regexp.Regexp
	with    string
}

func table(pairs ...string) []substitution {
	out := make([]substitution, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, substitution{
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(pairs[i]) + `\b`),
			with:    pairs[i+1],
		})
	}
	return out
}

var (
	simpler = table(
		"however", "but",
		"furthermore", "but",
		"additionally", "also",
		"therefore", "so",
		"consequently", "so",
		"nevertheless", "still",
		"subsequently", "later",
		"utilize", "use",
		"utilized", "used",
		"approximately", "about",
		"commence", "start",
		"commenced", "started",
		"demonstrate", "show",
		"demonstrates", "shows",
		"assist", "help",
		"purchase", "buy",
		"construct", "build",
		"constructed", "built",
		"numerous", "many",
		"obtain", "get",
		"residence", "home",
	)
	simplerPhrases = table(
		"due to the fact that", "because",
		"in order to", "to",
		"a large number of", "many",
		"at this point in time", "now",
		"prior to", "before",
		"in the vicinity of", "near",
	)
	formal = table(
		"but", "however",
		"also", "additionally",
		"use", "utilize",
		"used", "utilized",
		"show", "demonstrate",
		"shows", "demonstrates",
		"help", "assist",
		"start", "commence",
		"started", "commenced",
		"buy", "purchase",
		"built", "constructed",
		"many", "numerous",
		"get", "obtain",
	)
	formalPhrases = table(
		"because", "owing to the fact that",
		"before", "prior to",
		"near", "in the vicinity of",
		"later", "subsequently",
	)
)

// AdjustComplexity rewrites connectives and verbs toward simpler (negative
// delta) or more formal (positive delta) wording. A second tier of phrase
// rewrites applies when the magnitude is at least 2.
func AdjustComplexity(text string, delta int) string {
	switch {
	case delta < 0:
		if delta <= -2 {
			text = apply(text, simplerPhrases)
		}
		return apply(text, simpler)
	case delta > 0:
		text = apply(text, formal)
		if delta >= 2 {
			text = apply(text, formalPhrases)
		}
		return text
	}
	return text
}

func apply(text string, subs []substitution) string {
	for _, s := range subs {
		with := s.with
		text = s.pattern.ReplaceAllStringFunc(text, func(match string) string {
			return matchCase(match, with)
		})
	}
	return text
}

func matchCase(original, replacement string) string {
	first, _ := utf8.DecodeRuneInString(original)
	if !unicode.IsUpper(first) {
		return replacement
	}
	r, size := utf8.DecodeRuneInString(replacement)
	return strings.ToUpper(string(r)) + replacement[size:]
}

// ComplexityCategory buckets a complexity delta.
func ComplexityCategory(delta int) domain.ComplexityCategory {
	switch {
	case delta <= -1:
		return domain.ComplexitySimple
	case delta == 0:
		return domain.ComplexityModerate
	case delta == 1:
		return domain.ComplexityComplex
	}
	return domain.ComplexityExpert
}
