package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"wayfarer/internal/diff"
	"wayfarer/internal/domain"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func field(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "  %-18s %v\n", gray(label), value)
}

func renderEnvironment(w io.Writer, env domain.ContextualEnvironment, insights domain.ContextualInsights) {
	fmt.Fprintln(w, bold("Context"), gray(env.Hash()))
	field(w, "time", fmt.Sprintf("%s, %s", env.TimeOfDay, env.Season))
	field(w, "movement", fmt.Sprintf("%s at %.0f km/h", env.Movement.Mode, env.Movement.AverageSpeed))
	field(w, "activity", env.Activity)
	field(w, "surroundings", env.Location.Environment)
	if env.Weather != nil {
		field(w, "weather", fmt.Sprintf("%s, %.1f°C", env.Weather.Condition, env.Weather.Temperature))
	}
	field(w, "available time", env.AvailableTime)
	field(w, "attention", env.Attention)
	field(w, "content", env.ContentPreference)
	if !env.WeatherResolved {
		fmt.Fprintln(w, yellow("  weather unavailable, using defaults"))
	}
	if !env.LocationResolved {
		fmt.Fprintln(w, yellow("  places unavailable, using defaults"))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s %s\n", bold("Insights"), insights.PrimaryContext, gray(fmt.Sprintf("(confidence %.2f)", insights.Confidence)))
	for _, s := range insights.Suggestions {
		fmt.Fprintf(w, "  %s %-14s %s\n", cyan(string(s.Priority)), s.Type, gray(s.Reason))
	}
	for _, r := range insights.RiskFactors {
		fmt.Fprintf(w, "  %s %s\n", red("risk"), r)
	}
}

func renderAdapted(w io.Writer, story *domain.StoryContent, adapted *domain.AdaptedContent) {
	fmt.Fprintln(w, bold(story.Title), gray(adapted.ContentID))
	field(w, "format", adapted.Format)
	field(w, "length", fmt.Sprintf("%s (%s)", adapted.Length, adapted.EstimatedDuration.Round(time.Second)))
	field(w, "complexity", adapted.Complexity)
	field(w, "confidence", confidenceText(adapted.Confidence))
	fmt.Fprintln(w)
	if adapted.AudioScript != "" {
		fmt.Fprintln(w, adapted.AudioScript)
	} else {
		fmt.Fprintln(w, adapted.Text)
	}
	for _, p := range adapted.InteractionPoints {
		line := fmt.Sprintf("  @%s %s: %s", p.Offset.Round(time.Second), p.Type, p.Prompt)
		if len(p.Choices) > 0 {
			line += " [" + strings.Join(p.Choices, " | ") + "]"
		}
		fmt.Fprintln(w, cyan(line))
	}
}

func confidenceText(c float64) string {
	s := fmt.Sprintf("%.2f", c)
	switch {
	case c >= 0.7:
		return green(s)
	case c >= 0.4:
		return yellow(s)
	}
	return red(s)
}

// renderDiff prints a word-level diff from the original to the adapted text.
func renderDiff(w io.Writer, original, adapted string) {
	res := diff.NewGenerator(!color.NoColor).Words(original, adapted)
	fmt.Fprintln(w, res.Text)
	fmt.Fprintln(w, gray(res.FormatSummary()))
}
