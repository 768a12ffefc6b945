// Package diff renders word-level differences between a story and its
// adaptation.
package diff

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Generator produces word diffs.
type Generator struct {
	colorEnabled bool
}

// NewGenerator creates a generator; colorEnabled adds ANSI colours to the
// deletion and insertion markers.
func NewGenerator(colorEnabled bool) *Generator {
	return &Generator{colorEnabled: colorEnabled}
}

// Result is a rendered word diff with change counts.
type Result struct {
	Text         string
	AddedWords   int
	RemovedWords int
}

// Words diffs original against adapted one word at a time. Removed runs
// render as [-...-] and inserted runs as {+...+}.
func (g *Generator) Words(original, adapted string) *Result {
	if strings.Join(strings.Fields(original), " ") == strings.Join(strings.Fields(adapted), " ") {
		return &Result{Text: strings.Join(strings.Fields(original), " ")}
	}

	dmp := diffmatchpatch.New()
	// One word per line lets the line-mode diff work on whole words.
	a, b, words := dmp.DiffLinesToChars(perLine(original), perLine(adapted))
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(a, b, false))
	diffs = dmp.DiffCharsToLines(diffs, words)

	res := &Result{}
	var sb strings.Builder
	for _, d := range diffs {
		run := strings.Fields(d.Text)
		if len(run) == 0 {
			continue
		}
		text := strings.Join(run, " ")
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			res.RemovedWords += len(run)
			sb.WriteString(g.colorize("[-"+text+"-]", color.FgRed))
		case diffmatchpatch.DiffInsert:
			res.AddedWords += len(run)
			sb.WriteString(g.colorize("{+"+text+"+}", color.FgGreen))
		case diffmatchpatch.DiffEqual:
			sb.WriteString(text)
		}
	}
	res.Text = sb.String()
	return res
}

// FormatSummary returns a short description of the change counts.
func (r *Result) FormatSummary() string {
	if r.AddedWords == 0 && r.RemovedWords == 0 {
		return "No changes"
	}
	var parts []string
	if r.AddedWords > 0 {
		parts = append(parts, fmt.Sprintf("+%d words", r.AddedWords))
	}
	if r.RemovedWords > 0 {
		parts = append(parts, fmt.Sprintf("-%d words", r.RemovedWords))
	}
	return strings.Join(parts, ", ")
}

func (g *Generator) colorize(text string, attr color.Attribute) string {
	if !g.colorEnabled {
		return text
	}
	return color.New(attr).Sprint(text)
}

func perLine(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Join(fields, "\n") + "\n"
}
