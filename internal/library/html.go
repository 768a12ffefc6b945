package library

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"wayfarer/internal/domain"
	wferrors "wayfarer/internal/errors"
)

const readingWordsPerMinute = 200

// ParseHTML turns an article page into a story. Story fields come from
// <meta name="wayfarer:..."> tags: id, type, themes (comma separated),
// tone, difficulty, lat, lng and radius. The body is the text of the
// paragraphs inside <article>, or of every paragraph when there is none.
func ParseHTML(r io.Reader) (*domain.StoryContent, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, nav, footer, header, aside, iframe").Remove()

	meta := func(name string) string {
		v, _ := doc.Find(`meta[name="wayfarer:` + name + `"]`).Attr("content")
		return strings.TrimSpace(v)
	}

	title := meta("title")
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").Text())
	}

	paragraphs := doc.Find("article p")
	if paragraphs.Length() == 0 {
		paragraphs = doc.Find("p")
	}
	var parts []string
	paragraphs.Each(func(_ int, p *goquery.Selection) {
		if text := strings.Join(strings.Fields(p.Text()), " "); text != "" {
			parts = append(parts, text)
		}
	})
	text := strings.Join(parts, " ")
	if text == "" {
		return nil, fmt.Errorf("%w: no paragraphs in %q", ErrInvalidStory, title)
	}

	contentType := domain.ContentType(strings.ToLower(meta("type")))
	if contentType == "" {
		contentType = domain.ContentInformational
	}
	metadata := domain.ContentMetadata{
		Type:              contentType,
		Themes:            splitList(meta("themes")),
		Difficulty:        atoiOr(meta("difficulty"), 2),
		EstimatedReadTime: readTime(text),
		EmotionalTone:     meta("tone"),
		AgeAppropriate:    true,
	}

	fence, err := geofence(meta("lat"), meta("lng"), meta("radius"))
	if err != nil {
		return nil, err
	}
	return domain.NewStoryContent(meta("id"), title, text, metadata, fence), nil
}

func geofence(lat, lng, radius string) (*domain.Geofence, error) {
	if lat == "" && lng == "" {
		return nil, nil
	}
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: latitude %q", ErrInvalidStory, lat)
	}
	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: longitude %q", ErrInvalidStory, lng)
	}
	if la < -90 || la > 90 || ln < -180 || ln > 180 {
		return nil, fmt.Errorf("%w: %.4f,%.4f", wferrors.ErrInvalidLocation, la, ln)
	}
	r := 200.0
	if radius != "" {
		if r, err = strconv.ParseFloat(radius, 64); err != nil {
			return nil, fmt.Errorf("%w: radius %q", ErrInvalidStory, radius)
		}
	}
	return &domain.Geofence{Center: domain.Coordinate{Latitude: la, Longitude: ln}, Radius: r}, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func atoiOr(s string, fallback int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return fallback
}

func readTime(text string) time.Duration {
	minutes := math.Ceil(float64(len(strings.Fields(text))) / readingWordsPerMinute)
	return time.Duration(minutes) * time.Minute
}
