package library

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/domain"
	wferrors "wayfarer/internal/errors"
)

var abbey = domain.Coordinate{Latitude: 51.4994, Longitude: -0.1273}

func TestAddValidatesAndAssignsIDs(t *testing.T) {
	s := NewStore(nil)

	id, err := s.Add(domain.NewStoryContent("", "Untitled", "Some text.", domain.ContentMetadata{Type: domain.ContentPersonal}, nil))
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err, "generated id %q", id)

	_, err = s.Add(domain.NewStoryContent("x", "Empty", "   ", domain.ContentMetadata{Type: domain.ContentPersonal}, nil))
	assert.ErrorIs(t, err, ErrInvalidStory)
	_, err = s.Add(domain.NewStoryContent("x", "Odd", "Text.", domain.ContentMetadata{Type: "gossip"}, nil))
	assert.ErrorIs(t, err, ErrInvalidStory)
	_, err = s.Add(domain.NewStoryContent("x", "Fence", "Text.", domain.ContentMetadata{Type: domain.ContentPersonal}, &domain.Geofence{Center: abbey}))
	assert.ErrorIs(t, err, ErrInvalidStory)
	_, err = s.Add(nil)
	assert.ErrorIs(t, err, ErrInvalidStory)

	assert.Equal(t, 1, s.Len())
}

func TestGetAllRemove(t *testing.T) {
	s := NewStore(nil)
	for _, id := range []string{"c", "a", "b"} {
		_, err := s.Add(domain.NewStoryContent(id, id, "Text.", domain.ContentMetadata{Type: domain.ContentCultural}, nil))
		require.NoError(t, err)
	}

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "c", all[2].ID)

	story, ok := s.Get("b")
	require.True(t, ok)
	assert.Equal(t, "b", story.Title)

	assert.True(t, s.Remove("b"))
	assert.False(t, s.Remove("b"))
	_, ok = s.Get("b")
	assert.False(t, ok)
}

func TestLoadYAMLBundle(t *testing.T) {
	s := NewStore(nil)
	n, err := s.LoadFile(filepath.Join("testdata", "westminster.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	story, ok := s.Get("abbey")
	require.True(t, ok)
	assert.Equal(t, domain.ContentHistorical, story.Metadata.Type)
	assert.Equal(t, 2*time.Minute, story.Metadata.EstimatedReadTime)
	assert.True(t, story.Metadata.HasTheme("royalty"))
	require.NotNil(t, story.Geofence)
	assert.InDelta(t, 200, story.Geofence.Radius, 1e-9)
	assert.False(t, strings.HasSuffix(story.Text, "\n"))

	var gallery *domain.StoryContent
	for _, st := range s.All() {
		if st.Title == "Rainy Day Gallery" {
			gallery = st
		}
	}
	require.NotNil(t, gallery)
	assert.NotEmpty(t, gallery.ID)
}

func TestLoadYAMLRejectsUnknownFields(t *testing.T) {
	s := NewStore(nil)
	_, err := s.LoadYAML(strings.NewReader("stories:\n  - title: x\n    txt: typo\n"))
	assert.Error(t, err)

	n, err := s.LoadYAML(strings.NewReader(""))
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestParseHTML(t *testing.T) {
	s := NewStore(nil)
	n, err := s.LoadFile(filepath.Join("testdata", "river.html"))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	story, ok := s.Get("river-walk")
	require.True(t, ok)
	assert.Equal(t, "Along the River", story.Title)
	assert.Equal(t, "Herons wait patiently on the mud at low tide. The river has carried boats past this bank for centuries.", story.Text)
	assert.Equal(t, domain.ContentNatural, story.Metadata.Type)
	assert.Equal(t, []string{"outdoor", "water"}, story.Metadata.Themes)
	assert.Equal(t, "calm", story.Metadata.EmotionalTone)
	assert.Equal(t, time.Minute, story.Metadata.EstimatedReadTime)
	require.NotNil(t, story.Geofence)
	assert.InDelta(t, 300, story.Geofence.Radius, 1e-9)
}

func TestParseHTMLErrors(t *testing.T) {
	_, err := ParseHTML(strings.NewReader("<html><body><h1>Nothing</h1></body></html>"))
	assert.ErrorIs(t, err, ErrInvalidStory)

	_, err = ParseHTML(strings.NewReader(`<html><head><meta name="wayfarer:lat" content="95"><meta name="wayfarer:lng" content="0"></head><body><p>Text</p></body></html>`))
	assert.ErrorIs(t, err, wferrors.ErrInvalidLocation)

	story, err := ParseHTML(strings.NewReader("<title>Plain</title><p>Only a paragraph.</p>"))
	require.NoError(t, err)
	assert.Equal(t, "Plain", story.Title)
	assert.Equal(t, domain.ContentInformational, story.Metadata.Type)
	assert.Nil(t, story.Geofence)
}

func TestLoadPathWalksDirectory(t *testing.T) {
	s := NewStore(nil)
	n, err := s.LoadPath("testdata")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, s.Len())

	_, err = s.LoadPath(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}

func TestNearbyPlacesFromGeofencesAndExtras(t *testing.T) {
	s := NewStore(nil)
	_, err := s.LoadPath("testdata")
	require.NoError(t, err)

	places, err := s.NearbyPlaces(context.Background(), abbey, 500)
	require.NoError(t, err)
	assert.InDelta(t, 12, places.Elevation, 1e-9)

	var types []domain.POIType
	for _, poi := range places.POIs {
		types = append(types, poi.Type)
	}
	assert.Equal(t, []domain.POIType{domain.POIHistorical, domain.POICommercial, domain.POITransit}, types)
	assert.Equal(t, "The Abbey", places.POIs[0].Name)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.NearbyPlaces(ctx, abbey, 500)
	assert.ErrorIs(t, err, context.Canceled)
}
