// Package library is an in-memory story repository. Stories come from YAML
// bundles or HTML articles, and their geofences double as points of
// interest for location resolution.
package library

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"wayfarer/internal/domain"
	"wayfarer/internal/location"
	"wayfarer/internal/logging"
)

// ErrInvalidStory is returned when a story cannot be added.
var ErrInvalidStory = errors.New("invalid story")

// Store holds stories and extra places. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	stories   map[string]*domain.StoryContent
	places    []location.Place
	elevation float64
	logger    logging.Logger
}

// NewStore returns an empty store.
func NewStore(logger logging.Logger) *Store {
	return &Store{
		stories: make(map[string]*domain.StoryContent),
		logger:  logging.OrNop(logger),
	}
}

// Add validates story, assigns an id when it has none and stores it,
// replacing any story with the same id. It returns the id.
func (s *Store) Add(story *domain.StoryContent) (string, error) {
	if story == nil {
		return "", fmt.Errorf("%w: nil story", ErrInvalidStory)
	}
	if strings.TrimSpace(story.Text) == "" {
		return "", fmt.Errorf("%w: %q has no text", ErrInvalidStory, story.Title)
	}
	if !story.Metadata.Type.Valid() {
		return "", fmt.Errorf("%w: unknown content type %q", ErrInvalidStory, story.Metadata.Type)
	}
	if story.Geofence != nil && story.Geofence.Radius <= 0 {
		return "", fmt.Errorf("%w: geofence radius must be positive", ErrInvalidStory)
	}
	if story.ID == "" {
		story.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.stories[story.ID]; exists {
		s.logger.Info("replacing story %s", story.ID)
	}
	s.stories[story.ID] = story
	return story.ID, nil
}

// Remove deletes a story and reports whether it existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stories[id]; !ok {
		return false
	}
	delete(s.stories, id)
	return true
}

// Get returns the story with id.
func (s *Store) Get(id string) (*domain.StoryContent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	story, ok := s.stories[id]
	return story, ok
}

// All returns every story ordered by id.
func (s *Store) All() []*domain.StoryContent {
	s.mu.RLock()
	out := make([]*domain.StoryContent, 0, len(s.stories))
	for _, story := range s.stories {
		out = append(out, story)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of stories.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stories)
}

// AddPlaces registers points of interest that have no story of their own.
func (s *Store) AddPlaces(places ...location.Place) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.places = append(s.places, places...)
}

// SetElevation sets the ground elevation reported with nearby places.
func (s *Store) SetElevation(metres float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elevation = metres
}

// NearbyPlaces implements location.PlaceProvider over story geofences and
// the extra places.
func (s *Store) NearbyPlaces(ctx context.Context, at domain.Coordinate, radius float64) (location.Places, error) {
	if err := ctx.Err(); err != nil {
		return location.Places{}, err
	}

	s.mu.RLock()
	candidates := append([]location.Place(nil), s.places...)
	elevation := s.elevation
	for _, story := range s.stories {
		if story.Geofence == nil {
			continue
		}
		poi, ok := poiType(story.Metadata.Type)
		if !ok {
			continue
		}
		candidates = append(candidates, location.Place{
			Name:      story.Title,
			Type:      poi,
			At:        story.Geofence.Center,
			Relevance: 0.8,
		})
	}
	s.mu.RUnlock()

	return location.Places{Elevation: elevation, POIs: location.Within(candidates, at, radius)}, nil
}

func poiType(t domain.ContentType) (domain.POIType, bool) {
	switch t {
	case domain.ContentHistorical:
		return domain.POIHistorical, true
	case domain.ContentCultural:
		return domain.POICultural, true
	case domain.ContentNatural:
		return domain.POINatural, true
	case domain.ContentPersonal, domain.ContentInformational:
	}
	return "", false
}
