package library

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"wayfarer/internal/domain"
	"wayfarer/internal/location"
)

// Bundle is the YAML file format: stories plus optional extra places.
type Bundle struct {
	Elevation *float64         `yaml:"elevation"`
	Places    []location.Place `yaml:"places"`
	Stories   []StoryFile      `yaml:"stories"`
}

// StoryFile is one story as written in a bundle.
type StoryFile struct {
	ID       string                 `yaml:"id"`
	Title    string                 `yaml:"title"`
	Text     string                 `yaml:"text"`
	Metadata domain.ContentMetadata `yaml:"metadata"`
	Geofence *domain.Geofence       `yaml:"geofence"`
}

// LoadYAML reads a bundle and adds its stories and places. It returns the
// number of stories added.
func (s *Store) LoadYAML(r io.Reader) (int, error) {
	var bundle Bundle
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&bundle); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, fmt.Errorf("decode story bundle: %w", err)
	}

	for i, sf := range bundle.Stories {
		story := domain.NewStoryContent(sf.ID, sf.Title, strings.TrimSpace(sf.Text), sf.Metadata, sf.Geofence)
		if _, err := s.Add(story); err != nil {
			return i, fmt.Errorf("story %d: %w", i, err)
		}
	}
	if len(bundle.Places) > 0 {
		s.AddPlaces(bundle.Places...)
	}
	if bundle.Elevation != nil {
		s.SetElevation(*bundle.Elevation)
	}
	return len(bundle.Stories), nil
}

// LoadFile adds the stories in one file, YAML or HTML by extension.
func (s *Store) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		story, err := ParseHTML(f)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
		if _, err := s.Add(story); err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
		return 1, nil
	case ".yaml", ".yml":
		n, err := s.LoadYAML(f)
		if err != nil {
			return n, fmt.Errorf("%s: %w", path, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%s: unsupported story file", path)
}

// LoadPath loads a file, or every YAML and HTML file under a directory.
func (s *Store) LoadPath(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return s.LoadFile(path)
	}

	total := 0
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".yaml", ".yml", ".html", ".htm":
		default:
			return nil
		}
		n, err := s.LoadFile(p)
		total += n
		return err
	})
	s.logger.Info("loaded %d stories from %s", total, path)
	return total, err
}
