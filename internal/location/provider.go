// Package location resolves the surroundings of a coordinate: nearby points
// of interest and the environment classification derived from them.
package location

import (
	"context"
	"sort"
	"strings"

	"wayfarer/internal/domain"
)

// Places is the raw answer of a place provider for one coordinate.
type Places struct {
	Elevation float64
	POIs      []domain.PointOfInterest
}

// PlaceProvider supplies points of interest around a coordinate.
type PlaceProvider interface {
	NearbyPlaces(ctx context.Context, at domain.Coordinate, radius float64) (Places, error)
}

// Place is a fixed, named point of interest.
type Place struct {
	Name      string            `yaml:"name" json:"name"`
	Type      domain.POIType    `yaml:"type" json:"type"`
	At        domain.Coordinate `yaml:"at" json:"at"`
	Relevance float64           `yaml:"relevance" json:"relevance"`
}

// StaticPlaces is a PlaceProvider over a fixed list of places.
type StaticPlaces struct {
	Places    []Place
	Elevation float64
}

// NearbyPlaces implements PlaceProvider.
func (s StaticPlaces) NearbyPlaces(ctx context.Context, at domain.Coordinate, radius float64) (Places, error) {
	if err := ctx.Err(); err != nil {
		return Places{}, err
	}
	return Places{Elevation: s.Elevation, POIs: Within(s.Places, at, radius)}, nil
}

// Within converts the places inside radius metres of at into POIs.
func Within(places []Place, at domain.Coordinate, radius float64) []domain.PointOfInterest {
	var pois []domain.PointOfInterest
	for _, p := range places {
		d := p.At.DistanceTo(at)
		if radius > 0 && d > radius {
			continue
		}
		relevance := p.Relevance
		if relevance <= 0 {
			relevance = 0.5
		}
		pois = append(pois, domain.PointOfInterest{
			Type:      p.Type,
			Name:      p.Name,
			Distance:  d,
			Relevance: relevance,
		})
	}
	sort.SliceStable(pois, func(i, j int) bool {
		if pois[i].Distance != pois[j].Distance {
			return pois[i].Distance < pois[j].Distance
		}
		return strings.Compare(pois[i].Name, pois[j].Name) < 0
	})
	return pois
}
