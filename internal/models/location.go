package models

import (
	"time"

	"fleetdispatch/internal/utils"
)

// GeoPoint is a plain lat/lng pair used by the matching engine.
type GeoPoint = utils.Point

// Location is the GeoJSON form stored on driver documents so the
// collection can carry a 2dsphere index.
type Location struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates" validate:"required,len=2"`
	Address     string    `json:"address,omitempty" bson:"address,omitempty"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
}

func NewLocation(p GeoPoint) *Location {
	return &Location{
		Type:        "Point",
		Coordinates: p.ToCoordinates(),
		Timestamp:   time.Now(),
	}
}

func (l Location) Latitude() float64 {
	if len(l.Coordinates) >= 2 {
		return l.Coordinates[1]
	}
	return 0
}

func (l Location) Longitude() float64 {
	if len(l.Coordinates) >= 1 {
		return l.Coordinates[0]
	}
	return 0
}

// Point converts the GeoJSON location into a GeoPoint. ok is false when the
// document does not carry a usable coordinate pair.
func (l *Location) Point() (GeoPoint, bool) {
	if l == nil || len(l.Coordinates) < 2 {
		return GeoPoint{}, false
	}
	p := utils.NewPointFromCoordinates(l.Coordinates)
	return p, p.IsValid()
}
