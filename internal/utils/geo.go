package utils

import (
	"fmt"
)

type Point struct {
	Lat float64 `json:"lat" bson:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" bson:"lng" validate:"gte=-180,lte=180"`
}

type Bounds struct {
	Northeast Point `json:"northeast" bson:"northeast"`
	Southwest Point `json:"southwest" bson:"southwest"`
}

func (p Point) ToCoordinates() []float64 {
	return []float64{p.Lng, p.Lat}
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

func (p Point) IsValid() bool {
	return IsValidCoordinates(p.Lat, p.Lng)
}

func NewPointFromCoordinates(coordinates []float64) Point {
	if len(coordinates) >= 2 {
		return Point{Lat: coordinates[1], Lng: coordinates[0]}
	}
	return Point{}
}

func IsValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Contains reports whether p lies inside the box. Edges count as inside.
// Boxes crossing the antimeridian are not supported.
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.Southwest.Lat && p.Lat <= b.Northeast.Lat &&
		p.Lng >= b.Southwest.Lng && p.Lng <= b.Northeast.Lng
}

func (b Bounds) IsValid() bool {
	return b.Southwest.IsValid() && b.Northeast.IsValid() &&
		b.Southwest.Lat <= b.Northeast.Lat && b.Southwest.Lng <= b.Northeast.Lng
}
