package maps

import "context"

type MapsProvider interface {
	CalculateDistance(ctx context.Context, request *DistanceRequest) (*DistanceResponse, error)
	// TravelMinutes returns the driving time from each origin to destination,
	// in origin order. Unroutable origins come back as -1.
	TravelMinutes(ctx context.Context, origins []Location, destination Location) ([]int, error)
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Distance struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"` // in meters
}

type Duration struct {
	Text  string `json:"text"`
	Value int    `json:"value"` // in seconds
}

type DistanceRequest struct {
	Origins      []Location `json:"origins"`
	Destinations []Location `json:"destinations"`
	Mode         string     `json:"mode"`
	Units        string     `json:"units"` // metric, imperial
}

type DistanceResponse struct {
	Rows []DistanceRow `json:"rows"`
}

type DistanceRow struct {
	Elements []DistanceElement `json:"elements"`
}

type DistanceElement struct {
	Distance Distance `json:"distance"`
	Duration Duration `json:"duration"`
	Status   string   `json:"status"`
}
