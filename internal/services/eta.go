package services

import (
	"context"

	"fleetdispatch/internal/models"
	"fleetdispatch/internal/utils"
	"fleetdispatch/pkg/maps"
)

// ETAEstimator returns pickup travel minutes for each origin, in order.
// Negative entries mean the estimator could not route that origin.
type ETAEstimator interface {
	PickupMinutes(ctx context.Context, origins []models.GeoPoint, pickup models.GeoPoint) ([]int, error)
}

// StraightLineETA converts great-circle distance at a fixed city speed.
type StraightLineETA struct {
	SpeedKMH float64
}

func (e StraightLineETA) PickupMinutes(_ context.Context, origins []models.GeoPoint, pickup models.GeoPoint) ([]int, error) {
	minutes := make([]int, len(origins))
	for i, o := range origins {
		minutes[i] = utils.EstimateETAMinutes(utils.DistanceKm(o, pickup), e.SpeedKMH)
	}
	return minutes, nil
}

// RoadETA asks a maps provider for driving times.
type RoadETA struct {
	provider maps.MapsProvider
}

func NewRoadETA(provider maps.MapsProvider) *RoadETA {
	return &RoadETA{provider: provider}
}

func (e *RoadETA) PickupMinutes(ctx context.Context, origins []models.GeoPoint, pickup models.GeoPoint) ([]int, error) {
	locations := make([]maps.Location, len(origins))
	for i, o := range origins {
		locations[i] = maps.Location{Latitude: o.Lat, Longitude: o.Lng}
	}
	return e.provider.TravelMinutes(ctx, locations, maps.Location{Latitude: pickup.Lat, Longitude: pickup.Lng})
}
