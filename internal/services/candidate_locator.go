package services

import (
	"context"
	"fmt"
	"sort"

	"fleetdispatch/internal/models"
	"fleetdispatch/internal/repositories/interfaces"
	"fleetdispatch/internal/utils"
)

// CandidateLocator finds drivers close enough to a pickup to be scored.
type CandidateLocator struct {
	drivers       interfaces.DriverRepository
	maxCandidates int64
}

func NewCandidateLocator(drivers interfaces.DriverRepository, maxCandidates int64) *CandidateLocator {
	return &CandidateLocator{
		drivers:       drivers,
		maxCandidates: maxCandidates,
	}
}

// FindNearby returns active, available drivers within radiusKM of pickup,
// nearest first. Drivers without a known location are skipped.
func (l *CandidateLocator) FindNearby(ctx context.Context, pickup models.GeoPoint, radiusKM float64, requireLocationTracking bool) ([]models.CandidateDriver, error) {
	if !pickup.IsValid() {
		return nil, fmt.Errorf("%w: pickup location %s out of range", ErrInvalidTrip, pickup)
	}

	drivers, err := l.drivers.FindCandidates(ctx, &models.DriverQuery{
		Near:                    pickup,
		RadiusKM:                radiusKM,
		RequireLocationTracking: requireLocationTracking,
		Limit:                   l.maxCandidates,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate drivers: %w", err)
	}

	candidates := make([]models.CandidateDriver, 0, len(drivers))
	for _, d := range drivers {
		if d.Role != models.RoleDriver || !d.IsActive || !d.IsAvailable {
			continue
		}
		if requireLocationTracking && !d.IsLocationTracking {
			continue
		}

		c := d.ToCandidate()
		if c.CurrentLocation == nil {
			continue
		}

		c.DistanceToPickup = utils.DistanceKm(*c.CurrentLocation, pickup)
		if c.DistanceToPickup > radiusKM {
			continue
		}
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DistanceToPickup < candidates[j].DistanceToPickup
	})

	return candidates, nil
}
