package services

import (
	"fleetdispatch/internal/models"
)

// evaluateAutoAccept applies the driver's auto-accept rules to a scored
// match. Every configured condition must hold; zero-valued conditions are
// ignored. A disqualified match is never auto-accepted, and
// PreferredAreasOnly needs at least one preferred area to pass.
func evaluateAutoAccept(profile PreferenceSource, match *models.MatchResult, trip *models.Trip, day, clock string) bool {
	if profile == nil || match.Breakdown.DisqualifiedReason != "" {
		return false
	}

	rules := profile.AutoAcceptRules()
	if !rules.Enabled {
		return false
	}
	cond := rules.Conditions

	if cond.MaxPickupDistanceKM > 0 && match.DistanceToPickup > cond.MaxPickupDistanceKM {
		return false
	}
	if cond.MinFare > 0 && trip.Fare < cond.MinFare {
		return false
	}
	if cond.PreferredAreasOnly {
		if !profile.HasPreferredAreas() {
			return false
		}
		if _, ok := profile.PreferredAreaPriority(trip.PickupLocation); !ok {
			return false
		}
	}
	if len(cond.TripTypes) > 0 && !containsString(cond.TripTypes, trip.TripType) {
		return false
	}
	if cond.PreferredShiftsOnly && !profile.IsAvailableAt(day, clock) {
		return false
	}
	if cond.MinRiderRating > 0 && trip.Rider.Rating < cond.MinRiderRating {
		return false
	}

	return true
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
