package services

import (
	"math"
	"time"

	"fleetdispatch/internal/models"
	"fleetdispatch/internal/utils"
)

const (
	ReasonWheelchair    = "wheelchair_not_accepted"
	ReasonPets          = "pets_not_accepted"
	ReasonTooManyStops  = "too_many_stops"
	ReasonAvoidedRider  = "avoided_rider"
	ReasonCertification = "missing_certification"
)

// MatchScorer rates one driver against one trip on a 0..100 scale.
// It holds no mutable state and is safe for concurrent use.
type MatchScorer struct {
	location *time.Location
}

// NewMatchScorer evaluates shift windows in loc. A nil loc means UTC.
func NewMatchScorer(loc *time.Location) *MatchScorer {
	if loc == nil {
		loc = time.UTC
	}
	return &MatchScorer{location: loc}
}

// PickupSlot returns the weekday name and "HH:MM" clock of the trip's pickup
// in the scorer's time zone.
func (s *MatchScorer) PickupSlot(trip *models.Trip) (day, clock string) {
	t := trip.PickupTime.In(s.location)
	return utils.DayName(t), utils.FormatClock(t)
}

// Score computes the weighted compatibility of driver for trip. A nil
// profile is scored with DefaultProfile.
func (s *MatchScorer) Score(driver models.CandidateDriver, profile PreferenceSource, trip *models.Trip, mc models.MatchContext) models.MatchResult {
	if profile == nil {
		profile = DefaultProfile{}
	}

	weights := profile.Weights()
	pickup := trip.PickupLocation
	b := models.ScoreBreakdown{Weights: weights}

	result := models.MatchResult{
		DriverID:         driver.ID,
		DriverName:       driver.Name,
		DistanceToPickup: driver.DistanceToPickup,
		DeviceToken:      driver.DeviceToken,
		DevicePlatform:   driver.DevicePlatform,
	}

	if driver.CurrentLocation != nil {
		result.DistanceToPickup = utils.DistanceKm(*driver.CurrentLocation, pickup)
		b.Distance = utils.LinearDecayScore(result.DistanceToPickup, utils.DistanceDecayKM)
	}

	day, clock := s.PickupSlot(trip)
	if profile.IsAvailableAt(day, clock) {
		b.Availability = utils.MaxMatchScore
	}

	b.GeographicPref = utils.NeutralScore
	if priority, ok := profile.PreferredAreaPriority(pickup); ok {
		b.GeographicPref = utils.NeutralScore + float64(priority)*10
	} else if profile.IsInAvoidArea(pickup) {
		b.GeographicPref = 0
	}

	b.TripTypePref = utils.NeutralScore
	if priority, ok := profile.PreferredTripTypePriority(trip.TripType); ok {
		b.TripTypePref = utils.NeutralScore + float64(priority)*10
	} else if profile.AvoidsTripType(trip.TripType) {
		b.TripTypePref = 0
	}

	b.Rating = clamp(driver.Rating, utils.MinDriverRating, utils.MaxDriverRating) / utils.MaxDriverRating * 100

	b.Efficiency = utils.NeutralScore
	if mc.CurrentTrip != nil {
		deadhead := utils.DistanceKm(mc.CurrentTrip.DropoffLocation, pickup)
		b.Efficiency = utils.LinearDecayScore(deadhead, utils.ChainingDecayKM)
	}

	if profile.IsPreferredRider(trip.Rider.ID) {
		b.RiderBonus = utils.PreferredRiderBonus
	}
	if profile.RequiresLanguageMatch() && profile.SpeaksLanguage(trip.PreferredLanguage) {
		b.LanguageBonus = utils.LanguageMatchBonus
	}

	total := weights.Distance*b.Distance +
		weights.Availability*b.Availability +
		weights.Preferences*b.GeographicPref +
		weights.Preferences*b.TripTypePref +
		weights.Rating*b.Rating +
		weights.Efficiency*b.Efficiency +
		b.RiderBonus +
		b.LanguageBonus

	if reason := disqualification(profile, trip); reason != "" {
		b.DisqualifiedReason = reason
		total = 0
	}

	result.Breakdown = b
	result.TotalScore = clamp(total, 0, utils.MaxMatchScore)
	return result
}

// disqualification returns the first veto that applies to the pair.
func disqualification(profile PreferenceSource, trip *models.Trip) string {
	switch {
	case trip.RequiresWheelchair && !profile.AcceptsWheelchair():
		return ReasonWheelchair
	case trip.HasPets && !profile.AcceptsPets():
		return ReasonPets
	case !profile.CanHandleStops(len(trip.Waypoints)):
		return ReasonTooManyStops
	case profile.IsAvoidedRider(trip.Rider.ID):
		return ReasonAvoidedRider
	case trip.RequiresCertification != "" && !profile.HasVerifiedCertification(trip.RequiresCertification):
		return ReasonCertification
	}
	return ""
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
