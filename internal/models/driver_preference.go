package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MatchingWeights struct {
	Distance     float64 `json:"distance" bson:"distance" validate:"gte=0"`
	Availability float64 `json:"availability" bson:"availability" validate:"gte=0"`
	Preferences  float64 `json:"preferences" bson:"preferences" validate:"gte=0"`
	Rating       float64 `json:"rating" bson:"rating" validate:"gte=0"`
	Efficiency   float64 `json:"efficiency" bson:"efficiency" validate:"gte=0"`
}

func (w MatchingWeights) Sum() float64 {
	return w.Distance + w.Availability + w.Preferences + w.Rating + w.Efficiency
}

type Shift struct {
	DayOfWeek string `json:"day_of_week" bson:"day_of_week" validate:"required,day_of_week"`
	StartTime string `json:"start_time" bson:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" bson:"end_time" validate:"required,hhmm"`
	Priority  int    `json:"priority" bson:"priority" validate:"min=1,max=5"`
}

type AvailabilityPreferences struct {
	PreferredShifts []Shift `json:"preferred_shifts" bson:"preferred_shifts" validate:"dive"`
}

type PreferredArea struct {
	Name      string   `json:"name,omitempty" bson:"name,omitempty"`
	Southwest GeoPoint `json:"southwest" bson:"southwest"`
	Northeast GeoPoint `json:"northeast" bson:"northeast"`
	Priority  int      `json:"priority" bson:"priority" validate:"min=1,max=5"`
}

type AvoidArea struct {
	Name      string   `json:"name,omitempty" bson:"name,omitempty"`
	Southwest GeoPoint `json:"southwest" bson:"southwest"`
	Northeast GeoPoint `json:"northeast" bson:"northeast"`
	Reason    string   `json:"reason,omitempty" bson:"reason,omitempty"`
}

type GeographicPreferences struct {
	PreferredAreas []PreferredArea `json:"preferred_areas" bson:"preferred_areas" validate:"dive"`
	AvoidAreas     []AvoidArea     `json:"avoid_areas" bson:"avoid_areas" validate:"dive"`
}

type PreferredTripType struct {
	Type     string `json:"type" bson:"type" validate:"required"`
	Priority int    `json:"priority" bson:"priority" validate:"min=1,max=5"`
}

type AvoidTripType struct {
	Type   string `json:"type" bson:"type" validate:"required"`
	Reason string `json:"reason,omitempty" bson:"reason,omitempty"`
}

type TripPreferences struct {
	PreferredTripTypes []PreferredTripType `json:"preferred_trip_types" bson:"preferred_trip_types" validate:"dive"`
	AvoidTripTypes     []AvoidTripType     `json:"avoid_trip_types" bson:"avoid_trip_types" validate:"dive"`
	AcceptWheelchair   bool                `json:"accept_wheelchair" bson:"accept_wheelchair"`
	AcceptPets         bool                `json:"accept_pets" bson:"accept_pets"`
	AcceptMultiStop    bool                `json:"accept_multi_stop" bson:"accept_multi_stop"`
	MaxStopsPerTrip    int                 `json:"max_stops_per_trip" bson:"max_stops_per_trip" validate:"gte=0"`
}

type PreferredRider struct {
	RiderID  primitive.ObjectID `json:"rider_id" bson:"rider_id"`
	Priority int                `json:"priority,omitempty" bson:"priority,omitempty"`
}

type AvoidRider struct {
	RiderID primitive.ObjectID `json:"rider_id" bson:"rider_id"`
	Reason  string             `json:"reason,omitempty" bson:"reason,omitempty"`
}

type RiderPreferences struct {
	PreferredRiders []PreferredRider `json:"preferred_riders" bson:"preferred_riders"`
	AvoidRiders     []AvoidRider     `json:"avoid_riders" bson:"avoid_riders"`
}

type Certification struct {
	Type     string `json:"type" bson:"type" validate:"required"`
	Verified bool   `json:"verified" bson:"verified"`
}

type Skills struct {
	Certifications []Certification `json:"certifications" bson:"certifications" validate:"dive"`
}

type LanguagePreferences struct {
	Primary      string   `json:"primary" bson:"primary"`
	Additional   []string `json:"additional" bson:"additional"`
	RequireMatch bool     `json:"require_match" bson:"require_match"`
}

// AutoAcceptConditions are ANDed together. Zero values mean no restriction.
type AutoAcceptConditions struct {
	MaxPickupDistanceKM float64  `json:"max_pickup_distance_km" bson:"max_pickup_distance_km" validate:"gte=0"`
	MinFare             float64  `json:"min_fare" bson:"min_fare" validate:"gte=0"`
	PreferredAreasOnly  bool     `json:"preferred_areas_only" bson:"preferred_areas_only"`
	TripTypes           []string `json:"trip_types" bson:"trip_types"`
	PreferredShiftsOnly bool     `json:"preferred_shifts_only" bson:"preferred_shifts_only"`
	MinRiderRating      float64  `json:"min_rider_rating" bson:"min_rider_rating" validate:"gte=0,lte=5"`
}

type AutoAcceptRules struct {
	Enabled    bool                 `json:"enabled" bson:"enabled"`
	Conditions AutoAcceptConditions `json:"conditions" bson:"conditions"`
}

// PreferenceStatistics is maintained from trip response events only.
type PreferenceStatistics struct {
	TotalOffers            int64      `json:"total_offers" bson:"total_offers"`
	AcceptedOffers         int64      `json:"accepted_offers" bson:"accepted_offers"`
	AcceptanceRate         float64    `json:"acceptance_rate" bson:"acceptance_rate"`
	AverageResponseSeconds float64    `json:"average_response_seconds" bson:"average_response_seconds"`
	LastResponseAt         *time.Time `json:"last_response_at,omitempty" bson:"last_response_at,omitempty"`
}

type DriverPreference struct {
	ID               primitive.ObjectID      `json:"id" bson:"_id,omitempty"`
	DriverID         primitive.ObjectID      `json:"driver_id" bson:"driver_id"`
	MatchingWeights  MatchingWeights         `json:"matching_weights" bson:"matching_weights"`
	Availability     AvailabilityPreferences `json:"availability" bson:"availability"`
	Geographic       GeographicPreferences   `json:"geographic" bson:"geographic"`
	TripPreferences  TripPreferences         `json:"trip_preferences" bson:"trip_preferences"`
	RiderPreferences RiderPreferences        `json:"rider_preferences" bson:"rider_preferences"`
	Skills           Skills                  `json:"skills" bson:"skills"`
	Languages        LanguagePreferences     `json:"languages" bson:"languages"`
	AutoAccept       AutoAcceptRules         `json:"auto_accept" bson:"auto_accept"`
	Statistics       PreferenceStatistics    `json:"statistics" bson:"statistics"`
	CreatedAt        time.Time               `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at" bson:"updated_at"`
}

// DefaultMatchingWeights are applied when a driver has no preference record.
func DefaultMatchingWeights() MatchingWeights {
	return MatchingWeights{
		Distance:     0.4,
		Availability: 0.2,
		Preferences:  0.2,
		Rating:       0.1,
		Efficiency:   0.1,
	}
}

// NewDriverPreference returns the record created when onboarding completes.
func NewDriverPreference(driverID primitive.ObjectID) *DriverPreference {
	now := time.Now()
	return &DriverPreference{
		DriverID:        driverID,
		MatchingWeights: DefaultMatchingWeights(),
		TripPreferences: TripPreferences{
			AcceptWheelchair: true,
			AcceptPets:       true,
			AcceptMultiStop:  true,
			MaxStopsPerTrip:  10,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Record folds one offer response into the running statistics.
// AcceptanceRate is a fraction in 0..1.
func (s *PreferenceStatistics) Record(accepted bool, responseTime time.Duration, at time.Time) {
	s.TotalOffers++
	if accepted {
		s.AcceptedOffers++
	}
	s.AcceptanceRate = float64(s.AcceptedOffers) / float64(s.TotalOffers)

	seconds := responseTime.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	s.AverageResponseSeconds += (seconds - s.AverageResponseSeconds) / float64(s.TotalOffers)
	s.LastResponseAt = &at
}
