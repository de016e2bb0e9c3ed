package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MatchStatus string

const (
	MatchStatusMatched            MatchStatus = "matched"
	MatchStatusNoCandidatesNearby MatchStatus = "no_candidates_nearby"
	MatchStatusNoSuitableDriver   MatchStatus = "no_suitable_driver"
)

type MatchOptions struct {
	Limit          int                  `json:"limit" validate:"gte=0,lte=50"`
	RadiusKM       float64              `json:"radius_km" validate:"gte=0,lte=100"`
	MinScore       *float64             `json:"min_score" validate:"omitempty,gte=0,lte=100"`
	ExcludeDrivers []primitive.ObjectID `json:"exclude_drivers"`
}

// MatchContext carries optional state about the driver's ongoing work.
type MatchContext struct {
	CurrentTrip *Trip
}

type ScoreBreakdown struct {
	Distance           float64         `json:"distance"`
	Availability       float64         `json:"availability"`
	GeographicPref     float64         `json:"geographic_preference"`
	TripTypePref       float64         `json:"trip_type_preference"`
	Rating             float64         `json:"rating"`
	Efficiency         float64         `json:"efficiency"`
	RiderBonus         float64         `json:"rider_bonus"`
	LanguageBonus      float64         `json:"language_bonus"`
	Weights            MatchingWeights `json:"weights"`
	DisqualifiedReason string          `json:"disqualified_reason,omitempty"`
}

type MatchResult struct {
	DriverID               primitive.ObjectID `json:"driver_id"`
	DriverName             string             `json:"driver_name"`
	TotalScore             float64            `json:"total_score"`
	Breakdown              ScoreBreakdown     `json:"breakdown"`
	DistanceToPickup       float64            `json:"distance_to_pickup"`
	AutoAccept             bool               `json:"auto_accept"`
	EstimatedPickupMinutes int                `json:"estimated_pickup_minutes"`
	DeviceToken            string             `json:"-"`
	DevicePlatform         string             `json:"-"`
}

type MatchSummary struct {
	TripID          primitive.ObjectID `json:"trip_id"`
	Matches         []MatchResult      `json:"matches"`
	TotalConsidered int                `json:"total_drivers_considered"`
	TopScore        float64            `json:"top_score"`
	Status          MatchStatus        `json:"status"`
	Message         string             `json:"message"`
}

type AssignmentResult struct {
	Trip              *Trip         `json:"trip"`
	AssignedDriver    MatchResult   `json:"assigned_driver"`
	MatchScore        float64       `json:"match_score"`
	AutoAccepted      bool          `json:"auto_accepted"`
	ReassignmentCount int           `json:"reassignment_count,omitempty"`
	Alternatives      []MatchResult `json:"alternatives,omitempty"`
}

type BatchItemResult struct {
	TripID     primitive.ObjectID  `json:"trip_id"`
	Success    bool                `json:"success"`
	DriverID   *primitive.ObjectID `json:"driver_id,omitempty"`
	MatchScore float64             `json:"match_score,omitempty"`
	Status     TripStatus          `json:"status,omitempty"`
	Error      string              `json:"error,omitempty"`
}

type BatchSummary struct {
	Total       int     `json:"total"`
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

type BatchAssignResult struct {
	BatchID     string            `json:"batch_id"`
	Results     []BatchItemResult `json:"results"`
	Summary     BatchSummary      `json:"summary"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
}
