package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripStatus string

const (
	TripStatusUnassigned TripStatus = "unassigned"
	TripStatusPending    TripStatus = "pending"
	TripStatusAccepted   TripStatus = "accepted"
	TripStatusInProgress TripStatus = "in_progress"
	TripStatusCompleted  TripStatus = "completed"
	TripStatusCancelled  TripStatus = "cancelled"
)

// IsAssignable reports whether the matcher may place a driver on the trip.
func (s TripStatus) IsAssignable() bool {
	return s == "" || s == TripStatusUnassigned
}

// IsReassignable reports whether an existing assignment may be replaced.
func (s TripStatus) IsReassignable() bool {
	return s.IsAssignable() || s == TripStatusPending || s == TripStatusAccepted
}

type TripRider struct {
	ID     primitive.ObjectID `json:"id" bson:"id"`
	Name   string             `json:"name,omitempty" bson:"name,omitempty"`
	Rating float64            `json:"rating" bson:"rating"`
}

type Trip struct {
	ID                    primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	PickupLocation        GeoPoint             `json:"pickup_location" bson:"pickup_location" validate:"required"`
	DropoffLocation       GeoPoint             `json:"dropoff_location" bson:"dropoff_location"`
	PickupTime            time.Time            `json:"pickup_time" bson:"pickup_time"`
	TripType              string               `json:"trip_type" bson:"trip_type"`
	RequiresWheelchair    bool                 `json:"requires_wheelchair" bson:"requires_wheelchair"`
	HasPets               bool                 `json:"has_pets" bson:"has_pets"`
	Waypoints             []GeoPoint           `json:"waypoints" bson:"waypoints"`
	RequiresCertification string               `json:"requires_certification,omitempty" bson:"requires_certification,omitempty"`
	PreferredLanguage     string               `json:"preferred_language,omitempty" bson:"preferred_language,omitempty"`
	Rider                 TripRider            `json:"rider" bson:"rider"`
	Fare                  float64              `json:"fare" bson:"fare"`
	DriverID              *primitive.ObjectID  `json:"driver_id" bson:"driver_id"`
	Status                TripStatus           `json:"status" bson:"status"`
	AssignedAt            *time.Time           `json:"assigned_at" bson:"assigned_at"`
	MatchScore            float64              `json:"match_score" bson:"match_score"`
	ReassignmentCount     int                  `json:"reassignment_count" bson:"reassignment_count"`
	DeclinedDrivers       []primitive.ObjectID `json:"declined_drivers" bson:"declined_drivers"`
	CreatedAt             time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at" bson:"updated_at"`
}

// AssignmentUpdate is a conditional write of the assignment fields. The
// write only applies while the stored trip still has one of
// ExpectedStatuses and ExpectedReassignmentCount.
type AssignmentUpdate struct {
	TripID                    primitive.ObjectID
	DriverID                  primitive.ObjectID
	Status                    TripStatus
	AssignedAt                time.Time
	MatchScore                float64
	ReassignmentCount         int
	DeclinedDrivers           []primitive.ObjectID
	ExpectedStatuses          []TripStatus
	ExpectedReassignmentCount int
}

// Apply copies the update onto an in-memory trip.
func (u *AssignmentUpdate) Apply(t *Trip) {
	driverID := u.DriverID
	assignedAt := u.AssignedAt
	t.DriverID = &driverID
	t.Status = u.Status
	t.AssignedAt = &assignedAt
	t.MatchScore = u.MatchScore
	t.ReassignmentCount = u.ReassignmentCount
	t.DeclinedDrivers = append([]primitive.ObjectID(nil), u.DeclinedDrivers...)
	t.UpdatedAt = assignedAt
}
