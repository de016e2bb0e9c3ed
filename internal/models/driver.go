package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const RoleDriver = "driver"

type VehicleInfo struct {
	Make         string `json:"make" bson:"make"`
	Model        string `json:"model" bson:"model"`
	Color        string `json:"color" bson:"color"`
	LicensePlate string `json:"license_plate" bson:"license_plate"`
	Capacity     int    `json:"capacity" bson:"capacity"`
	Accessible   bool   `json:"accessible" bson:"accessible"`
}

// ActiveTrip is the trip a driver is currently finishing, if any.
type ActiveTrip struct {
	TripID          primitive.ObjectID `json:"trip_id" bson:"trip_id"`
	DropoffLocation GeoPoint           `json:"dropoff_location" bson:"dropoff_location"`
}

type Driver struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name               string             `json:"name" bson:"name" validate:"required"`
	Role               string             `json:"role" bson:"role"`
	IsActive           bool               `json:"is_active" bson:"is_active"`
	IsAvailable        bool               `json:"is_available" bson:"is_available"`
	IsLocationTracking bool               `json:"is_location_tracking" bson:"is_location_tracking"`
	CurrentLocation    *Location          `json:"current_location" bson:"current_location"`
	LastLocationUpdate *time.Time         `json:"last_location_update" bson:"last_location_update"`
	CurrentTrip        *ActiveTrip        `json:"current_trip,omitempty" bson:"current_trip,omitempty"`
	Rating             float64            `json:"rating" bson:"rating"`
	CompletedTrips     int64              `json:"completed_trips" bson:"completed_trips"`
	VehicleInfo        *VehicleInfo       `json:"vehicle_info" bson:"vehicle_info"`
	DeviceToken        string             `json:"-" bson:"device_token"`
	DevicePlatform     string             `json:"device_platform,omitempty" bson:"device_platform,omitempty"`
	CreatedAt          time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" bson:"updated_at"`
}

// DriverQuery filters the driver collection for matching.
type DriverQuery struct {
	Near                    GeoPoint
	RadiusKM                float64
	RequireLocationTracking bool
	Limit                   int64
}

// CandidateDriver is a per-call snapshot of a driver eligible for scoring.
type CandidateDriver struct {
	ID               primitive.ObjectID `json:"id"`
	Name             string             `json:"name"`
	CurrentLocation  *GeoPoint          `json:"current_location"`
	Rating           float64            `json:"rating"`
	CompletedTrips   int64              `json:"completed_trips"`
	VehicleInfo      *VehicleInfo       `json:"vehicle_info,omitempty"`
	IsActive         bool               `json:"is_active"`
	IsAvailable      bool               `json:"is_available"`
	DistanceToPickup float64            `json:"distance_to_pickup"`
	CurrentDropoff   *GeoPoint          `json:"current_dropoff,omitempty"`
	DeviceToken      string             `json:"-"`
	DevicePlatform   string             `json:"-"`
}

// ToCandidate snapshots the driver. The distance is filled in by the locator.
func (d *Driver) ToCandidate() CandidateDriver {
	c := CandidateDriver{
		ID:             d.ID,
		Name:           d.Name,
		Rating:         d.Rating,
		CompletedTrips: d.CompletedTrips,
		VehicleInfo:    d.VehicleInfo,
		IsActive:       d.IsActive,
		IsAvailable:    d.IsAvailable,
		DeviceToken:    d.DeviceToken,
		DevicePlatform: d.DevicePlatform,
	}
	if p, ok := d.CurrentLocation.Point(); ok {
		c.CurrentLocation = &p
	}
	if d.CurrentTrip != nil {
		dropoff := d.CurrentTrip.DropoffLocation
		c.CurrentDropoff = &dropoff
	}
	return c
}
