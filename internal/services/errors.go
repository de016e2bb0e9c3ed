package services

import (
	"errors"
	"fmt"

	"fleetdispatch/internal/models"
	"fleetdispatch/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrTripNotFound             = errors.New("trip not found")
	ErrNoDriverFound            = errors.New("no suitable driver found")
	ErrAssignmentPersistFailure = errors.New("failed to persist assignment")
	ErrAssignmentConflict       = interfaces.ErrAssignmentConflict
	ErrInvalidTrip              = errors.New("invalid trip")
)

// NoDriverError explains why matching came back empty. It matches
// ErrNoDriverFound with errors.Is.
type NoDriverError struct {
	TripID          primitive.ObjectID
	Status          models.MatchStatus
	TotalConsidered int
}

func (e *NoDriverError) Error() string {
	return fmt.Sprintf("%s for trip %s: %s (%d considered)",
		ErrNoDriverFound.Error(), e.TripID.Hex(), e.Status, e.TotalConsidered)
}

func (e *NoDriverError) Is(target error) bool {
	return target == ErrNoDriverFound
}
