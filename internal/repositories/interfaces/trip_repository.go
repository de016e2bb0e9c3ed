package interfaces

import (
	"context"

	"fleetdispatch/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error)

	// SetAssignment applies the update only if the stored trip still matches
	// the expected status and reassignment count. It returns
	// ErrAssignmentConflict when the guard fails.
	SetAssignment(ctx context.Context, update *models.AssignmentUpdate) error
}
