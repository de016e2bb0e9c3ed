package interfaces

import (
	"context"

	"fleetdispatch/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DriverRepository interface {
	// FindCandidates returns drivers with the driver role that are active and
	// available, near the query point. Callers must not rely on the radius
	// being applied exactly; it is a coarse prefilter.
	FindCandidates(ctx context.Context, query *models.DriverQuery) ([]*models.Driver, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error)
}
