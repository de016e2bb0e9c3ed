package interfaces

import (
	"context"
	"time"

	"fleetdispatch/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DriverPreferenceRepository interface {
	// GetByDriverIDs loads profiles in bulk. Drivers without a profile are
	// simply missing from the map.
	GetByDriverIDs(ctx context.Context, driverIDs []primitive.ObjectID) (map[primitive.ObjectID]*models.DriverPreference, error)
	// GetByDriverID returns ErrPreferenceNotFound when the driver has none.
	GetByDriverID(ctx context.Context, driverID primitive.ObjectID) (*models.DriverPreference, error)
	Upsert(ctx context.Context, pref *models.DriverPreference) error
	RecordTripResponse(ctx context.Context, driverID primitive.ObjectID, accepted bool, responseTime time.Duration) (*models.PreferenceStatistics, error)
}
