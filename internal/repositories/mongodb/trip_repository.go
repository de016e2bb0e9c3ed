package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetdispatch/internal/models"
	"fleetdispatch/internal/repositories/interfaces"
	"fleetdispatch/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type tripRepository struct {
	collection *mongo.Collection
}

func NewTripRepository(db *mongo.Database) interfaces.TripRepository {
	return &tripRepository{
		collection: db.Collection(database.TripsCollection),
	}
}

func (r *tripRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error) {
	var trip models.Trip
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&trip)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("trip %s: %w", id.Hex(), interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	return &trip, nil
}

func (r *tripRepository) SetAssignment(ctx context.Context, update *models.AssignmentUpdate) error {
	filter := bson.M{
		"_id":                update.TripID,
		"status":             bson.M{"$in": expectedStatusValues(update.ExpectedStatuses)},
		"reassignment_count": expectedCountValue(update.ExpectedReassignmentCount),
	}

	declined := update.DeclinedDrivers
	if declined == nil {
		declined = []primitive.ObjectID{}
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{
			"driver_id":          update.DriverID,
			"status":             update.Status,
			"assigned_at":        update.AssignedAt,
			"match_score":        update.MatchScore,
			"reassignment_count": update.ReassignmentCount,
			"declined_drivers":   declined,
			"updated_at":         time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update trip assignment: %w", err)
	}

	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": update.TripID})
		if err != nil {
			return fmt.Errorf("failed to check trip existence: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("trip %s: %w", update.TripID.Hex(), interfaces.ErrNotFound)
		}
		return interfaces.ErrAssignmentConflict
	}

	return nil
}

// expectedStatusValues also matches documents whose status was never set
// when unassigned is among the expected values.
func expectedStatusValues(statuses []models.TripStatus) bson.A {
	values := bson.A{}
	for _, s := range statuses {
		values = append(values, s)
		if s == models.TripStatusUnassigned {
			values = append(values, "", nil)
		}
	}
	return values
}

func expectedCountValue(count int) interface{} {
	if count == 0 {
		return bson.M{"$in": bson.A{0, nil}}
	}
	return count
}
