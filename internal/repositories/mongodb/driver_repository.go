package mongodb

import (
	"context"
	"errors"
	"fmt"

	"fleetdispatch/internal/models"
	"fleetdispatch/internal/repositories/interfaces"
	"fleetdispatch/internal/utils"
	"fleetdispatch/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type driverRepository struct {
	collection *mongo.Collection
}

func NewDriverRepository(db *mongo.Database) interfaces.DriverRepository {
	return &driverRepository{
		collection: db.Collection(database.DriversCollection),
	}
}

func (r *driverRepository) FindCandidates(ctx context.Context, query *models.DriverQuery) ([]*models.Driver, error) {
	filter := bson.M{
		"role":             models.RoleDriver,
		"is_active":        true,
		"is_available":     true,
		"current_location": bson.M{"$ne": nil},
	}

	if query.RequireLocationTracking {
		filter["is_location_tracking"] = true
	}

	if query.RadiusKM > 0 {
		// $centerSphere takes the radius in radians.
		filter["current_location"] = bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": bson.A{
					query.Near.ToCoordinates(),
					query.RadiusKM / utils.EarthRadiusKM,
				},
			},
		}
	}

	opts := options.Find()
	if query.Limit > 0 {
		opts.SetLimit(query.Limit)
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find candidate drivers: %w", err)
	}
	defer cursor.Close(ctx)

	var drivers []*models.Driver
	for cursor.Next(ctx) {
		var driver models.Driver
		if err := cursor.Decode(&driver); err != nil {
			return nil, fmt.Errorf("failed to decode driver: %w", err)
		}
		drivers = append(drivers, &driver)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate drivers: %w", err)
	}

	return drivers, nil
}

func (r *driverRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	var driver models.Driver
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&driver)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("driver %s: %w", id.Hex(), interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get driver: %w", err)
	}

	return &driver, nil
}
