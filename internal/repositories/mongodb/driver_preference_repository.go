package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetdispatch/internal/models"
	"fleetdispatch/internal/repositories/interfaces"
	"fleetdispatch/internal/utils"
	"fleetdispatch/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultPreferenceTTL = 10 * time.Minute
	statsUpdateAttempts  = 3
)

// Cache is the subset of pkg/cache used for profile lookups.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type driverPreferenceRepository struct {
	collection *mongo.Collection
	cache      Cache
	cacheTTL   time.Duration
}

// NewDriverPreferenceRepository wires an optional read-through cache; cache
// may be nil.
func NewDriverPreferenceRepository(db *mongo.Database, cache Cache, cacheTTL time.Duration) interfaces.DriverPreferenceRepository {
	if cacheTTL <= 0 {
		cacheTTL = defaultPreferenceTTL
	}
	return &driverPreferenceRepository{
		collection: db.Collection(database.DriverPreferencesCollection),
		cache:      cache,
		cacheTTL:   cacheTTL,
	}
}

func (r *driverPreferenceRepository) GetByDriverIDs(ctx context.Context, driverIDs []primitive.ObjectID) (map[primitive.ObjectID]*models.DriverPreference, error) {
	prefs := make(map[primitive.ObjectID]*models.DriverPreference, len(driverIDs))
	if len(driverIDs) == 0 {
		return prefs, nil
	}

	var missing []primitive.ObjectID
	for _, id := range driverIDs {
		if pref := r.getFromCache(ctx, id); pref != nil {
			prefs[id] = pref
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return prefs, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"driver_id": bson.M{"$in": missing}})
	if err != nil {
		return nil, fmt.Errorf("failed to load driver preferences: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var pref models.DriverPreference
		if err := cursor.Decode(&pref); err != nil {
			return nil, fmt.Errorf("failed to decode driver preference: %w", err)
		}
		prefs[pref.DriverID] = &pref
		r.cachePreference(ctx, &pref)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate driver preferences: %w", err)
	}

	return prefs, nil
}

func (r *driverPreferenceRepository) GetByDriverID(ctx context.Context, driverID primitive.ObjectID) (*models.DriverPreference, error) {
	if pref := r.getFromCache(ctx, driverID); pref != nil {
		return pref, nil
	}

	var pref models.DriverPreference
	err := r.collection.FindOne(ctx, bson.M{"driver_id": driverID}).Decode(&pref)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrPreferenceNotFound
		}
		return nil, fmt.Errorf("failed to get driver preference: %w", err)
	}

	r.cachePreference(ctx, &pref)
	return &pref, nil
}

// Upsert replaces the editable sections. Statistics and creation time are
// owned by the store and never overwritten from input.
func (r *driverPreferenceRepository) Upsert(ctx context.Context, pref *models.DriverPreference) error {
	now := time.Now()
	pref.UpdatedAt = now

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"driver_id": pref.DriverID},
		bson.M{
			"$set": bson.M{
				"matching_weights":  pref.MatchingWeights,
				"availability":      pref.Availability,
				"geographic":        pref.Geographic,
				"trip_preferences":  pref.TripPreferences,
				"rider_preferences": pref.RiderPreferences,
				"skills":            pref.Skills,
				"languages":         pref.Languages,
				"auto_accept":       pref.AutoAccept,
				"updated_at":        now,
			},
			"$setOnInsert": bson.M{
				"created_at": now,
				"statistics": models.PreferenceStatistics{},
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert driver preference: %w", err)
	}

	r.invalidateCache(ctx, pref.DriverID)
	return nil
}

// RecordTripResponse updates the running statistics with an optimistic
// guard on total_offers, retrying a few times under contention.
func (r *driverPreferenceRepository) RecordTripResponse(ctx context.Context, driverID primitive.ObjectID, accepted bool, responseTime time.Duration) (*models.PreferenceStatistics, error) {
	for attempt := 0; attempt < statsUpdateAttempts; attempt++ {
		pref, err := r.loadForUpdate(ctx, driverID)
		if err != nil {
			return nil, err
		}

		stats := pref.Statistics
		previous := stats.TotalOffers
		stats.Record(accepted, responseTime, time.Now())

		result, err := r.collection.UpdateOne(
			ctx,
			bson.M{
				"driver_id":               driverID,
				"statistics.total_offers": expectedCountValue(int(previous)),
			},
			bson.M{"$set": bson.M{"statistics": stats, "updated_at": time.Now()}},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to record trip response: %w", err)
		}
		if result.MatchedCount == 1 {
			r.invalidateCache(ctx, driverID)
			return &stats, nil
		}
	}

	return nil, fmt.Errorf("record trip response for driver %s: %w", driverID.Hex(), interfaces.ErrAssignmentConflict)
}

// loadForUpdate reads straight from the collection, creating the default
// record when the driver has none yet.
func (r *driverPreferenceRepository) loadForUpdate(ctx context.Context, driverID primitive.ObjectID) (*models.DriverPreference, error) {
	var pref models.DriverPreference
	err := r.collection.FindOne(ctx, bson.M{"driver_id": driverID}).Decode(&pref)
	if err == nil {
		return &pref, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to get driver preference: %w", err)
	}

	created := models.NewDriverPreference(driverID)
	if err := r.Upsert(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *driverPreferenceRepository) cachePreference(ctx context.Context, pref *models.DriverPreference) {
	if r.cache != nil {
		_ = r.cache.Set(ctx, preferenceCacheKey(pref.DriverID), pref, r.cacheTTL)
	}
}

func (r *driverPreferenceRepository) getFromCache(ctx context.Context, driverID primitive.ObjectID) *models.DriverPreference {
	if r.cache == nil {
		return nil
	}

	var pref models.DriverPreference
	if err := r.cache.Get(ctx, preferenceCacheKey(driverID), &pref); err != nil {
		return nil
	}
	return &pref
}

func (r *driverPreferenceRepository) invalidateCache(ctx context.Context, driverID primitive.ObjectID) {
	if r.cache != nil {
		_ = r.cache.Delete(ctx, preferenceCacheKey(driverID))
	}
}

func preferenceCacheKey(driverID primitive.ObjectID) string {
	return utils.CacheDriverPreferencePrefix + driverID.Hex()
}
