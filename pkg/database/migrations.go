package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetdispatch/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const migrationsCollection = "migrations"

type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, db *mongo.Database) error
}

type Migrator struct {
	db         *mongo.Database
	migrations []Migration
	logger     *logger.Logger
}

func NewMigrator(db *mongo.Database, log *logger.Logger) *Migrator {
	return &Migrator{
		db:         db,
		migrations: getMigrations(),
		logger:     log,
	}
}

// Up applies every migration newer than the stored version.
func (m *Migrator) Up(ctx context.Context) error {
	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if migration.Version <= currentVersion {
			continue
		}

		m.logger.WithFields(logger.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		}).Info("Running migration")

		if err := migration.Up(ctx, m.db); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if err := m.updateVersion(ctx, migration.Version); err != nil {
			return fmt.Errorf("failed to update migration version: %w", err)
		}
	}

	return nil
}

func (m *Migrator) getCurrentVersion(ctx context.Context) (int, error) {
	var result struct {
		Version int `bson:"version"`
	}

	err := m.db.Collection(migrationsCollection).FindOne(ctx, bson.D{}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read migration version: %w", err)
	}

	return result.Version, nil
}

func (m *Migrator) updateVersion(ctx context.Context, version int) error {
	_, err := m.db.Collection(migrationsCollection).ReplaceOne(
		ctx,
		bson.D{},
		bson.D{{Key: "version", Value: version}, {Key: "updated_at", Value: time.Now()}},
		options.Replace().SetUpsert(true),
	)
	return err
}

func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create drivers indexes",
			Up:          createDriversIndexes,
		},
		{
			Version:     2,
			Description: "Create trips indexes",
			Up:          createTripsIndexes,
		},
		{
			Version:     3,
			Description: "Create driver preference indexes",
			Up:          createDriverPreferencesIndexes,
		},
	}
}

func createDriversIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "current_location", Value: "2dsphere"}},
		},
		{
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "is_active", Value: 1},
				{Key: "is_available", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "rating", Value: -1}},
		},
	}

	_, err := db.Collection(DriversCollection).Indexes().CreateMany(ctx, indexes)
	return err
}

func createTripsIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "driver_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "pickup_time", Value: 1}},
		},
	}

	_, err := db.Collection(TripsCollection).Indexes().CreateMany(ctx, indexes)
	return err
}

func createDriverPreferencesIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "driver_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := db.Collection(DriverPreferencesCollection).Indexes().CreateMany(ctx, indexes)
	return err
}
