package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"fleetdispatch/internal/models"
	"fleetdispatch/internal/repositories/interfaces"
	"fleetdispatch/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// weightSumTolerance is how far the weight total may drift from 1 before
// editors get a warning. Weights are never renormalized.
const weightSumTolerance = 0.25

type PreferenceService struct {
	repo   interfaces.DriverPreferenceRepository
	logger *logger.Logger
}

func NewPreferenceService(repo interfaces.DriverPreferenceRepository, log *logger.Logger) *PreferenceService {
	return &PreferenceService{repo: repo, logger: log}
}

// GetPreferences returns the stored profile, or the onboarding defaults with
// stored=false when the driver has none.
func (s *PreferenceService) GetPreferences(ctx context.Context, driverID primitive.ObjectID) (pref *models.DriverPreference, stored bool, err error) {
	pref, err = s.repo.GetByDriverID(ctx, driverID)
	if err != nil {
		if errors.Is(err, interfaces.ErrPreferenceNotFound) {
			return models.NewDriverPreference(driverID), false, nil
		}
		return nil, false, err
	}
	return pref, true, nil
}

// UpdatePreferences stores the editable sections of a profile. The returned
// warnings are advisory and never block the write.
func (s *PreferenceService) UpdatePreferences(ctx context.Context, driverID primitive.ObjectID, pref *models.DriverPreference) ([]string, error) {
	pref.DriverID = driverID
	warnings := WeightWarnings(pref.MatchingWeights)

	if err := s.repo.Upsert(ctx, pref); err != nil {
		return nil, err
	}

	s.logger.WithDriverID(driverID).WithField("warnings", len(warnings)).Info("Driver preferences updated")
	return warnings, nil
}

func (s *PreferenceService) RecordTripResponse(ctx context.Context, driverID primitive.ObjectID, accepted bool, responseTime time.Duration) (*models.PreferenceStatistics, error) {
	stats, err := s.repo.RecordTripResponse(ctx, driverID, accepted, responseTime)
	if err != nil {
		return nil, err
	}

	s.logger.WithDriverID(driverID).WithFields(logger.Fields{
		"accepted":        accepted,
		"acceptance_rate": stats.AcceptanceRate,
	}).Debug("Trip response recorded")
	return stats, nil
}

// WeightWarnings flags weight sets whose total is far from 1.
func WeightWarnings(w models.MatchingWeights) []string {
	sum := w.Sum()
	if math.Abs(sum-1) <= weightSumTolerance {
		return nil
	}
	return []string{
		fmt.Sprintf("matching weights sum to %.2f; scores are clamped to 0-100 rather than rescaled", sum),
	}
}
