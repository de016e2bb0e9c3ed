package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetdispatch/internal/models"
	"fleetdispatch/internal/repositories/interfaces"
	"fleetdispatch/internal/utils"
	"fleetdispatch/pkg/logger"
	"fleetdispatch/pkg/metrics"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/time/rate"
)

// TripMatcher ranks drivers for a trip.
type TripMatcher interface {
	FindBestMatches(ctx context.Context, trip *models.Trip, opts models.MatchOptions) (*models.MatchSummary, error)
}

type AssignmentConfig struct {
	// Timeout bounds a whole AssignBest or Reassign call.
	Timeout time.Duration
	// BatchInterval and BatchBurst size the token bucket pacing BatchAssign.
	BatchInterval time.Duration
	BatchBurst    int
}

// AssignmentCoordinator commits matches onto trips.
type AssignmentCoordinator struct {
	trips   interfaces.TripRepository
	matcher TripMatcher
	locker  TripLocker
	limiter *rate.Limiter
	timeout time.Duration
	now     func() time.Time
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewAssignmentCoordinator(
	trips interfaces.TripRepository,
	matcher TripMatcher,
	locker TripLocker,
	config AssignmentConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *AssignmentCoordinator {
	limit := rate.Inf
	if config.BatchInterval > 0 {
		limit = rate.Every(config.BatchInterval)
	}
	burst := config.BatchBurst
	if burst <= 0 {
		burst = 1
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = utils.AssignmentTimeout
	}

	return &AssignmentCoordinator{
		trips:   trips,
		matcher: matcher,
		locker:  locker,
		limiter: rate.NewLimiter(limit, burst),
		timeout: timeout,
		now:     time.Now,
		logger:  log,
		metrics: m,
	}
}

// AssignBest places the single best driver on an unassigned trip.
func (c *AssignmentCoordinator) AssignBest(ctx context.Context, tripID primitive.ObjectID) (*models.AssignmentResult, error) {
	result, err := c.assignBest(ctx, tripID)
	c.metrics.ObserveAssignment("assign", outcomeLabel(err))
	return result, err
}

func (c *AssignmentCoordinator) assignBest(ctx context.Context, tripID primitive.ObjectID) (*models.AssignmentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	unlock, err := c.locker.Lock(ctx, tripID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	trip, err := c.loadTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !trip.Status.IsAssignable() {
		return nil, fmt.Errorf("trip %s is already %s: %w", tripID.Hex(), trip.Status, ErrAssignmentConflict)
	}

	summary, err := c.matcher.FindBestMatches(ctx, trip, models.MatchOptions{
		Limit:          1,
		ExcludeDrivers: trip.DeclinedDrivers,
	})
	if err != nil {
		return nil, err
	}
	if len(summary.Matches) == 0 {
		return nil, &NoDriverError{TripID: tripID, Status: summary.Status, TotalConsidered: summary.TotalConsidered}
	}

	best := summary.Matches[0]
	update := &models.AssignmentUpdate{
		TripID:                    trip.ID,
		DriverID:                  best.DriverID,
		Status:                    statusFor(best),
		AssignedAt:                c.now(),
		MatchScore:                best.TotalScore,
		ReassignmentCount:         trip.ReassignmentCount,
		DeclinedDrivers:           trip.DeclinedDrivers,
		ExpectedStatuses:          []models.TripStatus{models.TripStatusUnassigned},
		ExpectedReassignmentCount: trip.ReassignmentCount,
	}
	if err := c.persist(ctx, update); err != nil {
		return nil, err
	}
	update.Apply(trip)

	c.logger.LogAssignmentEvent(trip.ID, best.DriverID, "assigned", logger.Fields{
		"status":      update.Status,
		"match_score": best.TotalScore,
	})

	return &models.AssignmentResult{
		Trip:              trip,
		AssignedDriver:    best,
		MatchScore:        best.TotalScore,
		AutoAccepted:      best.AutoAccept,
		ReassignmentCount: trip.ReassignmentCount,
	}, nil
}

// Reassign re-runs matching for a trip whose driver declined or timed out.
// The current driver, previously declined drivers and excludeDriverIDs are
// all skipped. On failure the trip is left untouched.
func (c *AssignmentCoordinator) Reassign(ctx context.Context, tripID primitive.ObjectID, excludeDriverIDs []primitive.ObjectID) (*models.AssignmentResult, error) {
	result, err := c.reassign(ctx, tripID, excludeDriverIDs)
	c.metrics.ObserveAssignment("reassign", outcomeLabel(err))
	return result, err
}

func (c *AssignmentCoordinator) reassign(ctx context.Context, tripID primitive.ObjectID, excludeDriverIDs []primitive.ObjectID) (*models.AssignmentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	unlock, err := c.locker.Lock(ctx, tripID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	trip, err := c.loadTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !trip.Status.IsReassignable() {
		return nil, fmt.Errorf("trip %s is %s and cannot be reassigned: %w", tripID.Hex(), trip.Status, ErrAssignmentConflict)
	}

	declined := mergeIDs(trip.DeclinedDrivers, excludeDriverIDs)
	if trip.DriverID != nil {
		declined = mergeIDs(declined, []primitive.ObjectID{*trip.DriverID})
	}

	summary, err := c.matcher.FindBestMatches(ctx, trip, models.MatchOptions{
		Limit:          1 + utils.MaxReassignAlternates,
		ExcludeDrivers: declined,
	})
	if err != nil {
		return nil, err
	}
	if len(summary.Matches) == 0 {
		return nil, &NoDriverError{TripID: tripID, Status: summary.Status, TotalConsidered: summary.TotalConsidered}
	}

	best := summary.Matches[0]
	expected := trip.Status
	if expected == "" {
		expected = models.TripStatusUnassigned
	}
	update := &models.AssignmentUpdate{
		TripID:                    trip.ID,
		DriverID:                  best.DriverID,
		Status:                    statusFor(best),
		AssignedAt:                c.now(),
		MatchScore:                best.TotalScore,
		ReassignmentCount:         trip.ReassignmentCount + 1,
		DeclinedDrivers:           declined,
		ExpectedStatuses:          []models.TripStatus{expected},
		ExpectedReassignmentCount: trip.ReassignmentCount,
	}
	if err := c.persist(ctx, update); err != nil {
		return nil, err
	}

	var previous string
	if trip.DriverID != nil {
		previous = trip.DriverID.Hex()
	}
	update.Apply(trip)

	c.logger.LogAssignmentEvent(trip.ID, best.DriverID, "reassigned", logger.Fields{
		"status":             update.Status,
		"match_score":        best.TotalScore,
		"previous_driver_id": previous,
		"reassignment_count": trip.ReassignmentCount,
	})

	return &models.AssignmentResult{
		Trip:              trip,
		AssignedDriver:    best,
		MatchScore:        best.TotalScore,
		AutoAccepted:      best.AutoAccept,
		ReassignmentCount: trip.ReassignmentCount,
		Alternatives:      append([]models.MatchResult(nil), summary.Matches[1:]...),
	}, nil
}

// BatchAssign runs AssignBest for each trip in order, paced by the batch
// rate limiter. One trip failing never stops the others.
func (c *AssignmentCoordinator) BatchAssign(ctx context.Context, tripIDs []primitive.ObjectID) (*models.BatchAssignResult, error) {
	batch := &models.BatchAssignResult{
		BatchID:   uuid.New().String(),
		Results:   make([]models.BatchItemResult, 0, len(tripIDs)),
		StartedAt: c.now(),
	}
	log := c.logger.WithField("batch_id", batch.BatchID)

	for _, tripID := range tripIDs {
		item := models.BatchItemResult{TripID: tripID}

		if err := c.limiter.Wait(ctx); err != nil {
			item.Error = err.Error()
			batch.Results = append(batch.Results, item)
			continue
		}

		res, err := c.AssignBest(ctx, tripID)
		if err != nil {
			item.Error = err.Error()
			log.WithTripID(tripID).WithError(err).Warn("Batch assignment failed for trip")
		} else {
			driverID := res.AssignedDriver.DriverID
			item.Success = true
			item.DriverID = &driverID
			item.MatchScore = res.MatchScore
			item.Status = res.Trip.Status
		}
		batch.Results = append(batch.Results, item)
	}

	batch.Summary = summarize(batch.Results)
	batch.CompletedAt = c.now()
	c.metrics.ObserveBatch(batch.Summary.Successful, batch.Summary.Failed)

	log.WithFields(logger.Fields{
		"total":        batch.Summary.Total,
		"successful":   batch.Summary.Successful,
		"failed":       batch.Summary.Failed,
		"success_rate": batch.Summary.SuccessRate,
	}).Info("Batch assignment completed")

	return batch, nil
}

func (c *AssignmentCoordinator) loadTrip(ctx context.Context, tripID primitive.ObjectID) (*models.Trip, error) {
	trip, err := c.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTripNotFound, tripID.Hex())
		}
		return nil, fmt.Errorf("failed to load trip: %w", err)
	}
	return trip, nil
}

func (c *AssignmentCoordinator) persist(ctx context.Context, update *models.AssignmentUpdate) error {
	err := c.trips.SetAssignment(ctx, update)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAssignmentConflict):
		return fmt.Errorf("trip %s changed during assignment: %w", update.TripID.Hex(), ErrAssignmentConflict)
	case errors.Is(err, interfaces.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrTripNotFound, update.TripID.Hex())
	default:
		return fmt.Errorf("%w: %w", ErrAssignmentPersistFailure, err)
	}
}

func statusFor(match models.MatchResult) models.TripStatus {
	if match.AutoAccept {
		return models.TripStatusAccepted
	}
	return models.TripStatusPending
}

func summarize(results []models.BatchItemResult) models.BatchSummary {
	s := models.BatchSummary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			s.Successful++
		} else {
			s.Failed++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Successful) / float64(s.Total) * 100
	}
	return s
}

func mergeIDs(base, extra []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(base)+len(extra))
	out := make([]primitive.ObjectID, 0, len(base)+len(extra))
	for _, list := range [][]primitive.ObjectID{base, extra} {
		for _, id := range list {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNoDriverFound):
		return "no_driver"
	case errors.Is(err, ErrAssignmentConflict):
		return "conflict"
	case errors.Is(err, ErrTripNotFound):
		return "not_found"
	default:
		return "error"
	}
}
