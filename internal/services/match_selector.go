package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fleetdispatch/internal/models"
	"fleetdispatch/internal/repositories/interfaces"
	"fleetdispatch/internal/utils"
	"fleetdispatch/pkg/logger"
	"fleetdispatch/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

type MatchSelectorConfig struct {
	DefaultLimit    int
	DefaultRadiusKM float64
	DefaultMinScore float64
	ScoringWorkers  int
	CitySpeedKMH    float64
	ETATimeout      time.Duration
}

func DefaultMatchSelectorConfig() MatchSelectorConfig {
	return MatchSelectorConfig{
		DefaultLimit:    utils.DefaultMatchLimit,
		DefaultRadiusKM: utils.DefaultSearchRadiusKM,
		DefaultMinScore: utils.DefaultMinMatchScore,
		ScoringWorkers:  8,
		CitySpeedKMH:    utils.DefaultCitySpeedKMH,
		ETATimeout:      2 * time.Second,
	}
}

// MatchSelector ranks nearby drivers for a trip.
type MatchSelector struct {
	locator     *CandidateLocator
	preferences interfaces.DriverPreferenceRepository
	scorer      *MatchScorer
	eta         ETAEstimator
	config      MatchSelectorConfig
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

// NewMatchSelector builds a selector. eta may be nil, in which case pickup
// times are estimated from straight-line distance.
func NewMatchSelector(
	locator *CandidateLocator,
	preferences interfaces.DriverPreferenceRepository,
	scorer *MatchScorer,
	eta ETAEstimator,
	config MatchSelectorConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *MatchSelector {
	if config.ScoringWorkers <= 0 {
		config.ScoringWorkers = 1
	}
	return &MatchSelector{
		locator:     locator,
		preferences: preferences,
		scorer:      scorer,
		eta:         eta,
		config:      config,
		logger:      log,
		metrics:     m,
	}
}

type scoredCandidate struct {
	match    models.MatchResult
	location models.GeoPoint
}

// FindBestMatches scores every eligible driver near the pickup and returns
// the best ones in non-increasing score order. Equal scores keep the
// nearest-first order produced by the locator. An empty result is reported
// through the summary status, never as an error.
func (s *MatchSelector) FindBestMatches(ctx context.Context, trip *models.Trip, opts models.MatchOptions) (*models.MatchSummary, error) {
	start := time.Now()
	limit, radius, minScore := s.resolveOptions(opts)

	summary := &models.MatchSummary{
		TripID:  trip.ID,
		Matches: []models.MatchResult{},
	}

	candidates, err := s.locator.FindNearby(ctx, trip.PickupLocation, radius, true)
	if err != nil {
		return nil, err
	}
	candidates = withoutExcluded(candidates, opts.ExcludeDrivers)
	summary.TotalConsidered = len(candidates)

	if len(candidates) == 0 {
		summary.Status = models.MatchStatusNoCandidatesNearby
		summary.Message = fmt.Sprintf("no available drivers within %.1f km of pickup", radius)
		s.finish(summary, start)
		return summary, nil
	}

	ids := make([]primitive.ObjectID, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	profiles, err := s.preferences.GetByDriverIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load driver preferences: %w", err)
	}

	scored, err := s.scoreAll(ctx, trip, candidates, profiles)
	if err != nil {
		return nil, err
	}

	ranked := scored[:0]
	for _, sc := range scored {
		if sc.match.TotalScore >= minScore {
			ranked = append(ranked, sc)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].match.TotalScore > ranked[j].match.TotalScore
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	if len(ranked) == 0 {
		summary.Status = models.MatchStatusNoSuitableDriver
		summary.Message = fmt.Sprintf("%d drivers nearby but none scored at least %.0f", len(candidates), minScore)
		s.finish(summary, start)
		return summary, nil
	}

	s.attachETAs(ctx, trip.PickupLocation, ranked)

	for _, sc := range ranked {
		summary.Matches = append(summary.Matches, sc.match)
	}
	summary.TopScore = summary.Matches[0].TotalScore
	summary.Status = models.MatchStatusMatched
	summary.Message = fmt.Sprintf("found %d matching drivers", len(summary.Matches))
	s.finish(summary, start)

	return summary, nil
}

func (s *MatchSelector) resolveOptions(opts models.MatchOptions) (int, float64, float64) {
	limit := opts.Limit
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}
	radius := opts.RadiusKM
	if radius <= 0 {
		radius = s.config.DefaultRadiusKM
	}
	minScore := s.config.DefaultMinScore
	if opts.MinScore != nil {
		minScore = *opts.MinScore
	}
	return limit, radius, minScore
}

// scoreAll scores candidates concurrently. Each goroutine writes only its
// own slot, so the output keeps the input order.
func (s *MatchSelector) scoreAll(ctx context.Context, trip *models.Trip, candidates []models.CandidateDriver, profiles map[primitive.ObjectID]*models.DriverPreference) ([]scoredCandidate, error) {
	day, clock := s.scorer.PickupSlot(trip)
	out := make([]scoredCandidate, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.ScoringWorkers)

	for i := range candidates {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			c := candidates[i]
			profile := NewPreferenceSource(profiles[c.ID])

			var mc models.MatchContext
			if c.CurrentDropoff != nil {
				mc.CurrentTrip = &models.Trip{DropoffLocation: *c.CurrentDropoff}
			}

			match := s.scorer.Score(c, profile, trip, mc)
			match.AutoAccept = evaluateAutoAccept(profile, &match, trip, day, clock)
			out[i] = scoredCandidate{match: match, location: *c.CurrentLocation}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoring interrupted: %w", err)
	}
	return out, nil
}

// attachETAs fills EstimatedPickupMinutes. Routing failures fall back to the
// straight-line estimate and never change the ranking.
func (s *MatchSelector) attachETAs(ctx context.Context, pickup models.GeoPoint, ranked []scoredCandidate) {
	var road []int
	if s.eta != nil {
		origins := make([]models.GeoPoint, len(ranked))
		for i, sc := range ranked {
			origins[i] = sc.location
		}

		etaCtx, cancel := context.WithTimeout(ctx, s.config.ETATimeout)
		minutes, err := s.eta.PickupMinutes(etaCtx, origins, pickup)
		cancel()
		if err != nil {
			s.logger.WithError(err).Warn("Pickup ETA lookup failed, using straight-line estimate")
		} else if len(minutes) == len(ranked) {
			road = minutes
		}
	}

	for i := range ranked {
		if road != nil && road[i] >= 0 {
			ranked[i].match.EstimatedPickupMinutes = road[i]
			continue
		}
		ranked[i].match.EstimatedPickupMinutes = utils.EstimateETAMinutes(ranked[i].match.DistanceToPickup, s.config.CitySpeedKMH)
	}
}

func (s *MatchSelector) finish(summary *models.MatchSummary, start time.Time) {
	elapsed := time.Since(start)
	s.metrics.ObserveMatch(string(summary.Status), summary.TotalConsidered, elapsed)
	s.logger.LogMatchEvent(summary.TripID, string(summary.Status), logger.Fields{
		"considered":  summary.TotalConsidered,
		"matches":     len(summary.Matches),
		"top_score":   summary.TopScore,
		"duration_ms": elapsed.Milliseconds(),
	})
}

func withoutExcluded(candidates []models.CandidateDriver, exclude []primitive.ObjectID) []models.CandidateDriver {
	if len(exclude) == 0 {
		return candidates
	}

	skip := make(map[primitive.ObjectID]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	kept := candidates[:0]
	for _, c := range candidates {
		if _, ok := skip[c.ID]; !ok {
			kept = append(kept, c)
		}
	}
	return kept
}
