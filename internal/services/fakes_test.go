package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"fleetdispatch/internal/models"
	"fleetdispatch/internal/repositories/interfaces"
	"fleetdispatch/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reference point near lower Manhattan. One degree of latitude is ~111.19 km.
var origin = models.GeoPoint{Lat: 40.7128, Lng: -74.0060}

const kmPerDegreeLat = 111.19492664455873

// north returns a point km kilometres due north of p.
func north(p models.GeoPoint, km float64) models.GeoPoint {
	return models.GeoPoint{Lat: p.Lat + km/kmPerDegreeLat, Lng: p.Lng}
}

func newDriver(name string, loc models.GeoPoint, rating float64) *models.Driver {
	return &models.Driver{
		ID:                 primitive.NewObjectID(),
		Name:               name,
		Role:               models.RoleDriver,
		IsActive:           true,
		IsAvailable:        true,
		IsLocationTracking: true,
		CurrentLocation:    models.NewLocation(loc),
		Rating:             rating,
	}
}

// mondayNoon is a Monday.
var mondayNoon = time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)

func newTrip() *models.Trip {
	return &models.Trip{
		ID:             primitive.NewObjectID(),
		PickupLocation: origin,
		PickupTime:     mondayNoon,
		TripType:       "standard",
		Rider:          models.TripRider{ID: primitive.NewObjectID(), Rating: 4.8},
		Fare:           25,
		Status:         models.TripStatusUnassigned,
	}
}

type fakeDriverRepo struct {
	mu      sync.Mutex
	drivers []*models.Driver
	err     error
	queries []models.DriverQuery
}

func (r *fakeDriverRepo) FindCandidates(_ context.Context, q *models.DriverQuery) ([]*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, *q)
	if r.err != nil {
		return nil, r.err
	}
	out := make([]*models.Driver, len(r.drivers))
	copy(out, r.drivers)
	return out, nil
}

func (r *fakeDriverRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.drivers {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

type fakePreferenceRepo struct {
	mu    sync.Mutex
	prefs map[primitive.ObjectID]*models.DriverPreference
	err   error
}

func newFakePreferenceRepo(prefs ...*models.DriverPreference) *fakePreferenceRepo {
	r := &fakePreferenceRepo{prefs: make(map[primitive.ObjectID]*models.DriverPreference)}
	for _, p := range prefs {
		r.prefs[p.DriverID] = p
	}
	return r
}

func (r *fakePreferenceRepo) GetByDriverIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.DriverPreference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make(map[primitive.ObjectID]*models.DriverPreference)
	for _, id := range ids {
		if p, ok := r.prefs[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (r *fakePreferenceRepo) GetByDriverID(_ context.Context, id primitive.ObjectID) (*models.DriverPreference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.prefs[id]; ok {
		return p, nil
	}
	return nil, interfaces.ErrPreferenceNotFound
}

func (r *fakePreferenceRepo) Upsert(_ context.Context, p *models.DriverPreference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if existing, ok := r.prefs[p.DriverID]; ok {
		p.Statistics = existing.Statistics
	}
	r.prefs[p.DriverID] = p
	return nil
}

func (r *fakePreferenceRepo) RecordTripResponse(_ context.Context, id primitive.ObjectID, accepted bool, rt time.Duration) (*models.PreferenceStatistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prefs[id]
	if !ok {
		p = models.NewDriverPreference(id)
		r.prefs[id] = p
	}
	p.Statistics.Record(accepted, rt, time.Now())
	stats := p.Statistics
	return &stats, nil
}

type fakeTripRepo struct {
	mu       sync.Mutex
	trips    map[primitive.ObjectID]*models.Trip
	setErr   error
	updates  []models.AssignmentUpdate
	getDelay time.Duration
}

func newFakeTripRepo(trips ...*models.Trip) *fakeTripRepo {
	r := &fakeTripRepo{trips: make(map[primitive.ObjectID]*models.Trip)}
	for _, t := range trips {
		r.trips[t.ID] = t
	}
	return r
}

// GetByID returns a copy so callers cannot mutate stored state.
func (r *fakeTripRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Trip, error) {
	if r.getDelay > 0 {
		time.Sleep(r.getDelay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	cp := *t
	cp.DeclinedDrivers = append([]primitive.ObjectID(nil), t.DeclinedDrivers...)
	return &cp, nil
}

func (r *fakeTripRepo) SetAssignment(_ context.Context, u *models.AssignmentUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	t, ok := r.trips[u.TripID]
	if !ok {
		return interfaces.ErrNotFound
	}

	status := t.Status
	if status == "" {
		status = models.TripStatusUnassigned
	}
	statusOK := false
	for _, s := range u.ExpectedStatuses {
		if s == status {
			statusOK = true
		}
	}
	if !statusOK || t.ReassignmentCount != u.ExpectedReassignmentCount {
		return interfaces.ErrAssignmentConflict
	}

	u.Apply(t)
	r.updates = append(r.updates, *u)
	return nil
}

func (r *fakeTripRepo) get(id primitive.ObjectID) models.Trip {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.trips[id]
}

type fakeETA struct {
	minutes []int
	err     error
	calls   int
}

func (f *fakeETA) PickupMinutes(_ context.Context, origins []models.GeoPoint, _ models.GeoPoint) ([]int, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.minutes[:len(origins)], nil
}

var errBoom = errors.New("boom")

func newTestSelector(drivers *fakeDriverRepo, prefs *fakePreferenceRepo, eta ETAEstimator) *MatchSelector {
	return NewMatchSelector(
		NewCandidateLocator(drivers, 0),
		prefs,
		NewMatchScorer(time.UTC),
		eta,
		DefaultMatchSelectorConfig(),
		logger.NewNop(),
		nil,
	)
}

func newTestCoordinator(trips *fakeTripRepo, matcher TripMatcher) *AssignmentCoordinator {
	return NewAssignmentCoordinator(
		trips,
		matcher,
		NewMemoryTripLocker(time.Minute),
		AssignmentConfig{Timeout: 5 * time.Second},
		logger.NewNop(),
		nil,
	)
}

func floatPtr(v float64) *float64 { return &v }
