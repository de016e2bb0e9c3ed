package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fleetdispatch/internal/models"
	"fleetdispatch/internal/repositories/interfaces"
	"fleetdispatch/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// stubMatcher returns a fixed summary and records the options it was given.
type stubMatcher struct {
	mu      sync.Mutex
	summary *models.MatchSummary
	err     error
	before  func()
	opts    []models.MatchOptions
}

func (m *stubMatcher) FindBestMatches(_ context.Context, trip *models.Trip, opts models.MatchOptions) (*models.MatchSummary, error) {
	m.mu.Lock()
	m.opts = append(m.opts, opts)
	m.mu.Unlock()
	if m.before != nil {
		m.before()
	}
	if m.err != nil {
		return nil, m.err
	}
	s := *m.summary
	s.TripID = trip.ID
	return &s, nil
}

func matchedSummary(ids ...primitive.ObjectID) *models.MatchSummary {
	s := &models.MatchSummary{Status: models.MatchStatusMatched}
	for i, id := range ids {
		s.Matches = append(s.Matches, models.MatchResult{DriverID: id, TotalScore: 90 - float64(i)})
	}
	return s
}

func TestAssignBest_AssignsTopDriver(t *testing.T) {
	best := newDriver("best", north(origin, 1), 5)
	other := newDriver("other", north(origin, 8), 3)
	trip := newTrip()
	trips := newFakeTripRepo(trip)
	selector := newTestSelector(&fakeDriverRepo{drivers: []*models.Driver{other, best}}, newFakePreferenceRepo(), nil)
	coord := newTestCoordinator(trips, selector)

	res, err := coord.AssignBest(context.Background(), trip.ID)
	if err != nil {
		t.Fatalf("AssignBest() error = %v", err)
	}

	if res.AssignedDriver.DriverID != best.ID {
		t.Errorf("assigned %s, want best", res.AssignedDriver.DriverName)
	}
	if res.Trip.Status != models.TripStatusPending {
		t.Errorf("Status = %s, want pending", res.Trip.Status)
	}
	if res.MatchScore != res.AssignedDriver.TotalScore {
		t.Errorf("MatchScore = %v, want %v", res.MatchScore, res.AssignedDriver.TotalScore)
	}

	stored := trips.get(trip.ID)
	if stored.DriverID == nil || *stored.DriverID != best.ID {
		t.Fatalf("stored DriverID = %v, want %s", stored.DriverID, best.ID.Hex())
	}
	if stored.AssignedAt == nil || stored.MatchScore != res.MatchScore {
		t.Errorf("stored assignment incomplete: %+v", stored)
	}
	if stored.ReassignmentCount != 0 {
		t.Errorf("ReassignmentCount = %d, want 0", stored.ReassignmentCount)
	}
}

func TestAssignBest_AutoAcceptSetsAccepted(t *testing.T) {
	trip := newTrip()
	trips := newFakeTripRepo(trip)
	summary := matchedSummary(primitive.NewObjectID())
	summary.Matches[0].AutoAccept = true
	coord := newTestCoordinator(trips, &stubMatcher{summary: summary})

	res, err := coord.AssignBest(context.Background(), trip.ID)
	if err != nil {
		t.Fatalf("AssignBest() error = %v", err)
	}
	if res.Trip.Status != models.TripStatusAccepted || !res.AutoAccepted {
		t.Errorf("Status = %s AutoAccepted = %v, want accepted/true", res.Trip.Status, res.AutoAccepted)
	}
}

func TestAssignBest_UsesLimitOneAndSkipsDeclined(t *testing.T) {
	declined := primitive.NewObjectID()
	trip := newTrip()
	trip.DeclinedDrivers = []primitive.ObjectID{declined}
	matcher := &stubMatcher{summary: matchedSummary(primitive.NewObjectID())}
	coord := newTestCoordinator(newFakeTripRepo(trip), matcher)

	if _, err := coord.AssignBest(context.Background(), trip.ID); err != nil {
		t.Fatalf("AssignBest() error = %v", err)
	}
	opts := matcher.opts[0]
	if opts.Limit != 1 {
		t.Errorf("Limit = %d, want 1", opts.Limit)
	}
	if len(opts.ExcludeDrivers) != 1 || opts.ExcludeDrivers[0] != declined {
		t.Errorf("ExcludeDrivers = %v, want declined driver", opts.ExcludeDrivers)
	}
}

func TestAssignBest_NoDriver(t *testing.T) {
	trip := newTrip()
	trips := newFakeTripRepo(trip)
	coord := newTestCoordinator(trips, newTestSelector(&fakeDriverRepo{}, newFakePreferenceRepo(), nil))

	_, err := coord.AssignBest(context.Background(), trip.ID)
	if !errors.Is(err, ErrNoDriverFound) {
		t.Fatalf("error = %v, want ErrNoDriverFound", err)
	}
	var nd *NoDriverError
	if !errors.As(err, &nd) || nd.Status != models.MatchStatusNoCandidatesNearby {
		t.Errorf("error detail = %+v, want no_candidates_nearby", nd)
	}

	stored := trips.get(trip.ID)
	if stored.DriverID != nil || stored.Status != models.TripStatusUnassigned {
		t.Errorf("trip changed after failed assignment: %+v", stored)
	}
}

func TestAssignBest_TripNotFound(t *testing.T) {
	coord := newTestCoordinator(newFakeTripRepo(), &stubMatcher{summary: matchedSummary()})

	if _, err := coord.AssignBest(context.Background(), primitive.NewObjectID()); !errors.Is(err, ErrTripNotFound) {
		t.Fatalf("error = %v, want ErrTripNotFound", err)
	}
}

func TestAssignBest_PersistFailureLeavesTripUnchanged(t *testing.T) {
	trip := newTrip()
	trips := newFakeTripRepo(trip)
	trips.setErr = errBoom
	coord := newTestCoordinator(trips, &stubMatcher{summary: matchedSummary(primitive.NewObjectID())})

	_, err := coord.AssignBest(context.Background(), trip.ID)
	if !errors.Is(err, ErrAssignmentPersistFailure) {
		t.Fatalf("error = %v, want ErrAssignmentPersistFailure", err)
	}
	if !errors.Is(err, errBoom) {
		t.Errorf("error = %v, should wrap the storage error", err)
	}

	stored := trips.get(trip.ID)
	if stored.DriverID != nil || stored.Status != models.TripStatusUnassigned || stored.AssignedAt != nil {
		t.Errorf("trip changed after persist failure: %+v", stored)
	}
}

func TestAssignBest_AlreadyAssigned(t *testing.T) {
	trip := newTrip()
	trip.Status = models.TripStatusPending
	matcher := &stubMatcher{summary: matchedSummary(primitive.NewObjectID())}
	coord := newTestCoordinator(newFakeTripRepo(trip), matcher)

	if _, err := coord.AssignBest(context.Background(), trip.ID); !errors.Is(err, ErrAssignmentConflict) {
		t.Fatalf("error = %v, want ErrAssignmentConflict", err)
	}
	if len(matcher.opts) != 0 {
		t.Error("matcher should not run for an assigned trip")
	}
}

func TestAssignBest_ConcurrentWriterLosesCAS(t *testing.T) {
	trip := newTrip()
	trips := newFakeTripRepo(trip)
	matcher := &stubMatcher{
		summary: matchedSummary(primitive.NewObjectID()),
		before: func() {
			// Another instance commits while we are matching.
			trips.mu.Lock()
			trips.trips[trip.ID].Status = models.TripStatusPending
			trips.mu.Unlock()
		},
	}
	coord := newTestCoordinator(trips, matcher)

	if _, err := coord.AssignBest(context.Background(), trip.ID); !errors.Is(err, ErrAssignmentConflict) {
		t.Fatalf("error = %v, want ErrAssignmentConflict", err)
	}
	if len(trips.updates) != 0 {
		t.Errorf("conflicting write was applied: %+v", trips.updates)
	}
}

func TestAssignBest_ConcurrentCallsAssignOnce(t *testing.T) {
	trip := newTrip()
	trips := newFakeTripRepo(trip)
	trips.getDelay = 20 * time.Millisecond
	coord := newTestCoordinator(trips, &stubMatcher{summary: matchedSummary(primitive.NewObjectID())})

	const callers = 5
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = coord.AssignBest(context.Background(), trip.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, ErrAssignmentConflict):
			t.Errorf("unexpected error %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d callers succeeded, want exactly 1", succeeded)
	}
	if len(trips.updates) != 1 {
		t.Errorf("%d writes applied, want 1", len(trips.updates))
	}
}

func TestReassign(t *testing.T) {
	current := newDriver("current", north(origin, 0.5), 5)
	excluded := newDriver("excluded", north(origin, 1), 5)
	d3 := newDriver("d3", north(origin, 2), 5)
	d4 := newDriver("d4", north(origin, 3), 5)
	d5 := newDriver("d5", north(origin, 4), 5)
	d6 := newDriver("d6", north(origin, 5), 5)
	earlier := newDriver("earlier", north(origin, 1.5), 5)

	trip := newTrip()
	trip.Status = models.TripStatusPending
	trip.DriverID = &current.ID
	trip.DeclinedDrivers = []primitive.ObjectID{earlier.ID}
	trips := newFakeTripRepo(trip)

	drivers := &fakeDriverRepo{drivers: []*models.Driver{current, excluded, d3, d4, d5, d6, earlier}}
	coord := newTestCoordinator(trips, newTestSelector(drivers, newFakePreferenceRepo(), nil))

	res, err := coord.Reassign(context.Background(), trip.ID, []primitive.ObjectID{excluded.ID})
	if err != nil {
		t.Fatalf("Reassign() error = %v", err)
	}

	skipped := map[primitive.ObjectID]bool{current.ID: true, excluded.ID: true, earlier.ID: true}
	if skipped[res.AssignedDriver.DriverID] {
		t.Fatalf("reassigned to a skipped driver %s", res.AssignedDriver.DriverName)
	}
	if res.AssignedDriver.DriverID != d3.ID {
		t.Errorf("assigned %s, want d3", res.AssignedDriver.DriverName)
	}
	if res.ReassignmentCount != 1 {
		t.Errorf("ReassignmentCount = %d, want 1", res.ReassignmentCount)
	}
	if len(res.Alternatives) != 2 {
		t.Fatalf("got %d alternatives, want 2", len(res.Alternatives))
	}
	for _, alt := range res.Alternatives {
		if skipped[alt.DriverID] || alt.DriverID == res.AssignedDriver.DriverID {
			t.Errorf("alternative %s should not be offered", alt.DriverName)
		}
	}

	stored := trips.get(trip.ID)
	if *stored.DriverID != d3.ID || stored.ReassignmentCount != 1 {
		t.Errorf("stored trip = %+v", stored)
	}
	declined := make(map[primitive.ObjectID]bool)
	for _, id := range stored.DeclinedDrivers {
		declined[id] = true
	}
	for id := range skipped {
		if !declined[id] {
			t.Errorf("driver %s missing from declined list", id.Hex())
		}
	}
}

func TestReassign_NoMatchLeavesTripUnchanged(t *testing.T) {
	current := newDriver("current", north(origin, 1), 5)
	trip := newTrip()
	trip.Status = models.TripStatusPending
	trip.DriverID = &current.ID
	trip.MatchScore = 88
	trips := newFakeTripRepo(trip)
	coord := newTestCoordinator(trips, newTestSelector(&fakeDriverRepo{drivers: []*models.Driver{current}}, newFakePreferenceRepo(), nil))

	_, err := coord.Reassign(context.Background(), trip.ID, nil)
	if !errors.Is(err, ErrNoDriverFound) {
		t.Fatalf("error = %v, want ErrNoDriverFound", err)
	}

	stored := trips.get(trip.ID)
	if *stored.DriverID != current.ID || stored.ReassignmentCount != 0 || len(stored.DeclinedDrivers) != 0 || stored.MatchScore != 88 {
		t.Errorf("trip changed after failed reassignment: %+v", stored)
	}
}

func TestReassign_RejectsFinishedTrips(t *testing.T) {
	for _, status := range []models.TripStatus{models.TripStatusInProgress, models.TripStatusCompleted, models.TripStatusCancelled} {
		trip := newTrip()
		trip.Status = status
		coord := newTestCoordinator(newFakeTripRepo(trip), &stubMatcher{summary: matchedSummary(primitive.NewObjectID())})

		if _, err := coord.Reassign(context.Background(), trip.ID, nil); !errors.Is(err, ErrAssignmentConflict) {
			t.Errorf("%s: error = %v, want ErrAssignmentConflict", status, err)
		}
	}
}

func TestReassign_RepeatedIncrementsCount(t *testing.T) {
	trip := newTrip()
	trips := newFakeTripRepo(trip)
	matcher := &stubMatcher{}
	coord := newTestCoordinator(trips, matcher)

	for i := 1; i <= 3; i++ {
		matcher.summary = matchedSummary(primitive.NewObjectID())
		res, err := coord.Reassign(context.Background(), trip.ID, nil)
		if err != nil {
			t.Fatalf("Reassign #%d error = %v", i, err)
		}
		if res.ReassignmentCount != i {
			t.Errorf("Reassign #%d count = %d", i, res.ReassignmentCount)
		}
	}
	if got := len(trips.get(trip.ID).DeclinedDrivers); got != 2 {
		t.Errorf("declined = %d, want the two replaced drivers", got)
	}
}

func TestBatchAssign_IsolatesFailures(t *testing.T) {
	drivers := &fakeDriverRepo{drivers: []*models.Driver{
		newDriver("a", north(origin, 1), 5),
		newDriver("b", north(origin, 2), 4),
	}}

	var trips []*models.Trip
	for i := 0; i < 5; i++ {
		trips = append(trips, newTrip())
	}
	// Nobody drives near the third pickup.
	trips[2].PickupLocation = north(origin, 500)

	repo := newFakeTripRepo(trips...)
	coord := newTestCoordinator(repo, newTestSelector(drivers, newFakePreferenceRepo(), nil))

	ids := make([]primitive.ObjectID, len(trips))
	for i, tr := range trips {
		ids[i] = tr.ID
	}

	res, err := coord.BatchAssign(context.Background(), ids)
	if err != nil {
		t.Fatalf("BatchAssign() error = %v", err)
	}

	if res.BatchID == "" {
		t.Error("BatchID should be set")
	}
	if len(res.Results) != 5 {
		t.Fatalf("got %d results, want 5", len(res.Results))
	}
	for i, r := range res.Results {
		if r.TripID != ids[i] {
			t.Errorf("result %d is for trip %s, want input order", i, r.TripID.Hex())
		}
		wantSuccess := i != 2
		if r.Success != wantSuccess {
			t.Errorf("result %d success = %v, want %v (%s)", i, r.Success, wantSuccess, r.Error)
		}
	}
	if res.Results[2].Error == "" {
		t.Error("failed item should carry an error message")
	}

	want := models.BatchSummary{Total: 5, Successful: 4, Failed: 1, SuccessRate: 80}
	if res.Summary != want {
		t.Errorf("Summary = %+v, want %+v", res.Summary, want)
	}
	if res.CompletedAt.Before(res.StartedAt) {
		t.Error("CompletedAt before StartedAt")
	}
}

func TestBatchAssign_Empty(t *testing.T) {
	coord := newTestCoordinator(newFakeTripRepo(), &stubMatcher{summary: matchedSummary()})

	res, err := coord.BatchAssign(context.Background(), nil)
	if err != nil {
		t.Fatalf("BatchAssign() error = %v", err)
	}
	if res.Summary.Total != 0 || res.Summary.SuccessRate != 0 {
		t.Errorf("Summary = %+v, want zero", res.Summary)
	}
}

func TestBatchAssign_Paced(t *testing.T) {
	var trips []*models.Trip
	var ids []primitive.ObjectID
	for i := 0; i < 3; i++ {
		tr := newTrip()
		trips = append(trips, tr)
		ids = append(ids, tr.ID)
	}
	coord := NewAssignmentCoordinator(
		newFakeTripRepo(trips...),
		&stubMatcher{summary: matchedSummary(primitive.NewObjectID())},
		NewMemoryTripLocker(time.Minute),
		AssignmentConfig{BatchInterval: 20 * time.Millisecond, BatchBurst: 1},
		logger.NewNop(),
		nil,
	)

	start := time.Now()
	res, err := coord.BatchAssign(context.Background(), ids)
	if err != nil {
		t.Fatalf("BatchAssign() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Errorf("batch finished in %v, expected pacing between trips", elapsed)
	}
	if res.Summary.Successful != 3 {
		t.Errorf("Successful = %d, want 3", res.Summary.Successful)
	}
}

func TestOutcomeLabel(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{&NoDriverError{}, "no_driver"},
		{interfaces.ErrAssignmentConflict, "conflict"},
		{ErrTripNotFound, "not_found"},
		{errBoom, "error"},
	}
	for _, tt := range tests {
		if got := outcomeLabel(tt.err); got != tt.want {
			t.Errorf("outcomeLabel(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
