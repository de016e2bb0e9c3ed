package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"fleetdispatch/internal/models"
	"fleetdispatch/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFindBestMatches_RanksByScore(t *testing.T) {
	drivers := []*models.Driver{
		newDriver("far-good", north(origin, 15), 5),
		newDriver("close-poor", north(origin, 1), 1),
		newDriver("mid", north(origin, 6), 4),
		newDriver("close-good", north(origin, 0.5), 4.9),
	}
	selector := newTestSelector(&fakeDriverRepo{drivers: drivers}, newFakePreferenceRepo(), nil)

	summary, err := selector.FindBestMatches(context.Background(), newTrip(), models.MatchOptions{})
	if err != nil {
		t.Fatalf("FindBestMatches() error = %v", err)
	}

	if summary.Status != models.MatchStatusMatched {
		t.Fatalf("Status = %s, want matched", summary.Status)
	}
	if summary.TotalConsidered != 4 {
		t.Errorf("TotalConsidered = %d, want 4", summary.TotalConsidered)
	}
	if len(summary.Matches) != 4 {
		t.Fatalf("got %d matches, want 4", len(summary.Matches))
	}
	for i := 1; i < len(summary.Matches); i++ {
		if summary.Matches[i].TotalScore > summary.Matches[i-1].TotalScore {
			t.Errorf("match %d score %v exceeds previous %v", i, summary.Matches[i].TotalScore, summary.Matches[i-1].TotalScore)
		}
	}
	if summary.Matches[0].DriverName != "close-good" {
		t.Errorf("top match = %s, want close-good", summary.Matches[0].DriverName)
	}
	if summary.TopScore != summary.Matches[0].TotalScore {
		t.Errorf("TopScore = %v, want %v", summary.TopScore, summary.Matches[0].TotalScore)
	}
}

func TestFindBestMatches_ExcludedDriversNeverReturned(t *testing.T) {
	a := newDriver("a", north(origin, 1), 5)
	b := newDriver("b", north(origin, 2), 5)
	c := newDriver("c", north(origin, 3), 5)
	selector := newTestSelector(&fakeDriverRepo{drivers: []*models.Driver{a, b, c}}, newFakePreferenceRepo(), nil)

	summary, err := selector.FindBestMatches(context.Background(), newTrip(), models.MatchOptions{
		ExcludeDrivers: []primitive.ObjectID{a.ID, c.ID},
	})
	if err != nil {
		t.Fatalf("FindBestMatches() error = %v", err)
	}
	if len(summary.Matches) != 1 || summary.Matches[0].DriverID != b.ID {
		t.Fatalf("matches = %+v, want only driver b", summary.Matches)
	}
	if summary.TotalConsidered != 1 {
		t.Errorf("TotalConsidered = %d, want 1", summary.TotalConsidered)
	}
}

func TestFindBestMatches_EmptyPool(t *testing.T) {
	selector := newTestSelector(&fakeDriverRepo{}, newFakePreferenceRepo(), nil)

	summary, err := selector.FindBestMatches(context.Background(), newTrip(), models.MatchOptions{})
	if err != nil {
		t.Fatalf("FindBestMatches() error = %v", err)
	}
	if summary.Status != models.MatchStatusNoCandidatesNearby {
		t.Errorf("Status = %s, want %s", summary.Status, models.MatchStatusNoCandidatesNearby)
	}
	if summary.TotalConsidered != 0 || len(summary.Matches) != 0 {
		t.Errorf("summary = %+v, want no matches and nothing considered", summary)
	}
	if summary.Matches == nil {
		t.Error("Matches should be an empty slice, not nil")
	}
}

func TestFindBestMatches_NoSuitableDriver(t *testing.T) {
	d := newDriver("meh", north(origin, 18), 1)
	selector := newTestSelector(&fakeDriverRepo{drivers: []*models.Driver{d}}, newFakePreferenceRepo(), nil)

	summary, err := selector.FindBestMatches(context.Background(), newTrip(), models.MatchOptions{MinScore: floatPtr(99)})
	if err != nil {
		t.Fatalf("FindBestMatches() error = %v", err)
	}
	if summary.Status != models.MatchStatusNoSuitableDriver {
		t.Errorf("Status = %s, want %s", summary.Status, models.MatchStatusNoSuitableDriver)
	}
	if summary.TotalConsidered != 1 {
		t.Errorf("TotalConsidered = %d, want 1", summary.TotalConsidered)
	}
}

func TestFindBestMatches_MinScore(t *testing.T) {
	ok := newDriver("ok", north(origin, 1), 5)
	vetoed := newDriver("no-pets", north(origin, 1), 5)
	pref := explicitDefaults(vetoed.ID)
	pref.TripPreferences.AcceptPets = false

	trip := newTrip()
	trip.HasPets = true

	tests := []struct {
		name     string
		minScore *float64
		want     int
	}{
		{name: "default threshold drops vetoed driver", minScore: nil, want: 1},
		{name: "explicit zero keeps everyone", minScore: floatPtr(0), want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selector := newTestSelector(&fakeDriverRepo{drivers: []*models.Driver{ok, vetoed}}, newFakePreferenceRepo(pref), nil)
			summary, err := selector.FindBestMatches(context.Background(), trip, models.MatchOptions{MinScore: tt.minScore})
			if err != nil {
				t.Fatalf("FindBestMatches() error = %v", err)
			}
			if len(summary.Matches) != tt.want {
				t.Fatalf("got %d matches, want %d", len(summary.Matches), tt.want)
			}
			for _, m := range summary.Matches {
				if m.TotalScore < 0 || m.TotalScore > 100 {
					t.Errorf("score %v out of bounds", m.TotalScore)
				}
			}
		})
	}
}

func TestFindBestMatches_Limit(t *testing.T) {
	var drivers []*models.Driver
	for i := 0; i < 40; i++ {
		drivers = append(drivers, newDriver(fmt.Sprintf("d%02d", i), north(origin, float64(i)*0.4), 4))
	}
	selector := newTestSelector(&fakeDriverRepo{drivers: drivers}, newFakePreferenceRepo(), nil)

	summary, err := selector.FindBestMatches(context.Background(), newTrip(), models.MatchOptions{Limit: 3})
	if err != nil {
		t.Fatalf("FindBestMatches() error = %v", err)
	}
	if len(summary.Matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(summary.Matches))
	}
	if summary.TotalConsidered != 40 {
		t.Errorf("TotalConsidered = %d, want 40", summary.TotalConsidered)
	}

	summary, err = selector.FindBestMatches(context.Background(), newTrip(), models.MatchOptions{})
	if err != nil {
		t.Fatalf("FindBestMatches() error = %v", err)
	}
	if len(summary.Matches) != utils.DefaultMatchLimit {
		t.Errorf("default limit returned %d matches, want %d", len(summary.Matches), utils.DefaultMatchLimit)
	}
}

func TestFindBestMatches_TiesKeepNearestFirst(t *testing.T) {
	far := newDriver("far", north(origin, 8), 4)
	near := newDriver("near", north(origin, 2), 4)

	profiles := make([]*models.DriverPreference, 0, 2)
	for _, d := range []*models.Driver{far, near} {
		p := explicitDefaults(d.ID)
		p.MatchingWeights.Distance = 0
		profiles = append(profiles, p)
	}
	selector := newTestSelector(&fakeDriverRepo{drivers: []*models.Driver{far, near}}, newFakePreferenceRepo(profiles...), nil)

	summary, err := selector.FindBestMatches(context.Background(), newTrip(), models.MatchOptions{})
	if err != nil {
		t.Fatalf("FindBestMatches() error = %v", err)
	}
	if len(summary.Matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(summary.Matches))
	}
	if summary.Matches[0].TotalScore != summary.Matches[1].TotalScore {
		t.Fatalf("expected equal scores, got %v and %v", summary.Matches[0].TotalScore, summary.Matches[1].TotalScore)
	}
	if summary.Matches[0].DriverID != near.ID {
		t.Errorf("tie should be broken by distance; got %s first", summary.Matches[0].DriverName)
	}
}

func TestFindBestMatches_RadiusOption(t *testing.T) {
	d1 := newDriver("d1", north(origin, 2), 5)
	d2 := newDriver("d2", north(origin, 45), 3)
	selector := newTestSelector(&fakeDriverRepo{drivers: []*models.Driver{d2, d1}}, newFakePreferenceRepo(), nil)

	summary, err := selector.FindBestMatches(context.Background(), newTrip(), models.MatchOptions{})
	if err != nil {
		t.Fatalf("FindBestMatches() error = %v", err)
	}
	if summary.TotalConsidered != 1 {
		t.Errorf("default radius considered %d drivers, want 1", summary.TotalConsidered)
	}

	summary, err = selector.FindBestMatches(context.Background(), newTrip(), models.MatchOptions{RadiusKM: 50, MinScore: floatPtr(0)})
	if err != nil {
		t.Fatalf("FindBestMatches() error = %v", err)
	}
	if summary.TotalConsidered != 2 || len(summary.Matches) != 2 {
		t.Fatalf("summary = %+v, want both drivers", summary)
	}
	if summary.Matches[0].DriverID != d1.ID {
		t.Errorf("nearer, better rated driver should rank first")
	}
}

func TestFindBestMatches_AutoAccept(t *testing.T) {
	d := newDriver("auto", north(origin, 1), 5)
	pref := explicitDefaults(d.ID)
	pref.AutoAccept = models.AutoAcceptRules{
		Enabled:    true,
		Conditions: models.AutoAcceptConditions{MaxPickupDistanceKM: 3, MinFare: 10},
	}
	selector := newTestSelector(&fakeDriverRepo{drivers: []*models.Driver{d}}, newFakePreferenceRepo(pref), nil)

	summary, err := selector.FindBestMatches(context.Background(), newTrip(), models.MatchOptions{})
	if err != nil {
		t.Fatalf("FindBestMatches() error = %v", err)
	}
	if len(summary.Matches) != 1 || !summary.Matches[0].AutoAccept {
		t.Fatalf("expected an auto-accepted match, got %+v", summary.Matches)
	}
}

func TestFindBestMatches_ChainingUsesCurrentTrip(t *testing.T) {
	busy := newDriver("busy", north(origin, 3), 4)
	busy.CurrentTrip = &models.ActiveTrip{TripID: primitive.NewObjectID(), DropoffLocation: north(origin, 1)}
	selector := newTestSelector(&fakeDriverRepo{drivers: []*models.Driver{busy}}, newFakePreferenceRepo(), nil)

	summary, err := selector.FindBestMatches(context.Background(), newTrip(), models.MatchOptions{})
	if err != nil {
		t.Fatalf("FindBestMatches() error = %v", err)
	}
	if got := summary.Matches[0].Breakdown.Efficiency; got < 94 || got > 96 {
		t.Errorf("Efficiency = %v, want ~95", got)
	}
}

func TestFindBestMatches_ETA(t *testing.T) {
	a := newDriver("a", north(origin, 1), 5)
	b := newDriver("b", north(origin, 4), 5)

	t.Run("road estimate used", func(t *testing.T) {
		eta := &fakeETA{minutes: []int{7, 12}}
		selector := newTestSelector(&fakeDriverRepo{drivers: []*models.Driver{a, b}}, newFakePreferenceRepo(), eta)

		summary, err := selector.FindBestMatches(context.Background(), newTrip(), models.MatchOptions{})
		if err != nil {
			t.Fatalf("FindBestMatches() error = %v", err)
		}
		if eta.calls != 1 {
			t.Errorf("ETA calls = %d, want 1", eta.calls)
		}
		if summary.Matches[0].EstimatedPickupMinutes != 7 || summary.Matches[1].EstimatedPickupMinutes != 12 {
			t.Errorf("ETAs = %d, %d; want 7, 12", summary.Matches[0].EstimatedPickupMinutes, summary.Matches[1].EstimatedPickupMinutes)
		}
	})

	t.Run("unroutable origin falls back", func(t *testing.T) {
		eta := &fakeETA{minutes: []int{7, -1}}
		selector := newTestSelector(&fakeDriverRepo{drivers: []*models.Driver{a, b}}, newFakePreferenceRepo(), eta)

		summary, err := selector.FindBestMatches(context.Background(), newTrip(), models.MatchOptions{})
		if err != nil {
			t.Fatalf("FindBestMatches() error = %v", err)
		}
		second := summary.Matches[1]
		want := utils.EstimateETAMinutes(second.DistanceToPickup, utils.DefaultCitySpeedKMH)
		if second.EstimatedPickupMinutes != want {
			t.Errorf("fallback ETA = %d, want %d", second.EstimatedPickupMinutes, want)
		}
	})

	t.Run("provider failure falls back without changing ranking", func(t *testing.T) {
		eta := &fakeETA{err: errBoom}
		selector := newTestSelector(&fakeDriverRepo{drivers: []*models.Driver{a, b}}, newFakePreferenceRepo(), eta)

		summary, err := selector.FindBestMatches(context.Background(), newTrip(), models.MatchOptions{})
		if err != nil {
			t.Fatalf("FindBestMatches() error = %v", err)
		}
		if summary.Matches[0].DriverID != a.ID {
			t.Errorf("ranking changed after ETA failure")
		}
		for _, m := range summary.Matches {
			if want := utils.EstimateETAMinutes(m.DistanceToPickup, utils.DefaultCitySpeedKMH); m.EstimatedPickupMinutes != want {
				t.Errorf("%s ETA = %d, want %d", m.DriverName, m.EstimatedPickupMinutes, want)
			}
		}
	})
}

func TestFindBestMatches_PreferenceLoadError(t *testing.T) {
	prefs := newFakePreferenceRepo()
	prefs.err = errBoom
	selector := newTestSelector(&fakeDriverRepo{drivers: []*models.Driver{newDriver("a", origin, 5)}}, prefs, nil)

	if _, err := selector.FindBestMatches(context.Background(), newTrip(), models.MatchOptions{}); !errors.Is(err, errBoom) {
		t.Fatalf("error = %v, want wrapped errBoom", err)
	}
}

func TestFindBestMatches_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	selector := newTestSelector(&fakeDriverRepo{drivers: []*models.Driver{newDriver("a", origin, 5)}}, newFakePreferenceRepo(), nil)

	if _, err := selector.FindBestMatches(ctx, newTrip(), models.MatchOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
