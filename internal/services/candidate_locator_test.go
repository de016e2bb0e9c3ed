package services

import (
	"context"
	"errors"
	"testing"

	"fleetdispatch/internal/models"
)

func TestCandidateLocator_FindNearby(t *testing.T) {
	near := newDriver("near", north(origin, 1), 4)
	mid := newDriver("mid", north(origin, 5), 4)
	far := newDriver("far", north(origin, 30), 4)

	noLocation := newDriver("no-location", origin, 4)
	noLocation.CurrentLocation = nil

	offline := newDriver("offline", origin, 4)
	offline.IsAvailable = false

	inactive := newDriver("inactive", origin, 4)
	inactive.IsActive = false

	untracked := newDriver("untracked", north(origin, 2), 4)
	untracked.IsLocationTracking = false

	repo := &fakeDriverRepo{drivers: []*models.Driver{far, mid, noLocation, offline, inactive, untracked, near}}
	locator := NewCandidateLocator(repo, 100)

	got, err := locator.FindNearby(context.Background(), origin, 20, true)
	if err != nil {
		t.Fatalf("FindNearby() error = %v", err)
	}

	wantOrder := []string{"near", "mid"}
	if len(got) != len(wantOrder) {
		t.Fatalf("got %d candidates, want %d: %+v", len(got), len(wantOrder), got)
	}
	for i, name := range wantOrder {
		if got[i].Name != name {
			t.Errorf("candidate %d = %s, want %s", i, got[i].Name, name)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].DistanceToPickup < got[i-1].DistanceToPickup {
			t.Errorf("candidates not ordered by distance at %d", i)
		}
	}

	q := repo.queries[0]
	if q.RadiusKM != 20 || !q.RequireLocationTracking || q.Limit != 100 || q.Near != origin {
		t.Errorf("unexpected query %+v", q)
	}
}

func TestCandidateLocator_TrackingOptional(t *testing.T) {
	untracked := newDriver("untracked", north(origin, 2), 4)
	untracked.IsLocationTracking = false
	locator := NewCandidateLocator(&fakeDriverRepo{drivers: []*models.Driver{untracked}}, 0)

	got, err := locator.FindNearby(context.Background(), origin, 10, false)
	if err != nil {
		t.Fatalf("FindNearby() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
}

func TestCandidateLocator_DropsDriversBeyondRadius(t *testing.T) {
	inside := newDriver("inside", north(origin, 9.99), 4)
	outside := newDriver("outside", north(origin, 10.01), 4)
	locator := NewCandidateLocator(&fakeDriverRepo{drivers: []*models.Driver{inside, outside}}, 0)

	got, err := locator.FindNearby(context.Background(), origin, 10, true)
	if err != nil {
		t.Fatalf("FindNearby() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "inside" {
		t.Fatalf("got %+v, want only the driver inside the radius", got)
	}
}

func TestCandidateLocator_Errors(t *testing.T) {
	locator := NewCandidateLocator(&fakeDriverRepo{err: errBoom}, 0)

	if _, err := locator.FindNearby(context.Background(), origin, 10, true); !errors.Is(err, errBoom) {
		t.Errorf("repository error = %v, want wrapped errBoom", err)
	}

	bad := models.GeoPoint{Lat: 95, Lng: 0}
	if _, err := locator.FindNearby(context.Background(), bad, 10, true); !errors.Is(err, ErrInvalidTrip) {
		t.Errorf("invalid pickup error = %v, want ErrInvalidTrip", err)
	}
}
