package models_test

import (
	"math"
	"testing"

	"github.com/fueltrack360/dispatch_backend/models"
)

func TestHaversineDistanceM_KnownDistance(t *testing.T) {
	// Yangon city hall to Sule pagoda, roughly 150m apart.
	d := models.HaversineDistanceM(16.7714, 96.1594, 16.7729, 96.1610)
	if d < 100 || d > 350 {
		t.Fatalf("expected a few hundred meters, got %f", d)
	}

	// Same point is zero.
	if d := models.HaversineDistanceM(16.77, 96.16, 16.77, 96.16); d != 0 {
		t.Fatalf("expected 0 for identical points, got %f", d)
	}
}

func TestHaversineDistanceM_OneDegreeLatitude(t *testing.T) {
	// One degree of latitude is ~111.2km on a 6371km sphere.
	d := models.HaversineDistanceM(0, 0, 1, 0)
	if math.Abs(d-111195) > 200 {
		t.Fatalf("expected ~111195m for one degree latitude, got %f", d)
	}
}

func TestWithinRadius_BoundaryIsInside(t *testing.T) {
	centerLat, centerLng := 16.7714, 96.1594
	pointLat, pointLng := 16.7729, 96.1610
	d := models.HaversineDistanceM(pointLat, pointLng, centerLat, centerLng)

	// Exactly on the boundary counts as inside.
	if !models.WithinRadius(pointLat, pointLng, centerLat, centerLng, d) {
		t.Fatal("point on the boundary should be inside")
	}
	if models.WithinRadius(pointLat, pointLng, centerLat, centerLng, d-1) {
		t.Fatal("point beyond the radius should be outside")
	}
	if !models.WithinRadius(pointLat, pointLng, centerLat, centerLng, d+1) {
		t.Fatal("point within the radius should be inside")
	}
}
