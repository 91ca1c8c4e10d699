package geo

import (
	"math"
	"testing"

	"food-dispatch/internal/common/model"
)

func TestDistanceKmSamePoint(t *testing.T) {
	p := model.LatLng{Lat: 6.5244, Lng: 3.3792}
	if d := DistanceKm(p, p); d != 0.0 {
		t.Fatalf("expected 0.0 for same point, got %v", d)
	}
}

func TestDistanceKmOneDegreeLongitudeAtEquator(t *testing.T) {
	d := DistanceKm(model.LatLng{Lat: 0, Lng: 0}, model.LatLng{Lat: 0, Lng: 1})
	if math.Abs(d-111.2) > 0.1 {
		t.Fatalf("expected ~111.2 km for one degree of longitude at the equator, got %v", d)
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	a := model.LatLng{Lat: 6.5244, Lng: 3.3792}
	b := model.LatLng{Lat: 6.4281, Lng: 3.4219}

	if DistanceKm(a, b) != DistanceKm(b, a) {
		t.Fatalf("distance must be symmetric: %v vs %v", DistanceKm(a, b), DistanceKm(b, a))
	}
}

func TestDistanceKmRoundedToOneDecimal(t *testing.T) {
	d := DistanceKm(model.LatLng{Lat: 6.5244, Lng: 3.3792}, model.LatLng{Lat: 6.4281, Lng: 3.4219})
	if math.Round(d*10)/10 != d {
		t.Fatalf("expected one-decimal rounding, got %v", d)
	}
}

func TestEstimatedDurationMinutes(t *testing.T) {
	// 30 km at 30 km/h is one hour.
	if m := EstimatedDurationMinutes(30.0); m != 60.0 {
		t.Fatalf("expected 60 minutes for 30 km, got %v", m)
	}
}
