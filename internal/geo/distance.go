package geo

import (
	"math"

	"food-dispatch/internal/common/model"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points using the
// Haversine formula, rounded to one decimal place. Pure; callers are
// responsible for only passing real coordinates (unknown positions are
// represented as nil distances upstream, never as zero).
func DistanceKm(from, to model.LatLng) float64 {
	lat1 := from.Lat * (math.Pi / 180.0)
	lng1 := from.Lng * (math.Pi / 180.0)
	lat2 := to.Lat * (math.Pi / 180.0)
	lng2 := to.Lng * (math.Pi / 180.0)

	dlat := lat2 - lat1
	dlng := lng2 - lng1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return math.Round(earthRadiusKm*c*10) / 10
}

// EstimatedDurationMinutes converts a distance to a travel-time estimate
// assuming 30 km/h average urban speed, same as the fare estimator used by
// the ordering side.
func EstimatedDurationMinutes(distanceKm float64) float64 {
	return (distanceKm / 30.0) * 60.0
}
