package utils

import (
	"math"
)

// DistanceKm returns the great-circle distance between two points in kilometers.
func DistanceKm(a, b Point) float64 {
	return haversineDistance(a.Lat, a.Lng, b.Lat, b.Lng)
}

func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	// Convert to radians
	lat1Rad := lat1 * math.Pi / 180
	lon1Rad := lon1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lon2Rad := lon2 * math.Pi / 180

	// Differences
	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	// Haversine formula
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKM * c
}

// LinearDecayScore maps a distance onto 0..100, reaching 0 at cutoffKM.
func LinearDecayScore(distanceKM, cutoffKM float64) float64 {
	if cutoffKM <= 0 {
		return 0
	}
	return math.Max(0, 100-(distanceKM/cutoffKM)*100)
}

func EstimateETAMinutes(distanceKM float64, averageSpeedKMH float64) int {
	if averageSpeedKMH <= 0 {
		averageSpeedKMH = DefaultCitySpeedKMH
	}

	timeHours := distanceKM / averageSpeedKMH
	timeMinutes := timeHours * 60

	return int(math.Ceil(timeMinutes))
}
