package domain

import "math"

// EarthRadiusKm is the mean radius of the spherical Earth model.
const EarthRadiusKm = 6371.0

// DistanceKm returns the haversine great-circle distance in kilometres between
// two WGS-84 points given in decimal degrees. It is symmetric and returns 0 for
// identical points.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lng2 - lng1)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	a = math.Min(a, 1) // rounding near antipodes

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
