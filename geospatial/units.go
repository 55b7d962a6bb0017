package geospatial

const metresPerMile = 1609.344

// MilesToMetres converts a distance in statute miles to metres.
func MilesToMetres(miles float64) float64 {
	return metresPerMile * miles
}

// MetresToMiles converts a distance in metres to statute miles.
func MetresToMiles(metres float64) float64 {
	return metres * (1.0 / metresPerMile)
}
