package ranking

import "math"

// distanceFP is a distance in micro-kilometres (millimetres). Ties are decided
// on this value so float noise from sums and conversions cannot split them.
type distanceFP int64

const distanceScale = 1e6

func toFixedPoint(km float64) distanceFP {
	switch {
	case math.IsNaN(km):
		return 0
	case math.IsInf(km, 1):
		return distanceFP(math.MaxInt64)
	case math.IsInf(km, -1):
		return distanceFP(math.MinInt64)
	}
	scaled := km * distanceScale
	if scaled >= float64(math.MaxInt64) {
		return distanceFP(math.MaxInt64)
	}
	if scaled <= float64(math.MinInt64) {
		return distanceFP(math.MinInt64)
	}
	return distanceFP(math.Round(scaled))
}
