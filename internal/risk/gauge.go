package risk

import "math"

// DefaultGaugeRadius is the radius of the correlation-depth ring.
const DefaultGaugeRadius = 80

// GaugeGeometry describes a circular progress ring drawn with a dashed
// stroke: the dash array is the circumference and the dash offset hides the
// unfilled part.
type GaugeGeometry struct {
	Radius        float64 `json:"radius"`
	Circumference float64 `json:"circumference"`
	Offset        float64 `json:"offset"`
}

// Gauge computes the ring geometry for a percentage in [0, 100]:
//
//	circumference = 2 * pi * radius
//	offset        = circumference - pct/100 * circumference
func Gauge(pct, radius float64) GaugeGeometry {
	c := 2 * math.Pi * radius
	return GaugeGeometry{
		Radius:        radius,
		Circumference: c,
		Offset:        c - (pct/100)*c,
	}
}

// Filled returns the fraction of the ring that is drawn, in [0, 1].
func (g GaugeGeometry) Filled() float64 {
	if g.Circumference == 0 {
		return 0
	}
	return (g.Circumference - g.Offset) / g.Circumference
}
