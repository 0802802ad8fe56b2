package core

import "math"

// DefaultUploadSpread is the angular radius, in radians, of the first ring
// of a multi-file upload. Item i lands at DefaultUploadSpread·sqrt(i) from
// the centre.
const DefaultUploadSpread = 0.35

// SpreadAround places the i-th item of an upload on a golden-angle spiral
// around center so that a batch fans out instead of stacking. The theta
// offset is divided by sin(phi) so the spread stays roughly isotropic away
// from the equator.
func SpreadAround(center Spherical, i int, spread float64) Spherical {
	if i < 0 {
		i = 0
	}
	r := spread * math.Sqrt(float64(i))
	a := float64(i) * GoldenAngle

	phi := ClampPhi(center.Phi + r*math.Cos(a))
	theta := center.Theta + r*math.Sin(a)/math.Sin(phi)
	return Spherical{Theta: NormalizeTheta(theta), Phi: phi}
}

// SpreadBound is the largest angular distance from the centre that an
// upload of n items is allowed to reach.
func SpreadBound(n int, spread float64) float64 {
	if n < 1 {
		return 0
	}
	return spread * math.Sqrt(float64(n))
}

// FibonacciPoint returns the i-th of n points evenly distributed over the
// sphere.
func FibonacciPoint(i, n int) Spherical {
	if n < 1 {
		n = 1
	}
	phi := math.Acos(mathClamp(1-2*(float64(i)+0.5)/float64(n), -1, 1))
	theta := math.Pi * (1 + math.Sqrt(5)) * float64(i)
	return Spherical{Theta: NormalizeTheta(theta), Phi: ClampPhi(phi)}
}

func mathClamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
