package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// PoleEpsilon is the minimum angular distance, in radians, that phi keeps
// from either pole. Longitude is degenerate at the poles, so every phi that
// is computed or perturbed goes through ClampPhi.
const PoleEpsilon = 0.15

const twoPi = 2 * math.Pi

// Spherical is a direction on the sphere. Theta is the horizontal angle
// measured from +X towards +Z, phi the polar angle measured from +Y.
type Spherical struct {
	Theta float64 `json:"theta"`
	Phi   float64 `json:"phi"`
}

// ClampPhi clamps phi into [PoleEpsilon, π-PoleEpsilon]. NaN maps to the
// equator.
func ClampPhi(phi float64) float64 {
	if math.IsNaN(phi) {
		return math.Pi / 2
	}
	return mgl64.Clamp(phi, PoleEpsilon, math.Pi-PoleEpsilon)
}

// NormalizeTheta wraps theta into [0, 2π).
func NormalizeTheta(theta float64) float64 {
	t := math.Mod(theta, twoPi)
	if t < 0 {
		t += twoPi
	}
	if t >= twoPi {
		t = 0
	}
	return t
}

// ToCartesian converts a spherical direction at the given radius into a
// sphere-local position:
//
//	x = r·sin(φ)·cos(θ)
//	y = r·cos(φ)
//	z = r·sin(φ)·sin(θ)
func ToCartesian(theta, phi, radius float64) mgl64.Vec3 {
	sinPhi := math.Sin(phi)
	return mgl64.Vec3{
		radius * sinPhi * math.Cos(theta),
		radius * math.Cos(phi),
		radius * sinPhi * math.Sin(theta),
	}
}

// ToSpherical is the inverse of ToCartesian. Theta is returned in [0, 2π)
// and phi is clamped away from the poles. The origin maps to the point on
// the equator at theta = 0.
func ToSpherical(x, y, z float64) Spherical {
	r := math.Sqrt(x*x + y*y + z*z)
	if r == 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return Spherical{Theta: 0, Phi: math.Pi / 2}
	}
	cosPhi := mgl64.Clamp(y/r, -1, 1)
	return Spherical{
		Theta: NormalizeTheta(math.Atan2(z, x)),
		Phi:   ClampPhi(math.Acos(cosPhi)),
	}
}

// Vec converts the direction into a unit vector.
func (s Spherical) Vec() mgl64.Vec3 {
	return ToCartesian(s.Theta, s.Phi, 1)
}

// AngularDistance returns the great-circle angle between two directions in
// radians.
func AngularDistance(a, b Spherical) float64 {
	cos := mgl64.Clamp(a.Vec().Dot(b.Vec()), -1, 1)
	return math.Acos(cos)
}
