package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSphericalRoundTrip(t *testing.T) {
	const steps = 24
	for i := 0; i < steps; i++ {
		theta := float64(i) * twoPi / steps
		for j := 0; j <= steps; j++ {
			phi := PoleEpsilon + float64(j)*(math.Pi-2*PoleEpsilon)/steps
			for _, r := range []float64{0.5, 1, 350, 1400} {
				p := ToCartesian(theta, phi, r)
				got := ToSpherical(p.X(), p.Y(), p.Z())
				require.InDelta(t, theta, got.Theta, 1e-9, "theta=%v phi=%v r=%v", theta, phi, r)
				require.InDelta(t, phi, got.Phi, 1e-9, "theta=%v phi=%v r=%v", theta, phi, r)
			}
		}
	}
}

func TestToCartesianAxes(t *testing.T) {
	north := ToCartesian(0, 0, 10)
	assert.InDelta(t, 10, north.Y(), 1e-12)

	front := ToCartesian(math.Pi/2, math.Pi/2, 10)
	assert.InDelta(t, 0, front.X(), 1e-12)
	assert.InDelta(t, 0, front.Y(), 1e-12)
	assert.InDelta(t, 10, front.Z(), 1e-12)
}

func TestToSphericalClampsPoles(t *testing.T) {
	top := ToSpherical(0, 5, 0)
	assert.InDelta(t, PoleEpsilon, top.Phi, 1e-12)

	bottom := ToSpherical(0, -5, 0)
	assert.InDelta(t, math.Pi-PoleEpsilon, bottom.Phi, 1e-12)
}

func TestToSphericalDegenerateOrigin(t *testing.T) {
	got := ToSpherical(0, 0, 0)
	assert.Equal(t, Spherical{Theta: 0, Phi: math.Pi / 2}, got)
}

func TestClampPhi(t *testing.T) {
	assert.Equal(t, PoleEpsilon, ClampPhi(-1))
	assert.Equal(t, math.Pi-PoleEpsilon, ClampPhi(4))
	assert.Equal(t, 1.0, ClampPhi(1))
	assert.Equal(t, math.Pi/2, ClampPhi(math.NaN()))
}

func TestNormalizeTheta(t *testing.T) {
	assert.InDelta(t, math.Pi/2, NormalizeTheta(-3*math.Pi/2), 1e-12)
	assert.InDelta(t, 1.0, NormalizeTheta(1+4*math.Pi), 1e-9)
	assert.Equal(t, 0.0, NormalizeTheta(0))
}

func TestAngularDistance(t *testing.T) {
	a := Spherical{Theta: 0, Phi: math.Pi / 2}
	b := Spherical{Theta: math.Pi / 2, Phi: math.Pi / 2}
	assert.InDelta(t, math.Pi/2, AngularDistance(a, b), 1e-12)
	assert.InDelta(t, 0, AngularDistance(a, a), 1e-6)
}
