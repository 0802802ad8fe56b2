package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapToUpright(t *testing.T) {
	assert.Equal(t, 0.0, SnapToUpright(170))
	assert.Equal(t, 360.0, SnapToUpright(190))
	assert.Equal(t, -720.0, SnapToUpright(-700))
	assert.Equal(t, 0.0, SnapToUpright(-20))
}

func TestSpringSettlesOnTarget(t *testing.T) {
	v := SpringValue{Value: 130}
	v.AnimateTo(SnapToUpright(v.Value))
	require.True(t, v.Active)

	s := GravitySpring()
	steps := 0
	for v.Step(s, 1.0/60) {
		steps++
		require.Less(t, steps, 600, "spring never settled")
	}
	assert.Equal(t, 0.0, v.Value)
	assert.Equal(t, 0.0, v.Velocity)
}

func TestSpringIsGradual(t *testing.T) {
	v := SpringValue{Value: 90}
	v.AnimateTo(0)
	v.Step(GravitySpring(), 1.0/60)

	assert.Less(t, v.Value, 90.0)
	assert.Greater(t, v.Value, 0.0)
}

func TestSpringLargeStepStaysStable(t *testing.T) {
	v := SpringValue{Value: 180}
	v.AnimateTo(360)
	v.Step(GravitySpring(), 5)
	assert.False(t, v.Active)
	assert.Equal(t, 360.0, v.Value)
}

func TestSpringStopAndIdle(t *testing.T) {
	v := SpringValue{Value: 10}
	v.AnimateTo(10)
	assert.False(t, v.Active)
	assert.False(t, v.Step(GravitySpring(), 1))

	v.AnimateTo(0)
	v.Stop()
	assert.False(t, v.Step(GravitySpring(), 1))
	assert.Equal(t, 10.0, v.Value)
}

func TestGravitySpringParams(t *testing.T) {
	omega, zeta := GravitySpring().Params()
	assert.InDelta(t, math.Sqrt(200), omega, 1e-12)
	assert.InDelta(t, 25/(2*math.Sqrt(200)), zeta, 1e-12)

	omega, zeta = Spring{Stiffness: 200, Damping: 25, Mass: 4}.Params()
	assert.InDelta(t, math.Sqrt(50), omega, 1e-12)
	assert.InDelta(t, 25/(2*math.Sqrt(800)), zeta, 1e-12)
}

func TestSpringStepIsFrameRateIndependent(t *testing.T) {
	coarse := SpringValue{Value: 90}
	coarse.AnimateTo(0)
	coarse.Step(GravitySpring(), 0.1)

	fine := SpringValue{Value: 90}
	fine.AnimateTo(0)
	for i := 0; i < 10; i++ {
		fine.Step(GravitySpring(), 0.01)
	}
	assert.InDelta(t, coarse.Value, fine.Value, 1e-6)
	assert.InDelta(t, coarse.Velocity, fine.Velocity, 1e-6)
}
