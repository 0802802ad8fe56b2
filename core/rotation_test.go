package core

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDragKeepsUnitNorm(t *testing.T) {
	r := NewRotationEngine(DefaultDragSensitivity)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10000; i++ {
		r.ApplyDrag(rng.Float64()*80-40, rng.Float64()*80-40)
		require.InDelta(t, 1, r.Orientation().Len(), 1e-6, "drag %d", i)
	}
}

func TestApplyDragZeroIsNoop(t *testing.T) {
	r := NewRotationEngine(0)
	r.ApplyDrag(12, -4)
	before := r.Orientation()

	changed := r.ApplyDrag(0, 0)
	assert.False(t, changed)
	assert.Equal(t, before, r.Orientation())

	assert.False(t, r.ApplyDrag(1e-9, 0))
	assert.Equal(t, before, r.Orientation())
}

func TestApplyDragAxisAndAngle(t *testing.T) {
	r := NewRotationEngine(0.01)
	r.ApplyDrag(100, 0)

	// Horizontal drag rotates about -Y by 100px * 0.01 rad.
	want := mgl64.QuatRotate(1, mgl64.Vec3{0, -1, 0})
	assert.True(t, r.Orientation().ApproxEqualThreshold(want, 1e-12))
}

func TestApplyDragComposesInWorldSpace(t *testing.T) {
	r := NewRotationEngine(0.01)
	r.ApplyDrag(100, 0)
	r.ApplyDrag(0, 50)

	first := mgl64.QuatRotate(1, mgl64.Vec3{0, -1, 0})
	second := mgl64.QuatRotate(0.5, mgl64.Vec3{1, 0, 0})
	want := second.Mul(first)
	assert.True(t, r.Orientation().ApproxEqualThreshold(want, 1e-12))
}

func TestBillboardInvertsRotation(t *testing.T) {
	r := NewRotationEngine(DefaultDragSensitivity)
	r.ApplyDrag(37, -81)
	r.ApplyDrag(-12, 5)

	product := r.Matrix().Mul4(r.Billboard())
	assert.True(t, product.ApproxEqualThreshold(mgl64.Ident4(), 1e-12))

	b := r.Billboard()
	for i := 0; i < 3; i++ {
		assert.Equal(t, 0.0, b.At(i, 3))
		assert.Equal(t, 0.0, b.At(3, i))
	}
	assert.Equal(t, 1.0, b.At(3, 3))
}

func TestFrontFacingIdentity(t *testing.T) {
	r := NewRotationEngine(0)
	got := r.FrontFacing()
	assert.InDelta(t, math.Pi/2, got.Theta, 1e-12)
	assert.InDelta(t, math.Pi/2, got.Phi, 1e-12)
}

func TestFrontFacingRotatesOntoViewer(t *testing.T) {
	r := NewRotationEngine(0)
	r.ApplyDrag(140, 60)

	front := r.FrontFacing()
	world := r.Matrix().Mul4x1(front.Vec().Vec4(0)).Vec3()
	assert.InDelta(t, 0, world.X(), 1e-9)
	assert.InDelta(t, 0, world.Y(), 1e-9)
	assert.InDelta(t, 1, world.Z(), 1e-9)
}

func TestResetReturnsIdentity(t *testing.T) {
	r := NewRotationEngine(0)
	r.ApplyDrag(50, 50)
	r.Reset()
	assert.Equal(t, mgl64.QuatIdent(), r.Orientation())
}

func TestSetSensitivityRejectsInvalid(t *testing.T) {
	r := NewRotationEngine(-1)
	assert.Equal(t, DefaultDragSensitivity, r.Sensitivity())
	r.SetSensitivity(math.NaN())
	assert.Equal(t, DefaultDragSensitivity, r.Sensitivity())
	r.SetSensitivity(0.02)
	assert.Equal(t, 0.02, r.Sensitivity())
}
