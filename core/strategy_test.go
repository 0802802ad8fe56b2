package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"github.com/signalsfoundry/memory-orbs/model"
)

func sphereContext(r *RotationEngine, radius float64) ModeContext {
	return ModeContext{
		Rotation:  r.Matrix(),
		Billboard: r.Billboard(),
		Radius:    radius,
	}
}

func TestSphereStrategyFrontOrb(t *testing.T) {
	r := NewRotationEngine(0)
	m := model.Memory{ID: "a", Theta: math.Pi / 2, Phi: math.Pi / 2, Scale: 1}

	l := SphereStrategy(m, sphereContext(r, 400), DefaultTuning())
	assert.InDelta(t, 400, l.Z, 1e-9)
	assert.True(t, l.HitTestable)
	assert.Equal(t, 1.0, l.Opacity)
	assert.InDelta(t, 1.2, l.Scale, 1e-12)
	assert.Equal(t, 2400, l.ZIndex)
	assert.False(t, l.IsActive)
}

func TestSphereStrategyBackOrb(t *testing.T) {
	r := NewRotationEngine(0)
	m := model.Memory{ID: "b", Theta: 3 * math.Pi / 2, Phi: math.Pi / 2, Scale: 1}

	l := SphereStrategy(m, sphereContext(r, 400), DefaultTuning())
	assert.False(t, l.HitTestable)
	assert.Equal(t, 7.0, l.Blur)
	assert.InDelta(t, 1-400.0/600, l.Opacity, 1e-9)
}

func TestSphereStrategyHoverActivates(t *testing.T) {
	r := NewRotationEngine(0)
	m := model.Memory{ID: "c", Theta: math.Pi / 2, Phi: math.Pi / 2, Scale: 1}
	ctx := sphereContext(r, 400)
	ctx.Hovered = true

	l := SphereStrategy(m, ctx, DefaultTuning())
	assert.True(t, l.IsActive)
	assert.InDelta(t, 1.2*1.2, l.Scale, 1e-12)

	m.IsAnalyzing = true
	assert.False(t, SphereStrategy(m, ctx, DefaultTuning()).IsActive)
}

func TestSphereStrategyDriftOnlyWhenIdle(t *testing.T) {
	r := NewRotationEngine(0)
	m := model.Memory{ID: "d", Theta: 0, Phi: math.Pi / 2, Scale: 1, DriftSpeed: 1}
	ctx := sphereContext(r, 300)
	ctx.Elapsed = 3.75

	idle := SphereStrategy(m, ctx, DefaultTuning())
	assert.InDelta(t, 300, idle.X, 1e-9)
	assert.InDelta(t, 10, idle.DriftX, 1e-9)

	ctx.Dragging = true
	held := SphereStrategy(m, ctx, DefaultTuning())
	assert.InDelta(t, 300, held.X, 1e-9)
	assert.Equal(t, 0.0, held.DriftX)
	assert.Equal(t, 0.0, held.DriftY)
}

func TestSphereStrategyDriftLeavesDepthCueAlone(t *testing.T) {
	r := NewRotationEngine(0)
	r.ApplyDrag(80, -40)
	m := model.Memory{ID: "e", Theta: 1, Phi: 1.2, Scale: 1, DriftSpeed: 1.1}
	ctx := sphereContext(r, 300)
	still := SphereStrategy(m, ctx, DefaultTuning())

	for _, elapsed := range []float64{0.5, 2.25, 7, 11.3} {
		ctx.Elapsed = elapsed
		l := SphereStrategy(m, ctx, DefaultTuning())
		assert.Equal(t, still.ZIndex, l.ZIndex, "elapsed %v", elapsed)
		assert.InDelta(t, still.Opacity, l.Opacity, 1e-12, "elapsed %v", elapsed)
		assert.InDelta(t, still.Blur, l.Blur, 1e-12, "elapsed %v", elapsed)
		assert.Equal(t, still.Z, l.Z)
	}
}

func TestSphereStrategyIdleTilt(t *testing.T) {
	r := NewRotationEngine(0)
	m := model.Memory{ID: "f", Theta: math.Pi / 2, Phi: math.Pi / 2, Scale: 1, Rotation: -6, DriftSpeed: 1}
	ctx := sphereContext(r, 300)

	rest := SphereStrategy(m, ctx, DefaultTuning())
	assert.InDelta(t, -6, rest.Tilt, 1e-9)

	// A quarter of the 22.5s wobble period puts the orb at its widest.
	ctx.Elapsed = 22.5 / 4
	peak := SphereStrategy(m, ctx, DefaultTuning())
	assert.InDelta(t, -4, peak.Tilt, 1e-9)
	want := OrbOrientation(r.Billboard(), 0, 0).Mul4(mgl64.HomogRotate3DZ(mgl64.DegToRad(-4)))
	assert.True(t, mgl64.Mat4(peak.Orientation).ApproxEqualThreshold(want, 1e-12))

	ctx.Hovered = true
	assert.Equal(t, 0.0, SphereStrategy(m, ctx, DefaultTuning()).Tilt)

	ctx.Hovered = false
	ctx.Index, ctx.FocusedIndex = 0, 0
	assert.Equal(t, 0.0, GalleryStrategy(m, ctx, DefaultTuning()).Tilt)
}

func TestWorldPositionAppliesRotationThenDrift(t *testing.T) {
	r := NewRotationEngine(0.005)
	m := model.Memory{ID: "g", Theta: 0, Phi: math.Pi / 2, Scale: 1}
	ctx := sphereContext(r, 300)
	l := SphereStrategy(m, ctx, DefaultTuning())

	p := WorldPosition(r.Matrix(), l)
	assert.InDelta(t, 300, p.X(), 1e-9)
	assert.InDelta(t, 0, p.Z(), 1e-9)

	// A quarter turn about the vertical axis carries the orb from the right
	// edge to the front.
	r.ApplyDrag(math.Pi/2/0.005, 0)
	l = SphereStrategy(m, sphereContext(r, 300), DefaultTuning())
	p = WorldPosition(r.Matrix(), l)
	assert.InDelta(t, 0, p.X(), 1e-6)
	assert.InDelta(t, 300, p.Z(), 1e-6)
	assert.InDelta(t, p.Z(), WorldDepth(r.Matrix(), mgl64.Vec3{l.X, l.Y, l.Z}), 1e-9)

	l.DriftX, l.DriftY = 4, -3
	q := WorldPosition(r.Matrix(), l)
	assert.InDelta(t, p.X()+4, q.X(), 1e-9)
	assert.InDelta(t, p.Y()-3, q.Y(), 1e-9)
	assert.Equal(t, p.Z(), q.Z())
}

func TestSphereStrategyOrientationCarriesSpin(t *testing.T) {
	r := NewRotationEngine(0)
	r.ApplyDrag(60, 20)
	ctx := sphereContext(r, 300)
	ctx.SpinX, ctx.SpinY = 45, -90

	l := SphereStrategy(model.Memory{Phi: 1, Scale: 1}, ctx, DefaultTuning())
	assert.Equal(t, 45.0, l.RotateX)
	assert.Equal(t, -90.0, l.RotateY)
	want := OrbOrientation(r.Billboard(), 45, -90)
	assert.True(t, mgl64.Mat4(l.Orientation).ApproxEqualThreshold(want, 1e-12))
}

func TestStrategyForMode(t *testing.T) {
	m := model.Memory{ID: "x", Scale: 1, Phi: 1}
	ctx := ModeContext{Index: 2, FocusedIndex: 2, Rotation: mgl64.Ident4(), Billboard: mgl64.Ident4(), Radius: 300}

	g := StrategyFor(model.ViewGallery)(m, ctx, DefaultTuning())
	assert.True(t, g.IsActive)
	assert.Equal(t, 1.4, g.Scale)

	s := StrategyFor(model.ViewSphere)(m, ctx, DefaultTuning())
	assert.False(t, s.IsActive)
}
