package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/memory-orbs/model"
)

// ModeContext carries everything besides the memory itself that a layout
// strategy may read. Sphere strategies ignore the gallery fields and vice
// versa.
type ModeContext struct {
	Rotation  mgl64.Mat4
	Billboard mgl64.Mat4
	Radius    float64

	Hovered  bool
	Dragging bool
	SpinX    float64
	SpinY    float64
	// Elapsed is the scene clock in seconds, used for ambient drift.
	Elapsed float64

	Index        int
	FocusedIndex int
}

// LayoutStrategy computes one orb's layout for a view mode.
type LayoutStrategy func(m model.Memory, ctx ModeContext, t Tuning) model.OrbLayout

var strategies = map[model.ViewMode]LayoutStrategy{
	model.ViewSphere:  SphereStrategy,
	model.ViewGallery: GalleryStrategy,
}

// StrategyFor returns the layout strategy of a mode, defaulting to the
// sphere.
func StrategyFor(mode model.ViewMode) LayoutStrategy {
	if s, ok := strategies[mode]; ok {
		return s
	}
	return SphereStrategy
}

// SphereStrategy places a memory on the rotating sphere. X, Y and Z are
// sphere-local; the renderer applies the world rotation to the whole
// scene and each orb's Orientation cancels it. Drift and tilt are
// screen-plane motion of idle orbs and never reach the depth cue.
func SphereStrategy(m model.Memory, ctx ModeContext, t Tuning) model.OrbLayout {
	pos := ToCartesian(m.Theta, ClampPhi(m.Phi), ctx.Radius)
	idle := !ctx.Hovered && !ctx.Dragging
	var drift mgl64.Vec2
	var tilt float64
	if idle {
		drift = driftOffset(m, ctx.Elapsed, t)
		tilt = idleTilt(m, ctx.Elapsed, t)
	}

	base := m.Scale
	if base <= 0 {
		base = 1
	}
	if ctx.Hovered || ctx.Dragging {
		base *= t.HoverScale
	}
	cue := t.Depth.Cue(WorldDepth(ctx.Rotation, pos), ctx.Radius, base)

	return model.OrbLayout{
		X:           pos.X(),
		Y:           pos.Y(),
		Z:           pos.Z(),
		DriftX:      drift.X(),
		DriftY:      drift.Y(),
		RotateX:     ctx.SpinX,
		RotateY:     ctx.SpinY,
		Tilt:        tilt,
		Scale:       cue.Scale,
		Opacity:     cue.Opacity,
		ZIndex:      cue.ZIndex,
		Blur:        cue.Blur,
		IsActive:    (ctx.Hovered || ctx.Dragging) && !m.IsAnalyzing,
		HitTestable: cue.HitTestable,
		Orientation: OrbOrientation(ctx.Billboard, ctx.SpinX, ctx.SpinY).Mul4(mgl64.HomogRotate3DZ(mgl64.DegToRad(tilt))),
	}
}

// GalleryStrategy places a memory in the spiral tunnel by its recency
// index.
func GalleryStrategy(_ model.Memory, ctx ModeContext, t Tuning) model.OrbLayout {
	return ComputeGalleryLayout(ctx.Index, ctx.FocusedIndex, t.Gallery)
}

// WorldPosition returns where the renderer draws an orb: the layout
// position carried through the world rotation, plus its screen-plane
// drift. Gallery layouts are passed with the identity.
func WorldPosition(world mgl64.Mat4, l model.OrbLayout) mgl64.Vec3 {
	p := world.Mul4x1(mgl64.Vec4{l.X, l.Y, l.Z, 1})
	return mgl64.Vec3{p.X() + l.DriftX, p.Y() + l.DriftY, p.Z()}
}

// tiltWobble is how far an idle orb rocks either side of its tilt, in
// degrees.
const tiltWobble = 2

// driftOffset is the idle bobbing of a sphere orb in the screen plane. The
// vertical component runs 1.3 times slower so the path never closes into a
// line.
func driftOffset(m model.Memory, elapsed float64, t Tuning) mgl64.Vec2 {
	if t.DriftAmplitude == 0 || t.DriftPeriod <= 0 || m.DriftSpeed <= 0 || elapsed == 0 {
		return mgl64.Vec2{}
	}
	period := t.DriftPeriod / m.DriftSpeed
	return mgl64.Vec2{
		t.DriftAmplitude * math.Sin(2*math.Pi*elapsed/period),
		t.DriftAmplitude * math.Sin(2*math.Pi*elapsed/(period*1.3)),
	}
}

// idleTilt rocks an idle orb around its own tilt over 1.5 drift periods.
func idleTilt(m model.Memory, elapsed float64, t Tuning) float64 {
	if t.DriftPeriod <= 0 || m.DriftSpeed <= 0 {
		return m.Rotation
	}
	period := t.DriftPeriod / m.DriftSpeed * 1.5
	return m.Rotation + tiltWobble*math.Sin(2*math.Pi*elapsed/period)
}
