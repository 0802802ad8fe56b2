package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultDragSensitivity is the world rotation, in radians, per pixel of
// drag magnitude.
const DefaultDragSensitivity = 0.005

// dragEpsilon is the smallest drag magnitude that produces a rotation.
// Anything shorter would yield a degenerate axis.
const dragEpsilon = 1e-6

// Matrix convention used throughout the package: column vectors, p' = M·p,
// with mgl64's column-major storage. World depth is therefore row 3 of the
// rotation matrix dotted with the sphere-local position, and the billboard
// matrix is the transpose of the rotation block.

// RotationEngine accumulates the world orientation of the sphere as a unit
// quaternion. It is not safe for concurrent use; the owning scene guards it.
type RotationEngine struct {
	q           mgl64.Quat
	sensitivity float64
}

// NewRotationEngine returns an engine at the identity orientation. A
// non-positive sensitivity selects DefaultDragSensitivity.
func NewRotationEngine(sensitivity float64) *RotationEngine {
	r := &RotationEngine{q: mgl64.QuatIdent()}
	r.SetSensitivity(sensitivity)
	return r
}

// SetSensitivity changes the radians-per-pixel drag factor.
func (r *RotationEngine) SetSensitivity(sensitivity float64) {
	if sensitivity <= 0 || math.IsNaN(sensitivity) || math.IsInf(sensitivity, 0) {
		sensitivity = DefaultDragSensitivity
	}
	r.sensitivity = sensitivity
}

// Sensitivity reports the current drag factor.
func (r *RotationEngine) Sensitivity() float64 { return r.sensitivity }

// Orientation returns the current unit quaternion.
func (r *RotationEngine) Orientation() mgl64.Quat { return r.q }

// Reset returns the orientation to identity.
func (r *RotationEngine) Reset() { r.q = mgl64.QuatIdent() }

// ApplyDrag rotates the world by a screen-space drag. The rotation axis is
// perpendicular to the drag vector, (dy, -dx, 0), and the angle grows
// linearly with the drag length. The delta is pre-multiplied so it acts in
// world space regardless of the current orientation. It reports whether
// the orientation changed.
func (r *RotationEngine) ApplyDrag(dx, dy float64) bool {
	mag := math.Hypot(dx, dy)
	if mag < dragEpsilon || math.IsNaN(mag) || math.IsInf(mag, 0) {
		return false
	}
	axis := mgl64.Vec3{dy / mag, -dx / mag, 0}
	delta := mgl64.QuatRotate(mag*r.sensitivity, axis)
	r.q = normalizeQuat(delta.Mul(r.q))
	return true
}

// Matrix returns the homogeneous world rotation matrix.
func (r *RotationEngine) Matrix() mgl64.Mat4 {
	return r.q.Mat4()
}

// Billboard returns the inverse world rotation used to counter-rotate orbs
// so that their image plane keeps facing the viewer.
func (r *RotationEngine) Billboard() mgl64.Mat4 {
	return BillboardOf(r.Matrix())
}

// FrontFacing returns the sphere-local direction currently rotated onto the
// viewer axis (+Z).
func (r *RotationEngine) FrontFacing() Spherical {
	return FrontFacingOf(r.Matrix())
}

// BillboardOf returns the transpose of the 3x3 rotation block of m with the
// translation row and column left as identity. For an orthonormal rotation
// this is its inverse.
func BillboardOf(m mgl64.Mat4) mgl64.Mat4 {
	return m.Mat3().Transpose().Mat4()
}

// FrontFacingOf maps +Z back through the inverse rotation. Since the
// inverse is the transpose, that is the third row of m.
func FrontFacingOf(m mgl64.Mat4) Spherical {
	v := m.Row(2).Vec3()
	return ToSpherical(v.X(), v.Y(), v.Z())
}

// normalizeQuat renormalizes q, falling back to identity if it collapsed.
func normalizeQuat(q mgl64.Quat) mgl64.Quat {
	l := q.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return mgl64.QuatIdent()
	}
	return mgl64.Quat{W: q.W / l, V: q.V.Mul(1 / l)}
}
