package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DepthParams controls how world depth modulates an orb's appearance.
type DepthParams struct {
	// Threshold marks the front-hemisphere boundary in world Z.
	Threshold float64 `yaml:"threshold"`
	// BlurFalloff is the depth distance per unit of blur behind Threshold.
	BlurFalloff float64 `yaml:"blur_falloff" validate:"gt=0"`
	MaxBlur     float64 `yaml:"max_blur" validate:"gte=0"`
	MinOpacity  float64 `yaml:"min_opacity" validate:"gte=0,lte=1"`
	// OpacityRange is multiplied by the sphere radius to get the depth at
	// which back-hemisphere orbs reach MinOpacity.
	OpacityRange float64 `yaml:"opacity_range" validate:"gt=0"`
	// DilationDepth is the world Z at which the perspective scale doubles.
	DilationDepth float64 `yaml:"dilation_depth" validate:"gt=0"`
	MinDepthScale float64 `yaml:"min_depth_scale" validate:"gt=0"`
	ZIndexOffset  int     `yaml:"z_index_offset"`
}

// DefaultDepthParams returns the reference depth-of-field settings.
func DefaultDepthParams() DepthParams {
	return DepthParams{
		Threshold:     -50,
		BlurFalloff:   50,
		MaxBlur:       8,
		MinOpacity:    0.3,
		OpacityRange:  1.5,
		DilationDepth: 2000,
		MinDepthScale: 0.5,
		ZIndexOffset:  2000,
	}
}

// DepthCue is the visual modulation derived from an orb's world depth.
type DepthCue struct {
	WorldZ      float64
	Scale       float64
	Opacity     float64
	Blur        float64
	ZIndex      int
	HitTestable bool
}

// WorldDepth applies only the rotation part of rot to the sphere-local
// position and returns the resulting Z: row 3 of rot dotted with pos.
func WorldDepth(rot mgl64.Mat4, pos mgl64.Vec3) float64 {
	return rot.Row(2).Vec3().Dot(pos)
}

// Cue derives scale, opacity, blur, paint order and hit-testability from a
// world depth. Orbs behind Threshold fade, blur and stop taking pointer
// events.
func (p DepthParams) Cue(worldZ, radius, baseScale float64) DepthCue {
	front := worldZ > p.Threshold

	cue := DepthCue{
		WorldZ:      worldZ,
		Opacity:     1,
		HitTestable: front,
		Scale:       baseScale * math.Max(p.MinDepthScale, 1+worldZ/p.DilationDepth),
		ZIndex:      int(math.Floor(worldZ)) + p.ZIndexOffset,
	}
	if front {
		return cue
	}

	cue.Blur = math.Min(p.MaxBlur, math.Abs(worldZ-p.Threshold)/p.BlurFalloff)
	if radius > 0 {
		cue.Opacity = math.Max(p.MinOpacity, 1-math.Abs(worldZ)/(p.OpacityRange*radius))
	} else {
		cue.Opacity = p.MinOpacity
	}
	return cue
}

// LocalSpin builds the orb's own two-axis spin from angles in degrees.
func LocalSpin(rotateX, rotateY float64) mgl64.Mat4 {
	return mgl64.HomogRotate3DX(mgl64.DegToRad(rotateX)).
		Mul4(mgl64.HomogRotate3DY(mgl64.DegToRad(rotateY)))
}

// OrbOrientation layers the local spin on top of the billboard
// counter-rotation. Seen through the world rotation the billboard cancels
// out, leaving only the spin.
func OrbOrientation(billboard mgl64.Mat4, rotateX, rotateY float64) mgl64.Mat4 {
	return billboard.Mul4(LocalSpin(rotateX, rotateY))
}
