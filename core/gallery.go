package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/memory-orbs/model"
)

// GoldenAngle is 2π/φ² in radians, about 137.5°. Stepping by it spreads
// points without angular clustering.
const GoldenAngle = 2.39996

// GalleryParams shapes the chronological spiral.
type GalleryParams struct {
	ZSpacing     float64 `yaml:"z_spacing" validate:"gt=0"`
	SpiralRadius float64 `yaml:"spiral_radius" validate:"gte=0"`
}

// DefaultGalleryParams returns the reference tunnel dimensions.
func DefaultGalleryParams() GalleryParams {
	return GalleryParams{ZSpacing: 800, SpiralRadius: 380}
}

const (
	galleryActiveScale = 1.4
	galleryActiveZ     = 10000
	galleryBaseZ       = 1000
)

// ringPoint is the planar spiral position of index i before re-centering.
func (p GalleryParams) ringPoint(i int) (float64, float64) {
	theta := float64(i) * GoldenAngle
	return math.Cos(theta) * p.SpiralRadius, math.Sin(theta) * p.SpiralRadius
}

// ComputeGalleryLayout places the item at index i of the recency-sorted
// list (0 = newest) relative to the focused index. The focused item sits
// at the planar origin; older items recede along -Z and newer ones move
// towards and past the camera. It depends only on its arguments.
func ComputeGalleryLayout(index, focusedIndex int, p GalleryParams) model.OrbLayout {
	offset := index - focusedIndex
	dist := math.Abs(float64(offset))

	rx, ry := p.ringPoint(index)
	fx, fy := p.ringPoint(focusedIndex)
	x := rx - fx
	y := ry - fy

	scale := galleryActiveScale
	if offset != 0 {
		scale = math.Max(0.6, 1.2-dist*0.1)
	}

	opacity := 1.0
	switch {
	case offset < 0:
		opacity = math.Max(0, 1+float64(offset)*0.4)
	case offset > 0:
		opacity = math.Max(0, 1-float64(offset)*0.15)
	}

	blur := dist * 2
	active := offset == 0
	zIndex := galleryActiveZ
	if !active {
		zIndex = galleryBaseZ - int(math.Round(blur*10))
	}

	side := model.SideLeft
	if x > 0 {
		side = model.SideRight
	}

	return model.OrbLayout{
		X:           x,
		Y:           y,
		Z:           -float64(offset) * p.ZSpacing,
		Scale:       scale,
		Opacity:     opacity,
		ZIndex:      zIndex,
		Blur:        blur,
		IsActive:    active,
		HitTestable: opacity > 0,
		Side:        side,
		Orientation: mgl64.Ident4(),
	}
}
