package core

import "math"

// RadiusModel derives the sphere radius from the number of orbs so that the
// apparent density stays roughly constant.
type RadiusModel struct {
	// K is the radius per square root of the item count.
	K         float64 `yaml:"k" validate:"gt=0"`
	MinRadius float64 `yaml:"min_radius" validate:"gt=0"`
	MaxRadius float64 `yaml:"max_radius" validate:"gtfield=MinRadius"`
	// Perspective is the camera distance from the sphere centre. The front
	// of the sphere must stay inside NearPlaneMargin·Perspective.
	Perspective     float64 `yaml:"perspective" validate:"gt=0"`
	NearPlaneMargin float64 `yaml:"near_plane_margin" validate:"gt=0,lte=1"`
}

// DefaultRadiusModel returns the reference sizing constants.
func DefaultRadiusModel() RadiusModel {
	return RadiusModel{
		K:               64,
		MinRadius:       220,
		MaxRadius:       1400,
		Perspective:     1200,
		NearPlaneMargin: 0.8,
	}
}

// Upper returns the effective maximum radius.
func (m RadiusModel) Upper() float64 {
	upper := m.MaxRadius
	if m.Perspective > 0 && m.NearPlaneMargin > 0 {
		upper = math.Min(upper, m.Perspective*m.NearPlaneMargin)
	}
	return math.Max(upper, m.MinRadius)
}

// Compute returns K·sqrt(max(1, n)) clamped into [MinRadius, Upper()].
func (m RadiusModel) Compute(n int) float64 {
	r := m.K * math.Sqrt(math.Max(1, float64(n)))
	return math.Min(math.Max(r, m.MinRadius), m.Upper())
}
