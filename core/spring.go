package core

import (
	"math"

	"github.com/charmbracelet/harmonica"
)

// Spring is a damped harmonic oscillator used to ease values towards a
// target instead of jumping.
type Spring struct {
	Stiffness float64 `yaml:"stiffness" validate:"gt=0"`
	Damping   float64 `yaml:"damping" validate:"gt=0"`
	Mass      float64 `yaml:"mass" validate:"gt=0"`
}

// GravitySpring is the spring that returns a spun orb to upright.
func GravitySpring() Spring {
	return Spring{Stiffness: 200, Damping: 25, Mass: 1}
}

// Params converts stiffness, damping and mass into the angular frequency
// and damping ratio harmonica works with.
func (s Spring) Params() (omega, zeta float64) {
	mass := s.Mass
	if mass <= 0 {
		mass = 1
	}
	if s.Stiffness <= 0 {
		return 0, 0
	}
	omega = math.Sqrt(s.Stiffness / mass)
	zeta = s.Damping / (2 * math.Sqrt(s.Stiffness*mass))
	return omega, zeta
}

// step returns the harmonica integrator for one frame of dt seconds.
func (s Spring) step(dt float64) harmonica.Spring {
	omega, zeta := s.Params()
	return harmonica.NewSpring(dt, omega, zeta)
}

const (
	restDelta = 0.01
	restSpeed = 0.01
)

// SpringValue is one animated scalar.
type SpringValue struct {
	Value    float64
	Velocity float64
	Target   float64
	Active   bool
}

// AnimateTo starts easing towards target from the current value and
// velocity.
func (v *SpringValue) AnimateTo(target float64) {
	v.Target = target
	v.Active = v.Value != target || v.Velocity != 0
}

// Stop halts the animation where it is.
func (v *SpringValue) Stop() {
	v.Active = false
	v.Velocity = 0
}

// Step advances the animation by dt seconds. Once the value is within rest
// tolerance it snaps to the target and stops. It reports whether the value
// is still animating.
func (v *SpringValue) Step(s Spring, dt float64) bool {
	if !v.Active || dt <= 0 {
		return v.Active
	}
	v.Value, v.Velocity = s.step(dt).Update(v.Value, v.Velocity, v.Target)
	if math.Abs(v.Value-v.Target) < restDelta && math.Abs(v.Velocity) < restSpeed {
		v.Value = v.Target
		v.Velocity = 0
		v.Active = false
	}
	return v.Active
}

// SnapToUpright returns the multiple of 360° nearest to deg.
func SnapToUpright(deg float64) float64 {
	return math.Round(deg/360) * 360
}
