package core

// Tuning gathers every tunable constant of the layout and interaction
// engine. The zero value is not usable; start from DefaultTuning.
type Tuning struct {
	DragSensitivity float64       `yaml:"drag_sensitivity" validate:"gt=0"`
	Depth           DepthParams   `yaml:"depth"`
	Radius          RadiusModel   `yaml:"radius"`
	Gallery         GalleryParams `yaml:"gallery"`

	// HoverScale multiplies an orb's base scale while hovered or dragged.
	HoverScale float64 `yaml:"hover_scale" validate:"gt=0"`

	// SpinSensitivity is the per-orb spin in degrees per pixel of drag.
	SpinSensitivity float64 `yaml:"spin_sensitivity" validate:"gt=0"`
	Gravity         Spring  `yaml:"gravity"`

	ZoomMin  float64 `yaml:"zoom_min" validate:"gt=0"`
	ZoomMax  float64 `yaml:"zoom_max" validate:"gtfield=ZoomMin"`
	ZoomStep float64 `yaml:"zoom_step" validate:"gt=0"`

	UploadSpread float64 `yaml:"upload_spread" validate:"gt=0"`

	// DriftAmplitude and DriftPeriod describe the ambient bobbing of idle
	// sphere orbs; the period is divided by each memory's drift speed.
	DriftAmplitude float64 `yaml:"drift_amplitude" validate:"gte=0"`
	DriftPeriod    float64 `yaml:"drift_period" validate:"gt=0"`
}

// DefaultTuning returns the reference constants.
func DefaultTuning() Tuning {
	return Tuning{
		DragSensitivity: DefaultDragSensitivity,
		Depth:           DefaultDepthParams(),
		Radius:          DefaultRadiusModel(),
		Gallery:         DefaultGalleryParams(),
		HoverScale:      1.2,
		SpinSensitivity: 1.2,
		Gravity:         GravitySpring(),
		ZoomMin:         0.2,
		ZoomMax:         5,
		ZoomStep:        0.001,
		UploadSpread:    DefaultUploadSpread,
		DriftAmplitude:  10,
		DriftPeriod:     15,
	}
}
