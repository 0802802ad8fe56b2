package model

// Side tells the renderer where to place an orb's caption in gallery mode.
type Side string

const (
	SideNone  Side = ""
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// OrbLayout is the per-frame placement of one orb. It is derived state and
// is recomputed every update.
type OrbLayout struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`

	// DriftX and DriftY are screen-plane offsets applied after the world
	// rotation.
	DriftX float64 `json:"drift_x"`
	DriftY float64 `json:"drift_y"`

	// RotateX and RotateY are the orb's local spin in degrees, layered on
	// top of the billboard counter-rotation.
	RotateX float64 `json:"rotate_x"`
	RotateY float64 `json:"rotate_y"`
	// Tilt is the in-plane rotation in degrees, zero unless the orb is idle
	// on the sphere.
	Tilt float64 `json:"tilt"`

	Scale       float64 `json:"scale"`
	Opacity     float64 `json:"opacity"`
	ZIndex      int     `json:"z_index"`
	Blur        float64 `json:"blur"`
	IsActive    bool    `json:"is_active"`
	HitTestable bool    `json:"hit_testable"`
	Side        Side    `json:"side,omitempty"`

	// Orientation is the orb's own 4x4 orientation matrix in column-major
	// order (billboard * local spin * tilt). Identity in gallery mode.
	Orientation [16]float64 `json:"orientation"`
}

// OrbFrame pairs a memory with its layout for one rendered frame.
type OrbFrame struct {
	Memory Memory    `json:"memory"`
	Layout OrbLayout `json:"layout"`
	// Index is the memory's position in recency order (0 = newest).
	Index int `json:"index"`
}
