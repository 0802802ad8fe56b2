package model

import (
	"fmt"
	"time"
)

// Memory is a single photo memory shown as an orb.
//
// ID, URL and Timestamp are fixed at creation. Description and IsAnalyzing
// are mutated exactly once, when the caption for the image resolves.
type Memory struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`

	// Theta is the horizontal angle in radians (logically mod 2π).
	Theta float64 `json:"theta"`
	// Phi is the polar angle in radians, kept away from the poles.
	Phi float64 `json:"phi"`

	Scale      float64 `json:"scale"`
	Rotation   float64 `json:"rotation"` // in-plane tilt, degrees
	DriftSpeed float64 `json:"drift_speed"`

	IsAnalyzing bool `json:"is_analyzing"`
}

// ViewMode selects which layout the scene renders.
type ViewMode int

const (
	ViewSphere ViewMode = iota
	ViewGallery
)

func (m ViewMode) String() string {
	switch m {
	case ViewGallery:
		return "gallery"
	default:
		return "sphere"
	}
}

// ParseViewMode maps "sphere" / "gallery" onto a ViewMode.
func ParseViewMode(s string) (ViewMode, bool) {
	switch s {
	case "sphere":
		return ViewSphere, true
	case "gallery":
		return ViewGallery, true
	default:
		return ViewSphere, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m ViewMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ViewMode) UnmarshalText(text []byte) error {
	mode, ok := ParseViewMode(string(text))
	if !ok {
		return fmt.Errorf("unknown view mode %q", text)
	}
	*m = mode
	return nil
}
