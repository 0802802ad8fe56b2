package tui

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/memory-orbs/model"
)

// Pixel size of one terminal cell. The scene works in CSS-like pixels, so
// the viewer reports its size as cells times these factors.
const (
	CellWidth  = 8
	CellHeight = 16
)

// orbHalfWidth is the half-width of an unscaled orb in pixels.
const orbHalfWidth = 24

// placement is an orb projected onto the terminal grid.
type placement struct {
	id     string
	col    int
	row    int
	radius int // hit radius in columns
	factor float64
	frame  model.OrbFrame
}

// project maps an orb at camera-space position pos onto cell coordinates
// for a cols×rows terminal, applying zoom and a perspective camera at
// distance perspective. It reports false for orbs at or behind the camera
// plane.
func project(f model.OrbFrame, pos mgl64.Vec3, cols, rows int, zoom, perspective float64) (placement, bool) {
	l := f.Layout
	z := pos.Z() * zoom
	if perspective <= 0 || z >= perspective {
		return placement{}, false
	}
	factor := perspective / (perspective - z) * zoom

	col := cols/2 + int(math.Round(pos.X()*factor/CellWidth))
	row := rows/2 + int(math.Round(pos.Y()*factor/CellHeight))
	r := int(math.Round(l.Scale * factor * orbHalfWidth / CellWidth))
	if r < 1 {
		r = 1
	}
	return placement{
		id:     f.Memory.ID,
		col:    col,
		row:    row,
		radius: r,
		factor: factor,
		frame:  f,
	}, true
}

func (p placement) contains(col, row int) bool {
	dr := row - p.row
	if dr < 0 {
		dr = -dr
	}
	dc := col - p.col
	if dc < 0 {
		dc = -dc
	}
	return dc <= p.radius && dr <= (p.radius+1)/2
}

// hitTest returns the topmost hit-testable orb at the cell. placements are
// in paint order, so the last match wins.
func hitTest(placements []placement, col, row int) string {
	for i := len(placements) - 1; i >= 0; i-- {
		p := placements[i]
		if p.frame.Layout.HitTestable && p.contains(col, row) {
			return p.id
		}
	}
	return ""
}
