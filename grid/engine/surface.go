package engine

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// Surface is the plane a grid is laid over
type Surface interface {
	// Size returns the extent of the plane in world units
	Size() r2.Point

	// RaycastFromScreenPoint turns a screen coordinate into a world position
	RaycastFromScreenPoint(screen r2.Point) (r3.Vector, bool)
}

// PlaneSurface is a flat plane starting at the world origin, viewed by a
// top-down orthographic camera with screen Y growing downwards.
type PlaneSurface struct {
	Width         float64
	Depth         float64
	PixelsPerUnit float64
}

// NewPlaneSurface creates a plane surface with the default camera scale
func NewPlaneSurface(width, depth float64) *PlaneSurface {
	return &PlaneSurface{Width: width, Depth: depth, PixelsPerUnit: DefaultPixelsUnit}
}

// Size returns the plane extent
func (p *PlaneSurface) Size() r2.Point {
	return r2.Point{X: p.Width, Y: p.Depth}
}

// RaycastFromScreenPoint maps a screen pixel onto the plane; off-plane hits miss
func (p *PlaneSurface) RaycastFromScreenPoint(screen r2.Point) (r3.Vector, bool) {
	ppu := p.PixelsPerUnit
	if ppu <= 0 {
		ppu = DefaultPixelsUnit
	}

	x := screen.X / ppu
	y := p.Depth - screen.Y/ppu
	if x < 0 || y < 0 || x > p.Width || y > p.Depth {
		return r3.Vector{}, false
	}
	return r3.Vector{X: x, Y: y}, true
}
