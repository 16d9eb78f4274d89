package engine

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
)

// RoadGrid is the rectangular array of road points and the bridges between them
type RoadGrid struct {
	width      int
	height     int
	cells      [][]*GridPoint
	spacing    r2.Point
	pieceScale r3.Vector

	table    *PieceTable
	renderer PieceRenderer

	bridges    map[BridgeID]*Bridge
	nextBridge BridgeID

	events GridEvents
}

// NewRoadGrid creates an uninitialized grid bound to a piece table and renderer
func NewRoadGrid(table *PieceTable, renderer PieceRenderer) *RoadGrid {
	return &RoadGrid{
		table:    table,
		renderer: renderer,
		bridges:  make(map[BridgeID]*Bridge),
	}
}

// Init lays a fresh grid over surface. Parameters are validated before any
// existing grid is torn down, so a failed Init leaves the previous state intact.
func (g *RoadGrid) Init(surface Surface, spacing r2.Point, scale r3.Vector) error {
	width, height, err := g.validateInit(surface, spacing, scale)
	if err != nil {
		return err
	}

	g.Destroy()

	g.width = width
	g.height = height
	g.spacing = spacing
	g.pieceScale = scale
	g.cells = make([][]*GridPoint, height)
	for y := 0; y < height; y++ {
		g.cells[y] = make([]*GridPoint, width)
		for x := 0; x < width; x++ {
			g.cells[y][x] = &GridPoint{position: Position{X: x, Y: y}}
		}
	}

	return nil
}

// validateInit checks every initialization parameter and returns the grid dimensions
func (g *RoadGrid) validateInit(surface Surface, spacing r2.Point, scale r3.Vector) (int, int, error) {
	if surface == nil {
		return 0, 0, fmt.Errorf("%w: surface is required", ErrInvalidConfig)
	}

	var errs error
	size := surface.Size()
	if size.X < MinSurfaceExtent || size.Y < MinSurfaceExtent {
		errs = multierr.Append(errs, fmt.Errorf("surface extent must be at least %.2f, got %.2fx%.2f", MinSurfaceExtent, size.X, size.Y))
	}
	if spacing.X < MinSpacing || spacing.Y < MinSpacing {
		errs = multierr.Append(errs, fmt.Errorf("spacing must be at least %.2f, got (%.2f, %.2f)", MinSpacing, spacing.X, spacing.Y))
	}
	if scale.X < MinScale || scale.Y < MinScale || scale.Z < MinScale {
		errs = multierr.Append(errs, fmt.Errorf("scale must be at least %.2f, got (%.2f, %.2f, %.2f)", MinScale, scale.X, scale.Y, scale.Z))
	}
	if g.renderer == nil {
		errs = multierr.Append(errs, fmt.Errorf("piece renderer is required"))
	}
	if g.table == nil {
		errs = multierr.Append(errs, fmt.Errorf("piece table is required"))
	} else if err := g.table.Validate(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidConfig, errs)
	}

	if err := checkBridgeSegments(g.table, spacing, scale); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	width, height := gridDimensions(size, spacing)
	if width > MaxGridPoints || height > MaxGridPoints {
		return 0, 0, fmt.Errorf("%w: grid of %dx%d points exceeds the maximum of %d per axis", ErrInvalidConfig, width, height, MaxGridPoints)
	}
	return width, height, nil
}

// checkBridgeSegments rejects spacing/scale combinations whose widest gap needs
// more filler segments than MaxBridgeSegments.
func checkBridgeSegments(table *PieceTable, spacing r2.Point, scale r3.Vector) error {
	for _, d := range []ConnectionSet{East, North} {
		filler := table.BridgeFiller(d)
		bounds := footprintBounds(filler.Descriptor, r3.Vector{}, filler.Rotation, scale)
		segment := axisLength(bounds, d)
		gap := spacing.X
		if d.IsVertical() {
			gap = spacing.Y
		}
		if segment <= 0 {
			return fmt.Errorf("%s bridge filler %q has no extent along its axis", axisName(d), filler.Descriptor.Name)
		}
		if count := int(math.Ceil(gap/segment - boundsEpsilon)); count > MaxBridgeSegments {
			return fmt.Errorf("%s bridge would need %d segments, maximum is %d", axisName(d), count, MaxBridgeSegments)
		}
	}
	return nil
}

func gridDimensions(size, spacing r2.Point) (int, int) {
	return int(math.Floor(size.X/spacing.X)) + 1, int(math.Floor(size.Y/spacing.Y)) + 1
}

// Destroy tears down every bridge and point piece and empties the grid
func (g *RoadGrid) Destroy() {
	for _, bridge := range g.bridges {
		for _, handle := range bridge.segments {
			g.renderer.Destroy(handle)
		}
	}
	g.bridges = make(map[BridgeID]*Bridge)

	for _, row := range g.cells {
		for _, p := range row {
			if p.piece != 0 {
				g.renderer.Destroy(p.piece)
			}
		}
	}
	g.cells = nil
	g.width, g.height = 0, 0
	g.events = GridEvents{}
}

// Initialized reports whether the grid currently holds points
func (g *RoadGrid) Initialized() bool {
	return g.width > 0 && g.height > 0
}

// Width returns the number of columns
func (g *RoadGrid) Width() int {
	return g.width
}

// Height returns the number of rows
func (g *RoadGrid) Height() int {
	return g.height
}

// Spacing returns the world distance between adjacent points
func (g *RoadGrid) Spacing() r2.Point {
	return g.spacing
}

// PieceScale returns the scale applied to every spawned piece
func (g *RoadGrid) PieceScale() r3.Vector {
	return g.pieceScale
}

// Renderer returns the renderer pieces are spawned through
func (g *RoadGrid) Renderer() PieceRenderer {
	return g.renderer
}

// IsInGrid reports whether pos addresses an existing point
func (g *RoadGrid) IsInGrid(pos Position) bool {
	return pos.X >= 0 && pos.X < g.width && pos.Y >= 0 && pos.Y < g.height
}

// GetPoint returns the point at x,y or nil when out of bounds
func (g *RoadGrid) GetPoint(x, y int) *GridPoint {
	if !g.IsInGrid(Position{X: x, Y: y}) {
		return nil
	}
	return g.cells[y][x]
}

// PointAt returns the point at pos or nil when out of bounds
func (g *RoadGrid) PointAt(pos Position) *GridPoint {
	return g.GetPoint(pos.X, pos.Y)
}

// WorldPosition returns the world-space location of a grid position
func (g *RoadGrid) WorldPosition(pos Position) r3.Vector {
	return r3.Vector{X: float64(pos.X) * g.spacing.X, Y: float64(pos.Y) * g.spacing.Y}
}

// ClosestPointTo projects a world position into grid space and returns the
// nearest point, or nil when it falls outside the grid.
func (g *RoadGrid) ClosestPointTo(world r3.Vector) *GridPoint {
	if !g.Initialized() {
		return nil
	}
	x := int(math.Round(world.X / g.spacing.X))
	y := int(math.Round(world.Y / g.spacing.Y))
	return g.GetPoint(x, y)
}

// ClosestAxisAlignedPoint snaps target onto origin's row or column, whichever
// axis carries the larger offset. Ties snap onto the row.
func (g *RoadGrid) ClosestAxisAlignedPoint(origin, target Position) *GridPoint {
	dx := target.X - origin.X
	dy := target.Y - origin.Y
	if abs(dx) >= abs(dy) {
		return g.GetPoint(target.X, origin.Y)
	}
	return g.GetPoint(origin.X, target.Y)
}

// Points returns every point in row-major order
func (g *RoadGrid) Points() []*GridPoint {
	result := make([]*GridPoint, 0, g.width*g.height)
	for _, row := range g.cells {
		result = append(result, row...)
	}
	return result
}

// DrainEvents returns the queued notifications and clears the queue
func (g *RoadGrid) DrainEvents() GridEvents {
	events := g.events
	g.events = GridEvents{}
	return events
}

func (g *RoadGrid) notifyChange(change ConnectionChange) {
	g.events.Changes = append(g.events.Changes, change)
}

func (g *RoadGrid) notifyBridge(event BridgeEvent) {
	g.events.Bridges = append(g.events.Bridges, event)
}

func axisName(d ConnectionSet) string {
	if d.IsVertical() {
		return "vertical"
	}
	return "horizontal"
}
