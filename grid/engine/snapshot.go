package engine

import (
	"fmt"
	"strings"
)

// BridgeSnapshot is the serializable view of a bridge
type BridgeSnapshot struct {
	ID             BridgeID      `json:"id"`
	ConnectionType ConnectionSet `json:"connection_type"`
	Axis           Axis          `json:"axis"`
	Start          Position      `json:"start"`
	End            Position      `json:"end"`
	Segments       int           `json:"segments"`
}

// GridSnapshot captures the editable state of a grid
type GridSnapshot struct {
	Initialized bool              `json:"initialized"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Spacing     Vec2              `json:"spacing"`
	Scale       Vec3              `json:"scale"`
	Connections [][]ConnectionSet `json:"connections,omitempty"` // indexed [y][x]
	Bridges     []BridgeSnapshot  `json:"bridges,omitempty"`
	RoadPoints  int               `json:"road_points"`
	Pieces      int               `json:"pieces"`
}

// Snapshot returns the current state of the grid
func (e *Editor) Snapshot() *GridSnapshot {
	g := e.grid
	snap := &GridSnapshot{
		Initialized: g.Initialized(),
		Width:       g.width,
		Height:      g.height,
		Spacing:     Vec2{X: g.spacing.X, Y: g.spacing.Y},
		Scale:       Vec3{X: g.pieceScale.X, Y: g.pieceScale.Y, Z: g.pieceScale.Z},
	}
	if !snap.Initialized {
		return snap
	}

	snap.Connections = make([][]ConnectionSet, g.height)
	for y := 0; y < g.height; y++ {
		snap.Connections[y] = make([]ConnectionSet, g.width)
		for x := 0; x < g.width; x++ {
			p := g.cells[y][x]
			snap.Connections[y][x] = p.connections
			if p.connections != None {
				snap.RoadPoints++
			}
			if p.piece != 0 {
				snap.Pieces++
			}
		}
	}

	for _, b := range g.Bridges() {
		snap.Bridges = append(snap.Bridges, BridgeSnapshot{
			ID:             b.ID,
			ConnectionType: b.ConnectionType,
			Axis:           b.Axis(),
			Start:          b.Start,
			End:            b.End,
			Segments:       len(b.segments),
		})
		snap.Pieces += len(b.segments)
	}
	return snap
}

// Restore rebuilds the grid from a snapshot: it re-initializes with the stored
// spacing and scale, applies every connection set verbatim and recreates the
// bridges of every reciprocal edge. Queued notifications are discarded.
func (e *Editor) Restore(snap *GridSnapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if !snap.Initialized {
		e.Delete()
		return nil
	}

	// Check the shape against the grid it would build so a bad snapshot leaves the current grid alone
	spacing, scale := snap.Spacing.Point(), snap.Scale.Vector()
	width, height, err := e.grid.validateInit(e.surface, spacing, scale)
	if err != nil {
		return fmt.Errorf("failed to initialize grid: %w", err)
	}
	if len(snap.Connections) != height {
		return fmt.Errorf("snapshot has %d rows, grid has %d", len(snap.Connections), height)
	}
	for y, row := range snap.Connections {
		if len(row) != width {
			return fmt.Errorf("snapshot row %d has %d points, grid has %d", y, len(row), width)
		}
	}

	if err := e.Init(spacing, scale); err != nil {
		return fmt.Errorf("failed to initialize grid: %w", err)
	}

	g := e.grid
	for y, row := range snap.Connections {
		for x, set := range row {
			g.cells[y][x].SetConnections(set, g)
		}
	}

	e.RebuildBridges()
	g.DrainEvents()
	return nil
}

// RebuildBridges ensures every reciprocal East and North edge has a bridge
// and drops bridges that are no longer backed.
func (e *Editor) RebuildBridges() {
	g := e.grid
	for _, b := range g.Bridges() {
		if !g.bridgeBacked(b) {
			g.destroyBridge(b)
		}
	}
	for _, p := range g.Points() {
		for _, d := range []ConnectionSet{East, North} {
			next := g.PointAt(p.position.Step(d))
			if next != nil && p.Has(d) && next.Has(Opposite(d)) {
				g.CreateBridge(d, p.position, next.position)
			}
		}
	}
}

// Render draws the grid as text, north row first: '+' marks a road point,
// '-' and '|' mark bridges, '.' an empty point.
func (s *GridSnapshot) Render() string {
	if !s.Initialized {
		return "(grid not initialized)\n"
	}

	var b strings.Builder
	for y := s.Height - 1; y >= 0; y-- {
		for x := 0; x < s.Width; x++ {
			set := s.Connections[y][x]
			if set == None {
				b.WriteByte('.')
			} else {
				b.WriteByte('+')
			}
			if x+1 < s.Width {
				if set.Has(East) && s.Connections[y][x+1].Has(West) {
					b.WriteByte('-')
				} else {
					b.WriteByte(' ')
				}
			}
		}
		b.WriteByte('\n')
		if y > 0 {
			for x := 0; x < s.Width; x++ {
				if s.Connections[y][x].Has(South) && s.Connections[y-1][x].Has(North) {
					b.WriteByte('|')
				} else {
					b.WriteByte(' ')
				}
				if x+1 < s.Width {
					b.WriteByte(' ')
				}
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}
