package engine

import (
	"errors"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// newTestEditor returns an initialized editor over the default 10x10 grid
func newTestEditor(t *testing.T) (*Editor, *MemoryRenderer) {
	t.Helper()
	renderer := NewMemoryRenderer()
	editor, err := NewEditor(DefaultGridConfig(), renderer)
	if err != nil {
		t.Fatalf("Failed to create editor: %v", err)
	}
	if err := editor.InitFromConfig(); err != nil {
		t.Fatalf("Failed to initialize grid: %v", err)
	}
	return editor, renderer
}

func connectionsAt(t *testing.T, g *RoadGrid, x, y int) ConnectionSet {
	t.Helper()
	p := g.GetPoint(x, y)
	if p == nil {
		t.Fatalf("Point (%d,%d) is outside the grid", x, y)
	}
	return p.Connections()
}

func TestRoadGridInitDimensions(t *testing.T) {
	editor, renderer := newTestEditor(t)
	g := editor.Grid()

	if g.Width() != 10 || g.Height() != 10 {
		t.Fatalf("Expected 10x10 grid, got %dx%d", g.Width(), g.Height())
	}
	if len(g.Points()) != 100 {
		t.Errorf("Expected 100 points, got %d", len(g.Points()))
	}
	if renderer.Count() != 0 {
		t.Errorf("A fresh grid should spawn no pieces, got %d", renderer.Count())
	}

	for _, p := range g.Points() {
		if p.Connections() != None {
			t.Errorf("Point %v should start empty, got %s", p.Position(), p.Connections())
		}
		if got := g.PointAt(p.Position()); got != p {
			t.Errorf("PointAt(%v) returned a different point", p.Position())
		}
	}
}

func TestRoadGridInitRejectsInvalidParameters(t *testing.T) {
	table, err := BuildPieceTable(DefaultGridConfig())
	if err != nil {
		t.Fatalf("Failed to build piece table: %v", err)
	}

	tests := []struct {
		name    string
		surface Surface
		spacing r2.Point
		scale   r3.Vector
	}{
		{"nil surface", nil, r2.Point{X: 5, Y: 5}, r3.Vector{X: 1, Y: 1, Z: 1}},
		{"tiny spacing", NewPlaneSurface(45, 45), r2.Point{X: 0.01, Y: 5}, r3.Vector{X: 1, Y: 1, Z: 1}},
		{"zero scale", NewPlaneSurface(45, 45), r2.Point{X: 5, Y: 5}, r3.Vector{X: 1, Y: 0, Z: 1}},
		{"tiny surface", NewPlaneSurface(0.5, 45), r2.Point{X: 5, Y: 5}, r3.Vector{X: 1, Y: 1, Z: 1}},
		{"too many points", NewPlaneSurface(1000, 1000), r2.Point{X: 0.5, Y: 0.5}, r3.Vector{X: 1, Y: 1, Z: 1}},
		{"too many segments", NewPlaneSurface(45, 45), r2.Point{X: 5, Y: 5}, r3.Vector{X: 0.01, Y: 0.01, Z: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewRoadGrid(table, NewMemoryRenderer())
			err := g.Init(tt.surface, tt.spacing, tt.scale)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Expected ErrInvalidConfig, got %v", err)
			}
			if g.Initialized() {
				t.Error("Grid should not be initialized after a failed Init")
			}
		})
	}
}

func TestRoadGridFailedInitKeepsPreviousGrid(t *testing.T) {
	editor, _ := newTestEditor(t)
	g := editor.Grid()

	if _, err := editor.Drag(Position{X: 1, Y: 1}, Position{X: 4, Y: 1}); err != nil {
		t.Fatalf("Drag failed: %v", err)
	}
	bridges := g.BridgeCount()

	if err := editor.Init(r2.Point{X: 0, Y: 0}, r3.Vector{X: 1, Y: 1, Z: 1}); err == nil {
		t.Fatal("Expected Init with zero spacing to fail")
	}
	if g.Width() != 10 || g.BridgeCount() != bridges {
		t.Error("Failed Init should leave the previous grid untouched")
	}
	if connectionsAt(t, g, 1, 1) != East {
		t.Errorf("Expected (1,1) to keep E, got %s", connectionsAt(t, g, 1, 1))
	}
}

func TestRoadGridReinitTearsDownPieces(t *testing.T) {
	editor, renderer := newTestEditor(t)

	if _, err := editor.Drag(Position{X: 2, Y: 2}, Position{X: 2, Y: 7}); err != nil {
		t.Fatalf("Drag failed: %v", err)
	}
	if renderer.Count() == 0 {
		t.Fatal("Expected pieces after drawing a road")
	}

	if err := editor.Init(r2.Point{X: 9, Y: 9}, r3.Vector{X: 1, Y: 1, Z: 1}); err != nil {
		t.Fatalf("Reinit failed: %v", err)
	}
	if renderer.Count() != 0 {
		t.Errorf("Reinit should destroy every piece, %d remain", renderer.Count())
	}
	g := editor.Grid()
	if g.Width() != 6 || g.Height() != 6 {
		t.Errorf("Expected 6x6 grid after reinit, got %dx%d", g.Width(), g.Height())
	}
	if g.BridgeCount() != 0 {
		t.Errorf("Expected no bridges after reinit, got %d", g.BridgeCount())
	}
	if !editor.DrainEvents().Empty() {
		t.Error("Reinit should discard queued events")
	}
}

func TestRoadGridDestroy(t *testing.T) {
	editor, renderer := newTestEditor(t)
	if _, err := editor.Drag(Position{X: 0, Y: 0}, Position{X: 0, Y: 3}); err != nil {
		t.Fatalf("Drag failed: %v", err)
	}

	editor.Delete()
	if editor.Initialized() {
		t.Error("Grid should not be initialized after Delete")
	}
	if renderer.Count() != 0 {
		t.Errorf("Delete should destroy every piece, %d remain", renderer.Count())
	}
	if editor.Grid().GetPoint(0, 0) != nil {
		t.Error("GetPoint should return nil after Delete")
	}
	if _, err := editor.Drag(Position{X: 0, Y: 0}, Position{X: 0, Y: 3}); !errors.Is(err, ErrGridNotInitialized) {
		t.Errorf("Expected ErrGridNotInitialized, got %v", err)
	}
}

func TestRoadGridBounds(t *testing.T) {
	editor, _ := newTestEditor(t)
	g := editor.Grid()

	for _, pos := range []Position{{-1, 0}, {0, -1}, {10, 0}, {0, 10}} {
		if g.IsInGrid(pos) {
			t.Errorf("%v should be outside the grid", pos)
		}
		if g.PointAt(pos) != nil {
			t.Errorf("PointAt(%v) should be nil", pos)
		}
	}
	for _, pos := range []Position{{0, 0}, {9, 9}, {3, 7}} {
		if !g.IsInGrid(pos) {
			t.Errorf("%v should be inside the grid", pos)
		}
	}
}

func TestClosestPointTo(t *testing.T) {
	editor, _ := newTestEditor(t)
	g := editor.Grid()

	tests := []struct {
		world r3.Vector
		want  *Position
	}{
		{r3.Vector{X: 0, Y: 0}, &Position{0, 0}},
		{r3.Vector{X: 12.4, Y: 7.6}, &Position{2, 2}},
		{r3.Vector{X: 12.6, Y: 7.4}, &Position{3, 1}},
		{r3.Vector{X: 45, Y: 45}, &Position{9, 9}},
		{r3.Vector{X: 48, Y: 10}, nil},
		{r3.Vector{X: -3, Y: 10}, nil},
	}

	for _, tt := range tests {
		got := g.ClosestPointTo(tt.world)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("ClosestPointTo(%v) = %v, want nil", tt.world, got.Position())
		case tt.want != nil && got == nil:
			t.Errorf("ClosestPointTo(%v) = nil, want %v", tt.world, *tt.want)
		case tt.want != nil && got.Position() != *tt.want:
			t.Errorf("ClosestPointTo(%v) = %v, want %v", tt.world, got.Position(), *tt.want)
		}
	}
}

func TestClosestAxisAlignedPoint(t *testing.T) {
	editor, _ := newTestEditor(t)
	g := editor.Grid()
	origin := Position{X: 4, Y: 4}

	tests := []struct {
		target Position
		want   Position
	}{
		{Position{8, 5}, Position{8, 4}},
		{Position{5, 1}, Position{4, 1}},
		{Position{6, 6}, Position{6, 4}}, // ties snap onto the row
		{Position{4, 4}, Position{4, 4}},
	}

	for _, tt := range tests {
		got := g.ClosestAxisAlignedPoint(origin, tt.target)
		if got == nil {
			t.Fatalf("ClosestAxisAlignedPoint(%v) returned nil", tt.target)
		}
		if got.Position() != tt.want {
			t.Errorf("ClosestAxisAlignedPoint(%v) = %v, want %v", tt.target, got.Position(), tt.want)
		}
	}
}

func TestWorldPosition(t *testing.T) {
	editor, _ := newTestEditor(t)
	got := editor.Grid().WorldPosition(Position{X: 3, Y: 7})
	if got.X != 15 || got.Y != 35 || got.Z != 0 {
		t.Errorf("Expected (15,35,0), got %v", got)
	}
}

func TestSetConnectionsSpawnsPieces(t *testing.T) {
	editor, renderer := newTestEditor(t)
	g := editor.Grid()
	p := g.GetPoint(3, 3)

	if !p.SetConnections(North|East, g) {
		t.Fatal("SetConnections should report a change")
	}
	if p.Piece() == 0 {
		t.Fatal("Expected a piece for NE")
	}
	piece, ok := renderer.Piece(p.Piece())
	if !ok {
		t.Fatal("Piece handle is not live")
	}
	if piece.Descriptor.Name != "road_corner" {
		t.Errorf("Expected road_corner, got %s", piece.Descriptor.Name)
	}
	if piece.Position.X != 15 || piece.Position.Y != 15 {
		t.Errorf("Piece spawned at %v, want (15,15)", piece.Position)
	}

	if p.SetConnections(North|East, g) {
		t.Error("Setting the same connections should be a no-op")
	}
	if renderer.TotalSpawned() != 1 {
		t.Errorf("No-op SetConnections should not respawn, total %d", renderer.TotalSpawned())
	}

	p.SetConnections(None, g)
	if p.Piece() != 0 || renderer.Count() != 0 {
		t.Error("Clearing connections should destroy the piece")
	}

	events := g.DrainEvents()
	if len(events.Changes) != 2 {
		t.Fatalf("Expected 2 change events, got %d", len(events.Changes))
	}
	if events.Changes[0].Previous != None || events.Changes[0].Current != North|East {
		t.Errorf("Unexpected first change %+v", events.Changes[0])
	}
	if !g.DrainEvents().Empty() {
		t.Error("DrainEvents should clear the queue")
	}
}
