package engine

import (
	"errors"
	"math/rand"
	"testing"
)

// checkBridgeInvariant verifies that every reciprocal edge has exactly one
// bridge and that no bridge exists anywhere else.
func checkBridgeInvariant(t *testing.T, g *RoadGrid) {
	t.Helper()
	for _, p := range g.Points() {
		for _, d := range Enumerate(All) {
			count := 0
			for _, b := range g.Bridges() {
				if (b.Start == p.Position() || b.End == p.Position()) && b.DirectionFrom(p.Position()) == d {
					count++
				}
			}

			want := 0
			if next := g.PointAt(p.Position().Step(d)); next != nil && p.Has(d) && next.Has(Opposite(d)) {
				want = 1
			}
			if count != want {
				t.Fatalf("Point %v (%s) has %d bridges toward %s, want %d", p.Position(), p.Connections(), count, d, want)
			}
		}
	}

	for _, b := range g.Bridges() {
		for _, pos := range []Position{b.Start, b.End} {
			found := false
			for _, id := range g.PointAt(pos).Bridges() {
				if id == b.ID {
					found = true
				}
			}
			if !found {
				t.Fatalf("Bridge %d is missing from the back-references of %v", b.ID, pos)
			}
		}
		if b.ConnectionType != East && b.ConnectionType != North {
			t.Fatalf("Bridge %d runs %s, bridges must run East or North", b.ID, b.ConnectionType)
		}
	}
}

func TestCascadeAddStopsAtGridEdge(t *testing.T) {
	editor, _ := newTestEditor(t)
	g := editor.Grid()

	result, err := editor.SetConnections(Position{X: 2, Y: 5}, East)
	if err != nil {
		t.Fatalf("SetConnections failed: %v", err)
	}
	if !result.Changed {
		t.Fatal("Expected a change")
	}
	if len(result.Terminals) != 1 || result.Terminals[0] != (Position{X: 9, Y: 5}) {
		t.Errorf("Expected terminal (9,5), got %v", result.Terminals)
	}

	if got := connectionsAt(t, g, 2, 5); got != East {
		t.Errorf("Seed should keep E, got %s", got)
	}
	for x := 3; x < 9; x++ {
		if got := connectionsAt(t, g, x, 5); got != West|East {
			t.Errorf("Point (%d,5) should be a through road, got %s", x, got)
		}
	}
	if got := connectionsAt(t, g, 9, 5); got != West {
		t.Errorf("Edge point should be capped with W, got %s", got)
	}
	if got := connectionsAt(t, g, 1, 5); got != None {
		t.Errorf("Point behind the seed should be untouched, got %s", got)
	}
	if g.BridgeCount() != 7 {
		t.Errorf("Expected 7 bridges, got %d", g.BridgeCount())
	}
	checkBridgeInvariant(t, g)
}

func TestCascadeAddWestBridgesRunEast(t *testing.T) {
	editor, _ := newTestEditor(t)
	g := editor.Grid()

	if _, err := editor.SetConnections(Position{X: 4, Y: 0}, West); err != nil {
		t.Fatalf("SetConnections failed: %v", err)
	}
	if got := connectionsAt(t, g, 0, 0); got != East {
		t.Errorf("Edge point should be capped with E, got %s", got)
	}
	if g.BridgeCount() != 4 {
		t.Fatalf("Expected 4 bridges, got %d", g.BridgeCount())
	}
	for _, b := range g.Bridges() {
		if b.ConnectionType != East || b.End.X != b.Start.X+1 {
			t.Errorf("Bridge %d should run East from %v, got %s to %v", b.ID, b.Start, b.ConnectionType, b.End)
		}
	}
	checkBridgeInvariant(t, g)
}

func TestCascadeAddCollisionStop(t *testing.T) {
	editor, _ := newTestEditor(t)
	g := editor.Grid()

	// An existing east-west road at index 3 of the row
	g.GetPoint(3, 5).SetConnections(West|East, g)
	g.DrainEvents()

	result, err := editor.SetConnections(Position{X: 0, Y: 5}, East)
	if err != nil {
		t.Fatalf("SetConnections failed: %v", err)
	}
	if result.Terminals[0] != (Position{X: 3, Y: 5}) {
		t.Errorf("Expected cascade to stop at (3,5), got %v", result.Terminals[0])
	}

	for x := 1; x < 3; x++ {
		if got := connectionsAt(t, g, x, 5); got != West|East {
			t.Errorf("Point (%d,5) should be a through road, got %s", x, got)
		}
	}
	if got := connectionsAt(t, g, 3, 5); got != West|East {
		t.Errorf("Collision point flags should be unchanged, got %s", got)
	}
	if got := connectionsAt(t, g, 4, 5); got != None {
		t.Errorf("Cascade should not pass the collision point, got %s at (4,5)", got)
	}
	if g.BridgeCount() != 3 {
		t.Errorf("Expected 3 bridges, got %d", g.BridgeCount())
	}

	events := editor.DrainEvents()
	for _, change := range events.Changes {
		if change.Position == (Position{X: 3, Y: 5}) {
			t.Error("Collision point should not report a change")
		}
	}
}

func TestCascadeAddCrossesPerpendicularRoad(t *testing.T) {
	editor, _ := newTestEditor(t)
	g := editor.Grid()

	// A vertical road through (5,5) does not block an east-west cascade
	if _, err := editor.Drag(Position{X: 5, Y: 2}, Position{X: 5, Y: 8}); err != nil {
		t.Fatalf("Drag failed: %v", err)
	}
	if _, err := editor.SetConnections(Position{X: 2, Y: 5}, East); err != nil {
		t.Fatalf("SetConnections failed: %v", err)
	}

	if got := connectionsAt(t, g, 5, 5); got != All {
		t.Errorf("Crossing should have all directions, got %s", got)
	}
	if got := connectionsAt(t, g, 9, 5); got != West {
		t.Errorf("Expected the road to reach the edge, got %s at (9,5)", got)
	}
	checkBridgeInvariant(t, g)
}

func TestCascadeRemoveClearsFully(t *testing.T) {
	editor, renderer := newTestEditor(t)
	g := editor.Grid()

	if _, err := editor.SetConnections(Position{X: 2, Y: 5}, East); err != nil {
		t.Fatalf("SetConnections failed: %v", err)
	}
	created := editor.DrainEvents()

	result, err := editor.SetConnections(Position{X: 2, Y: 5}, None)
	if err != nil {
		t.Fatalf("SetConnections failed: %v", err)
	}
	if !result.Changed || result.Previous != East || result.Current != None {
		t.Errorf("Unexpected edit result %+v", result)
	}

	for x := 0; x < g.Width(); x++ {
		if got := connectionsAt(t, g, x, 5); got.Intersects(West | East) {
			t.Errorf("Point (%d,5) still has %s", x, got)
		}
	}
	if g.BridgeCount() != 0 {
		t.Errorf("Expected every bridge to be destroyed, %d remain", g.BridgeCount())
	}
	if renderer.Count() != 0 {
		t.Errorf("Expected no live pieces, got %d", renderer.Count())
	}

	destroyed := make(map[BridgeID]bool)
	for _, e := range editor.DrainEvents().Bridges {
		if e.Type == BridgeDestroyed {
			destroyed[e.BridgeID] = true
		}
	}
	for _, e := range created.Bridges {
		if !destroyed[e.BridgeID] {
			t.Errorf("Bridge %d spanning %v-%v was not destroyed", e.BridgeID, e.Start, e.End)
		}
	}
	if len(destroyed) != 7 {
		t.Errorf("Expected exactly 7 destroyed bridges, got %d", len(destroyed))
	}
}

func TestCascadeRemoveStopsAtNonThroughPoint(t *testing.T) {
	editor, _ := newTestEditor(t)
	g := editor.Grid()

	if _, err := editor.Drag(Position{X: 1, Y: 3}, Position{X: 6, Y: 3}); err != nil {
		t.Fatalf("Drag failed: %v", err)
	}
	// Turn (4,3) into a corner so the road beyond it survives a removal
	g.GetPoint(4, 3).SetConnections(West|North, g)
	g.GetPoint(4, 3).UpdateBridges(g)

	if _, err := editor.SetConnections(Position{X: 1, Y: 3}, None); err != nil {
		t.Fatalf("SetConnections failed: %v", err)
	}

	if got := connectionsAt(t, g, 4, 3); got != North {
		t.Errorf("Stop point should lose only W, got %s", got)
	}
	if got := connectionsAt(t, g, 5, 3); got != West|East {
		t.Errorf("Road beyond the stop point should be untouched, got %s", got)
	}
}

func TestCascadeSimultaneousNorthSouth(t *testing.T) {
	editor, _ := newTestEditor(t)
	g := editor.Grid()

	result, err := editor.SetConnections(Position{X: 4, Y: 4}, North|South)
	if err != nil {
		t.Fatalf("SetConnections failed: %v", err)
	}
	if len(result.Terminals) != 2 {
		t.Fatalf("Expected two cascades, got %d terminals", len(result.Terminals))
	}

	if got := connectionsAt(t, g, 4, 9); got != South {
		t.Errorf("North edge should be capped with S, got %s", got)
	}
	if got := connectionsAt(t, g, 4, 0); got != North {
		t.Errorf("South edge should be capped with N, got %s", got)
	}
	if g.BridgeCount() != 9 {
		t.Errorf("Expected 9 bridges along the column, got %d", g.BridgeCount())
	}
	checkBridgeInvariant(t, g)

	if _, err := editor.SetConnections(Position{X: 4, Y: 4}, None); err != nil {
		t.Fatalf("SetConnections failed: %v", err)
	}
	for y := 0; y < g.Height(); y++ {
		if got := connectionsAt(t, g, 4, y); got != None {
			t.Errorf("Point (4,%d) should be cleared, got %s", y, got)
		}
	}
	checkBridgeInvariant(t, g)
}

func TestCascadeTermination(t *testing.T) {
	editor, _ := newTestEditor(t)
	g := editor.Grid()
	limit := g.Width()

	for _, seed := range []Position{{0, 0}, {9, 9}, {0, 9}, {5, 4}} {
		for _, d := range Enumerate(All) {
			if err := editor.InitFromConfig(); err != nil {
				t.Fatalf("Reinit failed: %v", err)
			}
			p := g.PointAt(seed)
			p.SetConnections(d, g)

			result := editor.engine.Cascade(p, d, CascadeAdd, 0)
			if len(result.Visited) > limit {
				t.Errorf("Cascade from %v along %s visited %d points", seed, d, len(result.Visited))
			}
			if len(result.Visited) > 0 && !result.Stopped {
				t.Errorf("Unbounded cascade from %v along %s should end on a stop point", seed, d)
			}
		}
	}
}

func TestCascadeStepCap(t *testing.T) {
	tests := []struct {
		name        string
		maxSteps    int
		wantVisited int
		wantStopped bool
	}{
		{"uncapped", 0, 9, true},
		{"cap beyond grid", 100, 9, true},
		{"cap inside grid", 3, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			editor, _ := newTestEditor(t)
			g := editor.Grid()
			seed := g.GetPoint(0, 4)
			seed.SetConnections(East, g)

			result := editor.engine.Cascade(seed, East, CascadeAdd, tt.maxSteps)
			if len(result.Visited) != tt.wantVisited {
				t.Errorf("Expected %d visited points, got %d", tt.wantVisited, len(result.Visited))
			}
			if result.Stopped != tt.wantStopped {
				t.Errorf("Expected Stopped=%v, got %v", tt.wantStopped, result.Stopped)
			}
		})
	}
}

func TestCascadePanicsPastSafetyBound(t *testing.T) {
	editor, _ := newTestEditor(t)
	g := editor.Grid()
	seed := g.GetPoint(0, 4)
	seed.SetConnections(East, g)

	defer func() {
		if recover() == nil {
			t.Error("Expected panic once the walk passes its bound")
		}
	}()
	// An open row needs 9 steps, so a bound of 3 must trip
	editor.engine.cascade(seed, East, CascadeAdd, 0, 3)
}

func TestCascadePanicsOnCompositeDirection(t *testing.T) {
	editor, _ := newTestEditor(t)
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for a composite cascade direction")
		}
	}()
	editor.engine.Cascade(editor.Grid().GetPoint(1, 1), North|East, CascadeAdd, 0)
}

func TestApplyConnectionChangeNoOp(t *testing.T) {
	editor, renderer := newTestEditor(t)

	if _, err := editor.SetConnections(Position{X: 3, Y: 3}, East); err != nil {
		t.Fatalf("SetConnections failed: %v", err)
	}
	editor.DrainEvents()
	spawned := renderer.TotalSpawned()

	result, err := editor.SetConnections(Position{X: 3, Y: 3}, East)
	if err != nil {
		t.Fatalf("SetConnections failed: %v", err)
	}
	if result.Changed {
		t.Error("Setting the same set should report no change")
	}
	if renderer.TotalSpawned() != spawned {
		t.Error("A no-op edit should not respawn pieces")
	}
	if !editor.DrainEvents().Empty() {
		t.Error("A no-op edit should not queue events")
	}
}

func TestApplyConnectionChangeOutOfRange(t *testing.T) {
	editor, _ := newTestEditor(t)
	if _, err := editor.SetConnections(Position{X: 10, Y: 0}, North); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Expected ErrOutOfBounds, got %v", err)
	}
}

func TestBridgeInvariantUnderRandomEdits(t *testing.T) {
	editor, renderer := newTestEditor(t)
	g := editor.Grid()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 300; i++ {
		from := Position{X: rng.Intn(g.Width()), Y: rng.Intn(g.Height())}
		if rng.Intn(3) == 0 {
			set := ConnectionSet(rng.Intn(16))
			if _, err := editor.SetConnections(from, set); err != nil {
				t.Fatalf("SetConnections(%v, %s) failed: %v", from, set, err)
			}
		} else {
			to := Position{X: rng.Intn(g.Width()), Y: rng.Intn(g.Height())}
			if _, err := editor.Drag(from, to); err != nil {
				t.Fatalf("Drag(%v, %v) failed: %v", from, to, err)
			}
		}
		checkBridgeInvariant(t, g)
	}

	// Every live piece belongs to a road point or a bridge segment
	pieces := 0
	for _, p := range g.Points() {
		if p.Connections() != None {
			pieces++
		}
	}
	for _, b := range g.Bridges() {
		pieces += len(b.Segments())
	}
	if renderer.Count() != pieces {
		t.Errorf("Renderer holds %d pieces, grid owns %d", renderer.Count(), pieces)
	}
}

func TestProjectEndIsPure(t *testing.T) {
	editor, renderer := newTestEditor(t)
	g := editor.Grid()
	g.GetPoint(6, 2).SetConnections(West|East, g)
	g.DrainEvents()
	spawned := renderer.TotalSpawned()

	end := editor.engine.ProjectEnd(Position{X: 2, Y: 2}, Position{X: 9, Y: 2}, East, CascadeAdd)
	if end != (Position{X: 6, Y: 2}) {
		t.Errorf("Expected projection to stop at (6,2), got %v", end)
	}
	if renderer.TotalSpawned() != spawned || !editor.DrainEvents().Empty() {
		t.Error("ProjectEnd must not touch the grid")
	}
}
