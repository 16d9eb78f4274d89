package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// boundsEpsilon absorbs float noise from rotated piece bounds
const boundsEpsilon = 1e-9

// BridgeID identifies a bridge within its grid
type BridgeID uint64

// Axis is the orientation of a bridge
type Axis string

const (
	Horizontal Axis = "horizontal"
	Vertical   Axis = "vertical"
)

// Bridge fills the visual gap between two adjacent connected points.
// Bridges always run East or North, from the lower point to the higher one.
type Bridge struct {
	ID             BridgeID      `json:"id"`
	ConnectionType ConnectionSet `json:"connection_type"`
	Start          Position      `json:"start"`
	End            Position      `json:"end"`
	Scale          r3.Vector     `json:"scale"`

	segments []PieceHandle
}

// Axis returns the orientation derived from the connection type
func (b *Bridge) Axis() Axis {
	if b.ConnectionType.IsVertical() {
		return Vertical
	}
	return Horizontal
}

// Segments returns the handles of the filler pieces currently spawned
func (b *Bridge) Segments() []PieceHandle {
	return append([]PieceHandle(nil), b.segments...)
}

// DirectionFrom returns the connection direction of the bridge as seen from pos
func (b *Bridge) DirectionFrom(pos Position) ConnectionSet {
	if pos == b.End {
		return Opposite(b.ConnectionType)
	}
	return b.ConnectionType
}

// Bridge returns a live bridge by ID
func (g *RoadGrid) Bridge(id BridgeID) (*Bridge, bool) {
	b, ok := g.bridges[id]
	return b, ok
}

// Bridges returns all live bridges ordered by ID
func (g *RoadGrid) Bridges() []*Bridge {
	result := make([]*Bridge, 0, len(g.bridges))
	for _, b := range g.bridges {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// BridgeCount returns the number of live bridges
func (g *RoadGrid) BridgeCount() int {
	return len(g.bridges)
}

// CreateBridge connects a and b, which must be adjacent along direction d
// (b = a + d). An existing bridge between the pair is refreshed instead.
func (g *RoadGrid) CreateBridge(d ConnectionSet, a, b Position) *Bridge {
	mustBeSingle(d, "CreateBridge")
	if a.Step(d) != b {
		panic(fmt.Sprintf("engine: bridge endpoints %v and %v are not adjacent along %s", a, b, d))
	}

	if d == West || d == South {
		a, b = b, a
		d = Opposite(d)
	}

	start := g.PointAt(a)
	end := g.PointAt(b)
	if start == nil || end == nil {
		return nil
	}

	if existing, ok := start.bridgeTo(g, b); ok {
		g.refreshBridge(existing)
		return existing
	}

	g.nextBridge++
	bridge := &Bridge{
		ID:             g.nextBridge,
		ConnectionType: d,
		Start:          a,
		End:            b,
		Scale:          g.pieceScale,
	}
	g.bridges[bridge.ID] = bridge
	start.addBridge(bridge.ID)
	end.addBridge(bridge.ID)

	g.layoutBridge(bridge)
	g.notifyBridge(BridgeEvent{Type: BridgeCreated, BridgeID: bridge.ID, Start: a, End: b})
	return bridge
}

// RefreshConnection recomputes the filler segments of a bridge from its stored inputs
func (g *RoadGrid) RefreshConnection(id BridgeID) bool {
	bridge, ok := g.bridges[id]
	if !ok {
		return false
	}
	g.refreshBridge(bridge)
	return true
}

// bridgeBacked reports whether both endpoints still reciprocate the bridge's connection
func (g *RoadGrid) bridgeBacked(b *Bridge) bool {
	start := g.PointAt(b.Start)
	end := g.PointAt(b.End)
	if start == nil || end == nil {
		return false
	}
	return start.Has(b.ConnectionType) && end.Has(Opposite(b.ConnectionType))
}

func (g *RoadGrid) refreshBridge(b *Bridge) {
	g.layoutBridge(b)
}

func (g *RoadGrid) destroyBridge(b *Bridge) {
	for _, handle := range b.segments {
		g.renderer.Destroy(handle)
	}
	b.segments = nil
	delete(g.bridges, b.ID)

	if p := g.PointAt(b.Start); p != nil {
		p.removeBridge(b.ID)
	}
	if p := g.PointAt(b.End); p != nil {
		p.removeBridge(b.ID)
	}
	g.notifyBridge(BridgeEvent{Type: BridgeDestroyed, BridgeID: b.ID, Start: b.Start, End: b.End})
}

// layoutBridge spawns the filler segments covering the gap between the facing
// edges of the two endpoint pieces, replacing any previous segments.
func (g *RoadGrid) layoutBridge(b *Bridge) {
	for _, handle := range b.segments {
		g.renderer.Destroy(handle)
	}
	b.segments = nil

	start := g.PointAt(b.Start)
	end := g.PointAt(b.End)
	if start == nil || end == nil {
		return
	}

	d := b.ConnectionType
	startBounds := g.pointBounds(start)
	endBounds := g.pointBounds(end)

	edge := axisHi(startBounds, d)
	gap := axisLo(endBounds, d) - edge
	if gap <= boundsEpsilon {
		return
	}

	filler := g.table.BridgeFiller(d)
	segment := axisLength(footprintBounds(filler.Descriptor, r3.Vector{}, filler.Rotation, b.Scale), d)
	if segment <= 0 {
		panic(fmt.Sprintf("engine: bridge filler %q has no extent along %s", filler.Descriptor.Name, d))
	}

	count := int(math.Ceil(gap/segment - boundsEpsilon))
	if count > MaxBridgeSegments {
		panic(fmt.Sprintf("engine: bridge %d needs %d segments, exceeding the bound of %d", b.ID, count, MaxBridgeSegments))
	}

	dx, dy := ToUnitVector(d)
	origin := g.WorldPosition(b.Start)
	if d.IsVertical() {
		origin.Y = edge
	} else {
		origin.X = edge
	}

	step := gap / float64(count)
	for i := 0; i < count; i++ {
		offset := step * (float64(i) + 0.5)
		position := r3.Vector{X: origin.X + float64(dx)*offset, Y: origin.Y + float64(dy)*offset, Z: origin.Z}
		b.segments = append(b.segments, g.renderer.Spawn(filler.Descriptor, position, filler.Rotation, b.Scale))
	}
}

// pointBounds returns the rendered bounds of a point's piece, or a degenerate
// rectangle at its world position when it has none.
func (g *RoadGrid) pointBounds(p *GridPoint) r2.Rect {
	if p.piece == 0 {
		world := g.WorldPosition(p.position)
		return r2.RectFromPoints(r2.Point{X: world.X, Y: world.Y})
	}
	return g.renderer.Bounds(p.piece, p.rotation)
}

func axisLo(rect r2.Rect, d ConnectionSet) float64 {
	if d.IsVertical() {
		return rect.Y.Lo
	}
	return rect.X.Lo
}

func axisHi(rect r2.Rect, d ConnectionSet) float64 {
	if d.IsVertical() {
		return rect.Y.Hi
	}
	return rect.X.Hi
}

func axisLength(rect r2.Rect, d ConnectionSet) float64 {
	if rect.IsEmpty() {
		return 0
	}
	return axisHi(rect, d) - axisLo(rect, d)
}
