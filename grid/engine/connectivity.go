package engine

import "fmt"

// CascadeMode selects whether a cascade adds or removes a connection
type CascadeMode int

const (
	CascadeAdd CascadeMode = iota
	CascadeRemove
)

func (m CascadeMode) String() string {
	if m == CascadeAdd {
		return "add"
	}
	return "remove"
}

// modeFor returns the cascade mode for a direction that was just set or cleared
func modeFor(adding bool) CascadeMode {
	if adding {
		return CascadeAdd
	}
	return CascadeRemove
}

// CascadeResult describes the walk performed by a single-direction cascade
type CascadeResult struct {
	// Terminal is the last point visited, the seed itself when nothing was visited
	Terminal *GridPoint
	// Visited lists every point updated by the walk, in walking order
	Visited []Position
	// Stopped is true when the walk ended on a stop point rather than on the step limit
	Stopped bool
}

// EditResult reports the outcome of replacing a point's connection set
type EditResult struct {
	Changed   bool          `json:"changed"`
	Position  Position      `json:"position"`
	Previous  ConnectionSet `json:"previous"`
	Current   ConnectionSet `json:"current"`
	Terminals []Position    `json:"terminals,omitempty"`
}

// ConnectivityEngine propagates connection edits along the grid
type ConnectivityEngine struct {
	grid *RoadGrid
}

// NewConnectivityEngine creates an engine operating on g
func NewConnectivityEngine(g *RoadGrid) *ConnectivityEngine {
	return &ConnectivityEngine{grid: g}
}

// Cascade propagates a single-direction change made on seed outward along d.
// Adding stops at the first point that already has a road on the axis (capping
// it back toward the seed) or at the grid edge; removing stops at the first
// point that is not a through-road on the axis. maxSteps caps the walk for the
// caller; <= 0 means walk until a stop rule or the edge ends it.
//
// A walk visiting max(width, height) points can only come from a corrupted
// grid and panics.
func (e *ConnectivityEngine) Cascade(seed *GridPoint, d ConnectionSet, mode CascadeMode, maxSteps int) CascadeResult {
	g := e.grid
	limit := g.width
	if g.height > limit {
		limit = g.height
	}
	return e.cascade(seed, d, mode, maxSteps, limit)
}

func (e *ConnectivityEngine) cascade(seed *GridPoint, d ConnectionSet, mode CascadeMode, maxSteps, limit int) CascadeResult {
	mustBeSingle(d, "Cascade")
	g := e.grid

	result := CascadeResult{Terminal: seed}
	trail := []*GridPoint{seed}
	pos := seed.position

	for steps := 0; maxSteps <= 0 || steps < maxSteps; steps++ {
		pos = pos.Step(d)
		p := g.PointAt(pos)
		if p == nil {
			break
		}
		if len(result.Visited) >= limit {
			panic(fmt.Sprintf("engine: cascade from %v along %s exceeded %d steps", seed.position, d, limit))
		}

		stop := e.shouldStop(p, d, mode)
		if mode == CascadeAdd && !g.IsInGrid(pos.Step(d)) {
			stop = true
		}

		p.SetConnections(cascadeUpdate(p.connections, d, mode, stop), g)
		p.UpdateBridges(g)

		trail = append(trail, p)
		result.Visited = append(result.Visited, pos)
		result.Terminal = p

		if stop {
			result.Stopped = true
			break
		}
	}

	if mode == CascadeAdd {
		e.bridgeTrail(trail, d)
	}
	return result
}

// shouldStop applies the per-point stop rule before p is modified
func (e *ConnectivityEngine) shouldStop(p *GridPoint, d ConnectionSet, mode CascadeMode) bool {
	opposite := Opposite(d)
	if mode == CascadeAdd {
		return p.connections.Intersects(d | opposite)
	}
	return !p.Has(d) || !p.Has(opposite)
}

// cascadeUpdate computes the new connection set of a visited point
func cascadeUpdate(current, d ConnectionSet, mode CascadeMode, stop bool) ConnectionSet {
	opposite := Opposite(d)
	combined := d | opposite

	switch {
	case mode == CascadeAdd && !stop:
		return current | combined
	case mode == CascadeAdd:
		return current | opposite
	case !stop:
		return current &^ combined
	default:
		return current &^ opposite
	}
}

// bridgeTrail creates a bridge between every consecutive reciprocating pair of
// the trail. West and South walks are re-based so bridges run East or North.
func (e *ConnectivityEngine) bridgeTrail(trail []*GridPoint, d ConnectionSet) {
	if len(trail) < 2 {
		return
	}

	if d == West || d == South {
		reversed := make([]*GridPoint, len(trail))
		for i, p := range trail {
			reversed[len(trail)-1-i] = p
		}
		trail = reversed
		d = Opposite(d)
	}

	for i := 0; i+1 < len(trail); i++ {
		a, b := trail[i], trail[i+1]
		if a.Has(d) && b.Has(Opposite(d)) {
			e.grid.CreateBridge(d, a.position, b.position)
		}
	}
}

// ApplyConnectionChange replaces the connection set of the point at pos and
// runs an independent cascade for every direction that changed.
func (e *ConnectivityEngine) ApplyConnectionChange(pos Position, set ConnectionSet) (EditResult, error) {
	g := e.grid
	if !g.Initialized() {
		return EditResult{}, ErrGridNotInitialized
	}

	p := g.PointAt(pos)
	if p == nil {
		return EditResult{}, fmt.Errorf("%w: point (%d,%d) on a %dx%d grid", ErrOutOfBounds, pos.X, pos.Y, g.width, g.height)
	}

	set &= All
	previous := p.connections
	result := EditResult{Position: pos, Previous: previous, Current: previous}
	if !p.SetConnections(set, g) {
		return result, nil
	}
	result.Changed = true
	result.Current = set

	terminals := make([]*GridPoint, 0, 4)
	for _, d := range Enumerate(previous ^ set) {
		cascade := e.Cascade(p, d, modeFor(set.Has(d)), 0)
		terminals = append(terminals, cascade.Terminal)
	}

	p.UpdateBridges(g)
	for _, t := range terminals {
		t.UpdateBridges(g)
		result.Terminals = append(result.Terminals, t.position)
	}

	return result, nil
}

// ProjectEnd simulates the stop rule from start toward target without touching
// the grid and returns the point where a drag along d would actually end.
func (e *ConnectivityEngine) ProjectEnd(start, target Position, d ConnectionSet, mode CascadeMode) Position {
	mustBeSingle(d, "ProjectEnd")
	g := e.grid

	pos := start
	for pos != target {
		next := pos.Step(d)
		p := g.PointAt(next)
		if p == nil {
			return pos
		}
		pos = next
		if e.shouldStop(p, d, mode) {
			return pos
		}
	}
	return pos
}
