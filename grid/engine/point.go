package engine

// GridPoint is a single cell of the road grid
type GridPoint struct {
	position    Position
	connections ConnectionSet
	piece       PieceHandle
	rotation    float64
	bridges     []BridgeID
}

// Position returns the immutable grid coordinates of the point
func (p *GridPoint) Position() Position {
	return p.position
}

// Connections returns the current connection flags
func (p *GridPoint) Connections() ConnectionSet {
	return p.connections
}

// Piece returns the handle of the rendered piece, zero when none
func (p *GridPoint) Piece() PieceHandle {
	return p.piece
}

// Bridges returns a copy of the bridge references touching this point
func (p *GridPoint) Bridges() []BridgeID {
	return append([]BridgeID(nil), p.bridges...)
}

// Has reports whether the point is connected in direction d
func (p *GridPoint) Has(d ConnectionSet) bool {
	return p.connections.Has(d)
}

// SetConnections replaces the connection flags, respawning the point's piece.
// It returns false without side effects when set equals the current value.
func (p *GridPoint) SetConnections(set ConnectionSet, g *RoadGrid) bool {
	set &= All
	if set == p.connections {
		return false
	}

	previous := p.connections
	p.connections = set

	if p.piece != 0 {
		g.renderer.Destroy(p.piece)
		p.piece = 0
		p.rotation = 0
	}

	entry, ok, err := g.table.Lookup(set)
	if err != nil {
		// Init validates the full table, so a miss here means it was mutated afterwards.
		panic("engine: " + err.Error())
	}
	if ok {
		p.piece = g.renderer.Spawn(entry.Descriptor, g.WorldPosition(p.position), entry.Rotation, g.pieceScale)
		p.rotation = entry.Rotation
	}

	g.notifyChange(ConnectionChange{Position: p.position, Previous: previous, Current: set})
	return true
}

// UpdateBridges refreshes every bridge still backed by a reciprocal connection
// and destroys the rest.
func (p *GridPoint) UpdateBridges(g *RoadGrid) {
	ids := append([]BridgeID(nil), p.bridges...)
	for _, id := range ids {
		bridge, ok := g.bridges[id]
		if !ok {
			p.removeBridge(id)
			continue
		}

		if g.bridgeBacked(bridge) {
			g.refreshBridge(bridge)
		} else {
			g.destroyBridge(bridge)
		}
	}
}

// bridgeTo returns the bridge connecting this point to other, if any
func (p *GridPoint) bridgeTo(g *RoadGrid, other Position) (*Bridge, bool) {
	for _, id := range p.bridges {
		bridge, ok := g.bridges[id]
		if !ok {
			continue
		}
		if (bridge.Start == p.position && bridge.End == other) || (bridge.End == p.position && bridge.Start == other) {
			return bridge, true
		}
	}
	return nil, false
}

func (p *GridPoint) addBridge(id BridgeID) {
	p.bridges = append(p.bridges, id)
}

func (p *GridPoint) removeBridge(id BridgeID) {
	for i, existing := range p.bridges {
		if existing == id {
			p.bridges = append(p.bridges[:i], p.bridges[i+1:]...)
			return
		}
	}
}
