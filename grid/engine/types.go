package engine

import "errors"

const (
	// Validation constants
	MinSpacing        = 0.1
	MinScale          = 0.01
	MinSurfaceExtent  = 1.0
	MaxGridPoints     = 512
	MaxBridgeSegments = 400
	DefaultPixelsUnit = 10.0
)

var (
	ErrInvalidConfig      = errors.New("invalid grid configuration")
	ErrMissingPiece       = errors.New("missing piece table entry")
	ErrGridNotInitialized = errors.New("grid not initialized")
	ErrOutOfBounds        = errors.New("position outside the grid")
)

// Position represents x,y grid coordinates
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Step returns the position one unit step away in direction d
func (p Position) Step(d ConnectionSet) Position {
	dx, dy := ToUnitVector(d)
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// ConnectionChange records an effective connection edit on a single point
type ConnectionChange struct {
	Position Position      `json:"position"`
	Previous ConnectionSet `json:"previous"`
	Current  ConnectionSet `json:"current"`
}

// BridgeEventType distinguishes bridge lifecycle notifications
type BridgeEventType string

const (
	BridgeCreated   BridgeEventType = "bridge_created"
	BridgeDestroyed BridgeEventType = "bridge_destroyed"
)

// BridgeEvent records a bridge being created or destroyed
type BridgeEvent struct {
	Type     BridgeEventType `json:"type"`
	BridgeID BridgeID        `json:"bridge_id"`
	Start    Position        `json:"start"`
	End      Position        `json:"end"`
}

// GridEvents is the batch of notifications drained from a grid after an edit
type GridEvents struct {
	Changes []ConnectionChange `json:"changes,omitempty"`
	Bridges []BridgeEvent      `json:"bridges,omitempty"`
}

// Empty reports whether no notification was queued
func (e GridEvents) Empty() bool {
	return len(e.Changes) == 0 && len(e.Bridges) == 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
