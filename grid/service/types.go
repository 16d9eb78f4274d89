package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/roadgrid/grid/engine"
)

// Event types emitted by edits
const (
	EventConnectionChanged = "connection_changed"
	EventBridgeCreated     = "bridge_created"
	EventBridgeDestroyed   = "bridge_destroyed"
	EventGridInitialized   = "grid_initialized"
	EventGridDeleted       = "grid_deleted"
)

// SessionInfo provides information about an editing session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	Grid           *GridState         `json:"grid"`
	GridConfig     *engine.GridConfig `json:"grid_config"`
}

// GridState is the externally visible state of a session's grid
type GridState struct {
	SessionID string               `json:"session_id"`
	Snapshot  *engine.GridSnapshot `json:"snapshot"`
	Selected  *engine.Position     `json:"selected,omitempty"`
	Rendered  string               `json:"rendered,omitempty"`
}

// InitOptions overrides the configured spacing and scale when (re)initializing a grid
type InitOptions struct {
	Spacing *engine.Vec2 `json:"spacing,omitempty"`
	Scale   *engine.Vec3 `json:"scale,omitempty"`
}

// PointInfo describes a single grid point
type PointInfo struct {
	Position    engine.Position      `json:"position"`
	Connections engine.ConnectionSet `json:"connections"`
	Bridges     []engine.BridgeID    `json:"bridges,omitempty"`
	Piece       string               `json:"piece,omitempty"`
}

// EditResult contains the result of a mutating grid operation
type EditResult struct {
	Changed bool               `json:"changed"`
	Message string             `json:"message"`
	Drag    *engine.DragResult `json:"drag,omitempty"`
	Edit    *engine.EditResult `json:"edit,omitempty"`
	Events  []EditEvent        `json:"events"`
	Grid    *GridState         `json:"grid"`
}

// EditEvent represents a change that occurred during an edit
type EditEvent struct {
	ID        string                `json:"id"`
	Type      string                `json:"type"`
	Message   string                `json:"message"`
	Timestamp time.Time             `json:"timestamp"`
	Position  *engine.Position      `json:"position,omitempty"`
	Previous  *engine.ConnectionSet `json:"previous,omitempty"`
	Current   *engine.ConnectionSet `json:"current,omitempty"`
	BridgeID  engine.BridgeID       `json:"bridge_id,omitempty"`
	Start     *engine.Position      `json:"start,omitempty"`
	End       *engine.Position      `json:"end,omitempty"`
}

// RenderData carries everything needed to draw a grid preview
type RenderData struct {
	Snapshot *engine.GridSnapshot  `json:"snapshot"`
	Pieces   []engine.SpawnedPiece `json:"pieces"`
	Surface  engine.SurfaceConfig  `json:"surface"`
}

// ConfigInfo provides information about a grid configuration
type ConfigInfo struct {
	Filename    string      `json:"filename"`
	ConfigID    string      `json:"config_id"` // The identifier to use for session creation
	Name        string      `json:"name"`      // Display name
	Description string      `json:"description"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Spacing     engine.Vec2 `json:"spacing"`
}

// newEvent creates an event stamped with a fresh ID
func newEvent(eventType, message string) EditEvent {
	return EditEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
}
