// Package engine provides the road grid connectivity core.
//
// The engine package implements:
//   - The four-direction ConnectionSet algebra
//   - RoadGrid, the rectangular array of GridPoints with spatial queries
//   - Bridges, the filler segments closing the gap between connected pieces
//   - ConnectivityEngine, which cascades single-direction edits along the grid
//   - DragController, which turns straight drags into cascaded edits
//   - Grid configuration loading and validation
//
// Core Types:
//
// Editor is the session-scoped entry point. It owns a RoadGrid built from a
// GridConfig, the PieceRenderer pieces are spawned through and the Surface the
// grid is laid over. Rendering and raycasting are external collaborators;
// MemoryRenderer and PlaneSurface are headless implementations.
//
// Usage:
//
//	config, err := engine.LoadGridConfig("configs/default.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	editor, err := engine.NewEditor(config, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := editor.InitFromConfig(); err != nil {
//		log.Fatal(err)
//	}
//
//	// Draw a road up column 2
//	result, err := editor.Drag(engine.Position{X: 2, Y: 2}, engine.Position{X: 2, Y: 7})
//	events := editor.DrainEvents()
//
// Connection Rules:
//
// Adding a direction on a point extends a road along that axis until it meets
// a point already carrying a road on the axis, or the grid edge, where the
// road is capped back toward its start. Removing a direction clears the road
// until the first point that is not a through-road on the axis. Every edit is
// synchronous; the grid is not safe for concurrent use.
package engine
