// Package mcp exposes the road grid editor to AI agents over the Model
// Context Protocol.
//
// The Client is a thin proxy: every tool call is translated into a request
// against the REST API and the JSON response is rendered as text. It can be
// served over stdio or mounted as an HTTP endpoint.
//
// MCP Tools:
//   - create_session, list_sessions, get_session: session management
//   - grid_state: grid drawn as text plus road, bridge and piece counts
//   - init_grid, delete_grid: grid lifecycle with optional spacing/scale overrides
//   - select_point: choose a drag start point
//   - preview_drag: projected end point and mode of a drag
//   - drag: apply a straight drag, adding or removing road
//   - set_connections: replace one point's connections ("NS", "NONE", ...)
//   - describe_point: connections and bridge status at one point
//   - list_configs: available grid configurations
//   - editor_instructions: editing rules for agents
//
// Numeric arguments are accepted as numbers or numeric strings.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
