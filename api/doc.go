// Package api provides HTTP REST API handlers for the road grid editor.
//
// The api package implements:
//   - Session management endpoints
//   - Grid lifecycle and editing endpoints
//   - Configuration listing and upload
//   - PNG previews of a session's grid
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session ({"config_id": "compact"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Delete session
//
// Grid:
//   - GET /api/sessions/{id}/grid - Current grid state
//   - POST /api/sessions/{id}/grid - (Re)initialize, optional spacing/scale overrides
//   - DELETE /api/sessions/{id}/grid - Tear the grid down
//   - GET /api/sessions/{id}/preview.png - Top-down preview (?scale=pixels per unit)
//
// Editing:
//   - POST /api/sessions/{id}/select - Select a drag start point ({"x":2,"y":2})
//   - POST /api/sessions/{id}/drag/preview - Project a drag without applying it
//   - POST /api/sessions/{id}/drag - Apply a drag ({"from":{...},"to":{...}})
//   - PUT /api/sessions/{id}/points/{x}/{y} - Replace a point's connections ({"connections":"NS"})
//
// Configuration:
//   - GET /api/configs - List available configurations
//   - GET /api/configs/{name} - Get one configuration
//   - POST /api/configs - Save a configuration (?id= overrides the derived file name)
//
// Connection sets travel as letter strings: "N", "WE", "NSWE", "NONE".
//
// Errors are returned as {"error": "..."} with 404 for unknown sessions or
// configurations and 400 for invalid input, out of range points and edits on
// a deleted grid.
//
// WebSocket:
//   - /ws?session={id} - Receive grid_update and edit messages for a session
package api
