// Package websocket pushes live grid updates to browsers and other viewers.
//
// A viewer attaches to one session with GET /ws?session=<id>. On connect it
// receives the session's current grid, then one frame per effective edit:
//
//	{"session_id": "ab12", "event": "edit", "grid": {...}, "events": [...]}
//
// Events:
//   - grid_update: grid state alone (sent on connect and by BroadcastGrid)
//   - edit: the drained edit events plus the resulting grid state
//   - session_deleted: last frame before the hub disconnects the viewer
//
// Viewers only listen. A viewer whose buffer fills up is dropped so one slow
// connection never delays the others.
package websocket
