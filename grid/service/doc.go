// Package service is the edit surface every transport talks to.
//
// EditorService wraps one engine.Editor per session behind a single lock, so
// the single-threaded grid engine is never touched concurrently. Mutating
// calls drain the grid's change queue into EditEvents (each with a uuid),
// save the session and return the resulting GridState for broadcasting.
//
// Errors that mean "no such session or config" wrap ErrNotFound; the REST
// layer maps them to 404.
//
//	svc := service.NewEditorService(session.NewManager(), configMgr)
//	info, _ := svc.CreateSession(ctx, "default")
//	result, err := svc.Drag(ctx, info.ID, engine.Position{X: 2, Y: 2}, engine.Position{X: 2, Y: 7})
package service
