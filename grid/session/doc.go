// Package session keeps the open road grid editing sessions.
//
// Each service.Session owns its own engine.Editor, built from a grid
// configuration and initialized when the session is opened. The Manager holds
// sessions in memory under their lower-cased ID and evicts idle ones with
// CleanupExpiredSessions; an evicted session is reloaded from persistence the
// next time it is requested.
//
// Generated IDs are 4 hex characters. Caller supplied IDs may use letters,
// digits, '-' and '_' only, since the ID doubles as a file name.
//
// Persistence:
//
// FilePersistence stores one JSON file per session holding the config ID, the
// config itself and an engine.GridSnapshot. Loading a session rebuilds the
// editor and restores the snapshot, recreating every bridge.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions", configMgr)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence)
//
//	sess, err := manager.Create("", "default", configMgr.GetDefault())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sessions := manager.List()
package session
