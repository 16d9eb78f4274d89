package session

import (
	"time"

	"github.com/wricardo/roadgrid/grid/engine"
	"github.com/wricardo/roadgrid/grid/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions.
// Config is stored alongside the snapshot so a session survives edits to, or
// removal of, the config file it was created from.
type PersistedSessionData struct {
	ID             string               `json:"id"`
	ConfigID       string               `json:"config_id"`
	Config         *engine.GridConfig   `json:"config,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
	Grid           *engine.GridSnapshot `json:"grid"`
}
