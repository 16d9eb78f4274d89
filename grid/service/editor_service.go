package service

import (
	"context"
	"sync"
	"time"

	"github.com/wricardo/roadgrid/grid/engine"
)

// EditorService defines all grid editing operations
type EditorService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Grid Lifecycle
	InitGrid(ctx context.Context, sessionID string, opts InitOptions) (*EditResult, error)
	DeleteGrid(ctx context.Context, sessionID string) (*EditResult, error)
	GetGrid(ctx context.Context, sessionID string) (*GridState, error)

	// Editing
	SelectPoint(ctx context.Context, sessionID string, pos engine.Position) (*PointInfo, error)
	PreviewDrag(ctx context.Context, sessionID string, from, to engine.Position) (*engine.DragPreview, error)
	Drag(ctx context.Context, sessionID string, from, to engine.Position) (*EditResult, error)
	SetConnections(ctx context.Context, sessionID string, pos engine.Position, set engine.ConnectionSet) (*EditResult, error)

	// Rendering
	RenderGrid(ctx context.Context, sessionID string) (*RenderData, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GridConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GridConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.GridConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, configID string, config *engine.GridConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles grid configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GridConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GridConfig
	DefaultID() string
	SaveConfig(name string, config *engine.GridConfig) error
}

// Session represents an open editing session. LastAccessedAt may be set when
// building a session; once it is shared use Touch and LastAccessed.
type Session struct {
	ID             string
	ConfigID       string
	Editor         *engine.Editor
	Config         *engine.GridConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time

	accessMu sync.Mutex
}

// Touch records an access at t
func (s *Session) Touch(t time.Time) {
	s.accessMu.Lock()
	s.LastAccessedAt = t
	s.accessMu.Unlock()
}

// LastAccessed returns the time of the most recent access
func (s *Session) LastAccessed() time.Time {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	return s.LastAccessedAt
}
