package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/wricardo/roadgrid/grid/engine"
)

// ErrNotFound marks lookups of sessions or configs that do not exist
var ErrNotFound = errors.New("not found")

// editorServiceImpl implements the EditorService interface
type editorServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// NewEditorService creates a new editor service instance
func NewEditorService(sessions SessionManager, configs ConfigManager) EditorService {
	return &editorServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// CreateSession creates a new editing session with an initialized grid
func (s *editorServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GridConfig
	configID := configName
	if configName != "" {
		var err error
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' %w. Available configs: %v", configName, ErrNotFound, configIDs)
				}
				return nil, fmt.Errorf("config '%s' %w. Use /api/configs to list available configurations", configName, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
		configID = s.configs.DefaultID()
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return s.sessionInfo(session), nil
}

// GetSession retrieves session information
func (s *editorServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(session), nil
}

// ListSessions returns all active sessions
func (s *editorServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *editorServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// InitGrid (re)initializes the session's grid, tearing down any existing one
func (s *editorServiceImpl) InitGrid(ctx context.Context, sessionID string, opts InitOptions) (*EditResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	spacing := sess.Config.Spacing
	if opts.Spacing != nil {
		spacing = *opts.Spacing
	}
	scale := sess.Config.Scale
	if opts.Scale != nil {
		scale = *opts.Scale
	}

	if err := sess.Editor.Init(spacing.Point(), scale.Vector()); err != nil {
		return nil, err
	}
	sess.Editor.DrainEvents()

	g := sess.Editor.Grid()
	event := newEvent(EventGridInitialized, fmt.Sprintf("Grid initialized with %dx%d points", g.Width(), g.Height()))
	result := &EditResult{
		Changed: true,
		Message: event.Message,
		Events:  []EditEvent{event},
		Grid:    gridState(sess),
	}

	s.persist(sessionID, "init")
	return result, nil
}

// DeleteGrid tears down the session's grid
func (s *editorServiceImpl) DeleteGrid(ctx context.Context, sessionID string) (*EditResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	if !sess.Editor.Initialized() {
		return &EditResult{Message: "Grid already deleted", Events: []EditEvent{}, Grid: gridState(sess)}, nil
	}

	sess.Editor.Delete()
	event := newEvent(EventGridDeleted, "Grid deleted")
	result := &EditResult{
		Changed: true,
		Message: event.Message,
		Events:  []EditEvent{event},
		Grid:    gridState(sess),
	}

	s.persist(sessionID, "delete")
	return result, nil
}

// GetGrid retrieves the current grid state
func (s *editorServiceImpl) GetGrid(ctx context.Context, sessionID string) (*GridState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return gridState(sess), nil
}

// SelectPoint selects the start point of a drag
func (s *editorServiceImpl) SelectPoint(ctx context.Context, sessionID string, pos engine.Position) (*PointInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	if _, err := sess.Editor.Point(pos); err != nil {
		return nil, err
	}
	p, _ := sess.Editor.SelectPoint(pos)
	return pointInfo(sess.Editor, p), nil
}

// PreviewDrag computes the outcome of a drag without applying it
func (s *editorServiceImpl) PreviewDrag(ctx context.Context, sessionID string, from, to engine.Position) (*engine.DragPreview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	preview, err := sess.Editor.PreviewDrag(from, to)
	if err != nil {
		return nil, err
	}
	return &preview, nil
}

// Drag applies a straight drag from one point toward another
func (s *editorServiceImpl) Drag(ctx context.Context, sessionID string, from, to engine.Position) (*EditResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	drag, err := sess.Editor.Drag(from, to)
	if err != nil {
		return nil, err
	}

	result := &EditResult{
		Changed: drag.Applied,
		Drag:    &drag,
		Events:  eventsFromGrid(sess.Editor.DrainEvents()),
		Grid:    gridState(sess),
	}
	switch {
	case !drag.Applied:
		result.Message = fmt.Sprintf("Nothing to drag from (%d,%d) to (%d,%d)", from.X, from.Y, to.X, to.Y)
	case drag.Adding:
		result.Message = fmt.Sprintf("Road added %s from (%d,%d) to (%d,%d)", drag.Direction, drag.Start.X, drag.Start.Y, drag.End.X, drag.End.Y)
	default:
		result.Message = fmt.Sprintf("Road removed %s from (%d,%d) to (%d,%d)", drag.Direction, drag.Start.X, drag.Start.Y, drag.End.X, drag.End.Y)
	}

	if drag.Applied {
		s.persist(sessionID, "drag")
	}
	return result, nil
}

// SetConnections replaces a point's connection set and propagates the change
func (s *editorServiceImpl) SetConnections(ctx context.Context, sessionID string, pos engine.Position, set engine.ConnectionSet) (*EditResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	edit, err := sess.Editor.SetConnections(pos, set)
	if err != nil {
		return nil, err
	}

	result := &EditResult{
		Changed: edit.Changed,
		Edit:    &edit,
		Events:  eventsFromGrid(sess.Editor.DrainEvents()),
		Grid:    gridState(sess),
	}
	if edit.Changed {
		result.Message = fmt.Sprintf("Point (%d,%d) changed from %s to %s", pos.X, pos.Y, edit.Previous, edit.Current)
		s.persist(sessionID, "set connections")
	} else {
		result.Message = fmt.Sprintf("Point (%d,%d) already has %s", pos.X, pos.Y, edit.Current)
	}
	return result, nil
}

// RenderGrid returns the snapshot and live pieces of a session's grid
func (s *editorServiceImpl) RenderGrid(ctx context.Context, sessionID string) (*RenderData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	data := &RenderData{
		Snapshot: sess.Editor.Snapshot(),
		Surface:  sess.Config.Surface,
	}
	if memory, ok := sess.Editor.Renderer().(*engine.MemoryRenderer); ok {
		data.Pieces = memory.Pieces()
	}
	return data, nil
}

// ListConfigs returns all available grid configurations
func (s *editorServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific grid configuration
func (s *editorServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GridConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a grid configuration to disk
func (s *editorServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GridConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// getSession looks a session up and refreshes its access time
func (s *editorServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// persist auto-saves a session after a mutation
func (s *editorServiceImpl) persist(sessionID, op string) {
	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("Warning: Failed to persist session %s after %s: %v", sessionID, op, err)
	}
}

func (s *editorServiceImpl) sessionInfo(session *Session) *SessionInfo {
	return &SessionInfo{
		ID:             session.ID,
		ConfigName:     session.ConfigID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessed(),
		Grid:           gridState(session),
		GridConfig:     session.Config,
	}
}

// gridState builds the externally visible grid state of a session
func gridState(session *Session) *GridState {
	snap := session.Editor.Snapshot()
	state := &GridState{
		SessionID: session.ID,
		Snapshot:  snap,
		Rendered:  snap.Render(),
	}
	if p, ok := session.Editor.Selected(); ok {
		pos := p.Position()
		state.Selected = &pos
	}
	return state
}

func pointInfo(editor *engine.Editor, p *engine.GridPoint) *PointInfo {
	info := &PointInfo{
		Position:    p.Position(),
		Connections: p.Connections(),
		Bridges:     p.Bridges(),
	}
	if memory, ok := editor.Renderer().(*engine.MemoryRenderer); ok {
		if piece, ok := memory.Piece(p.Piece()); ok {
			info.Piece = piece.Descriptor.Name
		}
	}
	return info
}

// eventsFromGrid converts drained grid notifications into edit events
func eventsFromGrid(events engine.GridEvents) []EditEvent {
	result := make([]EditEvent, 0, len(events.Changes)+len(events.Bridges))
	for _, change := range events.Changes {
		event := newEvent(EventConnectionChanged, fmt.Sprintf("(%d,%d) %s -> %s", change.Position.X, change.Position.Y, change.Previous, change.Current))
		event.Position = &change.Position
		event.Previous = &change.Previous
		event.Current = &change.Current
		result = append(result, event)
	}
	for _, bridge := range events.Bridges {
		eventType := EventBridgeCreated
		verb := "created"
		if bridge.Type == engine.BridgeDestroyed {
			eventType = EventBridgeDestroyed
			verb = "destroyed"
		}
		event := newEvent(eventType, fmt.Sprintf("Bridge %d %s between (%d,%d) and (%d,%d)", bridge.BridgeID, verb, bridge.Start.X, bridge.Start.Y, bridge.End.X, bridge.End.Y))
		event.BridgeID = bridge.BridgeID
		event.Start = &bridge.Start
		event.End = &bridge.End
		result = append(result, event)
	}
	return result
}
