package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/wricardo/roadgrid/grid/engine"
	"github.com/wricardo/roadgrid/grid/service"
)

var (
	ErrSessionNotFound      = fmt.Errorf("session %w", service.ErrNotFound)
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
	ErrNoFreeSessionID      = errors.New("no free session ID")
)

const (
	// generatedIDBytes is the number of random bytes in a generated ID (two hex chars each)
	generatedIDBytes = 2

	// maxIDAttempts bounds the random draws before falling back to a scan
	maxIDAttempts = 64
)

// Manager keeps the open editing sessions, keyed by lower-cased ID, and
// mirrors them to an optional persistence backend.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*service.Session
	persistence SessionPersistence
}

// NewManager creates an in-memory session manager
func NewManager() *Manager {
	return NewManagerWithPersistence(nil)
}

// NewManagerWithPersistence creates a session manager that saves through persistence
func NewManagerWithPersistence(persistence SessionPersistence) *Manager {
	return &Manager{
		sessions:    make(map[string]*service.Session),
		persistence: persistence,
	}
}

func sessionKey(id string) string {
	return strings.ToLower(id)
}

// validSessionID accepts letters, digits, '-' and '_' so an ID is always a safe file name
func validSessionID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Create opens a session whose grid is built and initialized from config.
// An empty id gets a random 4 character hex ID.
func (m *Manager) Create(id, configID string, config *engine.GridConfig) (*service.Session, error) {
	if id != "" && !validSessionID(id) {
		return nil, ErrInvalidSessionID
	}

	// Building the grid spawns every piece, so do it before taking the lock
	editor, err := engine.NewEditor(config, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create editor: %w", err)
	}
	if err := editor.InitFromConfig(); err != nil {
		return nil, fmt.Errorf("failed to initialize grid: %w", err)
	}

	m.mu.Lock()
	if id == "" {
		if id, err = m.unusedIDLocked(); err != nil {
			m.mu.Unlock()
			return nil, err
		}
	} else if _, taken := m.sessions[sessionKey(id)]; taken {
		m.mu.Unlock()
		return nil, ErrSessionAlreadyExists
	}

	now := time.Now()
	sess := &service.Session{
		ID:             id,
		ConfigID:       configID,
		Editor:         editor,
		Config:         config,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.sessions[sessionKey(id)] = sess
	m.mu.Unlock()

	m.persist(sess)
	return sess, nil
}

// Get returns the session with id, falling back to persistence for sessions
// that expired from memory or were saved by a previous run.
func (m *Manager) Get(id string) (*service.Session, error) {
	key := sessionKey(id)

	m.mu.RLock()
	sess, ok := m.sessions[key]
	m.mu.RUnlock()
	if ok {
		return sess, nil
	}

	if m.persistence == nil || !m.persistence.Exists(id) {
		return nil, ErrSessionNotFound
	}

	loaded, err := m.persistence.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have restored it meanwhile
	if existing, ok := m.sessions[key]; ok {
		return existing, nil
	}
	m.sessions[key] = loaded
	return loaded, nil
}

// GetOrCreate returns the session with id, creating it from config when missing
func (m *Manager) GetOrCreate(id, configID string, config *engine.GridConfig) (*service.Session, error) {
	sess, err := m.Get(id)
	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, configID, config)
	}
	return sess, err
}

// List returns the in-memory sessions, oldest first
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	result := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	m.mu.RUnlock()

	sortSessions(result)
	return result
}

// Delete closes a session and removes its saved copy
func (m *Manager) Delete(id string) error {
	removed := m.DeleteFromMemory(id) == nil

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		removed = true
	}

	if !removed {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory drops a session from memory and leaves any saved copy alone
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(id)
	if _, ok := m.sessions[key]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, key)
	return nil
}

// UpdateLastAccessed marks a session as used now
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.RLock()
	sess, ok := m.sessions[sessionKey(id)]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.Touch(time.Now())
	return nil
}

// Save writes one session through persistence; a no-op without persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	sess, ok := m.sessions[sessionKey(id)]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	return m.persistence.Save(sess)
}

// CleanupExpiredSessions evicts sessions idle for longer than maxAge and
// returns how many were evicted. Saved copies stay on disk and are reloaded
// by Get on demand.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for key, sess := range m.sessions {
		if sess.LastAccessed().Before(cutoff) {
			delete(m.sessions, key)
			evicted++
		}
	}
	return evicted
}

// Count returns the number of sessions held in memory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// LoadPersistedSessions restores every saved session not already in memory.
// Sessions that fail to load are logged and skipped.
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	loaded := 0
	for _, id := range ids {
		m.mu.RLock()
		_, ok := m.sessions[sessionKey(id)]
		m.mu.RUnlock()
		if ok {
			continue
		}

		sess, err := m.persistence.Load(id)
		if err != nil {
			log.Printf("Warning: Failed to load persisted session %s: %v", id, err)
			continue
		}

		m.mu.Lock()
		if _, ok := m.sessions[sessionKey(id)]; !ok {
			m.sessions[sessionKey(id)] = sess
			loaded++
		}
		m.mu.Unlock()
	}

	if loaded > 0 {
		log.Printf("Loaded %d persisted sessions from storage", loaded)
	}
	return nil
}

// SaveAllSessions writes every in-memory session and reports each failure
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	var errs error
	for _, sess := range m.List() {
		if err := m.persistence.Save(sess); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("session %s: %w", sess.ID, err))
		}
	}
	return errs
}

// persist auto-saves a session, logging instead of failing the caller
func (m *Manager) persist(sess *service.Session) {
	if m.persistence == nil {
		return
	}
	if err := m.persistence.Save(sess); err != nil {
		log.Printf("Warning: Failed to persist session %s: %v", sess.ID, err)
	}
}

// unusedIDLocked draws random hex IDs until one is free, then scans the ID
// space in order once the draws keep colliding. Caller holds m.mu.
func (m *Manager) unusedIDLocked() (string, error) {
	buf := make([]byte, generatedIDBytes)
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate session ID: %w", err)
		}
		id := hex.EncodeToString(buf)
		if _, taken := m.sessions[id]; !taken {
			return id, nil
		}
	}

	for n := 0; n < 1<<(8*generatedIDBytes); n++ {
		id := fmt.Sprintf("%0*x", 2*generatedIDBytes, n)
		if _, taken := m.sessions[id]; !taken {
			return id, nil
		}
	}
	return "", ErrNoFreeSessionID
}

// sortSessions orders sessions oldest first, breaking ties by ID
func sortSessions(sessions []*service.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
}
