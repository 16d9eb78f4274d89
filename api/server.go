package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wricardo/roadgrid/grid/config"
	"github.com/wricardo/roadgrid/grid/engine"
	"github.com/wricardo/roadgrid/grid/service"
	"github.com/wricardo/roadgrid/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.EditorService
	hub     *websocket.Hub
	router  *mux.Router
	scheme  *PreviewScheme
}

// NewServer creates a new API server
func NewServer(editorService service.EditorService, hub *websocket.Hub) *Server {
	s := &Server{
		service: editorService,
		hub:     hub,
		router:  mux.NewRouter(),
		scheme:  DefaultPreviewScheme(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Grid lifecycle
	api.HandleFunc("/sessions/{id}/grid", s.handleGetGrid).Methods("GET")
	api.HandleFunc("/sessions/{id}/grid", s.handleInitGrid).Methods("POST")
	api.HandleFunc("/sessions/{id}/grid", s.handleDeleteGrid).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/preview.png", s.handlePreview).Methods("GET")

	// Editing
	api.HandleFunc("/sessions/{id}/select", s.handleSelect).Methods("POST")
	api.HandleFunc("/sessions/{id}/drag/preview", s.handlePreviewDrag).Methods("POST")
	api.HandleFunc("/sessions/{id}/drag", s.handleDrag).Methods("POST")
	api.HandleFunc("/sessions/{id}/points/{x:-?[0-9]+}/{y:-?[0-9]+}", s.handleSetConnections).Methods("PUT")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service and engine errors onto HTTP statuses
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrGridNotInitialized),
		errors.Is(err, engine.ErrOutOfBounds),
		errors.Is(err, engine.ErrInvalidConfig),
		errors.Is(err, config.ErrInvalidConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// dragRequest is the body of the drag and drag preview endpoints
type dragRequest struct {
	From *engine.Position `json:"from"`
	To   *engine.Position `json:"to"`
}

func decodeDrag(r *http.Request) (engine.Position, engine.Position, error) {
	var req dragRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return engine.Position{}, engine.Position{}, fmt.Errorf("invalid request body: %v", err)
	}
	if req.From == nil || req.To == nil {
		return engine.Position{}, engine.Position{}, errors.New("both 'from' and 'to' are required")
	}
	return *req.From, *req.To, nil
}

// broadcast pushes an edit to websocket clients watching the session
func (s *Server) broadcast(sessionID string, result *service.EditResult) {
	if s.hub != nil {
		s.hub.BroadcastEvents(sessionID, result)
	}
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // Deprecated, use config_id
	}

	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	configID := req.ConfigID
	if configID == "" && req.ConfigName != "" {
		configID = req.ConfigName
	}

	session, err := s.service.CreateSession(r.Context(), configID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}
	if s.hub != nil {
		s.hub.CloseSession(sessionID)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Grid Handlers

func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	grid, err := s.service.GetGrid(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, grid)
}

func (s *Server) handleInitGrid(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var opts service.InitOptions
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	result, err := s.service.InitGrid(r.Context(), sessionID, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, result)
	fmt.Printf("[INIT] session=%s size=%dx%d\n", sessionID, result.Grid.Snapshot.Width, result.Grid.Snapshot.Height)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteGrid(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.DeleteGrid(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, result)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.RenderGrid(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	ppu := 0.0
	if scaleStr := r.URL.Query().Get("scale"); scaleStr != "" {
		v, err := strconv.ParseFloat(scaleStr, 64)
		if err != nil || v <= 0 {
			respondError(w, http.StatusBadRequest, "scale must be a positive number")
			return
		}
		ppu = v
	}

	var buf bytes.Buffer
	if err := renderPreview(&buf, data, ppu, s.scheme); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Edit Handlers

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var pos engine.Position
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	info, err := s.service.SelectPoint(r.Context(), mux.Vars(r)["id"], pos)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handlePreviewDrag(w http.ResponseWriter, r *http.Request) {
	from, to, err := decodeDrag(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	preview, err := s.service.PreviewDrag(r.Context(), mux.Vars(r)["id"], from, to)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, preview)
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	from, to, err := decodeDrag(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.Drag(r.Context(), sessionID, from, to)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, result)

	// Compact server log for observability
	if d := result.Drag; d != nil && d.Applied {
		op := "ADD"
		if !d.Adding {
			op = "REMOVE"
		}
		fmt.Printf("[DRAG] session=%s %s %s (%d,%d)->(%d,%d) events=%d\n",
			sessionID, op, d.Direction, d.Start.X, d.Start.Y, d.End.X, d.End.Y, len(result.Events))
	} else {
		fmt.Printf("[DRAG] session=%s NOOP (%d,%d)->(%d,%d)\n", sessionID, from.X, from.Y, to.X, to.Y)
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSetConnections(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	// The route pattern only admits integers
	x, _ := strconv.Atoi(vars["x"])
	y, _ := strconv.Atoi(vars["y"])

	var req struct {
		Connections *engine.ConnectionSet `json:"connections"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.Connections == nil {
		respondError(w, http.StatusBadRequest, "'connections' is required")
		return
	}

	pos := engine.Position{X: x, Y: y}
	result, err := s.service.SetConnections(r.Context(), sessionID, pos, *req.Connections)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, result)
	if e := result.Edit; e != nil && e.Changed {
		fmt.Printf("[SET] session=%s (%d,%d) %s->%s events=%d\n",
			sessionID, x, y, e.Previous, e.Current, len(result.Events))
	}

	respondJSON(w, http.StatusOK, result)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	gridConfig, err := s.service.LoadConfig(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, gridConfig)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var gridConfig engine.GridConfig
	if err := json.NewDecoder(r.Body).Decode(&gridConfig); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// The file name defaults to the display name
	configID := r.URL.Query().Get("id")
	if configID == "" {
		configID = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(gridConfig.Name), " ", "_"))
	}
	if configID == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	if err := s.service.SaveConfig(r.Context(), configID, &gridConfig); err != nil {
		respondError(w, statusFor(err), fmt.Sprintf("Failed to save config: %v", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}
	if s.hub == nil {
		http.Error(w, "WebSocket not available", http.StatusServiceUnavailable)
		return
	}

	s.hub.ServeWS(w, r, sessionID, info.Grid)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
