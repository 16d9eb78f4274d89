package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/roadgrid/api"
	"github.com/wricardo/roadgrid/grid/engine"
	"github.com/wricardo/roadgrid/transport/mcp"
	"github.com/wricardo/roadgrid/transport/websocket"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Road Grid Editor Server" {
		t.Errorf("Unexpected app name %s", AppName)
	}
}

// parseSettings runs the app with every action replaced by a capture
func parseSettings(t *testing.T, args ...string) (settings, string) {
	t.Helper()

	var got settings
	var mode string
	app := newApp()
	app.Action = func(ctx context.Context, cmd *cli.Command) error {
		got, mode = settingsFrom(cmd), "serve"
		return nil
	}
	for _, sub := range app.Commands {
		name := sub.Name
		sub.Action = func(ctx context.Context, cmd *cli.Command) error {
			got, mode = settingsFrom(cmd), name
			return nil
		}
	}

	if err := app.Run(context.Background(), append([]string{"roadgrid"}, args...)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return got, mode
}

func TestSettings(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s, mode := parseSettings(t)
		if mode != "serve" {
			t.Errorf("Expected serve to be the default mode, got %s", mode)
		}
		if s.port != 8080 || s.host != "localhost" || s.configDir != "configs" || s.sessionsDir != "sessions" {
			t.Errorf("Unexpected defaults %+v", s)
		}
		if s.sessionTTL != 24*time.Hour || s.ngrok.enabled {
			t.Errorf("Unexpected defaults %+v", s)
		}
	})

	t.Run("flags", func(t *testing.T) {
		s, mode := parseSettings(t, "--port", "9090", "--session-ttl", "2h", "stdio-mcp")
		if mode != "stdio-mcp" {
			t.Errorf("Expected stdio-mcp mode, got %s", mode)
		}
		if s.port != 9090 || s.sessionTTL != 2*time.Hour {
			t.Errorf("Unexpected settings %+v", s)
		}
		if s.addr() != "localhost:9090" {
			t.Errorf("Unexpected addr %s", s.addr())
		}
	})

	t.Run("alias", func(t *testing.T) {
		if _, mode := parseSettings(t, "mcp"); mode != "stdio-mcp" {
			t.Errorf("Expected alias mcp to select stdio-mcp, got %s", mode)
		}
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("PORT", "7070")
		t.Setenv("CONFIG_DIR", "/tmp/grids")
		t.Setenv("NGROK_ENABLED", "true")
		t.Setenv("NGROK_AUTH_TOKEN", "tok")

		s, _ := parseSettings(t)
		if s.port != 7070 || s.configDir != "/tmp/grids" {
			t.Errorf("Environment not applied: %+v", s)
		}
		if !s.ngrok.enabled || s.ngrok.authToken != "tok" {
			t.Errorf("Ngrok settings not applied: %+v", s.ngrok)
		}
	})
}

func testSettings(t *testing.T) settings {
	t.Helper()
	return settings{
		host:        "127.0.0.1",
		configDir:   t.TempDir(),
		sessionsDir: filepath.Join(t.TempDir(), "sessions"),
		sessionTTL:  time.Hour,
	}
}

func TestInitializeServices(t *testing.T) {
	svc, err := initializeServices(testSettings(t))
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	if svc.editor == nil || svc.sessions == nil || svc.persistence == nil {
		t.Fatal("Expected all services to be initialized")
	}

	info, err := svc.editor.CreateSession(context.Background(), "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if !svc.persistence.Exists(info.ID) {
		t.Error("New session should be persisted")
	}
}

func TestInitializeServices_InvalidConfigDir(t *testing.T) {
	s := testSettings(t)
	s.configDir = "/non/existent/path"

	if _, err := initializeServices(s); err == nil {
		t.Error("Expected error for non-existent config directory")
	}
}

func TestInitializeServices_LoadsPersistedSessions(t *testing.T) {
	s := testSettings(t)

	first, err := initializeServices(s)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	info, _ := first.editor.CreateSession(context.Background(), "")
	if _, err := first.editor.Drag(context.Background(), info.ID, engine.Position{X: 2, Y: 2}, engine.Position{X: 2, Y: 7}); err != nil {
		t.Fatalf("Drag failed: %v", err)
	}

	second, err := initializeServices(s)
	if err != nil {
		t.Fatalf("Failed to reinitialize services: %v", err)
	}
	if second.sessions.Count() != 1 {
		t.Fatalf("Expected 1 restored session, got %d", second.sessions.Count())
	}
	grid, err := second.editor.GetGrid(context.Background(), info.ID)
	if err != nil {
		t.Fatalf("GetGrid failed: %v", err)
	}
	if len(grid.Snapshot.Bridges) != 5 {
		t.Errorf("Expected 5 restored bridges, got %d", len(grid.Snapshot.Bridges))
	}
}

func TestPruneOrphanedSessions(t *testing.T) {
	svc, err := initializeServices(testSettings(t))
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	keep, _ := svc.editor.CreateSession(context.Background(), "")
	drop, _ := svc.editor.CreateSession(context.Background(), "")
	if err := svc.persistence.Delete(drop.ID); err != nil {
		t.Fatalf("Failed to delete session file: %v", err)
	}

	if pruned := pruneOrphanedSessions(svc.sessions, svc.persistence); pruned != 1 {
		t.Errorf("Expected 1 pruned session, got %d", pruned)
	}
	if svc.sessions.Count() != 1 {
		t.Errorf("Expected 1 session left, got %d", svc.sessions.Count())
	}
	if _, err := svc.sessions.Get(keep.ID); err != nil {
		t.Errorf("Session %s should remain: %v", keep.ID, err)
	}
	if pruneOrphanedSessions(svc.sessions, nil) != 0 {
		t.Error("Nothing should be pruned without persistence")
	}
}

func TestNewRouter(t *testing.T) {
	svc, err := initializeServices(testSettings(t))
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	handler := newRouter(api.NewServer(svc.editor, hub), mcp.NewClient("http://127.0.0.1:0"))
	server := httptest.NewServer(handler)
	defer server.Close()

	t.Run("api mounted at root", func(t *testing.T) {
		if !apiAvailable(server.URL) {
			t.Error("Expected health endpoint to answer")
		}
	})

	t.Run("mcp rejects GET", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/mcp")
		if err != nil {
			t.Fatalf("GET /mcp failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("Expected 405, got %d", resp.StatusCode)
		}
	})

	t.Run("mcp lists tools", func(t *testing.T) {
		request := []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`)
		resp, err := http.Post(server.URL+"/mcp", "application/json", bytes.NewReader(request))
		if err != nil {
			t.Fatalf("POST /mcp failed: %v", err)
		}
		defer resp.Body.Close()

		var body struct {
			Result struct {
				Tools []struct {
					Name string `json:"name"`
				} `json:"tools"`
			} `json:"result"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		names := make(map[string]bool)
		for _, tool := range body.Result.Tools {
			names[tool.Name] = true
		}
		for _, want := range []string{"create_session", "drag", "set_connections", "preview_drag", "grid_state"} {
			if !names[want] {
				t.Errorf("Expected tool %s to be registered", want)
			}
		}
	})
}

func TestApiAvailable(t *testing.T) {
	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer unhealthy.Close()

	if apiAvailable(unhealthy.URL) {
		t.Error("Unhealthy server should not be reported as available")
	}
	if apiAvailable("http://127.0.0.1:1") {
		t.Error("Closed port should not be reported as available")
	}
}

func TestMaintainSessionsStopsOnCancel(t *testing.T) {
	svc, err := initializeServices(testSettings(t))
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		maintainSessions(ctx, svc.sessions, svc.persistence, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("maintainSessions did not return after cancel")
	}
}
