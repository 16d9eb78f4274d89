package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"

	"github.com/wricardo/roadgrid/grid/engine"
	"github.com/wricardo/roadgrid/grid/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Road Grid Editor",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Road Grid Editor - MCP Interface

This is a thin client that proxies all requests to the REST API server.

A session holds a rectangular grid of points. Each point may connect North,
South, West and East. Two neighbouring points that face each other are joined
by a bridge. Dragging from a point in a straight line draws a road; dragging
along an existing road removes it.

AVAILABLE TOOLS:
- create_session: Create a new editing session
- list_sessions / get_session: Inspect sessions
- grid_state: Current grid as text
- init_grid / delete_grid: Rebuild or tear down the grid
- select_point: Select a drag start point
- preview_drag: See what a drag would do without applying it
- drag: Draw or erase a straight road
- set_connections: Replace one point's connections (e.g. "NS", "NONE")
- describe_point: Connections and bridges at one point
- list_configs: Available grid configurations
- editor_instructions: Full description of the editing rules

NOTE: The 'intent' parameter on drag serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Session ID",
	}
}

func coordinateProperty(description string) map[string]any {
	return map[string]any{
		"type":        "integer",
		"description": description,
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new editing session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"config_id": map[string]any{
					"type":        "string",
					"description": "ID of the config to use (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all editing sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Grid lifecycle
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "grid_state",
		Description: "Get the current grid drawn as text ('+' road point, '-' and '|' bridges, '.' empty)",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGridState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "init_grid",
		Description: "Rebuild the grid, discarding all roads. Spacing and scale default to the session config.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"spacing_x":  map[string]any{"type": "number", "description": "World distance between columns"},
				"spacing_y":  map[string]any{"type": "number", "description": "World distance between rows"},
				"scale":      map[string]any{"type": "number", "description": "Uniform piece scale"},
			},
			Required: []string{"session_id"},
		},
	}, c.handleInitGrid)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_grid",
		Description: "Tear down the grid. Edits fail until init_grid is called again.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleDeleteGrid)

	// Editing
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "select_point",
		Description: "Select the point a drag starts from",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"x":          coordinateProperty("Column (0-based, west to east)"),
				"y":          coordinateProperty("Row (0-based, south to north)"),
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleSelectPoint)

	dragProperties := map[string]any{
		"session_id": sessionProperty(),
		"from_x":     coordinateProperty("Start column"),
		"from_y":     coordinateProperty("Start row"),
		"to_x":       coordinateProperty("Target column"),
		"to_y":       coordinateProperty("Target row"),
	}

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "preview_drag",
		Description: "Show where a drag would end and whether it adds or removes road, without changing the grid",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: dragProperties,
			Required:   []string{"session_id", "from_x", "from_y", "to_x", "to_y"},
		},
	}, c.handlePreviewDrag)

	dragWithIntent := map[string]any{
		"intent": map[string]any{
			"type":        "string",
			"description": "Brief explanation of what this drag should achieve (serves as a rubber duck to help explain your reasoning)",
		},
	}
	for k, v := range dragProperties {
		dragWithIntent[k] = v
	}

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "drag",
		Description: "Drag from one point toward another. The target snaps to the dominant axis. Dragging along an existing road removes it.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: dragWithIntent,
			Required:   []string{"session_id", "from_x", "from_y", "to_x", "to_y"},
		},
	}, c.handleDrag)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_connections",
		Description: "Replace the connections of a single point. Added directions extend until they meet a road; removed ones are cleared along the road.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"x":          coordinateProperty("Column"),
				"y":          coordinateProperty("Row"),
				"connections": map[string]any{
					"type":        "string",
					"description": "Direction letters, e.g. \"N\", \"WE\", \"NSWE\" or \"NONE\"",
				},
			},
			Required: []string{"session_id", "x", "y", "connections"},
		},
	}, c.handleSetConnections)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_point",
		Description: "Get the connections and bridges at a specific grid point",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"x":          coordinateProperty("Column"),
				"y":          coordinateProperty("Row"),
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribePoint)

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available grid configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "editor_instructions",
		Description: "Get a description of how the grid and its editing operations behave",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleEditorInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// position reads an x/y pair from tool arguments. Agents send numbers as
// floats, integers or strings, so values go through cast.
func position(args map[string]any, xKey, yKey string) (engine.Position, error) {
	x, err := cast.ToIntE(args[xKey])
	if err != nil || args[xKey] == nil {
		return engine.Position{}, fmt.Errorf("'%s' must be an integer", xKey)
	}
	y, err := cast.ToIntE(args[yKey])
	if err != nil || args[yKey] == nil {
		return engine.Position{}, fmt.Errorf("'%s' must be an integer", yKey)
	}
	return engine.Position{X: x, Y: y}, nil
}

func sessionPath(sessionID, suffix string) string {
	return fmt.Sprintf("/api/sessions/%s%s", sessionID, suffix)
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	configID := cast.ToString(args["config_id"])

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n", session.ID, session.ConfigName)
	if session.Grid != nil && session.Grid.Snapshot != nil {
		result += fmt.Sprintf("Grid: %dx%d points\n", session.Grid.Snapshot.Width, session.Grid.Snapshot.Height)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		result += fmt.Sprintf("- %s (Config: %s, Created: %s)\n",
			s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := cast.ToString(request.GetArguments()["session_id"])

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGridState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := cast.ToString(request.GetArguments()["session_id"])

	var state service.GridState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/grid"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGridState(&state)), nil
}

func (c *Client) handleInitGrid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID := cast.ToString(args["session_id"])

	var opts service.InitOptions
	if args["spacing_x"] != nil || args["spacing_y"] != nil {
		x, errX := cast.ToFloat64E(args["spacing_x"])
		y, errY := cast.ToFloat64E(args["spacing_y"])
		if errX != nil || errY != nil || args["spacing_x"] == nil || args["spacing_y"] == nil {
			return mcp.NewToolResultError("spacing_x and spacing_y must both be numbers"), nil
		}
		opts.Spacing = &engine.Vec2{X: x, Y: y}
	}
	if args["scale"] != nil {
		s, err := cast.ToFloat64E(args["scale"])
		if err != nil {
			return mcp.NewToolResultError("scale must be a number"), nil
		}
		opts.Scale = &engine.Vec3{X: s, Y: s, Z: s}
	}

	var result service.EditResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/grid"), opts, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatEditResult(&result)), nil
}

func (c *Client) handleDeleteGrid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := cast.ToString(request.GetArguments()["session_id"])

	var result service.EditResult
	if err := c.apiCall(ctx, "DELETE", sessionPath(sessionID, "/grid"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(result.Message + "\n"), nil
}

func (c *Client) handleSelectPoint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID := cast.ToString(args["session_id"])
	pos, err := position(args, "x", "y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.PointInfo
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/select"), pos, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Selected " + formatPointInfo(&info)), nil
}

func dragBody(args map[string]any) (map[string]engine.Position, error) {
	from, err := position(args, "from_x", "from_y")
	if err != nil {
		return nil, err
	}
	to, err := position(args, "to_x", "to_y")
	if err != nil {
		return nil, err
	}
	return map[string]engine.Position{"from": from, "to": to}, nil
}

func (c *Client) handlePreviewDrag(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID := cast.ToString(args["session_id"])
	body, err := dragBody(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var preview engine.DragPreview
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/drag/preview"), body, &preview); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatDragPreview(&preview)), nil
}

func (c *Client) handleDrag(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID := cast.ToString(args["session_id"])
	body, err := dragBody(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = args["intent"]

	var result service.EditResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/drag"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatEditResult(&result)), nil
}

func (c *Client) handleSetConnections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID := cast.ToString(args["session_id"])
	pos, err := position(args, "x", "y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	set, err := engine.ParseConnectionSet(cast.ToString(args["connections"]))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.EditResult
	path := sessionPath(sessionID, fmt.Sprintf("/points/%d/%d", pos.X, pos.Y))
	if err := c.apiCall(ctx, "PUT", path, map[string]engine.ConnectionSet{"connections": set}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatEditResult(&result)), nil
}

func (c *Client) handleDescribePoint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID := cast.ToString(args["session_id"])
	pos, err := position(args, "x", "y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Read the grid rather than selecting, so the current selection is untouched
	var state service.GridState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/grid"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	snap := state.Snapshot
	if snap == nil || !snap.Initialized {
		return mcp.NewToolResultError("Grid is not initialized. Call init_grid first."), nil
	}
	if pos.X < 0 || pos.X >= snap.Width || pos.Y < 0 || pos.Y >= snap.Height {
		return mcp.NewToolResultError(fmt.Sprintf("Coordinates (%d, %d) are out of bounds. Grid size is %dx%d (x 0-%d, y 0-%d)",
			pos.X, pos.Y, snap.Width, snap.Height, snap.Width-1, snap.Height-1)), nil
	}

	return mcp.NewToolResultText(describePoint(snap, pos)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Configurations:\n\n"
	for _, cfg := range configs {
		result += fmt.Sprintf("- %s: %s (%dx%d points, spacing %gx%g)\n",
			cfg.ConfigID, cfg.Name, cfg.Width, cfg.Height, cfg.Spacing.X, cfg.Spacing.Y)
		if cfg.Description != "" {
			result += fmt.Sprintf("  %s\n", cfg.Description)
		}
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleEditorInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `ROAD GRID EDITOR

COORDINATES
- x grows from west (0) to east, y grows from south (0) to north.
- grid_state prints the northernmost row first.

POINTS AND BRIDGES
- Every point has a set of connections drawn from N, S, W and E.
- A point with at least one connection carries a road piece chosen by its set.
- Two adjacent points that face each other ("E" on the left, "W" on the right)
  are joined by a bridge made of filler segments.

DRAGGING
- A drag starts at "from" and heads toward "to". The target snaps to whichever
  axis moved further, so drags are always straight.
- If "from" already connects toward the target, the drag REMOVES road along
  that line. Otherwise it ADDS road.
- Adding stops early when it reaches a point that already has a road across
  the drag direction. Removing stops at junctions.
- Use preview_drag to see the end point and mode before committing.

SET CONNECTIONS
- set_connections replaces one point's set. Newly added directions extend
  outward until they meet road. Removed directions are erased along the road.
- Use "NONE" to clear a point.

TIPS
- A drag with from == to does nothing.
- Edits fail with a 400 error while the grid is deleted. Call init_grid.
`
	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	result := fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\nLast accessed: %s\n",
		session.ID, session.ConfigName,
		session.CreatedAt.Format(time.RFC3339), session.LastAccessedAt.Format(time.RFC3339))
	if session.Grid != nil {
		result += "\n" + formatGridState(session.Grid)
	}
	return result
}

func formatGridState(state *service.GridState) string {
	snap := state.Snapshot
	if snap == nil || !snap.Initialized {
		return "Grid: not initialized\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Grid: %dx%d points (spacing %gx%g)\n", snap.Width, snap.Height, snap.Spacing.X, snap.Spacing.Y)
	fmt.Fprintf(&b, "Road points: %d  Bridges: %d  Pieces: %d\n", snap.RoadPoints, len(snap.Bridges), snap.Pieces)
	if state.Selected != nil {
		fmt.Fprintf(&b, "Selected: (%d,%d)\n", state.Selected.X, state.Selected.Y)
	}
	b.WriteString("\n")

	rendered := state.Rendered
	if rendered == "" {
		rendered = snap.Render()
	}
	b.WriteString(rendered)
	return b.String()
}

func formatEditResult(result *service.EditResult) string {
	var b strings.Builder
	if result.Changed {
		b.WriteString("✓ ")
	} else {
		b.WriteString("• ")
	}
	b.WriteString(result.Message)
	b.WriteString("\n")

	if len(result.Events) > 0 {
		b.WriteString("\nEvents:\n")
		for _, e := range result.Events {
			fmt.Fprintf(&b, "  - %s\n", e.Message)
		}
	}

	if result.Grid != nil {
		b.WriteString("\n")
		b.WriteString(formatGridState(result.Grid))
	}
	return b.String()
}

func formatDragPreview(preview *engine.DragPreview) string {
	if !preview.Valid {
		return fmt.Sprintf("Drag from (%d,%d) to (%d,%d) would do nothing\n",
			preview.Start.X, preview.Start.Y, preview.Target.X, preview.Target.Y)
	}

	op := "add"
	if !preview.Adding {
		op = "remove"
	}
	return fmt.Sprintf("Drag would %s road %s from (%d,%d) to (%d,%d), touching %d points\n",
		op, preview.Direction, preview.Start.X, preview.Start.Y, preview.End.X, preview.End.Y, len(preview.Path))
}

func formatPointInfo(info *service.PointInfo) string {
	result := fmt.Sprintf("(%d,%d): connections %s", info.Position.X, info.Position.Y, info.Connections)
	if info.Piece != "" {
		result += fmt.Sprintf(", piece %s", info.Piece)
	}
	if len(info.Bridges) > 0 {
		result += fmt.Sprintf(", %d bridges", len(info.Bridges))
	}
	return result + "\n"
}

// describePoint summarizes one point of a snapshot, including which of its
// connections are completed by a facing neighbour
func describePoint(snap *engine.GridSnapshot, pos engine.Position) string {
	set := snap.Connections[pos.Y][pos.X]

	var b strings.Builder
	fmt.Fprintf(&b, "Point (%d,%d)\n", pos.X, pos.Y)
	fmt.Fprintf(&b, "Connections: %s\n", set)
	if set == engine.None {
		b.WriteString("No road at this point.\n")
		return b.String()
	}

	b.WriteString("\nDirections:\n")
	for _, d := range engine.Enumerate(set) {
		next := pos.Step(d)
		status := "dangling (grid edge)"
		if next.X >= 0 && next.X < snap.Width && next.Y >= 0 && next.Y < snap.Height {
			if snap.Connections[next.Y][next.X].Has(engine.Opposite(d)) {
				status = fmt.Sprintf("bridged to (%d,%d)", next.X, next.Y)
			} else {
				status = fmt.Sprintf("dangling, (%d,%d) does not face back", next.X, next.Y)
			}
		}
		fmt.Fprintf(&b, "  %s: %s\n", d, status)
	}
	return b.String()
}
