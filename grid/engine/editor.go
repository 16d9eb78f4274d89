package engine

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// Editor is the session-scoped context every edit goes through. It owns one
// grid together with its piece table, renderer, surface and drag state.
type Editor struct {
	config   *GridConfig
	table    *PieceTable
	renderer PieceRenderer
	surface  Surface
	grid     *RoadGrid
	engine   *ConnectivityEngine
	drag     *DragController
}

// NewEditor creates an editor for config. A nil renderer selects a MemoryRenderer.
// The grid is not initialized until Init is called.
func NewEditor(config *GridConfig, renderer PieceRenderer) (*Editor, error) {
	table, err := BuildPieceTable(config)
	if err != nil {
		return nil, err
	}
	if renderer == nil {
		renderer = NewMemoryRenderer()
	}

	ppu := config.Surface.PixelsPerUnit
	if ppu == 0 {
		ppu = DefaultPixelsUnit
	}
	surface := &PlaneSurface{Width: config.Surface.Width, Depth: config.Surface.Depth, PixelsPerUnit: ppu}

	grid := NewRoadGrid(table, renderer)
	engine := NewConnectivityEngine(grid)

	return &Editor{
		config:   config,
		table:    table,
		renderer: renderer,
		surface:  surface,
		grid:     grid,
		engine:   engine,
		drag:     NewDragController(grid, engine),
	}, nil
}

// NewEditorWithDefaults creates an initialized editor using DefaultGridConfig
func NewEditorWithDefaults() *Editor {
	editor, err := NewEditor(DefaultGridConfig(), nil)
	if err != nil {
		panic("engine: default config is invalid: " + err.Error())
	}
	if err := editor.InitFromConfig(); err != nil {
		panic("engine: default config is invalid: " + err.Error())
	}
	return editor
}

// Config returns the configuration the editor was built from
func (e *Editor) Config() *GridConfig {
	return e.config
}

// Grid returns the underlying grid
func (e *Editor) Grid() *RoadGrid {
	return e.grid
}

// Renderer returns the renderer pieces are spawned through
func (e *Editor) Renderer() PieceRenderer {
	return e.renderer
}

// Surface returns the plane the grid is laid over
func (e *Editor) Surface() Surface {
	return e.surface
}

// Init (re)initializes the grid with explicit spacing and scale
func (e *Editor) Init(spacing r2.Point, scale r3.Vector) error {
	e.drag.Cancel()
	return e.grid.Init(e.surface, spacing, scale)
}

// InitFromConfig (re)initializes the grid with the configured spacing and scale
func (e *Editor) InitFromConfig() error {
	return e.Init(e.config.Spacing.Point(), e.config.Scale.Vector())
}

// Delete tears the grid down
func (e *Editor) Delete() {
	e.drag.Cancel()
	e.grid.Destroy()
}

// Initialized reports whether the grid currently exists
func (e *Editor) Initialized() bool {
	return e.grid.Initialized()
}

// SelectPoint selects the point at pos as the start of a drag
func (e *Editor) SelectPoint(pos Position) (*GridPoint, bool) {
	p := e.grid.PointAt(pos)
	if !e.drag.Begin(p) {
		return nil, false
	}
	return p, true
}

// SelectAt raycasts a screen coordinate and selects the nearest point
func (e *Editor) SelectAt(screen r2.Point) (*GridPoint, bool) {
	world, hit := e.surface.RaycastFromScreenPoint(screen)
	if !hit {
		e.drag.Cancel()
		return nil, false
	}
	p := e.grid.ClosestPointTo(world)
	if !e.drag.Begin(p) {
		return nil, false
	}
	return p, true
}

// Selected returns the currently selected point
func (e *Editor) Selected() (*GridPoint, bool) {
	return e.drag.Selected()
}

// DragTo updates the drag preview for a pointer at a world position
func (e *Editor) DragTo(world r3.Vector) (DragPreview, bool) {
	return e.drag.MoveTo(world)
}

// DragToScreen updates the drag preview for a pointer at a screen coordinate
func (e *Editor) DragToScreen(screen r2.Point) (DragPreview, bool) {
	world, hit := e.surface.RaycastFromScreenPoint(screen)
	if !hit {
		return DragPreview{}, false
	}
	return e.drag.MoveTo(world)
}

// EndDrag commits the current drag
func (e *Editor) EndDrag() DragResult {
	return e.drag.End()
}

// CancelDrag abandons the current drag
func (e *Editor) CancelDrag() {
	e.drag.Cancel()
}

// PreviewDrag computes the outcome of dragging from one point to another
func (e *Editor) PreviewDrag(from, to Position) (DragPreview, error) {
	if !e.grid.Initialized() {
		return DragPreview{}, ErrGridNotInitialized
	}
	return e.drag.PreviewTo(from, e.snap(from, to)), nil
}

// Drag applies a straight drag from one point toward another
func (e *Editor) Drag(from, to Position) (DragResult, error) {
	if !e.grid.Initialized() {
		return DragResult{}, ErrGridNotInitialized
	}
	e.drag.Cancel()
	return e.drag.Commit(from, e.snap(from, to)), nil
}

// snap constrains to onto from's row or column
func (e *Editor) snap(from, to Position) Position {
	if p := e.grid.ClosestAxisAlignedPoint(from, to); p != nil {
		return p.position
	}
	return to
}

// SetConnections replaces a point's connection set and propagates the change
func (e *Editor) SetConnections(pos Position, set ConnectionSet) (EditResult, error) {
	return e.engine.ApplyConnectionChange(pos, set)
}

// DrainEvents returns and clears the notifications queued by recent edits
func (e *Editor) DrainEvents() GridEvents {
	return e.grid.DrainEvents()
}

// Point returns the point at pos
func (e *Editor) Point(pos Position) (*GridPoint, error) {
	if !e.grid.Initialized() {
		return nil, ErrGridNotInitialized
	}
	p := e.grid.PointAt(pos)
	if p == nil {
		return nil, fmt.Errorf("%w: point (%d,%d) on a %dx%d grid", ErrOutOfBounds, pos.X, pos.Y, e.grid.width, e.grid.height)
	}
	return p, nil
}
