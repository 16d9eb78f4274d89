package engine

import "github.com/golang/geo/r3"

// DragPreview is the projected outcome of a drag, computed without mutating the grid
type DragPreview struct {
	Valid     bool          `json:"valid"`
	Start     Position      `json:"start"`
	Target    Position      `json:"target"`
	End       Position      `json:"end"`
	Direction ConnectionSet `json:"direction"`
	Adding    bool          `json:"adding"`
	Path      []Position    `json:"path,omitempty"`
}

// DragResult reports what a committed drag changed
type DragResult struct {
	Applied   bool          `json:"applied"`
	Start     Position      `json:"start"`
	End       Position      `json:"end"`
	Direction ConnectionSet `json:"direction"`
	Adding    bool          `json:"adding"`
	Touched   []Position    `json:"touched,omitempty"`
}

// DragController turns pointer drags into straight-line connection edits
type DragController struct {
	grid   *RoadGrid
	engine *ConnectivityEngine

	selected    *GridPoint
	lastSnapped *GridPoint
	preview     DragPreview
}

// NewDragController creates a drag controller bound to a grid
func NewDragController(g *RoadGrid, e *ConnectivityEngine) *DragController {
	return &DragController{grid: g, engine: e}
}

// Begin records the point a drag starts from
func (c *DragController) Begin(p *GridPoint) bool {
	c.Cancel()
	if p == nil {
		return false
	}
	c.selected = p
	return true
}

// Selected returns the point the current drag started from
func (c *DragController) Selected() (*GridPoint, bool) {
	return c.selected, c.selected != nil
}

// Preview returns the last computed preview
func (c *DragController) Preview() DragPreview {
	return c.preview
}

// Cancel abandons the current drag without touching the grid
func (c *DragController) Cancel() {
	c.selected = nil
	c.lastSnapped = nil
	c.preview = DragPreview{}
}

// MoveTo updates the preview for a pointer at world. The second result is
// false when the snapped point did not change and the preview was reused.
func (c *DragController) MoveTo(world r3.Vector) (DragPreview, bool) {
	if c.selected == nil {
		return DragPreview{}, false
	}

	nearest := c.grid.ClosestPointTo(world)
	if nearest == nil {
		c.lastSnapped = nil
		c.preview = DragPreview{}
		return c.preview, true
	}

	snapped := c.grid.ClosestAxisAlignedPoint(c.selected.position, nearest.position)
	if snapped == nil {
		c.lastSnapped = nil
		c.preview = DragPreview{}
		return c.preview, true
	}
	if snapped == c.lastSnapped {
		return c.preview, false
	}

	c.lastSnapped = snapped
	c.preview = c.project(c.selected, snapped.position)
	return c.preview, true
}

// End commits the current preview and clears the drag
func (c *DragController) End() DragResult {
	defer c.Cancel()
	if c.selected == nil || c.lastSnapped == nil {
		return DragResult{}
	}
	return c.Commit(c.selected.position, c.lastSnapped.position)
}

// PreviewTo computes the preview of a drag from start to target
func (c *DragController) PreviewTo(start, target Position) DragPreview {
	p := c.grid.PointAt(start)
	if p == nil || !c.grid.IsInGrid(target) {
		return DragPreview{}
	}
	return c.project(p, target)
}

// project derives direction, mode and projected end for a drag; it never mutates the grid
func (c *DragController) project(start *GridPoint, target Position) DragPreview {
	d := FromUnitVector(sign(target.X-start.position.X), sign(target.Y-start.position.Y))
	if d == None || (target.X != start.position.X && target.Y != start.position.Y) {
		return DragPreview{}
	}

	adding := !start.Has(d)
	end := c.engine.ProjectEnd(start.position, target, d, modeFor(adding))

	preview := DragPreview{
		Valid:     end != start.position,
		Start:     start.position,
		Target:    target,
		End:       end,
		Direction: d,
		Adding:    adding,
	}
	for pos := start.position; ; pos = pos.Step(d) {
		preview.Path = append(preview.Path, pos)
		if pos == end {
			break
		}
	}
	return preview
}

// Commit applies a straight drag from start toward target. The edit ends early
// where the stop rule is hit; start == end or a point outside the grid is a no-op.
func (c *DragController) Commit(start, target Position) DragResult {
	preview := c.PreviewTo(start, target)
	if !preview.Valid {
		return DragResult{}
	}

	g := c.grid
	d := preview.Direction
	opposite := Opposite(d)
	first := g.PointAt(preview.Start)

	first.SetConnections(first.connections^d, g)

	steps := abs(preview.End.X-preview.Start.X) + abs(preview.End.Y-preview.Start.Y)
	cascade := c.engine.Cascade(first, d, modeFor(preview.Adding), steps)
	last := cascade.Terminal

	var beyond *GridPoint
	if !cascade.Stopped {
		beyond = g.PointAt(last.position.Step(d))
		switch {
		case preview.Adding && beyond != nil && beyond.Has(opposite):
			g.CreateBridge(d, last.position, beyond.position)
		case preview.Adding:
			last.SetConnections(last.connections&^d, g)
		default:
			last.SetConnections(last.connections&^d, g)
			if beyond != nil {
				beyond.SetConnections(beyond.connections&^opposite, g)
			}
		}
	}

	first.UpdateBridges(g)
	last.UpdateBridges(g)
	if beyond != nil {
		beyond.UpdateBridges(g)
	}

	return DragResult{
		Applied:   true,
		Start:     preview.Start,
		End:       last.position,
		Direction: d,
		Adding:    preview.Adding,
		Touched:   append([]Position{preview.Start}, cascade.Visited...),
	}
}
