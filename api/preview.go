package api

import (
	"fmt"
	"image/color"
	"io"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/colornames"

	"github.com/wricardo/roadgrid/grid/engine"
	"github.com/wricardo/roadgrid/grid/service"
)

const (
	// previewMargin is the world-unit border drawn around the surface
	previewMargin = 2.0

	// maxPreviewPixels bounds either side of a preview image
	maxPreviewPixels = 4096
)

// PreviewScheme defines how the parts of a grid preview are coloured
type PreviewScheme struct {
	Background color.Color
	Surface    color.Color
	Points     color.Color
	Roads      color.Color
	Bridges    color.Color
	Links      color.Color
}

// DefaultPreviewScheme returns the colours used by the preview endpoint
func DefaultPreviewScheme() *PreviewScheme {
	return &PreviewScheme{
		Background: colornames.White,
		Surface:    colornames.Honeydew,
		Points:     colornames.Lightgray,
		Roads:      colornames.Dimgray,
		Bridges:    colornames.Darkgray,
		Links:      colornames.Gold,
	}
}

// previewCanvas maps world coordinates onto image pixels, Y pointing up
type previewCanvas struct {
	dc    *gg.Context
	ppu   float64
	depth float64
}

func (c *previewCanvas) toScreen(x, y float64) (float64, float64) {
	return (x + previewMargin) * c.ppu, (c.depth + previewMargin - y) * c.ppu
}

// renderPreview draws a top-down PNG of a grid: the surface, every grid point,
// every live piece footprint and a line for each connection flag.
func renderPreview(w io.Writer, data *service.RenderData, ppu float64, scheme *PreviewScheme) error {
	if ppu <= 0 {
		ppu = data.Surface.PixelsPerUnit
	}
	if ppu <= 0 {
		ppu = engine.DefaultPixelsUnit
	}

	width := int((data.Surface.Width + 2*previewMargin) * ppu)
	height := int((data.Surface.Depth + 2*previewMargin) * ppu)
	if width <= 0 || height <= 0 || width > maxPreviewPixels || height > maxPreviewPixels {
		return fmt.Errorf("preview of %dx%d pixels is out of range", width, height)
	}

	c := &previewCanvas{dc: gg.NewContext(width, height), ppu: ppu, depth: data.Surface.Depth}
	dc := c.dc

	dc.SetColor(scheme.Background)
	dc.Clear()

	sx, sy := c.toScreen(0, data.Surface.Depth)
	dc.SetColor(scheme.Surface)
	dc.DrawRectangle(sx, sy, data.Surface.Width*ppu, data.Surface.Depth*ppu)
	dc.Fill()

	snap := data.Snapshot
	if snap == nil || !snap.Initialized {
		return dc.EncodePNG(w)
	}

	// Pieces first so connection lines stay visible on top
	for _, piece := range data.Pieces {
		if strings.Contains(piece.Descriptor.Name, "bridge") {
			dc.SetColor(scheme.Bridges)
		} else {
			dc.SetColor(scheme.Roads)
		}
		rect := piece.Footprint()
		x, y := c.toScreen(rect.X.Lo, rect.Y.Hi)
		dc.DrawRectangle(x, y, rect.X.Length()*ppu, rect.Y.Length()*ppu)
		dc.Fill()
	}

	dc.SetLineCapSquare()
	dc.SetLineWidth(ppu / 4)
	dc.SetColor(scheme.Links)
	for y, row := range snap.Connections {
		for x, set := range row {
			wx, wy := float64(x)*snap.Spacing.X, float64(y)*snap.Spacing.Y
			for _, d := range engine.Enumerate(set) {
				dx, dy := engine.ToUnitVector(d)
				ax, ay := c.toScreen(wx, wy)
				bx, by := c.toScreen(wx+float64(dx)*snap.Spacing.X/2, wy+float64(dy)*snap.Spacing.Y/2)
				dc.DrawLine(ax, ay, bx, by)
				dc.Stroke()
			}
		}
	}

	dc.SetColor(scheme.Points)
	radius := ppu / 5
	for y := 0; y < snap.Height; y++ {
		for x := 0; x < snap.Width; x++ {
			px, py := c.toScreen(float64(x)*snap.Spacing.X, float64(y)*snap.Spacing.Y)
			dc.DrawCircle(px, py, radius)
			dc.Fill()
		}
	}

	return dc.EncodePNG(w)
}
