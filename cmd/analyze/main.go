// Command analyze prints quick, human-readable statistics about saved editor
// sessions. For each session file it summarizes the grid size, road points,
// bridges and pieces, counts separate road networks, breaks points down by
// shape and highlights dangling connections that have no matching bridge.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/roadgrid/grid/engine"
	"github.com/wricardo/roadgrid/grid/session"
)

// maxListed caps how many dangling connections are printed per session
const maxListed = 5

// Dangling is a connection whose neighbor does not connect back
type Dangling struct {
	Position  engine.Position
	Direction engine.ConnectionSet
	OffGrid   bool
}

// Analysis holds the statistics computed for one grid
type Analysis struct {
	Width, Height int
	RoadPoints    int
	Bridges       int
	Pieces        int
	Networks      int
	Largest       int
	Shapes        map[string]int
	Dangling      []Dangling
}

// shapeName classifies a connection set by its number of connections and layout
func shapeName(set engine.ConnectionSet) string {
	switch set.Count() {
	case 1:
		return "end"
	case 2:
		if set == engine.North|engine.South || set == engine.West|engine.East {
			return "straight"
		}
		return "corner"
	case 3:
		return "tee"
	case 4:
		return "cross"
	}
	return "empty"
}

// analyzeSnapshot computes statistics for a grid snapshot
func analyzeSnapshot(snap *engine.GridSnapshot) Analysis {
	a := Analysis{Shapes: make(map[string]int)}
	if snap == nil || !snap.Initialized {
		return a
	}

	a.Width, a.Height = snap.Width, snap.Height
	a.RoadPoints = snap.RoadPoints
	a.Bridges = len(snap.Bridges)
	a.Pieces = snap.Pieces

	at := func(x, y int) (engine.ConnectionSet, bool) {
		if x < 0 || y < 0 || x >= snap.Width || y >= snap.Height {
			return engine.None, false
		}
		return snap.Connections[y][x], true
	}

	visited := make([][]bool, snap.Height)
	for y := range visited {
		visited[y] = make([]bool, snap.Width)
	}

	for y := 0; y < snap.Height; y++ {
		for x := 0; x < snap.Width; x++ {
			set := snap.Connections[y][x]
			if set == engine.None {
				continue
			}
			a.Shapes[shapeName(set)]++

			for _, d := range engine.Enumerate(set) {
				dx, dy := engine.ToUnitVector(d)
				neighbor, ok := at(x+dx, y+dy)
				if !ok || !neighbor.Has(engine.Opposite(d)) {
					a.Dangling = append(a.Dangling, Dangling{
						Position:  engine.Position{X: x, Y: y},
						Direction: d,
						OffGrid:   !ok,
					})
				}
			}

			if visited[y][x] {
				continue
			}

			// Flood fill across reciprocal connections
			a.Networks++
			size := 0
			stack := []engine.Position{{X: x, Y: y}}
			visited[y][x] = true
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				size++

				current := snap.Connections[p.Y][p.X]
				for _, d := range engine.Enumerate(current) {
					dx, dy := engine.ToUnitVector(d)
					nx, ny := p.X+dx, p.Y+dy
					neighbor, ok := at(nx, ny)
					if !ok || visited[ny][nx] || !neighbor.Has(engine.Opposite(d)) {
						continue
					}
					visited[ny][nx] = true
					stack = append(stack, engine.Position{X: nx, Y: ny})
				}
			}
			if size > a.Largest {
				a.Largest = size
			}
		}
	}
	return a
}

// loadSession reads a persisted session file without rebuilding its editor
func loadSession(path string) (*session.PersistedSessionData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	var persisted session.PersistedSessionData
	if err := json.Unmarshal(data, &persisted); err != nil {
		return nil, fmt.Errorf("error parsing JSON: %w", err)
	}
	return &persisted, nil
}

func printAnalysis(out io.Writer, data *session.PersistedSessionData, a Analysis) {
	fmt.Fprintf(out, "Session: %s (config %s)\n", data.ID, data.ConfigID)
	if data.Grid == nil || !data.Grid.Initialized {
		fmt.Fprintln(out, "• Grid not initialized")
		return
	}

	fmt.Fprintf(out, "Grid Size: %d x %d\n", a.Width, a.Height)
	fmt.Fprintf(out, "Road Points: %d\n", a.RoadPoints)
	fmt.Fprintf(out, "Bridges: %d\n", a.Bridges)
	fmt.Fprintf(out, "Pieces: %d\n", a.Pieces)
	fmt.Fprintf(out, "Networks: %d (largest %d points)\n", a.Networks, a.Largest)

	shapes := make([]string, 0, len(a.Shapes))
	for shape := range a.Shapes {
		shapes = append(shapes, shape)
	}
	sort.Strings(shapes)
	for _, shape := range shapes {
		fmt.Fprintf(out, "  %-9s %d\n", shape, a.Shapes[shape])
	}

	if len(a.Dangling) == 0 {
		fmt.Fprintln(out, "✅ Every connection is matched by a bridge")
		return
	}

	fmt.Fprintf(out, "⚠️  WARNING: %d dangling connections\n", len(a.Dangling))
	for i, d := range a.Dangling {
		if i == maxListed {
			fmt.Fprintf(out, "   ... and %d more\n", len(a.Dangling)-maxListed)
			break
		}
		reason := "neighbor does not connect back"
		if d.OffGrid {
			reason = "points off the grid"
		}
		fmt.Fprintf(out, "   (%d, %d) %s: %s\n", d.Position.X, d.Position.Y, d.Direction, reason)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Print road statistics for saved editor sessions",
		ArgsUsage: "[sessions directory]",
		Writer:    out,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.Args().First()
			if dir == "" {
				dir = "sessions"
			}

			files, err := filepath.Glob(filepath.Join(dir, "*.json"))
			if err != nil {
				return err
			}
			sort.Strings(files)
			if len(files) == 0 {
				fmt.Fprintf(out, "No sessions found in %s\n", dir)
				return nil
			}

			for _, file := range files {
				fmt.Fprintf(out, "\n=== Analyzing %s ===\n", filepath.Base(file))
				data, err := loadSession(file)
				if err != nil {
					fmt.Fprintln(out, err)
					continue
				}
				printAnalysis(out, data, analyzeSnapshot(data.Grid))
			}
			return nil
		},
	}
}

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
