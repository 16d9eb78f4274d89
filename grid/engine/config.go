package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Vec2 is a serializable 2D vector
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Point converts the vector to an r2.Point
func (v Vec2) Point() r2.Point {
	return r2.Point{X: v.X, Y: v.Y}
}

// Vec3 is a serializable 3D vector
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Vector converts the vector to an r3.Vector
func (v Vec3) Vector() r3.Vector {
	return r3.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

// SurfaceConfig describes the plane the grid is laid over
type SurfaceConfig struct {
	Width         float64 `json:"width" yaml:"width"`
	Depth         float64 `json:"depth" yaml:"depth"`
	PixelsPerUnit float64 `json:"pixels_per_unit,omitempty" yaml:"pixels_per_unit,omitempty"`
}

// PieceConfig describes one piece table entry
type PieceConfig struct {
	Name     string  `json:"name" yaml:"name"`
	Width    float64 `json:"width" yaml:"width"`
	Depth    float64 `json:"depth" yaml:"depth"`
	Rotation float64 `json:"rotation,omitempty" yaml:"rotation,omitempty"`
}

// Entry converts the config into a piece table entry
func (p PieceConfig) Entry() PieceEntry {
	return PieceEntry{
		Descriptor: PieceDescriptor{Name: p.Name, Width: p.Width, Depth: p.Depth},
		Rotation:   p.Rotation,
	}
}

// GridConfig represents a grid configuration loaded from JSON or YAML
type GridConfig struct {
	Name             string                 `json:"name" yaml:"name"`
	Description      string                 `json:"description" yaml:"description"`
	Surface          SurfaceConfig          `json:"surface" yaml:"surface"`
	Spacing          Vec2                   `json:"spacing" yaml:"spacing"`
	Scale            Vec3                   `json:"scale" yaml:"scale"`
	Pieces           map[string]PieceConfig `json:"pieces" yaml:"pieces"`
	HorizontalBridge PieceConfig            `json:"horizontal_bridge" yaml:"horizontal_bridge"`
	VerticalBridge   PieceConfig            `json:"vertical_bridge" yaml:"vertical_bridge"`
}

// Dimensions returns the number of grid points per axis the configured
// surface and spacing produce
func (c *GridConfig) Dimensions() (int, int) {
	if c.Spacing.X <= 0 || c.Spacing.Y <= 0 {
		return 0, 0
	}
	return gridDimensions(r2.Point{X: c.Surface.Width, Y: c.Surface.Depth}, c.Spacing.Point())
}

// ConfigProblems returns every validation problem found in config
func ConfigProblems(config *GridConfig) []error {
	if config == nil {
		return []error{fmt.Errorf("config validation: config is nil")}
	}

	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf("config validation: "+format, args...))
	}

	if config.Name == "" {
		add("name is required")
	}
	if config.Description == "" {
		add("description is required")
	}

	if config.Surface.Width < MinSurfaceExtent || config.Surface.Depth < MinSurfaceExtent {
		add("surface must be at least %.2f in each dimension, got %.2fx%.2f", MinSurfaceExtent, config.Surface.Width, config.Surface.Depth)
	}
	if config.Surface.PixelsPerUnit < 0 {
		add("surface.pixels_per_unit cannot be negative, got %.2f", config.Surface.PixelsPerUnit)
	}
	if config.Spacing.X < MinSpacing || config.Spacing.Y < MinSpacing {
		add("spacing must be at least %.2f, got (%.2f, %.2f)", MinSpacing, config.Spacing.X, config.Spacing.Y)
	} else {
		width, height := config.Dimensions()
		if width > MaxGridPoints || height > MaxGridPoints {
			add("grid of %dx%d points exceeds the maximum of %d per axis", width, height, MaxGridPoints)
		}
	}
	if config.Scale.X < MinScale || config.Scale.Y < MinScale || config.Scale.Z < MinScale {
		add("scale must be at least %.2f, got (%.2f, %.2f, %.2f)", MinScale, config.Scale.X, config.Scale.Y, config.Scale.Z)
	}

	seen := make(map[ConnectionSet]string)
	for key, piece := range config.Pieces {
		set, err := ParseConnectionSet(key)
		if err != nil {
			add("pieces[%q]: %v", key, err)
			continue
		}
		if set == None {
			add("pieces[%q]: the empty connection set never has a piece", key)
			continue
		}
		if other, dup := seen[set]; dup {
			add("pieces[%q] duplicates pieces[%q]", key, other)
			continue
		}
		seen[set] = key
		if piece.Name == "" {
			add("pieces[%q].name is required", key)
		}
	}
	for set := ConnectionSet(1); set <= All; set++ {
		if _, ok := seen[set]; !ok {
			add("pieces is missing an entry for %s", set)
		}
	}

	bridgesValid := true
	for label, filler := range map[string]PieceConfig{
		"horizontal_bridge": config.HorizontalBridge,
		"vertical_bridge":   config.VerticalBridge,
	} {
		if filler.Name == "" {
			add("%s.name is required", label)
			bridgesValid = false
		}
		if filler.Width <= 0 || filler.Depth <= 0 {
			add("%s must have a positive footprint, got %.2fx%.2f", label, filler.Width, filler.Depth)
			bridgesValid = false
		}
	}

	if bridgesValid && errs == nil {
		table := &PieceTable{
			HorizontalBridge: config.HorizontalBridge.Entry(),
			VerticalBridge:   config.VerticalBridge.Entry(),
		}
		if err := checkBridgeSegments(table, config.Spacing.Point(), config.Scale.Vector()); err != nil {
			add("%v", err)
		}
	}

	return multierr.Errors(errs)
}

// ValidateGridConfig validates a grid configuration before any grid is built
func ValidateGridConfig(config *GridConfig) error {
	problems := ConfigProblems(config)
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, multierr.Combine(problems...))
}

// BuildPieceTable converts a validated configuration into a piece table
func BuildPieceTable(config *GridConfig) (*PieceTable, error) {
	if err := ValidateGridConfig(config); err != nil {
		return nil, err
	}

	table := NewPieceTable()
	for key, piece := range config.Pieces {
		set, _ := ParseConnectionSet(key)
		table.Set(set, piece.Entry())
	}
	table.HorizontalBridge = config.HorizontalBridge.Entry()
	table.VerticalBridge = config.VerticalBridge.Entry()
	return table, nil
}

// DecodeGridConfig parses a configuration document. format is "json" or "yaml".
func DecodeGridConfig(data []byte, format string) (*GridConfig, error) {
	var config GridConfig
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse yaml config: %w", err)
		}
	case "json", "":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse json config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	return &config, nil
}

// FormatForFile returns the config format implied by a file extension
func FormatForFile(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}

// LoadGridConfig loads and validates a grid configuration file
func LoadGridConfig(filename string) (*GridConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := DecodeGridConfig(data, FormatForFile(filename))
	if err != nil {
		return nil, err
	}

	if err := ValidateGridConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultGridConfig returns the built-in configuration: a 10x10 grid with
// 5 unit spacing, 2x2 road pieces and 1 unit bridge fillers.
func DefaultGridConfig() *GridConfig {
	config := &GridConfig{
		Name:        "default",
		Description: "Built-in 10x10 road grid",
		Surface:     SurfaceConfig{Width: 45, Depth: 45, PixelsPerUnit: DefaultPixelsUnit},
		Spacing:     Vec2{X: 5, Y: 5},
		Scale:       Vec3{X: 1, Y: 1, Z: 1},
		Pieces:      make(map[string]PieceConfig),
		HorizontalBridge: PieceConfig{
			Name: "bridge_segment", Width: 1, Depth: 2,
		},
		VerticalBridge: PieceConfig{
			Name: "bridge_segment", Width: 1, Depth: 2, Rotation: 90,
		},
	}

	for set := ConnectionSet(1); set <= All; set++ {
		name, rotation := defaultPiece(set)
		config.Pieces[set.String()] = PieceConfig{Name: name, Width: 2, Depth: 2, Rotation: rotation}
	}
	return config
}

// defaultPiece picks the road piece and rotation drawn for a connection set
func defaultPiece(set ConnectionSet) (string, float64) {
	switch set {
	case North:
		return "road_end", 0
	case East:
		return "road_end", 90
	case South:
		return "road_end", 180
	case West:
		return "road_end", 270
	case North | South:
		return "road_straight", 0
	case West | East:
		return "road_straight", 90
	case North | East:
		return "road_corner", 0
	case South | East:
		return "road_corner", 90
	case South | West:
		return "road_corner", 180
	case North | West:
		return "road_corner", 270
	case North | South | East:
		return "road_t", 0
	case South | West | East:
		return "road_t", 90
	case North | South | West:
		return "road_t", 180
	case North | West | East:
		return "road_t", 270
	}
	return "road_cross", 0
}
