package engine

import (
	"math"
	"sort"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// PieceHandle is an opaque reference to a spawned piece. Zero means no piece.
type PieceHandle uint64

// PieceRenderer materializes and removes visual pieces.
// Bounds are reported in grid-plane world units.
type PieceRenderer interface {
	Spawn(desc PieceDescriptor, position r3.Vector, rotation float64, scale r3.Vector) PieceHandle
	Destroy(handle PieceHandle)
	Bounds(handle PieceHandle, rotation float64) r2.Rect
}

// SpawnedPiece describes a live piece held by a MemoryRenderer
type SpawnedPiece struct {
	Handle     PieceHandle     `json:"handle"`
	Descriptor PieceDescriptor `json:"descriptor"`
	Position   r3.Vector       `json:"position"`
	Rotation   float64         `json:"rotation"`
	Scale      r3.Vector       `json:"scale"`
}

// Footprint returns the piece's rotated AABB on the grid plane
func (p SpawnedPiece) Footprint() r2.Rect {
	return footprintBounds(p.Descriptor, p.Position, p.Rotation, p.Scale)
}

// MemoryRenderer is a headless PieceRenderer that keeps pieces in a map
type MemoryRenderer struct {
	pieces  map[PieceHandle]SpawnedPiece
	next    PieceHandle
	spawned int
}

// NewMemoryRenderer creates an empty in-memory renderer
func NewMemoryRenderer() *MemoryRenderer {
	return &MemoryRenderer{pieces: make(map[PieceHandle]SpawnedPiece)}
}

// Spawn records a new piece and returns its handle
func (m *MemoryRenderer) Spawn(desc PieceDescriptor, position r3.Vector, rotation float64, scale r3.Vector) PieceHandle {
	m.next++
	m.spawned++
	m.pieces[m.next] = SpawnedPiece{
		Handle:     m.next,
		Descriptor: desc,
		Position:   position,
		Rotation:   rotation,
		Scale:      scale,
	}
	return m.next
}

// Destroy removes a piece; unknown handles are ignored
func (m *MemoryRenderer) Destroy(handle PieceHandle) {
	delete(m.pieces, handle)
}

// Bounds returns the axis-aligned footprint of a piece rotated by rotation degrees
func (m *MemoryRenderer) Bounds(handle PieceHandle, rotation float64) r2.Rect {
	piece, ok := m.pieces[handle]
	if !ok {
		return r2.EmptyRect()
	}
	return footprintBounds(piece.Descriptor, piece.Position, rotation, piece.Scale)
}

// Count returns the number of live pieces
func (m *MemoryRenderer) Count() int {
	return len(m.pieces)
}

// TotalSpawned returns how many pieces were ever spawned
func (m *MemoryRenderer) TotalSpawned() int {
	return m.spawned
}

// Piece returns a live piece by handle
func (m *MemoryRenderer) Piece(handle PieceHandle) (SpawnedPiece, bool) {
	piece, ok := m.pieces[handle]
	return piece, ok
}

// Pieces returns all live pieces ordered by handle
func (m *MemoryRenderer) Pieces() []SpawnedPiece {
	result := make([]SpawnedPiece, 0, len(m.pieces))
	for _, piece := range m.pieces {
		result = append(result, piece)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Handle < result[j].Handle })
	return result
}

// footprintBounds computes the rotated, scaled AABB of a descriptor centred at position
func footprintBounds(desc PieceDescriptor, position r3.Vector, rotation float64, scale r3.Vector) r2.Rect {
	width := desc.Width * scale.X
	depth := desc.Depth * scale.Y

	rad := rotation * math.Pi / 180
	cos, sin := math.Abs(math.Cos(rad)), math.Abs(math.Sin(rad))
	halfX := (width*cos + depth*sin) / 2
	halfY := (width*sin + depth*cos) / 2

	return r2.Rect{
		X: r1.Interval{Lo: position.X - halfX, Hi: position.X + halfX},
		Y: r1.Interval{Lo: position.Y - halfY, Hi: position.Y + halfY},
	}
}
