package engine

import "fmt"

// PieceDescriptor identifies a visual piece and its unscaled footprint
type PieceDescriptor struct {
	Name  string  `json:"name"`
	Width float64 `json:"width"` // extent along X before rotation
	Depth float64 `json:"depth"` // extent along Y before rotation
}

// PieceEntry pairs a descriptor with the rotation (degrees) it is spawned at
type PieceEntry struct {
	Descriptor PieceDescriptor `json:"descriptor"`
	Rotation   float64         `json:"rotation"`
}

// PieceTable maps every connection set to the piece drawn for it,
// plus the filler pieces used by horizontal and vertical bridges.
type PieceTable struct {
	Pieces           map[ConnectionSet]PieceEntry
	HorizontalBridge PieceEntry
	VerticalBridge   PieceEntry
}

// NewPieceTable creates an empty piece table
func NewPieceTable() *PieceTable {
	return &PieceTable{Pieces: make(map[ConnectionSet]PieceEntry)}
}

// Set registers the piece drawn for a connection set
func (t *PieceTable) Set(set ConnectionSet, entry PieceEntry) {
	t.Pieces[set&All] = entry
}

// Lookup returns the piece for set. The second result is false for None,
// which never has a piece. A mask without an entry is a configuration error.
func (t *PieceTable) Lookup(set ConnectionSet) (PieceEntry, bool, error) {
	set &= All
	if set == None {
		return PieceEntry{}, false, nil
	}
	entry, ok := t.Pieces[set]
	if !ok {
		return PieceEntry{}, false, fmt.Errorf("%w: connection set %s", ErrMissingPiece, set)
	}
	return entry, true, nil
}

// BridgeFiller returns the filler piece for a bridge travelling in direction d
func (t *PieceTable) BridgeFiller(d ConnectionSet) PieceEntry {
	if d.IsVertical() {
		return t.VerticalBridge
	}
	return t.HorizontalBridge
}

// Validate checks that all 15 non-empty masks and both bridge fillers are present
func (t *PieceTable) Validate() error {
	for set := ConnectionSet(1); set <= All; set++ {
		if _, _, err := t.Lookup(set); err != nil {
			return err
		}
	}
	if t.HorizontalBridge.Descriptor.Name == "" {
		return fmt.Errorf("%w: horizontal bridge filler", ErrMissingPiece)
	}
	if t.VerticalBridge.Descriptor.Name == "" {
		return fmt.Errorf("%w: vertical bridge filler", ErrMissingPiece)
	}
	return nil
}
