package engine

import (
	"fmt"
	"math/bits"
	"strings"
)

// ConnectionSet is a bitmask over the four cardinal directions
type ConnectionSet uint8

const (
	North ConnectionSet = 1 << iota
	South
	West
	East

	None ConnectionSet = 0
	All                = North | South | West | East
)

// directionOrder is the enumeration order used by Enumerate
var directionOrder = [4]ConnectionSet{North, South, West, East}

// Has reports whether every bit of d is present in s
func (s ConnectionSet) Has(d ConnectionSet) bool {
	return d != None && s&d == d
}

// Intersects reports whether s and d share at least one bit
func (s ConnectionSet) Intersects(d ConnectionSet) bool {
	return s&d != None
}

// IsSingle reports whether exactly one bit is set
func (s ConnectionSet) IsSingle() bool {
	return bits.OnesCount8(uint8(s&All)) == 1 && s&^All == 0
}

// IsVertical reports whether s is North or South
func (s ConnectionSet) IsVertical() bool {
	return s == North || s == South
}

// Count returns the number of directions in the set
func (s ConnectionSet) Count() int {
	return bits.OnesCount8(uint8(s & All))
}

// mustBeSingle panics when s does not hold exactly one direction
func mustBeSingle(s ConnectionSet, op string) {
	if !s.IsSingle() {
		panic(fmt.Sprintf("engine: %s requires a single direction, got %s (%d)", op, s, uint8(s)))
	}
}

// Opposite returns the direction facing the other way
func Opposite(d ConnectionSet) ConnectionSet {
	mustBeSingle(d, "Opposite")
	switch d {
	case North:
		return South
	case South:
		return North
	case West:
		return East
	default:
		return West
	}
}

// ToUnitVector converts a single direction to its grid step
func ToUnitVector(d ConnectionSet) (dx, dy int) {
	mustBeSingle(d, "ToUnitVector")
	switch d {
	case North:
		return 0, 1
	case South:
		return 0, -1
	case West:
		return -1, 0
	default:
		return 1, 0
	}
}

// FromUnitVector converts a grid step back to a direction.
// Anything other than a unit axis step yields None.
func FromUnitVector(dx, dy int) ConnectionSet {
	switch {
	case dx == 0 && dy == 1:
		return North
	case dx == 0 && dy == -1:
		return South
	case dx == -1 && dy == 0:
		return West
	case dx == 1 && dy == 0:
		return East
	}
	return None
}

// Enumerate returns the single directions present in s in N, S, W, E order.
// An empty set yields an empty slice.
func Enumerate(s ConnectionSet) []ConnectionSet {
	result := make([]ConnectionSet, 0, s.Count())
	for _, d := range directionOrder {
		if s&d != 0 {
			result = append(result, d)
		}
	}
	return result
}

// String renders the set as a compact letter list, e.g. "NS" or "NONE"
func (s ConnectionSet) String() string {
	if s&All == None {
		return "NONE"
	}
	var b strings.Builder
	for _, d := range directionOrder {
		if s&d != 0 {
			b.WriteByte(directionLetter(d))
		}
	}
	return b.String()
}

// MarshalText encodes the set using its letter form
func (s ConnectionSet) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes the letter form produced by MarshalText
func (s *ConnectionSet) UnmarshalText(text []byte) error {
	set, err := ParseConnectionSet(string(text))
	if err != nil {
		return err
	}
	*s = set
	return nil
}

func directionLetter(d ConnectionSet) byte {
	switch d {
	case North:
		return 'N'
	case South:
		return 'S'
	case West:
		return 'W'
	default:
		return 'E'
	}
}

// ParseConnectionSet parses names such as "N", "ns", "N|E", "NONE" or "ALL"
func ParseConnectionSet(text string) (ConnectionSet, error) {
	normalized := strings.ToUpper(strings.TrimSpace(text))
	switch normalized {
	case "", "NONE":
		return None, nil
	case "ALL", "NSWE", "NESW":
		return All, nil
	}

	var set ConnectionSet
	for _, r := range normalized {
		switch r {
		case 'N':
			set |= North
		case 'S':
			set |= South
		case 'W':
			set |= West
		case 'E':
			set |= East
		case '|', ',', '+', ' ':
		default:
			return None, fmt.Errorf("invalid direction '%c' in %q", r, text)
		}
	}
	return set, nil
}

// ParseDirection parses a single direction name ("north", "n", "east", ...)
func ParseDirection(text string) (ConnectionSet, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "n", "north", "up":
		return North, nil
	case "s", "south", "down":
		return South, nil
	case "w", "west", "left":
		return West, nil
	case "e", "east", "right":
		return East, nil
	}
	return None, fmt.Errorf("invalid direction %q", text)
}
