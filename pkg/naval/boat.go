// Package naval holds the battle state model shared by the turn controller and
// the rendering layer: boards, boats, the setup fleet, consumable items and the
// setup payload handed to the rules engine. Nothing in this package performs I/O
// beyond the io.Reader/io.Writer passed to the setup codec.
package naval

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds        = errors.New("cell is outside the board")
	ErrOverlap            = errors.New("boat overlaps another boat")
	ErrAlreadyPlaced      = errors.New("boat is already placed")
	ErrInvalidLength      = errors.New("boat length must be between 2 and 5")
	ErrInvalidOrientation = errors.New("orientation must be horizontal or vertical")
)

const (
	MinBoatLength = 2
	MaxBoatLength = 5
)

// Orientation is the axis a boat (or a torpedo) runs along. The zero value is
// deliberately invalid so an unset orientation is never mistaken for a default.
type Orientation int

const (
	Horizontal Orientation = iota + 1
	Vertical
)

// Valid reports whether o is Horizontal or Vertical.
func (o Orientation) Valid() bool {
	return o == Horizontal || o == Vertical
}

// Rotate returns the other orientation. Invalid values are returned unchanged.
func (o Orientation) Rotate() Orientation {
	switch o {
	case Horizontal:
		return Vertical
	case Vertical:
		return Horizontal
	}
	return o
}

func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	}
	return "unset"
}

// ParseOrientation accepts "h"/"horizontal" and "v"/"vertical".
func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "h", "horizontal":
		return Horizontal, nil
	case "v", "vertical":
		return Vertical, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOrientation, s)
}

// Cell addresses one square of a board by row and column, both zero-based.
type Cell struct {
	Row int
	Col int
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Boat is a single ship. ID is zero until the boat is placed on a board.
type Boat struct {
	ID          int
	Length      int
	Origin      Cell
	Orientation Orientation
	Placed      bool
}

// NewBoat creates an unplaced boat. Length and orientation are validated here so
// later code never has to.
func NewBoat(length int, o Orientation) (Boat, error) {
	if length < MinBoatLength || length > MaxBoatLength {
		return Boat{}, fmt.Errorf("%w: got %d", ErrInvalidLength, length)
	}
	if !o.Valid() {
		return Boat{}, ErrInvalidOrientation
	}
	return Boat{Length: length, Orientation: o}, nil
}

// CellsAt returns the cells the boat covers when anchored at origin.
func (b Boat) CellsAt(origin Cell) []Cell {
	cells := make([]Cell, b.Length)
	for i := range cells {
		if b.Orientation == Horizontal {
			cells[i] = Cell{Row: origin.Row, Col: origin.Col + i}
		} else {
			cells[i] = Cell{Row: origin.Row + i, Col: origin.Col}
		}
	}
	return cells
}

// Cells returns the cells covered by a placed boat.
func (b Boat) Cells() []Cell {
	return b.CellsAt(b.Origin)
}
