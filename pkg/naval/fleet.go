package naval

import (
	"errors"
	"fmt"
)

// StandardFleet lists the boat lengths handed to a player at setup.
var StandardFleet = []int{2, 3, 3, 4, 5}

var ErrNoSelection = errors.New("no boat selected")

// Fleet is the set of boats still waiting to be placed during setup. At most
// one boat is selected at a time; rotation and placement act on it.
type Fleet struct {
	boats    []Boat
	selected int
}

// NewFleet creates horizontal, unplaced boats with the given lengths. With no
// lengths the StandardFleet is used.
func NewFleet(lengths ...int) (*Fleet, error) {
	if len(lengths) == 0 {
		lengths = StandardFleet
	}
	f := &Fleet{selected: -1}
	for _, n := range lengths {
		b, err := NewBoat(n, Horizontal)
		if err != nil {
			return nil, err
		}
		f.boats = append(f.boats, b)
	}
	return f, nil
}

// Remaining returns the boats not yet placed.
func (f *Fleet) Remaining() []Boat {
	out := make([]Boat, len(f.boats))
	copy(out, f.boats)
	return out
}

// Done reports whether every boat has been placed.
func (f *Fleet) Done() bool { return len(f.boats) == 0 }

// Select marks the i-th remaining boat as selected.
func (f *Fleet) Select(i int) error {
	if i < 0 || i >= len(f.boats) {
		return fmt.Errorf("select boat %d: only %d remaining", i, len(f.boats))
	}
	f.selected = i
	return nil
}

// Selected returns the currently selected boat.
func (f *Fleet) Selected() (Boat, bool) {
	if f.selected < 0 {
		return Boat{}, false
	}
	return f.boats[f.selected], true
}

// Rotate flips the orientation of the selected boat.
func (f *Fleet) Rotate() error {
	if f.selected < 0 {
		return ErrNoSelection
	}
	f.boats[f.selected].Orientation = f.boats[f.selected].Orientation.Rotate()
	return nil
}

// PlaceSelected places the selected boat on board at origin and removes it
// from the fleet. The selection is cleared on success only.
func (f *Fleet) PlaceSelected(board *Board, origin Cell) (Boat, error) {
	if f.selected < 0 {
		return Boat{}, ErrNoSelection
	}
	placed, err := board.Place(f.boats[f.selected], origin)
	if err != nil {
		return Boat{}, err
	}
	f.boats = append(f.boats[:f.selected], f.boats[f.selected+1:]...)
	f.selected = -1
	return placed, nil
}
