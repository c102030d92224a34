package naval

import (
	"errors"
	"fmt"
)

// CellState is the recorded outcome of attacks against one cell.
type CellState int

const (
	Untouched CellState = iota
	Miss
	Hit
	// Marked records an opponent shot landing on our own board. It is kept
	// apart from Miss and Hit and is only used for visual bookkeeping.
	Marked
)

func (s CellState) String() string {
	switch s {
	case Untouched:
		return "untouched"
	case Miss:
		return "miss"
	case Hit:
		return "hit"
	case Marked:
		return "marked"
	}
	return fmt.Sprintf("CellState(%d)", int(s))
}

var ErrInvalidSize = errors.New("board width and height must be at least 1")

// Board is a fixed-size grid with a placement layer (which boat occupies each
// cell) and a state layer (what prior attacks revealed about each cell).
type Board struct {
	width     int
	height    int
	placement [][]int
	state     [][]CellState
	boats     []Boat
}

// NewBoard creates an empty width x height board.
func NewBoard(width, height int) (*Board, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidSize, width, height)
	}
	b := &Board{
		width:     width,
		height:    height,
		placement: make([][]int, height),
		state:     make([][]CellState, height),
	}
	for r := 0; r < height; r++ {
		b.placement[r] = make([]int, width)
		b.state[r] = make([]CellState, width)
	}
	return b, nil
}

func (b *Board) Width() int  { return b.width }
func (b *Board) Height() int { return b.height }

// InBounds reports whether c lies on the board.
func (b *Board) InBounds(c Cell) bool {
	return c.Row >= 0 && c.Row < b.height && c.Col >= 0 && c.Col < b.width
}

// IsBorder reports whether c is on the outermost ring of the board.
func (b *Board) IsBorder(c Cell) bool {
	if !b.InBounds(c) {
		return false
	}
	return c.Row == 0 || c.Col == 0 || c.Row == b.height-1 || c.Col == b.width-1
}

// Place commits boat to the board with its first segment at origin. The boat
// receives the next id (1-based, in placement order) and is returned with
// Placed set. The board is left untouched when placement fails.
func (b *Board) Place(boat Boat, origin Cell) (Boat, error) {
	if boat.Placed {
		return boat, ErrAlreadyPlaced
	}
	if !boat.Orientation.Valid() {
		return boat, ErrInvalidOrientation
	}
	if boat.Length < MinBoatLength || boat.Length > MaxBoatLength {
		return boat, fmt.Errorf("%w: got %d", ErrInvalidLength, boat.Length)
	}

	cells := boat.CellsAt(origin)
	for _, c := range cells {
		if !b.InBounds(c) {
			return boat, fmt.Errorf("%w: %s", ErrOutOfBounds, c)
		}
		if id := b.placement[c.Row][c.Col]; id != 0 {
			return boat, fmt.Errorf("%w: boat %d at %s", ErrOverlap, id, c)
		}
	}

	boat.ID = len(b.boats) + 1
	boat.Origin = origin
	boat.Placed = true
	for _, c := range cells {
		b.placement[c.Row][c.Col] = boat.ID
	}
	b.boats = append(b.boats, boat)
	return boat, nil
}

// Boats returns a copy of the placed boats in placement order.
func (b *Board) Boats() []Boat {
	out := make([]Boat, len(b.boats))
	copy(out, b.boats)
	return out
}

// Boat returns the placed boat with the given id.
func (b *Board) Boat(id int) (Boat, bool) {
	if id < 1 || id > len(b.boats) {
		return Boat{}, false
	}
	return b.boats[id-1], true
}

// BoatAt returns the id of the boat occupying c, or 0 for open water.
func (b *Board) BoatAt(c Cell) int {
	if !b.InBounds(c) {
		return 0
	}
	return b.placement[c.Row][c.Col]
}

// State returns the recorded state of c. Out-of-bounds cells read as Untouched.
func (b *Board) State(c Cell) CellState {
	if !b.InBounds(c) {
		return Untouched
	}
	return b.state[c.Row][c.Col]
}

// Mark records s for cell c.
func (b *Board) Mark(c Cell, s CellState) error {
	if !b.InBounds(c) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, c)
	}
	b.state[c.Row][c.Col] = s
	return nil
}

// Count returns how many cells are in state s.
func (b *Board) Count(s CellState) int {
	n := 0
	for _, row := range b.state {
		for _, v := range row {
			if v == s {
				n++
			}
		}
	}
	return n
}

// PlacementGrid returns a copy of the placement layer, row-major, with 0 for
// empty cells and the boat id for occupied ones.
func (b *Board) PlacementGrid() [][]int {
	out := make([][]int, b.height)
	for r, row := range b.placement {
		out[r] = append([]int(nil), row...)
	}
	return out
}

// StateGrid returns a copy of the state layer, row-major.
func (b *Board) StateGrid() [][]CellState {
	out := make([][]CellState, b.height)
	for r, row := range b.state {
		out[r] = append([]CellState(nil), row...)
	}
	return out
}
