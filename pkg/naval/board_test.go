package naval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBoat(t *testing.T, length int, o Orientation) Boat {
	t.Helper()
	b, err := NewBoat(length, o)
	require.NoError(t, err)
	return b
}

// assertNoOverlap checks that no cell is claimed by two placed boats.
func assertNoOverlap(t *testing.T, board *Board) {
	t.Helper()
	owner := map[Cell]int{}
	for _, b := range board.Boats() {
		for _, c := range b.Cells() {
			if prev, ok := owner[c]; ok {
				t.Fatalf("cell %s claimed by boats %d and %d", c, prev, b.ID)
			}
			owner[c] = b.ID
		}
	}
}

func TestNewBoard_InvalidSize(t *testing.T) {
	_, err := NewBoard(0, 10)
	assert.ErrorIs(t, err, ErrInvalidSize)
	_, err = NewBoard(10, -1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestNewBoat_Validation(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		o       Orientation
		wantErr error
	}{
		{"ok horizontal", 3, Horizontal, nil},
		{"ok vertical", 5, Vertical, nil},
		{"too short", 1, Horizontal, ErrInvalidLength},
		{"too long", 6, Vertical, ErrInvalidLength},
		{"unset orientation", 3, 0, ErrInvalidOrientation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBoat(tt.length, tt.o)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.False(t, b.Placed)
			assert.Zero(t, b.ID)
		})
	}
}

func TestBoard_PlaceAssignsSequentialIDs(t *testing.T) {
	board, err := NewBoard(10, 10)
	require.NoError(t, err)

	first, err := board.Place(mustBoat(t, 2, Horizontal), Cell{Row: 0, Col: 0})
	require.NoError(t, err)
	second, err := board.Place(mustBoat(t, 3, Vertical), Cell{Row: 2, Col: 4})
	require.NoError(t, err)

	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)
	assert.True(t, second.Placed)
	assert.Equal(t, 1, board.BoatAt(Cell{Row: 0, Col: 1}))
	assert.Equal(t, 2, board.BoatAt(Cell{Row: 4, Col: 4}))
	assert.Equal(t, 0, board.BoatAt(Cell{Row: 5, Col: 4}))
	assertNoOverlap(t, board)
}

func TestBoard_PlaceRejections(t *testing.T) {
	board, err := NewBoard(10, 10)
	require.NoError(t, err)
	_, err = board.Place(mustBoat(t, 4, Horizontal), Cell{Row: 5, Col: 3})
	require.NoError(t, err)

	tests := []struct {
		name    string
		boat    Boat
		origin  Cell
		wantErr error
	}{
		{"crosses right edge", mustBoat(t, 3, Horizontal), Cell{Row: 0, Col: 8}, ErrOutOfBounds},
		{"crosses bottom edge", mustBoat(t, 5, Vertical), Cell{Row: 7, Col: 0}, ErrOutOfBounds},
		{"negative origin", mustBoat(t, 2, Vertical), Cell{Row: -1, Col: 0}, ErrOutOfBounds},
		{"overlaps existing", mustBoat(t, 3, Vertical), Cell{Row: 4, Col: 5}, ErrOverlap},
		{"already placed", Boat{Length: 2, Orientation: Horizontal, Placed: true}, Cell{}, ErrAlreadyPlaced},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := board.Place(tt.boat, tt.origin)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, board.Boats(), 1, "failed placement must not mutate the board")
			assertNoOverlap(t, board)
		})
	}
}

func TestBoard_NoOverlapAfterEveryPlacement(t *testing.T) {
	board, err := NewBoard(6, 6)
	require.NoError(t, err)

	attempts := []struct {
		length int
		o      Orientation
		origin Cell
	}{
		{5, Horizontal, Cell{0, 0}},
		{4, Vertical, Cell{0, 2}},
		{4, Vertical, Cell{1, 2}},
		{3, Horizontal, Cell{3, 3}},
		{3, Vertical, Cell{2, 4}},
		{2, Vertical, Cell{4, 0}},
		{2, Horizontal, Cell{5, 0}},
	}
	for _, a := range attempts {
		board.Place(mustBoat(t, a.length, a.o), a.origin)
		assertNoOverlap(t, board)
	}
	for i, b := range board.Boats() {
		assert.Equal(t, i+1, b.ID)
	}
}

func TestBoard_MarkAndCount(t *testing.T) {
	board, err := NewBoard(4, 3)
	require.NoError(t, err)

	require.NoError(t, board.Mark(Cell{1, 1}, Hit))
	require.NoError(t, board.Mark(Cell{2, 3}, Miss))
	assert.ErrorIs(t, board.Mark(Cell{3, 0}, Hit), ErrOutOfBounds)

	assert.Equal(t, Hit, board.State(Cell{1, 1}))
	assert.Equal(t, Untouched, board.State(Cell{9, 9}))
	assert.Equal(t, 1, board.Count(Hit))
	assert.Equal(t, 1, board.Count(Miss))
	assert.Equal(t, 10, board.Count(Untouched))

	grid := board.StateGrid()
	grid[0][0] = Hit
	assert.Equal(t, Untouched, board.State(Cell{0, 0}), "StateGrid must return a copy")
}

func TestBoard_IsBorder(t *testing.T) {
	board, err := NewBoard(10, 10)
	require.NoError(t, err)

	assert.True(t, board.IsBorder(Cell{0, 4}))
	assert.True(t, board.IsBorder(Cell{9, 9}))
	assert.True(t, board.IsBorder(Cell{4, 0}))
	assert.True(t, board.IsBorder(Cell{5, 9}))
	assert.False(t, board.IsBorder(Cell{4, 4}))
	assert.False(t, board.IsBorder(Cell{10, 0}))
}

func TestFleet_SelectRotatePlace(t *testing.T) {
	fleet, err := NewFleet()
	require.NoError(t, err)
	require.Len(t, fleet.Remaining(), len(StandardFleet))

	board, err := NewBoard(10, 10)
	require.NoError(t, err)

	assert.ErrorIs(t, fleet.Rotate(), ErrNoSelection)
	_, err = fleet.PlaceSelected(board, Cell{})
	assert.ErrorIs(t, err, ErrNoSelection)

	require.NoError(t, fleet.Select(4))
	require.NoError(t, fleet.Rotate())
	sel, ok := fleet.Selected()
	require.True(t, ok)
	assert.Equal(t, 5, sel.Length)
	assert.Equal(t, Vertical, sel.Orientation)

	// Out of bounds keeps the boat selected in the fleet.
	_, err = fleet.PlaceSelected(board, Cell{Row: 7, Col: 0})
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.Len(t, fleet.Remaining(), 5)

	placed, err := fleet.PlaceSelected(board, Cell{Row: 0, Col: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, placed.ID)
	assert.Len(t, fleet.Remaining(), 4)
	_, ok = fleet.Selected()
	assert.False(t, ok)

	assert.Error(t, fleet.Select(4))
}

func TestFleet_InvalidLength(t *testing.T) {
	_, err := NewFleet(2, 7)
	assert.ErrorIs(t, err, ErrInvalidLength)
}
