package naval

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// itemsHeader prefixes the item count line in the setup payload.
const itemsHeader = "N objetos:"

var ErrMalformedSetup = errors.New("malformed setup payload")

// Setup is the payload handed to the rules engine at match start. Grid is
// row-major, height rows of width ints: 0 for water, a boat id otherwise.
type Setup struct {
	MatchID string
	Width   int
	Height  int
	Grid    [][]int
	Items   []ConsumableItem
}

// NewSetup snapshots board and inventory into a payload for matchID.
func NewSetup(matchID string, board *Board, inv *Inventory) Setup {
	s := Setup{
		MatchID: matchID,
		Width:   board.Width(),
		Height:  board.Height(),
		Grid:    board.PlacementGrid(),
	}
	if inv != nil {
		s.Items = inv.Items()
	}
	return s
}

// WriteTo writes the payload in the engine's line format:
//
//	<match id>
//	<width> <height>
//	<height rows of width space-separated ints>
//	N objetos: <k>
//	<k lines of "<item id> <quantity>">
func (s Setup) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", s.MatchID)
	fmt.Fprintf(&sb, "%d %d\n", s.Width, s.Height)
	for _, row := range s.Grid {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = strconv.Itoa(v)
		}
		sb.WriteString(strings.Join(cells, " "))
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "%s %d\n", itemsHeader, len(s.Items))
	for _, it := range s.Items {
		fmt.Fprintf(&sb, "%d %d\n", it.Kind.ID(), it.Quantity)
	}
	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

// ParseSetup reads a payload written by WriteTo.
func ParseSetup(r io.Reader) (Setup, error) {
	var s Setup
	sc := bufio.NewScanner(r)
	lineNo := 0
	next := func() (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("%w: unexpected end after line %d", ErrMalformedSetup, lineNo)
		}
		lineNo++
		return strings.TrimSpace(sc.Text()), nil
	}

	line, err := next()
	if err != nil {
		return s, err
	}
	if line == "" {
		return s, fmt.Errorf("%w: empty match id", ErrMalformedSetup)
	}
	s.MatchID = line

	line, err = next()
	if err != nil {
		return s, err
	}
	dims, err := parseInts(line, 2)
	if err != nil {
		return s, fmt.Errorf("%w: line %d: %v", ErrMalformedSetup, lineNo, err)
	}
	s.Width, s.Height = dims[0], dims[1]
	if s.Width < 1 || s.Height < 1 {
		return s, fmt.Errorf("%w: size %dx%d", ErrMalformedSetup, s.Width, s.Height)
	}

	s.Grid = make([][]int, s.Height)
	for r := 0; r < s.Height; r++ {
		line, err = next()
		if err != nil {
			return s, err
		}
		row, err := parseInts(line, s.Width)
		if err != nil {
			return s, fmt.Errorf("%w: line %d: %v", ErrMalformedSetup, lineNo, err)
		}
		for _, v := range row {
			if v < 0 {
				return s, fmt.Errorf("%w: line %d: negative boat id %d", ErrMalformedSetup, lineNo, v)
			}
		}
		s.Grid[r] = row
	}

	line, err = next()
	if err != nil {
		return s, err
	}
	countStr, ok := strings.CutPrefix(line, itemsHeader)
	if !ok {
		return s, fmt.Errorf("%w: line %d: expected %q", ErrMalformedSetup, lineNo, itemsHeader)
	}
	count, err := strconv.Atoi(strings.TrimSpace(countStr))
	if err != nil || count < 0 {
		return s, fmt.Errorf("%w: line %d: bad item count %q", ErrMalformedSetup, lineNo, countStr)
	}

	for i := 0; i < count; i++ {
		line, err = next()
		if err != nil {
			return s, err
		}
		pair, err := parseInts(line, 2)
		if err != nil {
			return s, fmt.Errorf("%w: line %d: %v", ErrMalformedSetup, lineNo, err)
		}
		kind, err := ItemKindFromID(pair[0])
		if err != nil {
			return s, fmt.Errorf("%w: line %d: %v", ErrMalformedSetup, lineNo, err)
		}
		s.Items = append(s.Items, ConsumableItem{Kind: kind, Quantity: pair[1]})
	}
	return s, nil
}

// Inventory builds an inventory from the payload's item list.
func (s Setup) Inventory() (*Inventory, error) {
	return NewInventory(s.Items...)
}

// parseInts splits line on whitespace and expects exactly n integers.
func parseInts(line string, n int) ([]int, error) {
	fields := strings.Fields(line)
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d fields, got %d", n, len(fields))
	}
	out := make([]int, n)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
