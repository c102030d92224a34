package wire

import (
	"fmt"

	"github.com/freeeve/broadside/pkg/naval"
)

// Command is a message sent to the engine.
type Command interface {
	Encode() (string, error)
}

// Attack fires the turn's single shot at the opponent board.
type Attack struct {
	Row int
	Col int
}

func (a Attack) Encode() (string, error) {
	if a.Row < 0 || a.Col < 0 {
		return "", fmt.Errorf("wire: attack at negative cell %d,%d", a.Row, a.Col)
	}
	return fmt.Sprintf("%d %d %d", TagAttack, a.Row, a.Col), nil
}

// UseItem spends one consumable at a cell. Orientation is required for
// directional items and must be left unset for the others.
type UseItem struct {
	Item        naval.ItemKind
	Row         int
	Col         int
	Orientation naval.Orientation
}

func (u UseItem) Encode() (string, error) {
	if !u.Item.Valid() {
		return "", fmt.Errorf("wire: %w: id %d", naval.ErrUnknownItem, int(u.Item))
	}
	if u.Row < 0 || u.Col < 0 {
		return "", fmt.Errorf("wire: %s at negative cell %d,%d", u.Item, u.Row, u.Col)
	}
	if !u.Item.Directional() {
		if u.Orientation != 0 {
			return "", fmt.Errorf("wire: %s does not take an orientation", u.Item)
		}
		return fmt.Sprintf("%d %d %d %d", TagUseItem, u.Item.ID(), u.Row, u.Col), nil
	}
	code, err := orientationCode(u.Orientation)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d %d %d %d", TagUseItem, u.Item.ID(), u.Row, u.Col, code), nil
}

// EndTurn is the header that opens an outbound turn batch.
type EndTurn struct {
	BatchSize int
}

func (e EndTurn) Encode() (string, error) {
	if e.BatchSize < 0 {
		return "", fmt.Errorf("wire: negative batch size %d", e.BatchSize)
	}
	return Header(e.BatchSize), nil
}

// EncodeTurn frames cmds as one batch: an EndTurn header declaring len(cmds)
// followed by one line per command, in order. Nothing is returned unless every
// command encodes.
func EncodeTurn(cmds ...Command) ([]string, error) {
	lines := make([]string, 0, len(cmds)+1)
	header, err := EndTurn{BatchSize: len(cmds)}.Encode()
	if err != nil {
		return nil, err
	}
	lines = append(lines, header)
	for i, c := range cmds {
		line, err := c.Encode()
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// DecodeCommand parses an engine-bound line. It is what the engine side of the
// pipe does and is used to check round-trips.
func DecodeCommand(line string) (Command, error) {
	f, err := fields(line)
	if err != nil {
		return nil, err
	}
	switch f[0] {
	case TagBatch:
		n, err := DecodeHeader(line)
		if err != nil {
			return nil, err
		}
		return EndTurn{BatchSize: n}, nil
	case TagAttack:
		if err := expect(line, f, 3); err != nil {
			return nil, err
		}
		if err := checkCell(line, f[1], f[2]); err != nil {
			return nil, err
		}
		return Attack{Row: f[1], Col: f[2]}, nil
	case TagUseItem:
		if len(f) != 4 && len(f) != 5 {
			return nil, malformed(line, "tag %d wants 4 or 5 fields, got %d", f[0], len(f))
		}
		kind, err := naval.ItemKindFromID(f[1])
		if err != nil {
			return nil, malformed(line, "%v", err)
		}
		if err := checkCell(line, f[2], f[3]); err != nil {
			return nil, err
		}
		u := UseItem{Item: kind, Row: f[2], Col: f[3]}
		switch {
		case kind.Directional() && len(f) == 5:
			o, err := orientationFromCode(f[4])
			if err != nil {
				return nil, malformed(line, "%v", err)
			}
			u.Orientation = o
		case kind.Directional():
			return nil, malformed(line, "%s needs an orientation", kind)
		case len(f) == 5:
			return nil, malformed(line, "%s does not take an orientation", kind)
		}
		return u, nil
	}
	return nil, unknownTag(line, f[0])
}

func orientationCode(o naval.Orientation) (int, error) {
	switch o {
	case naval.Horizontal:
		return OrientationHorizontal, nil
	case naval.Vertical:
		return OrientationVertical, nil
	}
	return 0, fmt.Errorf("wire: %w", naval.ErrInvalidOrientation)
}

func orientationFromCode(code int) (naval.Orientation, error) {
	switch code {
	case OrientationHorizontal:
		return naval.Horizontal, nil
	case OrientationVertical:
		return naval.Vertical, nil
	}
	return 0, fmt.Errorf("orientation code %d", code)
}
