package wire

import "fmt"

// Message is a line received from the engine.
type Message interface {
	Tag() int
	Encode() string
}

// BatchHeader opens a response and declares how many lines follow.
type BatchHeader struct {
	Count int
}

func (BatchHeader) Tag() int         { return TagBatch }
func (h BatchHeader) Encode() string { return Header(h.Count) }

// OpponentShot reports the opponent's attack landing on one of our cells.
type OpponentShot struct {
	Row int
	Col int
}

func (OpponentShot) Tag() int { return TagOpponentShot }
func (s OpponentShot) Encode() string {
	return fmt.Sprintf("%d %d %d", TagOpponentShot, s.Row, s.Col)
}

// CellStatus reports the outcome of our action on an opponent cell.
type CellStatus struct {
	Row   int
	Col   int
	Value int
}

func (CellStatus) Tag() int { return TagCellStatus }
func (c CellStatus) Encode() string {
	return fmt.Sprintf("%d %d %d %d", TagCellStatus, c.Row, c.Col, c.Value)
}

// Destroyed reports a hit segment; BoatID names the boat.
func (c CellStatus) Destroyed() bool { return c.Value < 0 }
func (c CellStatus) Miss() bool      { return c.Value == StatusMiss }
func (c CellStatus) Neutral() bool   { return c.Value == StatusNeutral }

// BoatID returns the id of the boat hit, or 0 when the status is not a hit.
func (c CellStatus) BoatID() int {
	if c.Value >= 0 {
		return 0
	}
	return -c.Value
}

// Result is the outcome carried by a game-over line.
type Result int

const (
	Defeat  Result = 1
	Victory Result = 2
)

func (r Result) String() string {
	switch r {
	case Defeat:
		return "defeat"
	case Victory:
		return "victory"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// GameOver ends the match. Nothing after it in a batch is meaningful.
type GameOver struct {
	Result Result
}

func (GameOver) Tag() int { return TagGameOver }
func (g GameOver) Encode() string {
	return fmt.Sprintf("%d %d", TagGameOver, int(g.Result))
}

// DecodeMessage parses a front-end-bound line.
func DecodeMessage(line string) (Message, error) {
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
		return BatchHeader{Count: n}, nil
	case TagOpponentShot:
		if err := expect(line, f, 3); err != nil {
			return nil, err
		}
		if err := checkCell(line, f[1], f[2]); err != nil {
			return nil, err
		}
		return OpponentShot{Row: f[1], Col: f[2]}, nil
	case TagCellStatus:
		if err := expect(line, f, 4); err != nil {
			return nil, err
		}
		if err := checkCell(line, f[1], f[2]); err != nil {
			return nil, err
		}
		if v := f[3]; v > 0 && v != StatusMiss {
			return nil, malformed(line, "unknown cell status %d", v)
		}
		return CellStatus{Row: f[1], Col: f[2], Value: f[3]}, nil
	case TagGameOver:
		if err := expect(line, f, 2); err != nil {
			return nil, err
		}
		r := Result(f[1])
		if r != Defeat && r != Victory {
			return nil, malformed(line, "unknown result %d", f[1])
		}
		return GameOver{Result: r}, nil
	}
	return nil, unknownTag(line, f[0])
}
