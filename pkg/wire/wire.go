// Package wire maps between typed turn messages and the rules engine's
// line-oriented text protocol: one message per line, space-separated integer
// fields, the first field being a tag.
//
// The codec is stateless. Encoders never emit a partial batch and decoders never
// return a partially filled message; callers see either a value or an error.
package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Line tags. Tag 4 means Attack on the way to the engine and OpponentShot on
// the way back; DecodeCommand and DecodeMessage resolve the direction.
const (
	TagAttack       = 4
	TagOpponentShot = 4
	TagUseItem      = 5
	TagBatch        = 8
	TagCellStatus   = 9
	TagGameOver     = 777
)

// Cell status values reported with TagCellStatus. Negative values report a hit
// on the boat whose id is the absolute value.
const (
	StatusNeutral = 0
	StatusMiss    = 99
)

// Torpedo orientation codes.
const (
	OrientationHorizontal = 0
	OrientationVertical   = 1
)

var (
	ErrUnknownTag = errors.New("unknown tag")
	ErrMalformed  = errors.New("malformed line")
)

// ProtocolError reports a line that could not be decoded.
type ProtocolError struct {
	Line   string
	Reason string
	Err    error // ErrUnknownTag or ErrMalformed
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wire: %v: %s: %q", e.Err, e.Reason, e.Line)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func malformed(line, format string, args ...any) error {
	return &ProtocolError{Line: line, Reason: fmt.Sprintf(format, args...), Err: ErrMalformed}
}

func unknownTag(line string, tag int) error {
	return &ProtocolError{Line: line, Reason: fmt.Sprintf("tag %d", tag), Err: ErrUnknownTag}
}

// fields splits line and parses every token as an int. The tag is fields[0].
func fields(line string) ([]int, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil, malformed(line, "empty line")
	}
	out := make([]int, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, malformed(line, "field %d is not an integer", i)
		}
		out[i] = v
	}
	return out, nil
}

// expect checks the field count for a tag, counting the tag itself.
func expect(line string, f []int, n int) error {
	if len(f) != n {
		return malformed(line, "tag %d wants %d fields, got %d", f[0], n, len(f))
	}
	return nil
}

func checkCell(line string, row, col int) error {
	if row < 0 || col < 0 {
		return malformed(line, "negative cell %d,%d", row, col)
	}
	return nil
}

// Header returns the batch header line announcing n payload lines.
func Header(n int) string {
	return fmt.Sprintf("%d %d", TagBatch, n)
}

// DecodeHeader parses a batch header line and returns the declared count.
func DecodeHeader(line string) (int, error) {
	f, err := fields(line)
	if err != nil {
		return 0, err
	}
	if f[0] != TagBatch {
		return 0, malformed(line, "expected batch header, got tag %d", f[0])
	}
	if err := expect(line, f, 2); err != nil {
		return 0, err
	}
	if f[1] < 0 {
		return 0, malformed(line, "negative batch size %d", f[1])
	}
	return f[1], nil
}

// IsGameOver reports whether line is a well-formed game-over message. A line
// that only carries the tag does not end a batch, so the reader keeps consuming
// the declared count and the stream stays framed.
func IsGameOver(line string) bool {
	f := strings.Fields(line)
	if len(f) == 0 || f[0] != strconv.Itoa(TagGameOver) {
		return false
	}
	msg, err := DecodeMessage(line)
	if err != nil {
		return false
	}
	_, ok := msg.(GameOver)
	return ok
}

// Batch is one framed response: the count announced by the header and the
// payload lines actually read. Lines may be shorter than Declared only when a
// game-over line ended the read early.
type Batch struct {
	Declared int
	Lines    []string
}

// Truncated reports whether the read stopped before the declared count.
func (b Batch) Truncated() bool { return len(b.Lines) < b.Declared }

// ValidateBatch checks that lines start with a header whose count equals the
// number of payload lines that follow.
func ValidateBatch(lines []string) error {
	if len(lines) == 0 {
		return malformed("", "empty batch")
	}
	n, err := DecodeHeader(lines[0])
	if err != nil {
		return err
	}
	if n != len(lines)-1 {
		return malformed(lines[0], "header declares %d lines, batch carries %d", n, len(lines)-1)
	}
	return nil
}
