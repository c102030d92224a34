package turn

import (
	"fmt"

	"github.com/freeeve/broadside/pkg/naval"
	"github.com/freeeve/broadside/pkg/wire"
)

// EffectKind classifies one applied response line.
type EffectKind int

const (
	// EffectOpponentShot marks a cell of our own board hit by the opponent.
	EffectOpponentShot EffectKind = iota + 1
	// EffectHit marks an opponent cell as a destroyed boat segment.
	EffectHit
	EffectMiss
	// EffectNeutral is a status report that changes nothing.
	EffectNeutral
	EffectGameOver
)

func (k EffectKind) String() string {
	switch k {
	case EffectOpponentShot:
		return "opponent_shot"
	case EffectHit:
		return "hit"
	case EffectMiss:
		return "miss"
	case EffectNeutral:
		return "neutral"
	case EffectGameOver:
		return "game_over"
	}
	return fmt.Sprintf("EffectKind(%d)", int(k))
}

// Effect is one response line as it was applied to the boards.
type Effect struct {
	Kind   EffectKind  `json:"kind"`
	Cell   naval.Cell  `json:"cell"`
	BoatID int         `json:"boatId,omitempty"`
	Result wire.Result `json:"result,omitempty"`
}

// TurnResult describes a submission attempt.
type TurnResult struct {
	// Submitted is false when there was nothing to send.
	Submitted bool     `json:"submitted"`
	Effects   []Effect `json:"effects,omitempty"`
	// Over is set when a game-over line ended the match.
	Over    bool        `json:"over"`
	Outcome wire.Result `json:"outcome,omitempty"`
	// Degraded is set once consecutive failed submissions reach the limit.
	Degraded bool `json:"degraded"`
}
