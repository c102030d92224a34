// Package turn drives one match: it collects the player's actions for the
// current turn, submits them to the engine as a single batch and applies the
// response to the boards.
package turn

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/broadside/internal/logger"
	"github.com/freeeve/broadside/pkg/naval"
	"github.com/freeeve/broadside/pkg/wire"
)

// DefaultMaxFailures is the number of consecutive failed submissions after
// which the connection is reported as degraded.
const DefaultMaxFailures = 3

var (
	ErrInvalidTorpedoPosition = errors.New("torpedo must be fired from a border cell")
	ErrMatchOver              = errors.New("match is over")
)

// State is the controller's position in the turn cycle.
type State int

const (
	AwaitingInput State = iota
	Submitting
	AwaitingResponse
	ApplyingEffects
	MatchOver
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting_input"
	case Submitting:
		return "submitting"
	case AwaitingResponse:
		return "awaiting_response"
	case ApplyingEffects:
		return "applying_effects"
	case MatchOver:
		return "match_over"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session is the engine connection a controller submits turns through.
type Session interface {
	IsAlive() bool
	SubmitTurn(ctx context.Context, lines []string) (wire.Batch, error)
	Terminate() error
}

// Option configures a Controller.
type Option func(*Controller)

// WithMatchID tags logs and broadcasts with id.
func WithMatchID(id string) Option {
	return func(c *Controller) { c.matchID = id }
}

// WithLogger sets the controller logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithBroadcaster sets where turn events are published.
func WithBroadcaster(b Broadcaster) Option {
	return func(c *Controller) { c.bc = b }
}

// WithMaxFailures sets the degraded threshold. Values below 1 are ignored.
func WithMaxFailures(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxFailures = n
		}
	}
}

// Controller is the turn state machine for one match. It owns both boards and
// the inventory; nothing else mutates them while the match runs. It is not
// safe for concurrent use.
type Controller struct {
	session  Session
	own      *naval.Board
	opponent *naval.Board
	inv      *naval.Inventory

	matchID     string
	log         zerolog.Logger
	bc          Broadcaster
	maxFailures int

	state    State
	attack   *naval.Cell
	items    []wire.UseItem
	failures int
	degraded bool
	outcome  wire.Result
	hits     map[int]int
}

// NewController creates a controller in AwaitingInput.
func NewController(session Session, own, opponent *naval.Board, inv *naval.Inventory, opts ...Option) *Controller {
	c := &Controller{
		session:     session,
		own:         own,
		opponent:    opponent,
		inv:         inv,
		log:         log.Logger,
		bc:          NoopBroadcaster{},
		maxFailures: DefaultMaxFailures,
		state:       AwaitingInput,
		hits:        make(map[int]int),
	}
	for _, o := range opts {
		o(c)
	}
	if c.matchID != "" {
		c.log = c.log.With().Str("matchId", c.matchID).Logger()
	}
	return c
}

// RecordAttack sets this turn's attack, replacing any earlier one.
func (c *Controller) RecordAttack(row, col int) error {
	if c.state == MatchOver {
		return ErrMatchOver
	}
	cell := naval.Cell{Row: row, Col: col}
	if !c.opponent.InBounds(cell) {
		return fmt.Errorf("attack: %w: %s", naval.ErrOutOfBounds, cell)
	}
	c.attack = &cell
	return nil
}

// RecordItemUse queues one use of kind at (row, col). Orientation is required
// for torpedoes and must be zero for every other item. The inventory is only
// charged once the engine accepts the turn, but queued uses count against it.
func (c *Controller) RecordItemUse(kind naval.ItemKind, row, col int, o naval.Orientation) error {
	if c.state == MatchOver {
		return ErrMatchOver
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: id %d", naval.ErrUnknownItem, int(kind))
	}
	cell := naval.Cell{Row: row, Col: col}
	if !c.opponent.InBounds(cell) {
		return fmt.Errorf("%s: %w: %s", kind, naval.ErrOutOfBounds, cell)
	}
	if c.pendingCount(kind) >= c.inv.Quantity(kind) {
		return fmt.Errorf("%w: %s", naval.ErrInsufficientQuantity, kind)
	}
	if kind.Directional() {
		if !o.Valid() {
			return fmt.Errorf("%s: %w", kind, naval.ErrInvalidOrientation)
		}
		if !c.opponent.IsBorder(cell) {
			return fmt.Errorf("%w: %s", ErrInvalidTorpedoPosition, cell)
		}
	} else if o != 0 {
		return fmt.Errorf("%s takes no orientation: %w", kind, naval.ErrInvalidOrientation)
	}

	c.items = append(c.items, wire.UseItem{Item: kind, Row: row, Col: col, Orientation: o})
	return nil
}

func (c *Controller) pendingCount(kind naval.ItemKind) int {
	n := 0
	for _, u := range c.items {
		if u.Item == kind {
			n++
		}
	}
	return n
}

// Submit sends the pending actions as one batch and applies the response.
// An empty turn is a no-op. Pending actions are cleared whatever the outcome.
//
// A session failure leaves the boards untouched and returns the controller to
// AwaitingInput; TurnResult.Degraded reports when consecutive failures reach
// the limit. A protocol error stops applying the batch but keeps the effects
// already applied. If the rejected batch was cut short by a game-over line the
// session is terminated.
func (c *Controller) Submit(ctx context.Context) (TurnResult, error) {
	if c.state == MatchOver {
		return TurnResult{}, ErrMatchOver
	}
	if c.attack == nil && len(c.items) == 0 {
		return TurnResult{Degraded: c.degraded}, nil
	}
	defer c.clearPending()

	c.state = Submitting
	cmds := make([]wire.Command, 0, len(c.items)+1)
	if c.attack != nil {
		cmds = append(cmds, wire.Attack{Row: c.attack.Row, Col: c.attack.Col})
	}
	for _, u := range c.items {
		cmds = append(cmds, u)
	}
	lines, err := wire.EncodeTurn(cmds...)
	if err != nil {
		c.state = AwaitingInput
		return TurnResult{Degraded: c.degraded}, fmt.Errorf("encode turn: %w", err)
	}

	c.state = AwaitingResponse
	logger.LogBatch(c.log, "Turn batch", lines)
	batch, err := c.session.SubmitTurn(ctx, lines)
	if err != nil {
		return c.fail(err)
	}
	logger.LogBatch(c.log, "Response batch", batch.Lines)
	c.failures = 0
	c.degraded = false

	for _, u := range c.items {
		if err := c.inv.Consume(u.Item); err != nil {
			c.log.Error().Err(err).Str("item", u.Item.String()).Msg("Inventory out of sync with accepted turn")
		}
	}

	c.state = ApplyingEffects
	res := TurnResult{Submitted: true}
	err = c.apply(batch, &res)
	if c.state != MatchOver {
		c.state = AwaitingInput
	}
	if err != nil {
		c.log.Error().Err(err).Int("applied", len(res.Effects)).Msg("Response batch rejected")
		if batch.Truncated() {
			// Declared lines after the game-over were never read.
			if terr := c.session.Terminate(); terr != nil {
				c.log.Warn().Err(terr).Msg("Failed to terminate engine")
			}
		}
		return res, err
	}

	c.log.Info().
		Int("sent", len(cmds)).
		Int("effects", len(res.Effects)).
		Bool("over", res.Over).
		Msg("Turn resolved")
	c.bc.BroadcastMatchEvent(c.matchID, res)
	if res.Over {
		c.bc.BroadcastMatchEvent(c.matchID, MatchEnded{Outcome: res.Outcome.String()})
	}
	return res, nil
}

func (c *Controller) clearPending() {
	c.attack = nil
	c.items = nil
}

// fail records a failed submission.
func (c *Controller) fail(err error) (TurnResult, error) {
	c.state = AwaitingInput
	c.failures++
	c.log.Warn().Err(err).Int("failures", c.failures).Msg("Turn submission failed")
	if c.failures >= c.maxFailures && !c.degraded {
		c.degraded = true
		c.log.Error().Int("failures", c.failures).Msg("Engine connection degraded")
		c.bc.BroadcastMatchEvent(c.matchID, ConnectionDegraded{Failures: c.failures})
	}
	return TurnResult{Degraded: c.degraded}, fmt.Errorf("submit turn: %w", err)
}

// apply decodes batch lines in order and applies each before decoding the
// next. It stops at the first game-over line.
func (c *Controller) apply(batch wire.Batch, res *TurnResult) error {
	for _, line := range batch.Lines {
		msg, err := wire.DecodeMessage(line)
		if err != nil {
			return err
		}
		switch m := msg.(type) {
		case wire.OpponentShot:
			cell := naval.Cell{Row: m.Row, Col: m.Col}
			if err := c.own.Mark(cell, naval.Marked); err != nil {
				return &wire.ProtocolError{Line: line, Reason: "opponent shot outside own board", Err: wire.ErrMalformed}
			}
			res.Effects = append(res.Effects, Effect{Kind: EffectOpponentShot, Cell: cell})

		case wire.CellStatus:
			cell := naval.Cell{Row: m.Row, Col: m.Col}
			if !c.opponent.InBounds(cell) {
				return &wire.ProtocolError{Line: line, Reason: "status outside opponent board", Err: wire.ErrMalformed}
			}
			switch {
			case m.Destroyed():
				c.opponent.Mark(cell, naval.Hit)
				c.hits[m.BoatID()]++
				res.Effects = append(res.Effects, Effect{Kind: EffectHit, Cell: cell, BoatID: m.BoatID()})
				c.log.Debug().Int("row", m.Row).Int("col", m.Col).Int("boat", m.BoatID()).Msg("Boat segment destroyed")
			case m.Miss():
				c.opponent.Mark(cell, naval.Miss)
				res.Effects = append(res.Effects, Effect{Kind: EffectMiss, Cell: cell})
			default:
				res.Effects = append(res.Effects, Effect{Kind: EffectNeutral, Cell: cell})
			}

		case wire.GameOver:
			c.state = MatchOver
			c.outcome = m.Result
			res.Over = true
			res.Outcome = m.Result
			res.Effects = append(res.Effects, Effect{Kind: EffectGameOver, Result: m.Result})
			c.log.Info().Str("outcome", m.Result.String()).Msg("Match over")
			if err := c.session.Terminate(); err != nil {
				c.log.Warn().Err(err).Msg("Failed to terminate engine")
			}
			return nil

		default:
			return &wire.ProtocolError{Line: line, Reason: fmt.Sprintf("unexpected tag %d in response", msg.Tag()), Err: wire.ErrMalformed}
		}
	}
	return nil
}

// End terminates the session without an outcome. It is a no-op once the
// match is over.
func (c *Controller) End() error {
	if c.state == MatchOver {
		return nil
	}
	c.state = MatchOver
	c.clearPending()
	c.log.Info().Msg("Match ended by player")
	c.bc.BroadcastMatchEvent(c.matchID, MatchEnded{Outcome: OutcomeAbandoned})
	return c.session.Terminate()
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Outcome returns the result carried by the game-over line, or 0 if the match
// has not ended that way.
func (c *Controller) Outcome() wire.Result { return c.outcome }

// Failures returns the count of consecutive failed submissions.
func (c *Controller) Failures() int { return c.failures }

// Degraded reports whether the failure limit has been reached since the last
// successful submission.
func (c *Controller) Degraded() bool { return c.degraded }

// Alive reports whether the engine session is still usable.
func (c *Controller) Alive() bool { return c.session.IsAlive() }

// PendingAttack returns the attack recorded for this turn, if any.
func (c *Controller) PendingAttack() (naval.Cell, bool) {
	if c.attack == nil {
		return naval.Cell{}, false
	}
	return *c.attack, true
}

// PendingItems returns a copy of the item uses recorded for this turn.
func (c *Controller) PendingItems() []wire.UseItem {
	return append([]wire.UseItem(nil), c.items...)
}

// OwnGrid returns a copy of our board's state layer.
func (c *Controller) OwnGrid() [][]naval.CellState { return c.own.StateGrid() }

// OpponentGrid returns a copy of the opponent board's state layer.
func (c *Controller) OpponentGrid() [][]naval.CellState { return c.opponent.StateGrid() }

// Quantity returns the remaining stock of kind.
func (c *Controller) Quantity(kind naval.ItemKind) int { return c.inv.Quantity(kind) }

// Items returns the remaining stock.
func (c *Controller) Items() []naval.ConsumableItem { return c.inv.Items() }

// HitsOn returns how many segments of opponent boat id have been destroyed.
func (c *Controller) HitsOn(id int) int { return c.hits[id] }
