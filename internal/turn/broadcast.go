package turn

import "github.com/freeeve/broadside/pkg/naval"

// Spectator event types.
const (
	EventMatchStarted       = "match_started"
	EventTurnResolved       = "turn_resolved"
	EventConnectionDegraded = "connection_degraded"
	EventMatchOver          = "match_over"
)

// OutcomeAbandoned is the MatchEnded outcome when the player quits.
const OutcomeAbandoned = "abandoned"

// MatchEvent is a payload published to spectators.
type MatchEvent interface {
	EventType() string
}

// ItemStock is one inventory line.
type ItemStock struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

// StockOf converts inventory items for publishing.
func StockOf(items []naval.ConsumableItem) []ItemStock {
	out := make([]ItemStock, len(items))
	for i, it := range items {
		out[i] = ItemStock{Item: it.Kind.String(), Quantity: it.Quantity}
	}
	return out
}

// MatchStarted is sent once the engine has accepted the setup.
type MatchStarted struct {
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Items  []ItemStock `json:"items"`
}

func (MatchStarted) EventType() string { return EventMatchStarted }

// EventType makes a resolved turn publishable as is.
func (TurnResult) EventType() string { return EventTurnResolved }

// ConnectionDegraded is sent when consecutive failures reach the limit.
type ConnectionDegraded struct {
	Failures int `json:"failures"`
}

func (ConnectionDegraded) EventType() string { return EventConnectionDegraded }

// MatchEnded closes a match. Outcome is "victory", "defeat" or "abandoned".
type MatchEnded struct {
	Outcome string `json:"outcome"`
}

func (MatchEnded) EventType() string { return EventMatchOver }

// Broadcaster sends match events to spectators.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	BroadcastMatchEvent(matchID string, ev MatchEvent)
}

// NoopBroadcaster is used when no spectator server is running.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastMatchEvent(string, MatchEvent) {}
