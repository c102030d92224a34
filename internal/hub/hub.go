// Package hub streams match events to WebSocket spectators. Spectators
// subscribe to a match id and receive every event the turn controller
// publishes for it.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/broadside/internal/turn"
)

// EventSnapshot is sent to a spectator that subscribes to a match already
// under way.
const EventSnapshot = "snapshot"

// Event is the envelope for all WebSocket messages.
type Event struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id"`
	Data    any    `json:"data"`
}

// ClientMessage is the envelope for messages sent from a spectator.
type ClientMessage struct {
	Action  string `json:"action"` // "subscribe" or "unsubscribe"
	MatchID string `json:"match_id"`
}

// Snapshot folds the events published for one match.
type Snapshot struct {
	Started       *turn.MatchStarted `json:"started,omitempty"`
	Turns         int                `json:"turns"`
	Hits          int                `json:"hits"`
	Misses        int                `json:"misses"`
	OpponentShots int                `json:"opponentShots"`
	Degraded      bool               `json:"degraded"`
	Outcome       string             `json:"outcome,omitempty"`
}

func (s *Snapshot) apply(ev turn.MatchEvent) {
	switch e := ev.(type) {
	case turn.MatchStarted:
		s.Started = &e
	case turn.TurnResult:
		s.Turns++
		s.Degraded = e.Degraded
		for _, eff := range e.Effects {
			switch eff.Kind {
			case turn.EffectHit:
				s.Hits++
			case turn.EffectMiss:
				s.Misses++
			case turn.EffectOpponentShot:
				s.OpponentShots++
			}
		}
	case turn.ConnectionDegraded:
		s.Degraded = true
	case turn.MatchEnded:
		s.Outcome = e.Outcome
	}
}

// Spectator wraps a WebSocket connection and its outbound queue.
type Spectator struct {
	conn   *websocket.Conn
	remote string
	send   chan []byte
}

// Hub manages spectator connections and match subscriptions.
type Hub struct {
	mu         sync.RWMutex
	spectators map[*Spectator]bool
	matches    map[string]map[*Spectator]bool // matchID -> set of spectators
	snapshots  map[string]*Snapshot
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{
		spectators: make(map[*Spectator]bool),
		matches:    make(map[string]map[*Spectator]bool),
		snapshots:  make(map[string]*Snapshot),
	}
}

// Register adds a spectator to the hub.
func (h *Hub) Register(s *Spectator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.spectators[s] = true
}

// Unregister removes a spectator and all its subscriptions, then closes its
// queue.
func (h *Hub) Unregister(s *Spectator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.spectators[s] {
		return
	}
	delete(h.spectators, s)
	for id, subs := range h.matches {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.matches, id)
		}
	}
	close(s.send)
}

// Subscribe adds a spectator to a match channel. If the match has published
// events already, the spectator is first sent a snapshot of them.
func (h *Hub) Subscribe(s *Spectator, matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.spectators[s] {
		return
	}
	if h.matches[matchID] == nil {
		h.matches[matchID] = make(map[*Spectator]bool)
	}
	h.matches[matchID][s] = true

	snap, ok := h.snapshots[matchID]
	if !ok {
		return
	}
	data, err := json.Marshal(Event{Type: EventSnapshot, MatchID: matchID, Data: snap})
	if err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("Failed to marshal snapshot")
		return
	}
	select {
	case s.send <- data:
	default:
	}
}

// Unsubscribe removes a spectator from a match channel.
func (h *Hub) Unsubscribe(s *Spectator, matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.matches[matchID]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.matches, matchID)
		}
	}
}

// Publish sends an event to every spectator of a match. Spectators whose
// queue is full miss the event.
func (h *Hub) Publish(matchID string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("Failed to marshal spectator event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.matches[matchID] {
		select {
		case s.send <- data:
		default:
			log.Warn().Str("remote", s.remote).Str("matchId", matchID).Msg("Dropping spectator event, buffer full")
		}
	}
}

// BroadcastMatchEvent implements turn.Broadcaster. The event is folded into
// the match snapshot before it is published.
func (h *Hub) BroadcastMatchEvent(matchID string, ev turn.MatchEvent) {
	h.mu.Lock()
	snap := h.snapshots[matchID]
	if snap == nil {
		snap = &Snapshot{}
		h.snapshots[matchID] = snap
	}
	snap.apply(ev)
	h.mu.Unlock()

	h.Publish(matchID, Event{
		Type:    ev.EventType(),
		MatchID: matchID,
		Data:    ev,
	})
}

// Snapshot returns the folded state of a match, if it has published anything.
func (h *Hub) Snapshot(matchID string) (Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	snap, ok := h.snapshots[matchID]
	if !ok {
		return Snapshot{}, false
	}
	return *snap, true
}

// SpectatorCount returns the number of connected spectators.
func (h *Hub) SpectatorCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.spectators)
}

// MatchSubscriberCount returns the number of spectators following a match.
func (h *Hub) MatchSubscriberCount(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.matches[matchID])
}
