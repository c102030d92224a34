package turn

import (
	"context"
	"errors"
	"sync"

	"github.com/freeeve/broadside/pkg/engine"
	"github.com/freeeve/broadside/pkg/wire"
)

// mockSession replays canned response batches.
type mockSession struct {
	alive      bool
	responses  [][]string
	errs       []error
	written    [][]string
	terminated int
}

func newMockSession(responses ...[]string) *mockSession {
	return &mockSession{alive: true, responses: responses}
}

func (m *mockSession) IsAlive() bool { return m.alive }

func (m *mockSession) SubmitTurn(_ context.Context, lines []string) (wire.Batch, error) {
	if !m.alive {
		return wire.Batch{}, &engine.SessionError{Kind: engine.NotAlive, Err: errors.New("engine process is not running")}
	}
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			m.written = append(m.written, lines)
			return wire.Batch{}, err
		}
	}
	if err := wire.ValidateBatch(lines); err != nil {
		return wire.Batch{}, &engine.SessionError{Kind: engine.WriteFailed, Err: err}
	}
	m.written = append(m.written, lines)
	if len(m.responses) == 0 {
		return wire.Batch{}, &engine.SessionError{Kind: engine.ReadFailed, Err: errors.New("no response queued")}
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]

	n, err := wire.DecodeHeader(resp[0])
	if err != nil {
		return wire.Batch{}, &engine.SessionError{Kind: engine.MalformedHeader, Err: err}
	}
	batch := wire.Batch{Declared: n}
	for _, line := range resp[1:] {
		batch.Lines = append(batch.Lines, line)
		if wire.IsGameOver(line) {
			break
		}
	}
	return batch, nil
}

func (m *mockSession) Terminate() error {
	m.terminated++
	m.alive = false
	return nil
}

type event struct {
	matchID string
	kind    string
	data    MatchEvent
}

// recordingBroadcaster captures broadcast events.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []event
}

func (r *recordingBroadcaster) BroadcastMatchEvent(matchID string, ev MatchEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{matchID, ev.EventType(), ev})
}

func (r *recordingBroadcaster) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.kind
	}
	return out
}
