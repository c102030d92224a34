// Package match starts a match against the rules engine: it writes the setup
// payload, launches the engine session and wires the turn controller, the
// shortcut detector and the spectator broadcaster together.
package match

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/freeeve/broadside/internal/cheat"
	"github.com/freeeve/broadside/internal/config"
	"github.com/freeeve/broadside/internal/logger"
	"github.com/freeeve/broadside/internal/turn"
	"github.com/freeeve/broadside/pkg/engine"
	"github.com/freeeve/broadside/pkg/naval"
)

// Shortcut keys.
const (
	KeyQuit   = "escape"
	KeyReveal = "x"

	revealPresses = 3
	revealSpan    = 60
)

// matchIDLength is how many characters of a UUID make up a match id.
const matchIDLength = 5

const payloadExt = ".txt"

// NewMatchID returns a short random match id.
func NewMatchID() string {
	return uuid.NewString()[:matchIDLength]
}

// WritePayload removes earlier payloads from dir and writes setup to
// <dir>/<match id>.txt. Files that are not payloads are left alone.
func WritePayload(dir string, setup naval.Setup) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	stale, err := filepath.Glob(filepath.Join(dir, "*"+payloadExt))
	if err != nil {
		return "", fmt.Errorf("list cache dir: %w", err)
	}
	for _, p := range stale {
		if info, err := os.Lstat(p); err != nil || !info.Mode().IsRegular() {
			continue
		}
		if err := os.Remove(p); err != nil {
			return "", fmt.Errorf("remove stale payload: %w", err)
		}
	}

	path := filepath.Join(dir, setup.MatchID+payloadExt)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create payload: %w", err)
	}
	if _, err := setup.WriteTo(f); err != nil {
		f.Close()
		return "", fmt.Errorf("write payload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close payload: %w", err)
	}
	return path, nil
}

// Match is one running match.
type Match struct {
	id          string
	payloadPath string
	session     *engine.Session
	ctrl        *turn.Controller
	detector    *cheat.Detector
	log         zerolog.Logger
}

// Start writes the setup payload for own and inv, launches the engine and
// returns a match ready for its first turn. bc may be nil.
func Start(ctx context.Context, cfg *config.Config, own *naval.Board, inv *naval.Inventory, bc turn.Broadcaster) (*Match, error) {
	if bc == nil {
		bc = turn.NoopBroadcaster{}
	}
	id := NewMatchID()
	l := logger.ForMatch(id)

	path, err := WritePayload(cfg.CacheDir, naval.NewSetup(id, own, inv))
	if err != nil {
		return nil, err
	}
	l.Debug().Str("path", path).Msg("Setup payload written")

	session, err := engine.Start(ctx, cfg.EnginePath, path,
		engine.WithArgs(cfg.EngineArgs...),
		engine.WithMatchID(id),
		engine.WithHandshakeTimeout(cfg.HandshakeTimeout),
		engine.WithResponseTimeout(cfg.ResponseTimeout),
	)
	if err != nil {
		return nil, err
	}

	opponent, err := naval.NewBoard(own.Width(), own.Height())
	if err != nil {
		session.Terminate()
		return nil, err
	}

	m := &Match{
		id:          id,
		payloadPath: path,
		session:     session,
		detector:    cheat.NewDetector(),
		log:         l,
	}
	m.ctrl = turn.NewController(session, own, opponent, inv,
		turn.WithMatchID(id),
		turn.WithBroadcaster(bc),
		turn.WithMaxFailures(cfg.MaxFailures),
	)

	if err := m.detector.Register("quit", KeyQuit, 1, 0, m.quit); err != nil {
		session.Terminate()
		return nil, err
	}
	if err := m.detector.Register("reveal", KeyReveal, revealPresses, revealSpan, m.reveal); err != nil {
		session.Terminate()
		return nil, err
	}

	bc.BroadcastMatchEvent(id, turn.MatchStarted{
		Width:  own.Width(),
		Height: own.Height(),
		Items:  turn.StockOf(inv.Items()),
	})
	l.Info().Str("greeting", session.Greeting).Msg("Match started")
	return m, nil
}

// ID returns the match id.
func (m *Match) ID() string { return m.id }

// PayloadPath returns where the setup payload was written.
func (m *Match) PayloadPath() string { return m.payloadPath }

// Turn returns the turn controller.
func (m *Match) Turn() *turn.Controller { return m.ctrl }

// Over reports whether the match has ended.
func (m *Match) Over() bool { return m.ctrl.State() == turn.MatchOver }

// Press feeds a key press at frame to the shortcut detector.
func (m *Match) Press(key string, frame int64) []string {
	return m.detector.Press(key, frame)
}

// Close ends the match if it is still running and releases the engine.
func (m *Match) Close() error {
	if err := m.ctrl.End(); err != nil {
		return err
	}
	return m.session.Terminate()
}

func (m *Match) quit() {
	if err := m.ctrl.End(); err != nil {
		m.log.Warn().Err(err).Msg("Failed to end match")
	}
}

func (m *Match) reveal() {
	ev := m.log.Info()
	for _, it := range m.ctrl.Items() {
		ev = ev.Int(it.Kind.String(), it.Quantity)
	}
	hits, misses := 0, 0
	for _, row := range m.ctrl.OpponentGrid() {
		for _, s := range row {
			switch s {
			case naval.Hit:
				hits++
			case naval.Miss:
				misses++
			}
		}
	}
	ev.Int("hits", hits).Int("misses", misses).Msg("Reveal")
}
