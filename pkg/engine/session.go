// Package engine supervises the external rules engine. A Session owns one
// engine process and its pipes, performs the startup handshake, exchanges
// framed turn batches and terminates the process.
//
// The engine is launched with the setup payload path as its last argument and
// speaks the line protocol implemented by package wire over stdin/stdout.
// Anything it writes to stderr is forwarded to the log and never parsed.
package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/broadside/pkg/wire"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultResponseTimeout  = 30 * time.Second
	lineBufferSize          = 64
	stderrDrainTimeout      = time.Second
)

var errStreamClosed = errors.New("engine closed stdout")

// Option configures a Session before launch.
type Option func(*Session)

// WithArgs sets arguments passed before the setup payload path.
func WithArgs(args ...string) Option {
	return func(s *Session) {
		s.args = append([]string(nil), args...)
	}
}

// WithMatchID overrides the match id derived from the payload file name.
func WithMatchID(id string) Option {
	return func(s *Session) {
		s.matchID = id
	}
}

// WithHandshakeTimeout bounds the wait for the engine's first line.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.handshakeTimeout = d
	}
}

// WithResponseTimeout bounds the wait for a full response batch. Zero disables
// the bound and a hung engine then blocks SubmitTurn until ctx is done.
func WithResponseTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.responseTimeout = d
	}
}

// WithLogger sets the logger used for session events and engine stderr.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// Session is the handle to one running engine process. It is not safe for
// use by more than one turn controller.
type Session struct {
	path             string
	args             []string
	matchID          string
	handshakeTimeout time.Duration
	responseTimeout  time.Duration
	log              zerolog.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File
	stderr *os.File

	lines   chan string
	readErr error // valid once lines is closed
	done    chan struct{}
	exited  chan struct{}
	pumps   sync.WaitGroup

	// writeMu serializes batch writes. mu only guards the flags so IsAlive
	// never waits on a full stdin pipe.
	writeMu sync.Mutex
	mu      sync.Mutex
	closed  bool
	broken  bool

	// Greeting is the engine's handshake line.
	Greeting string
}

// Start launches the engine at path with setupPath as its final argument and
// waits for the one-line handshake. ctx bounds the handshake only; the engine
// process outlives it.
func Start(ctx context.Context, path, setupPath string, opts ...Option) (*Session, error) {
	s := &Session{
		path:             path,
		matchID:          strings.TrimSuffix(filepath.Base(setupPath), filepath.Ext(setupPath)),
		handshakeTimeout: defaultHandshakeTimeout,
		responseTimeout:  defaultResponseTimeout,
		log:              log.Logger,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With().Str("matchId", s.matchID).Logger()

	if err := s.start(setupPath); err != nil {
		return nil, err
	}

	if err := s.handshake(ctx); err != nil {
		s.Terminate()
		return nil, err
	}

	s.log.Info().Str("engine", path).Str("greeting", s.Greeting).Msg("Engine session started")
	return s, nil
}

// MatchID returns the id correlating this session with its setup payload.
func (s *Session) MatchID() string { return s.matchID }

// start resolves the executable, wires the pipes and launches the process.
func (s *Session) start(setupPath string) error {
	if _, err := exec.LookPath(s.path); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return &StartError{Kind: EngineNotFound, Err: err}
		}
		return &StartError{Kind: LaunchFailed, Err: err}
	}

	s.cmd = exec.Command(s.path, append(s.args, setupPath)...)

	var err error
	s.stdin, err = s.cmd.StdinPipe()
	if err != nil {
		return &StartError{Kind: LaunchFailed, Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	// The read ends are owned here rather than by exec so that Wait does not
	// close them while buffered output is still unread.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return &StartError{Kind: LaunchFailed, Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return &StartError{Kind: LaunchFailed, Err: fmt.Errorf("stderr pipe: %w", err)}
	}
	s.cmd.Stdout = stdoutW
	s.cmd.Stderr = stderrW

	err = s.cmd.Start()
	stdoutW.Close()
	stderrW.Close()
	if err != nil {
		stdoutR.Close()
		stderrR.Close()
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return &StartError{Kind: EngineNotFound, Err: err}
		}
		return &StartError{Kind: LaunchFailed, Err: err}
	}
	s.stdout = stdoutR
	s.stderr = stderrR

	s.lines = make(chan string, lineBufferSize)
	s.done = make(chan struct{})
	s.exited = make(chan struct{})

	go func() {
		s.cmd.Wait()
		close(s.exited)
	}()

	s.pumps.Add(2)
	go s.pumpStdout()
	go s.pumpStderr()
	return nil
}

// pumpStdout feeds stdout lines to s.lines until EOF or Terminate.
func (s *Session) pumpStdout() {
	defer s.pumps.Done()
	defer close(s.lines)
	sc := bufio.NewScanner(s.stdout)
	for sc.Scan() {
		select {
		case s.lines <- sc.Text():
		case <-s.done:
			return
		}
	}
	s.readErr = sc.Err()
}

// pumpStderr forwards engine diagnostics to the log.
func (s *Session) pumpStderr() {
	defer s.pumps.Done()
	sc := bufio.NewScanner(s.stderr)
	for sc.Scan() {
		s.log.Warn().Str("engine", filepath.Base(s.path)).Msg(sc.Text())
	}
}

// handshake reads the engine's acknowledgement line.
func (s *Session) handshake(ctx context.Context) error {
	line, err := s.readLine(ctx, s.timer(s.handshakeTimeout))
	if err != nil {
		return &StartError{Kind: NoHandshake, Err: err}
	}
	if strings.TrimSpace(line) == "" {
		return &StartError{Kind: NoHandshake, Err: errors.New("empty handshake line")}
	}
	s.Greeting = line
	return nil
}

// timer returns a channel that fires after d, or nil (never fires) for d <= 0.
func (s *Session) timer(d time.Duration) <-chan time.Time {
	if d <= 0 {
		return nil
	}
	return time.After(d)
}

// errDeadline marks a read that gave up waiting.
var errDeadline = errors.New("deadline exceeded waiting for engine")

// readLine returns the next stdout line.
func (s *Session) readLine(ctx context.Context, deadline <-chan time.Time) (string, error) {
	select {
	case line, ok := <-s.lines:
		if !ok {
			if s.readErr != nil {
				return "", fmt.Errorf("%w: %v", errStreamClosed, s.readErr)
			}
			return "", errStreamClosed
		}
		return line, nil
	case <-deadline:
		return "", errDeadline
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", errDeadline, ctx.Err())
	}
}

// IsAlive reports whether the engine process is running and the stream is
// still in sync. It never blocks.
func (s *Session) IsAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.broken || s.exited == nil {
		return false
	}
	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}

// markBroken records that the stream can no longer be trusted. Subsequent
// submissions fail with NotAlive.
func (s *Session) markBroken(kind SessionErrorKind, err error) *SessionError {
	s.mu.Lock()
	s.broken = true
	s.mu.Unlock()
	s.log.Error().Err(err).Str("kind", kind.String()).Msg("Engine session failed")
	return &SessionError{Kind: kind, Err: err}
}

// SubmitTurn writes one framed batch (header plus the payload lines it
// declares) in a single write, then blocks until the response header and the
// lines it declares have been read. Reading stops early after a well-formed
// game-over line. Any failure after the write leaves the session unusable.
func (s *Session) SubmitTurn(ctx context.Context, lines []string) (wire.Batch, error) {
	if !s.IsAlive() {
		return wire.Batch{}, &SessionError{Kind: NotAlive, Err: errors.New("engine process is not running")}
	}
	if err := wire.ValidateBatch(lines); err != nil {
		return wire.Batch{}, &SessionError{Kind: WriteFailed, Err: err}
	}

	payload := strings.Join(lines, "\n") + "\n"
	s.writeMu.Lock()
	_, err := io.WriteString(s.stdin, payload)
	s.writeMu.Unlock()
	if err != nil {
		return wire.Batch{}, s.markBroken(WriteFailed, err)
	}
	s.log.Debug().Int("lines", len(lines)-1).Msg("Turn submitted")

	deadline := s.timer(s.responseTimeout)

	header, err := s.readLine(ctx, deadline)
	if err != nil {
		return wire.Batch{}, s.markBroken(readKind(err), fmt.Errorf("reading header: %w", err))
	}
	n, err := wire.DecodeHeader(header)
	if err != nil {
		return wire.Batch{}, s.markBroken(MalformedHeader, err)
	}

	batch := wire.Batch{Declared: n, Lines: make([]string, 0, n)}
	for len(batch.Lines) < n {
		line, err := s.readLine(ctx, deadline)
		if err != nil {
			return wire.Batch{}, s.markBroken(readKind(err), fmt.Errorf("reading line %d of %d: %w", len(batch.Lines)+1, n, err))
		}
		batch.Lines = append(batch.Lines, line)
		if wire.IsGameOver(line) {
			break
		}
	}
	s.log.Debug().Int("declared", n).Int("read", len(batch.Lines)).Msg("Response batch read")
	return batch, nil
}

func readKind(err error) SessionErrorKind {
	if errors.Is(err, errDeadline) {
		return Timeout
	}
	return ReadFailed
}

// Terminate kills the engine process and releases the pipes. It is safe to
// call more than once and after the engine has exited on its own.
func (s *Session) Terminate() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.done != nil {
		close(s.done)
	}
	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.log.Warn().Err(err).Msg("Failed to kill engine")
		}
	}
	if s.exited != nil {
		<-s.exited
		s.stdout.Close()
		// Let the stderr pump reach EOF so trailing diagnostics are logged.
		drained := make(chan struct{})
		go func() {
			s.pumps.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-time.After(stderrDrainTimeout):
			s.stderr.Close()
			<-drained
		}
		s.stderr.Close()
	}
	s.log.Info().Msg("Engine session terminated")
	return nil
}
