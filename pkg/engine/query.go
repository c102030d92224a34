package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
)

// Engine actions understood by the executable's one-shot mode.
const (
	actionHistory   = "listaHistorial"
	actionFindMatch = "buscarPartida"
	actionHelp      = "ayuda"
)

// History asks the engine for its list of past matches.
func History(ctx context.Context, path string) (string, error) {
	return runOnce(ctx, path, actionHistory)
}

// FindMatch asks the engine for the record of one past match.
func FindMatch(ctx context.Context, path, matchID string) (string, error) {
	if strings.TrimSpace(matchID) == "" {
		return "", errors.New("engine: find match: empty match id")
	}
	return runOnce(ctx, path, actionFindMatch, matchID)
}

// Help returns the engine's usage text.
func Help(ctx context.Context, path string) (string, error) {
	return runOnce(ctx, path, actionHelp)
}

// runOnce runs the engine to completion and returns its stdout. A non-zero
// exit is an error carrying whatever the engine printed.
func runOnce(ctx context.Context, path string, args ...string) (string, error) {
	if _, err := exec.LookPath(path); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return "", &StartError{Kind: EngineNotFound, Err: err}
		}
		return "", &StartError{Kind: LaunchFailed, Err: err}
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = strings.TrimSpace(stdout.String())
			}
			return stdout.String(), fmt.Errorf("engine: %s: exit %d: %s", args[0], exitErr.ExitCode(), msg)
		}
		return "", &StartError{Kind: LaunchFailed, Err: err}
	}
	return stdout.String(), nil
}
