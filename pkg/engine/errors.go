package engine

import "fmt"

// StartErrorKind classifies why a session could not be started.
type StartErrorKind int

const (
	EngineNotFound StartErrorKind = iota + 1
	LaunchFailed
	NoHandshake
)

func (k StartErrorKind) String() string {
	switch k {
	case EngineNotFound:
		return "engine not found"
	case LaunchFailed:
		return "launch failed"
	case NoHandshake:
		return "no handshake"
	}
	return fmt.Sprintf("StartErrorKind(%d)", int(k))
}

// StartError is returned by Start. It matches any other StartError of the same
// kind under errors.Is, so callers can test against the Err* values below.
type StartError struct {
	Kind StartErrorKind
	Err  error
}

func (e *StartError) Error() string {
	if e.Err == nil {
		return "engine: start: " + e.Kind.String()
	}
	return fmt.Sprintf("engine: start: %s: %v", e.Kind, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

func (e *StartError) Is(target error) bool {
	t, ok := target.(*StartError)
	return ok && t.Kind == e.Kind
}

// SessionErrorKind classifies a failed turn submission.
type SessionErrorKind int

const (
	NotAlive SessionErrorKind = iota + 1
	WriteFailed
	ReadFailed
	MalformedHeader
	Timeout
)

func (k SessionErrorKind) String() string {
	switch k {
	case NotAlive:
		return "not alive"
	case WriteFailed:
		return "write failed"
	case ReadFailed:
		return "read failed"
	case MalformedHeader:
		return "malformed header"
	case Timeout:
		return "timeout"
	}
	return fmt.Sprintf("SessionErrorKind(%d)", int(k))
}

// SessionError is returned by SubmitTurn. Like StartError it matches by kind.
type SessionError struct {
	Kind SessionErrorKind
	Err  error
}

func (e *SessionError) Error() string {
	if e.Err == nil {
		return "engine: session: " + e.Kind.String()
	}
	return fmt.Sprintf("engine: session: %s: %v", e.Kind, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

func (e *SessionError) Is(target error) bool {
	t, ok := target.(*SessionError)
	return ok && t.Kind == e.Kind
}

var (
	ErrEngineNotFound = &StartError{Kind: EngineNotFound}
	ErrLaunchFailed   = &StartError{Kind: LaunchFailed}
	ErrNoHandshake    = &StartError{Kind: NoHandshake}

	ErrNotAlive        = &SessionError{Kind: NotAlive}
	ErrWriteFailed     = &SessionError{Kind: WriteFailed}
	ErrReadFailed      = &SessionError{Kind: ReadFailed}
	ErrMalformedHeader = &SessionError{Kind: MalformedHeader}
	ErrTimeout         = &SessionError{Kind: Timeout}
)
