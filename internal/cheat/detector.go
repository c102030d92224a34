// Package cheat recognizes timed key-repetition shortcuts. Each registered
// sequence keeps the frame numbers of its most recent trigger presses and fires
// when enough presses land inside its window.
package cheat

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

var (
	ErrDuplicateSequence = errors.New("sequence already registered")
	ErrInvalidSequence   = errors.New("invalid sequence")
)

// sequence is one registered pattern. history is a ring of the last count
// trigger frames; start indexes the oldest entry.
type sequence struct {
	name    string
	key     string
	maxSpan int64
	fire    func()

	history []int64
	start   int
	size    int
}

func (s *sequence) push(frame int64) {
	if s.size < len(s.history) {
		s.history[(s.start+s.size)%len(s.history)] = frame
		s.size++
		return
	}
	s.history[s.start] = frame
	s.start = (s.start + 1) % len(s.history)
}

func (s *sequence) oldest() int64 { return s.history[s.start] }
func (s *sequence) newest() int64 { return s.history[(s.start+s.size-1)%len(s.history)] }

func (s *sequence) reset() {
	s.start = 0
	s.size = 0
}

// Detector holds the registered sequences. It is driven from the frame loop
// and is not safe for concurrent use.
type Detector struct {
	seqs  []*sequence
	names map[string]bool
}

// NewDetector creates an empty detector.
func NewDetector() *Detector {
	return &Detector{names: make(map[string]bool)}
}

// Register adds a sequence that fires fn when key is pressed count times with
// at most maxSpan frames between the first and last press.
func (d *Detector) Register(name, key string, count int, maxSpan int64, fn func()) error {
	if d.names[name] {
		return fmt.Errorf("%w: %s", ErrDuplicateSequence, name)
	}
	if key == "" || count < 1 || maxSpan < 0 || fn == nil {
		return fmt.Errorf("%w: %s", ErrInvalidSequence, name)
	}
	d.names[name] = true
	d.seqs = append(d.seqs, &sequence{
		name:    name,
		key:     key,
		maxSpan: maxSpan,
		fire:    fn,
		history: make([]int64, count),
	})
	return nil
}

// Press records key at frame and reports the names of the sequences it fired.
// A full window whose span is too wide is dropped without firing.
func (d *Detector) Press(key string, frame int64) []string {
	var fired []string
	for _, s := range d.seqs {
		if s.key != key {
			continue
		}
		s.push(frame)
		if s.size < len(s.history) {
			continue
		}
		span := s.newest() - s.oldest()
		s.reset()
		if span > s.maxSpan {
			log.Debug().Str("sequence", s.name).Int64("span", span).Msg("Shortcut window expired")
			continue
		}
		log.Debug().Str("sequence", s.name).Int64("frame", frame).Msg("Shortcut fired")
		s.fire()
		fired = append(fired, s.name)
	}
	return fired
}

// Pending returns how many presses sequence name currently holds.
func (d *Detector) Pending(name string) int {
	for _, s := range d.seqs {
		if s.name == name {
			return s.size
		}
	}
	return 0
}
