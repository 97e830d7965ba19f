// Package subscriber holds per-chat watch state and the process-wide registry.
package subscriber

import (
	"errors"
	"fmt"
	"sync"

	"profile_watch_bot/internal/extractor"
	"profile_watch_bot/internal/model"
)

var (
	// ErrEmptyBaseline is returned when the first extraction of a profile
	// finds no records. The subscriber is marked failed.
	ErrEmptyBaseline = errors.New("baseline extraction found no records")

	// ErrFailed is returned by Diff once a subscriber has been marked failed.
	ErrFailed = errors.New("subscriber onboarding failed")
)

// State is the position of a subscriber in its baseline lifecycle.
type State int

// Subscriber states. Uninitialized moves to either Baseline or Failed, once.
const (
	StateUninitialized State = iota
	StateBaseline
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBaseline:
		return "baseline"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Subscriber is one chat watching one profile page.
type Subscriber struct {
	ID      int64
	Profile string

	extractor *extractor.Extractor

	mu      sync.Mutex
	state   State
	seen    map[model.NewsRecord]struct{}
	pending []string
}

// New creates an uninitialized subscriber.
func New(id int64, profile string, x *extractor.Extractor) *Subscriber {
	return &Subscriber{
		ID:        id,
		Profile:   profile,
		extractor: x,
		seen:      make(map[model.NewsRecord]struct{}),
	}
}

// Diff extracts records from page and compares them against the records
// already seen. The first successful call only captures a baseline; later
// calls queue a notification for every record not seen before, in page order.
func (s *Subscriber) Diff(page string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateFailed {
		return ErrFailed
	}

	records, err := s.extractor.Extract(s.Profile, page)
	if err != nil {
		return err
	}

	if s.state == StateUninitialized {
		for _, r := range records {
			s.seen[r] = struct{}{}
		}
		if len(s.seen) == 0 {
			s.state = StateFailed
			return fmt.Errorf("%s: %w", s.Profile, ErrEmptyBaseline)
		}
		s.state = StateBaseline
		return nil
	}

	for _, r := range records {
		if _, ok := s.seen[r]; ok {
			continue
		}
		s.seen[r] = struct{}{}
		s.pending = append(s.pending, r.Notification())
	}
	return nil
}

// State returns the current lifecycle state.
func (s *Subscriber) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SeenLen returns the number of distinct records observed so far.
func (s *Subscriber) SeenLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// PendingLen returns the number of queued notifications.
func (s *Subscriber) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Pending returns a copy of the notification queue, oldest first.
func (s *Subscriber) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.pending))
	copy(out, s.pending)
	return out
}

// Peek returns the oldest queued notification without removing it.
func (s *Subscriber) Peek() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return "", false
	}
	return s.pending[0], true
}

// Pop removes and returns the oldest queued notification.
func (s *Subscriber) Pop() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return "", false
	}
	text := s.pending[0]
	s.pending[0] = ""
	s.pending = s.pending[1:]
	return text, true
}
